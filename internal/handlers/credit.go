package handlers

import (
	"tierpay/internal/domain/credit"
	domainErrors "tierpay/internal/errors"
	"tierpay/internal/services/session"
	"tierpay/internal/services/settlement"
	"tierpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreditHandler struct {
	tables     *credit.Tables
	sessions   session.Service
	settlement settlement.Service
}

func NewCreditHandler(tables *credit.Tables, sessions session.Service, settlement settlement.Service) *CreditHandler {
	return &CreditHandler{
		tables:     tables,
		sessions:   sessions,
		settlement: settlement,
	}
}

type quoteRequest struct {
	Amount string `json:"amount" validate:"required,money"`
}

// Tiers returns the tier table of one account category for display.
func (h *CreditHandler) Tiers(c *fiber.Ctx) error {
	category, err := credit.ParseCategory(c.Params("category"))
	if err != nil {
		return response.BadRequest(c, "Unknown account category")
	}
	table, ok := h.tables.Table(category)
	if !ok {
		return response.Error(c, fiber.StatusNotFound, "No tier table for category")
	}
	return response.Success(c, "Tier table retrieved", table)
}

// Quote previews the upfront/financed split the caller would get today.
func (h *CreditHandler) Quote(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	if actor.Role != session.RoleCustomer {
		return handleError(c, domainErrors.ErrForbidden)
	}

	var req quoteRequest
	if ok, err := parseBody(c, &req, false); !ok {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.ValidationError(c, map[string]string{"amount": "must be a decimal amount"})
	}

	quote, err := h.sessions.Quote(c.UserContext(), actor.ID, amount)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Quote computed", quote)
}

// Commitments lists the caller's installment commitments.
func (h *CreditHandler) Commitments(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	if actor.Role != session.RoleCustomer {
		return handleError(c, domainErrors.ErrForbidden)
	}

	commitments, err := h.settlement.ListCommitments(c.UserContext(), actor.ID)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Commitments retrieved", commitments)
}
