package handlers

import (
	"tierpay/internal/models"
	"tierpay/internal/services/terminal"
	"tierpay/internal/utils"
	"tierpay/internal/utils/response"
	"tierpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TerminalHandler struct {
	terminals terminal.Service
}

func NewTerminalHandler(terminals terminal.Service) *TerminalHandler {
	return &TerminalHandler{terminals: terminals}
}

type createTerminalRequest struct {
	Name       string `json:"name" validate:"required,max=64"`
	Credential string `json:"credential" validate:"required,credential"`
}

type terminalLoginRequest struct {
	TerminalID string `json:"terminal_id" validate:"required,uuid"`
	Credential string `json:"credential" validate:"required"`
}

func merchantID(c *fiber.Ctx) (uint, bool) {
	claims, err := utils.GetUserClaims(c)
	if err != nil || claims.Role != models.RoleMerchant {
		return 0, false
	}
	return claims.MerchantID(), true
}

func (h *TerminalHandler) Create(c *fiber.Ctx) error {
	merchant, ok := merchantID(c)
	if !ok {
		return response.Forbidden(c, "Only merchants manage terminals")
	}

	var req createTerminalRequest
	if ok, err := parseBody(c, &req, false); !ok {
		return err
	}

	name := validation.CleanText(req.Name)
	if name == "" {
		return response.ValidationError(c, map[string]string{"name": "is required"})
	}

	term, err := h.terminals.Create(c.UserContext(), merchant, name, req.Credential)
	if err != nil {
		return handleError(c, err)
	}
	return response.Created(c, "Terminal created", term)
}

func (h *TerminalHandler) List(c *fiber.Ctx) error {
	merchant, ok := merchantID(c)
	if !ok {
		return response.Forbidden(c, "Only merchants manage terminals")
	}

	views, err := h.terminals.List(c.UserContext(), merchant)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Terminals retrieved", views)
}

func (h *TerminalHandler) Remove(c *fiber.Ctx) error {
	merchant, ok := merchantID(c)
	if !ok {
		return response.Forbidden(c, "Only merchants manage terminals")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid terminal id")
	}

	if err := h.terminals.Remove(c.UserContext(), merchant, id); err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Terminal removed", nil)
}

// RotateCode invalidates the terminal's printed code and issues a new one.
func (h *TerminalHandler) RotateCode(c *fiber.Ctx) error {
	merchant, ok := merchantID(c)
	if !ok {
		return response.Forbidden(c, "Only merchants manage terminals")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid terminal id")
	}

	term, err := h.terminals.RotateCode(c.UserContext(), merchant, id)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Scan code rotated", term)
}

func (h *TerminalHandler) MerchantCode(c *fiber.Ctx) error {
	merchant, ok := merchantID(c)
	if !ok {
		return response.Forbidden(c, "Only merchants manage terminals")
	}

	code, err := h.terminals.MerchantCode(c.UserContext(), merchant)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Counter code retrieved", code)
}

func (h *TerminalHandler) RotateMerchantCode(c *fiber.Ctx) error {
	merchant, ok := merchantID(c)
	if !ok {
		return response.Forbidden(c, "Only merchants manage terminals")
	}

	code, err := h.terminals.RotateMerchantCode(c.UserContext(), merchant)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Counter code rotated", code)
}

// Login exchanges a terminal credential for a terminal token. The token acts
// for the owning merchant but only on sessions of this terminal.
func (h *TerminalHandler) Login(c *fiber.Ctx) error {
	var req terminalLoginRequest
	if ok, err := parseBody(c, &req, false); !ok {
		return err
	}

	id := uuid.MustParse(req.TerminalID)
	term, err := h.terminals.Authenticate(c.UserContext(), id, req.Credential)
	if err != nil {
		return handleError(c, err)
	}

	token, err := utils.GenerateTerminalToken(&models.UserClaims{
		UserID:      term.MerchantID,
		Role:        models.RoleTerminal,
		TerminalID:  &term.ID,
		Permissions: models.GetDefaultPermissions(models.RoleTerminal),
	})
	if err != nil {
		return response.ServerError(c, "Failed to issue terminal token")
	}

	return response.Success(c, "Terminal logged in", fiber.Map{
		"token":       token,
		"expires_in":  int(utils.TerminalTokenTTL.Seconds()),
		"terminal_id": term.ID,
		"merchant_id": term.MerchantID,
	})
}
