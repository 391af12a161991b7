package handlers

import (
	"tierpay/internal/services/settlement"
	"tierpay/internal/utils"
	"tierpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type SalesHandler struct {
	settlement settlement.Service
}

func NewSalesHandler(settlement settlement.Service) *SalesHandler {
	return &SalesHandler{settlement: settlement}
}

// List returns the merchant's settled sales, newest first.
func (h *SalesHandler) List(c *fiber.Ctx) error {
	merchant, ok := merchantID(c)
	if !ok {
		return response.Forbidden(c, "Only merchants can list sales")
	}

	pagination := utils.GetPagination(c, 1, 20)
	sales, total, err := h.settlement.ListSales(c.UserContext(), merchant, pagination.Offset, pagination.Limit)
	if err != nil {
		return handleError(c, err)
	}
	pagination.SetTotal(total)

	return c.JSON(utils.NewPaginatedResponse(sales, pagination))
}
