package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/middleware"
	"github.com/driveline/driveline/internal/service"
)

// SaleCodeHandler handles promotional code endpoints
type SaleCodeHandler struct {
	saleCodeService *service.SaleCodeService
}

// NewSaleCodeHandler creates a new sale code handler
func NewSaleCodeHandler(saleCodeService *service.SaleCodeService) *SaleCodeHandler {
	return &SaleCodeHandler{saleCodeService: saleCodeService}
}

// Create handles POST /v1/admin/sale-codes
func (h *SaleCodeHandler) Create(c *fiber.Ctx) error {
	var req struct {
		DiscountPercentage int        `json:"discount_percentage"`
		UsageLimit         *int       `json:"usage_limit"`
		ExpiresAt          *time.Time `json:"expires_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	code, err := h.saleCodeService.CreateSaleCode(c.Context(), middleware.UserID(c), req.DiscountPercentage, req.UsageLimit, req.ExpiresAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(code)
}

// List handles GET /v1/admin/sale-codes
func (h *SaleCodeHandler) List(c *fiber.Ctx) error {
	codes, err := h.saleCodeService.List(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"sale_codes": codes})
}

// Deactivate handles POST /v1/admin/sale-codes/:id/deactivate
func (h *SaleCodeHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.saleCodeService.Deactivate(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "sale code deactivated"})
}

// Validate handles POST /v1/me/sale-codes/validate, letting a student
// preview the discount before starting checkout
func (h *SaleCodeHandler) Validate(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	code, err := h.saleCodeService.Validate(c.Context(), req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"code":                code.Code,
		"discount_percentage": code.DiscountPercentage,
	})
}
