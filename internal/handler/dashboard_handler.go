package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/middleware"
	"github.com/driveline/driveline/internal/service"
)

// DashboardHandler serves the per-role overview endpoints
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Student handles GET /v1/me/dashboard
func (h *DashboardHandler) Student(c *fiber.Ctx) error {
	dash, err := h.dashboardService.GetStudentDashboard(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dash)
}

// Teacher handles GET /v1/teach/dashboard
func (h *DashboardHandler) Teacher(c *fiber.Ctx) error {
	dash, err := h.dashboardService.GetTeacherDashboard(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dash)
}

// Admin handles GET /v1/admin/dashboard
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	dash, err := h.dashboardService.GetAdminDashboard(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dash)
}
