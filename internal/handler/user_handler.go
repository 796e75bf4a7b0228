package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/middleware"
	"github.com/driveline/driveline/internal/service"
)

// UserHandler handles profile endpoints
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe handles GET /v1/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	profile, err := h.userService.GetProfile(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMe handles PATCH /v1/me
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var req service.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	profile, err := h.userService.UpdateProfile(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// ListTeachers handles GET /v1/teachers. Students pick a teacher from
// this list when booking.
func (h *UserHandler) ListTeachers(c *fiber.Ctx) error {
	teachers, err := h.userService.ListByRole(c.Context(), domain.RoleTeacher)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"teachers": teachers})
}

// ListUsers handles GET /v1/admin/users, optionally filtered by ?role=
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	if role := c.Query("role"); role != "" {
		users, err := h.userService.ListByRole(c.Context(), role)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"users": users})
	}

	users, err := h.userService.ListUsers(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetUser handles GET /v1/admin/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	profile, err := h.userService.GetProfile(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// CreateUser handles POST /v1/admin/users, pre-provisioning a teacher or
// admin account by email
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email is required"})
	}

	profile, err := h.userService.CreateProvisionedUser(c.Context(), req.Email, req.FirstName, req.LastName, req.Role)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// AssignRole handles PATCH /v1/admin/users/:id/role
func (h *UserHandler) AssignRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.userService.AssignRole(c.Context(), c.Params("id"), req.Role); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "role updated"})
}

// DeleteUser handles DELETE /v1/admin/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.userService.DeleteUser(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "user deleted"})
}
