package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/service"
)

// CourseHandler handles course catalog endpoints
type CourseHandler struct {
	courseService *service.CourseService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// ListActive handles GET /v1/courses
func (h *CourseHandler) ListActive(c *fiber.Ctx) error {
	courses, err := h.courseService.ListActive(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// GetCourse handles GET /v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.courseService.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(course)
}

// ListAll handles GET /v1/admin/courses, including deactivated entries
func (h *CourseHandler) ListAll(c *fiber.Ctx) error {
	courses, err := h.courseService.ListAll(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// CreateCourse handles POST /v1/admin/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var course domain.Course
	if err := c.BodyParser(&course); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.courseService.CreateCourse(c.Context(), &course); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

// UpdateCourse handles PUT /v1/admin/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	var course domain.Course
	if err := c.BodyParser(&course); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	course.ID = c.Params("id")

	if err := h.courseService.UpdateCourse(c.Context(), &course); err != nil {
		return respondError(c, err)
	}
	return c.JSON(course)
}

// SetActive handles PATCH /v1/admin/courses/:id/active
func (h *CourseHandler) SetActive(c *fiber.Ctx) error {
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.courseService.SetActive(c.Context(), c.Params("id"), req.Active); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "course updated"})
}
