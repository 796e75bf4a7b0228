package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/middleware"
	"github.com/driveline/driveline/internal/service"
)

// LessonHandler handles lesson lifecycle endpoints
type LessonHandler struct {
	lessonService *service.LessonService
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(lessonService *service.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// Book handles POST /v1/me/lessons
func (h *LessonHandler) Book(c *fiber.Ctx) error {
	var req service.BookLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	lesson, err := h.lessonService.Book(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

// ListMine handles GET /v1/me/lessons for both students and teachers
func (h *LessonHandler) ListMine(c *fiber.Ctx) error {
	lessons, err := h.lessonService.ListForUser(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"lessons": lessons})
}

// GetLesson handles GET /v1/me/lessons/:id
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	lesson, err := h.lessonService.GetByID(c.Context(), middleware.UserID(c), middleware.Role(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lesson)
}

// Reschedule handles PATCH /v1/me/lessons/:id/slot
func (h *LessonHandler) Reschedule(c *fiber.Ctx) error {
	var req struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	lesson, err := h.lessonService.Reschedule(c.Context(), middleware.UserID(c), middleware.Role(c), c.Params("id"), req.Date, req.Time)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lesson)
}

// Cancel handles POST /v1/me/lessons/:id/cancel
func (h *LessonHandler) Cancel(c *fiber.Ctx) error {
	if err := h.lessonService.Cancel(c.Context(), middleware.UserID(c), middleware.Role(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "lesson cancelled"})
}

// AttachNote handles PATCH /v1/me/lessons/:id/notes
func (h *LessonHandler) AttachNote(c *fiber.Ctx) error {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	err := h.lessonService.AttachNote(c.Context(), middleware.UserID(c), middleware.Role(c), c.Params("id"), req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "note saved"})
}

// Approve handles POST /v1/teach/lessons/:id/approve and the admin variant
func (h *LessonHandler) Approve(c *fiber.Ctx) error {
	if err := h.lessonService.Approve(c.Context(), middleware.UserID(c), middleware.Role(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "lesson confirmed"})
}

// Decline handles POST /v1/teach/lessons/:id/decline and the admin variant
func (h *LessonHandler) Decline(c *fiber.Ctx) error {
	if err := h.lessonService.Decline(c.Context(), middleware.UserID(c), middleware.Role(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "lesson declined"})
}

// Complete handles POST /v1/teach/lessons/:id/complete and the admin variant
func (h *LessonHandler) Complete(c *fiber.Ctx) error {
	if err := h.lessonService.Complete(c.Context(), middleware.UserID(c), middleware.Role(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "lesson completed"})
}

// ListAll handles GET /v1/admin/lessons
func (h *LessonHandler) ListAll(c *fiber.Ctx) error {
	lessons, err := h.lessonService.ListAll(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"lessons": lessons})
}
