package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/middleware"
	"github.com/driveline/driveline/internal/service"
)

// EnrollmentHandler handles onboarding and enrollment endpoints
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
	maxUploadBytes    int64
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollmentService *service.EnrollmentService, maxUploadSizeMB int64) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		maxUploadBytes:    maxUploadSizeMB * 1024 * 1024,
	}
}

// GetOnboarding handles GET /v1/me/onboarding
func (h *EnrollmentHandler) GetOnboarding(c *fiber.Ctx) error {
	state, err := h.enrollmentService.GetOnboarding(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// SelectCourse handles POST /v1/me/enrollment
func (h *EnrollmentHandler) SelectCourse(c *fiber.Ctx) error {
	var req struct {
		CourseID string `json:"course_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.CourseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "course_id is required"})
	}

	enrollment, err := h.enrollmentService.SelectCourse(c.Context(), middleware.UserID(c), req.CourseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

// InitiatePayment handles POST /v1/me/enrollment/payment
func (h *EnrollmentHandler) InitiatePayment(c *fiber.Ctx) error {
	var req struct {
		SaleCode string `json:"sale_code"`
	}
	_ = c.BodyParser(&req)

	initiation, err := h.enrollmentService.InitiatePayment(c.Context(), middleware.UserID(c), req.SaleCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(initiation)
}

// UploadDocument handles POST /v1/me/enrollment/documents (multipart)
func (h *EnrollmentHandler) UploadDocument(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "document file is required"})
	}
	if fileHeader.Size > h.maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "document exceeds upload limit"})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read document"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read document"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	url, uploadErr := h.enrollmentService.UploadDocument(c.Context(), middleware.UserID(c), data, fileHeader.Filename, contentType)
	if uploadErr != nil {
		if errors.Is(uploadErr, domain.ErrDocumentFlagPending) {
			// the file landed in storage; hand the URL back so the
			// client can retry the flag without re-uploading
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"error":        uploadErr.Error(),
				"document_url": url,
			})
		}
		return respondError(c, uploadErr)
	}

	return c.JSON(fiber.Map{"document_url": url})
}

// RetryDocumentFlag handles POST /v1/me/enrollment/documents/retry
func (h *EnrollmentHandler) RetryDocumentFlag(c *fiber.Ctx) error {
	var req struct {
		DocumentURL string `json:"document_url"`
	}
	if err := c.BodyParser(&req); err != nil || req.DocumentURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "document_url is required"})
	}

	if err := h.enrollmentService.RetryDocumentFlag(c.Context(), middleware.UserID(c), req.DocumentURL); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "documents recorded"})
}

// ListAwaiting handles GET /v1/teach/enrollments/awaiting
func (h *EnrollmentHandler) ListAwaiting(c *fiber.Ctx) error {
	enrollments, err := h.enrollmentService.GetAwaitingConfirmation(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}

// Confirm handles POST /v1/teach/enrollments/:id/confirm and the admin variant
func (h *EnrollmentHandler) Confirm(c *fiber.Ctx) error {
	if err := h.enrollmentService.ConfirmInstructor(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "enrollment confirmed"})
}

// ListAll handles GET /v1/admin/enrollments
func (h *EnrollmentHandler) ListAll(c *fiber.Ctx) error {
	enrollments, err := h.enrollmentService.GetAll(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}
