package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/domain"
)

// respondError maps domain sentinel errors to HTTP status codes so every
// handler answers consistently
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrLessonNotFound),
		errors.Is(err, domain.ErrSaleCodeNotFound),
		errors.Is(err, domain.ErrEnrollmentNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, domain.ErrEnrollmentExists),
		errors.Is(err, domain.ErrProfileInUse):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrPaymentRequired),
		errors.Is(err, domain.ErrDocumentsRequired),
		errors.Is(err, domain.ErrNotConfirmed):
		status = fiber.StatusPreconditionFailed
	case errors.Is(err, domain.ErrLessonTerminal),
		errors.Is(err, domain.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrMissingLessonFields),
		errors.Is(err, domain.ErrLessonDateInPast),
		errors.Is(err, domain.ErrInvalidLessonDate),
		errors.Is(err, domain.ErrInvalidCourse),
		errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrDocumentMissing),
		errors.Is(err, domain.ErrCourseInactive):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrSaleCodeInactive),
		errors.Is(err, domain.ErrSaleCodeExpired),
		errors.Is(err, domain.ErrSaleCodeExhausted):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDocumentFlagPending):
		// the document landed; the client should retry the flag, not
		// the upload
		status = fiber.StatusAccepted
	case errors.Is(err, domain.ErrPaymentSessionFailed):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
