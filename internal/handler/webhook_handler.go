package handler

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/driveline/driveline/internal/service"
)

// WebhookHandler receives payment gateway notifications
type WebhookHandler struct {
	enrollmentService *service.EnrollmentService
	payment           service.PaymentProvider
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(enrollmentService *service.EnrollmentService, payment service.PaymentProvider) *WebhookHandler {
	return &WebhookHandler{
		enrollmentService: enrollmentService,
		payment:           payment,
	}
}

// paymentNotification is the gateway's settlement callback body
type paymentNotification struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// PaymentNotification handles POST /webhooks/payment. The gateway signs
// the raw body; unverifiable notifications are dropped with 401.
func (h *WebhookHandler) PaymentNotification(c *fiber.Ctx) error {
	body := c.Body()

	if !h.payment.VerifyNotification(body, c.Get("signature")) {
		log.Printf("[webhook] rejected notification with bad signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
	}

	var notif paymentNotification
	if err := json.Unmarshal(body, &notif); err != nil || notif.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification body"})
	}

	success := notif.Status == "success" || notif.Status == "paid"

	enrollment, err := h.enrollmentService.ConfirmPayment(c.Context(), notif.SessionID, success)
	if err != nil {
		log.Printf("[webhook] failed to settle session %s: %v", notif.SessionID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown payment session"})
	}

	log.Printf("[webhook] session %s settled as %s for student %s", notif.SessionID, enrollment.PaymentStatus, enrollment.StudentID)
	return c.JSON(fiber.Map{"message": "ok"})
}
