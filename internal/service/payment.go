package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/driveline/driveline/internal/config"
	"github.com/driveline/driveline/internal/infrastructure/checkout"
	"github.com/oklog/ulid/v2"
)

// CheckoutSession represents the response from a payment provider
type CheckoutSession struct {
	SessionID   string
	CheckoutURL string
	ExpiresAt   time.Time
}

// PaymentProvider defines the interface for payment gateway integrations
type PaymentProvider interface {
	// CreateSession opens a hosted checkout session for a course purchase
	CreateSession(ctx context.Context, amount int64, courseName, userName, userEmail string) (*CheckoutSession, error)
	// VerifyNotification validates the signature on an incoming webhook body
	VerifyNotification(body []byte, signature string) bool
}

// MockCheckoutClient is a mock implementation of PaymentProvider for development
type MockCheckoutClient struct{}

// CheckoutClientAdapter adapts the checkout.Client to PaymentProvider
type CheckoutClientAdapter struct {
	client *checkout.Client
}

// NewPaymentProvider returns the appropriate PaymentProvider based on config.
// With no API key configured it returns a mock client for development.
func NewPaymentProvider(cfg config.CheckoutConfig) PaymentProvider {
	if cfg.APIKey == "" || cfg.MerchantID == "" {
		log.Println("[payment] Using mock checkout client (no credentials configured)")
		return &MockCheckoutClient{}
	}

	log.Printf("[payment] Using real checkout client (base: %s)", cfg.BaseURL)
	client := checkout.NewClient(checkout.Config{
		MerchantID: cfg.MerchantID,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		NotifyURL:  cfg.NotifyURL,
		ReturnURL:  cfg.ReturnURL,
	})

	return &CheckoutClientAdapter{client: client}
}

// CreateSession generates a fake session that settles via the same webhook
// path a real gateway would use
func (m *MockCheckoutClient) CreateSession(ctx context.Context, amount int64, courseName, userName, userEmail string) (*CheckoutSession, error) {
	sessionID := ulid.Make().String()
	return &CheckoutSession{
		SessionID:   sessionID,
		CheckoutURL: fmt.Sprintf("https://checkout.mock.local/session/%s", sessionID),
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
	}, nil
}

// VerifyNotification always accepts in mock mode
func (m *MockCheckoutClient) VerifyNotification(body []byte, signature string) bool {
	return true
}

// CreateSession opens a real hosted checkout session via the gateway API
func (a *CheckoutClientAdapter) CreateSession(ctx context.Context, amount int64, courseName, userName, userEmail string) (*CheckoutSession, error) {
	referenceID := ulid.Make().String()

	resp, err := a.client.CreateSession(ctx, referenceID, amount, courseName, userName, userEmail)
	if err != nil {
		log.Printf("[payment] checkout API error: %v", err)
		return nil, fmt.Errorf("payment provider error: %w", err)
	}

	return &CheckoutSession{
		SessionID:   resp.SessionID,
		CheckoutURL: resp.CheckoutURL,
		ExpiresAt:   resp.ExpiresAt,
	}, nil
}

// VerifyNotification checks the gateway signature on a webhook body
func (a *CheckoutClientAdapter) VerifyNotification(body []byte, signature string) bool {
	return a.client.VerifyWebhookSignature(body, signature)
}
