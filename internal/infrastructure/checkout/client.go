package checkout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Config holds checkout gateway API configuration
type Config struct {
	MerchantID string // Merchant account identifier
	APIKey     string // API Key from the gateway
	BaseURL    string // Base URL (sandbox or production)
	NotifyURL  string // Webhook URL for payment notifications
	ReturnURL  string // Browser redirect after checkout completes
}

// Client is the checkout gateway API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// Session represents a created hosted checkout session
type Session struct {
	SessionID   string
	CheckoutURL string
	ExpiresAt   time.Time
}

// sessionRequest is the request body for session creation
type sessionRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	NotifyURL   string `json:"notifyUrl"`
	ReturnURL   string `json:"returnUrl"`
	Expired     int    `json:"expired"` // Expiry in hours
	Comments    string `json:"comments"`
	ReferenceID string `json:"referenceId"`
}

// sessionResponse is the gateway API response
type sessionResponse struct {
	Status  int    `json:"Status"`
	Message string `json:"Message"`
	Data    struct {
		SessionID   string `json:"SessionId"`
		ReferenceID string `json:"ReferenceId"`
		URL         string `json:"Url"`
		Total       int64  `json:"Total"`
		Fee         int64  `json:"Fee"`
		Expired     string `json:"Expired"` // ISO date string
	} `json:"Data"`
}

// NewClient creates a new checkout gateway client
func NewClient(cfg Config) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// generateSignature creates the HMAC-SHA256 signature for the gateway API
// Step 1: bodyHash = lowercase(sha256(jsonBody))
// Step 2: stringToSign = METHOD + ":" + merchantID + ":" + bodyHash + ":" + apiKey
// Step 3: signature = lowercase(hmacSha256(apiKey, stringToSign))
func (c *Client) generateSignature(jsonBody []byte, method string) string {
	bodyHashBytes := sha256.Sum256(jsonBody)
	bodyHash := strings.ToLower(hex.EncodeToString(bodyHashBytes[:]))

	stringToSign := fmt.Sprintf("%s:%s:%s:%s", method, c.config.MerchantID, bodyHash, c.config.APIKey)

	h := hmac.New(sha256.New, []byte(c.config.APIKey))
	h.Write([]byte(stringToSign))
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

// CreateSession creates a hosted checkout session for a course purchase.
// The gateway calls NotifyURL when the payment settles.
func (c *Client) CreateSession(ctx context.Context, referenceID string, amount int64, courseName, userName, userEmail string) (*Session, error) {
	endpoint := "/api/v2/payment/session"
	url := c.config.BaseURL + endpoint

	reqBody := sessionRequest{
		Name:        userName,
		Email:       userEmail,
		Amount:      amount,
		NotifyURL:   c.config.NotifyURL,
		ReturnURL:   c.config.ReturnURL,
		Expired:     24, // 24 hours
		Comments:    fmt.Sprintf("Course: %s", courseName),
		ReferenceID: referenceID,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	signature := c.generateSignature(jsonBody, "POST")

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchant", c.config.MerchantID)
	req.Header.Set("signature", signature)
	req.Header.Set("timestamp", fmt.Sprintf("%d", time.Now().Unix()))

	log.Printf("[checkout] Calling %s for reference %s, amount: %d", url, referenceID, amount)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checkout API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var apiResp sessionResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Status != 200 {
		return nil, fmt.Errorf("checkout API error: %s", apiResp.Message)
	}

	expiresAt, _ := time.Parse(time.RFC3339, apiResp.Data.Expired)
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(24 * time.Hour)
	}

	return &Session{
		SessionID:   apiResp.Data.SessionID,
		CheckoutURL: apiResp.Data.URL,
		ExpiresAt:   expiresAt,
	}, nil
}

// VerifyWebhookSignature validates the signature header on an incoming
// payment notification against the raw request body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	expected := c.generateSignature(body, "POST")
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
