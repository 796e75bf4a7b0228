package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// DrivelineClaims represents custom JWT claims for Driveline sessions
type DrivelineClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
