package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSaleCodeNotFound  = errors.New("sale code not found")
	ErrSaleCodeInactive  = errors.New("sale code is deactivated")
	ErrSaleCodeExpired   = errors.New("sale code has expired")
	ErrSaleCodeExhausted = errors.New("sale code usage limit reached")
	ErrInvalidDiscount   = errors.New("discount percentage must be between 1 and 100")
)

// SaleCode is an admin-issued promotional code with usage counters
type SaleCode struct {
	ID                 string     `bson:"_id,omitempty" json:"id"`
	Code               string     `bson:"code" json:"code"`
	DiscountPercentage int        `bson:"discount_percentage" json:"discount_percentage"`
	UsageLimit         *int       `bson:"usage_limit,omitempty" json:"usage_limit,omitempty"`
	TimesUsed          int        `bson:"times_used" json:"times_used"`
	ExpiresAt          *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	IsActive           bool       `bson:"is_active" json:"is_active"`
	CreatedBy          string     `bson:"created_by" json:"created_by"`
	CreatedAt          time.Time  `bson:"created_at" json:"created_at"`
}

// Redeemable checks whether the code can be used right now
func (s *SaleCode) Redeemable(now time.Time) error {
	if !s.IsActive {
		return ErrSaleCodeInactive
	}
	if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
		return ErrSaleCodeExpired
	}
	if s.UsageLimit != nil && s.TimesUsed >= *s.UsageLimit {
		return ErrSaleCodeExhausted
	}
	return nil
}

// SaleCodeRepository defines operations for promotional codes
type SaleCodeRepository interface {
	Create(ctx context.Context, code *SaleCode) error
	GetByCode(ctx context.Context, code string) (*SaleCode, error)
	GetAll(ctx context.Context) ([]*SaleCode, error)
	Deactivate(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}
