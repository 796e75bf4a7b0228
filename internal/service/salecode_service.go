package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/driveline/driveline/internal/domain"
)

const saleCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const saleCodeLength = 8

// SaleCodeService manages admin-issued promotional codes
type SaleCodeService struct {
	saleCodeRepo domain.SaleCodeRepository
}

// NewSaleCodeService creates a new sale code service
func NewSaleCodeService(saleCodeRepo domain.SaleCodeRepository) *SaleCodeService {
	return &SaleCodeService{saleCodeRepo: saleCodeRepo}
}

// CreateSaleCode mints a new random code. UsageLimit and ExpiresAt are
// optional; nil means unlimited uses and no expiry.
func (s *SaleCodeService) CreateSaleCode(ctx context.Context, createdBy string, discountPercentage int, usageLimit *int, expiresAt *time.Time) (*domain.SaleCode, error) {
	if discountPercentage < 1 || discountPercentage > 100 {
		return nil, domain.ErrInvalidDiscount
	}

	code, err := generateCode(saleCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	saleCode := &domain.SaleCode{
		Code:               code,
		DiscountPercentage: discountPercentage,
		UsageLimit:         usageLimit,
		ExpiresAt:          expiresAt,
		IsActive:           true,
		CreatedBy:          createdBy,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.saleCodeRepo.Create(ctx, saleCode); err != nil {
		return nil, fmt.Errorf("failed to store sale code: %w", err)
	}
	return saleCode, nil
}

// Validate looks up a code and checks it is redeemable right now.
// Lookup is case-insensitive; codes are stored uppercase.
func (s *SaleCodeService) Validate(ctx context.Context, code string) (*domain.SaleCode, error) {
	saleCode, err := s.saleCodeRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if err := saleCode.Redeemable(time.Now().UTC()); err != nil {
		return nil, err
	}
	return saleCode, nil
}

// ConsumeUsage counts one redemption against the code
func (s *SaleCodeService) ConsumeUsage(ctx context.Context, id string) error {
	return s.saleCodeRepo.IncrementUsage(ctx, id)
}

// List returns all codes, newest first
func (s *SaleCodeService) List(ctx context.Context) ([]*domain.SaleCode, error) {
	return s.saleCodeRepo.GetAll(ctx)
}

// Deactivate retires a code without deleting its usage history
func (s *SaleCodeService) Deactivate(ctx context.Context, id string) error {
	return s.saleCodeRepo.Deactivate(ctx, id)
}

// generateCode produces an n-character code over A-Z0-9 using crypto/rand
func generateCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range buf {
		b.WriteByte(saleCodeAlphabet[int(c)%len(saleCodeAlphabet)])
	}
	return b.String(), nil
}
