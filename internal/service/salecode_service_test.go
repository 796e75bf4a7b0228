package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/driveline/driveline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeFormat = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func TestCreateSaleCode(t *testing.T) {
	svc := NewSaleCodeService(newFakeSaleCodeRepo())
	ctx := context.Background()

	limit := 10
	code, err := svc.CreateSaleCode(ctx, "admin-1", 25, &limit, nil)
	require.NoError(t, err)
	assert.Regexp(t, codeFormat, code.Code)
	assert.True(t, code.IsActive)
	assert.Equal(t, 25, code.DiscountPercentage)
	assert.Equal(t, "admin-1", code.CreatedBy)
}

func TestCreateSaleCodeValidatesDiscount(t *testing.T) {
	svc := NewSaleCodeService(newFakeSaleCodeRepo())
	ctx := context.Background()

	_, err := svc.CreateSaleCode(ctx, "admin-1", 0, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)

	_, err = svc.CreateSaleCode(ctx, "admin-1", 101, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)
}

func TestValidateSaleCode(t *testing.T) {
	repo := newFakeSaleCodeRepo()
	svc := NewSaleCodeService(repo)
	ctx := context.Background()
	now := time.Now().UTC()

	limit := 1
	expired := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	seed := []*domain.SaleCode{
		{Code: "LIVECODE", DiscountPercentage: 10, IsActive: true, ExpiresAt: &future},
		{Code: "DEADCODE", DiscountPercentage: 10, IsActive: false},
		{Code: "PASTCODE", DiscountPercentage: 10, IsActive: true, ExpiresAt: &expired},
		{Code: "USEDCODE", DiscountPercentage: 10, IsActive: true, UsageLimit: &limit, TimesUsed: 1},
	}
	for _, c := range seed {
		require.NoError(t, repo.Create(ctx, c))
	}

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"redeemable code", "LIVECODE", nil},
		{"lookup is case-insensitive", "  livecode ", nil},
		{"deactivated code", "DEADCODE", domain.ErrSaleCodeInactive},
		{"expired code", "PASTCODE", domain.ErrSaleCodeExpired},
		{"exhausted code", "USEDCODE", domain.ErrSaleCodeExhausted},
		{"unknown code", "NOSUCH00", domain.ErrSaleCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(ctx, tt.code)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDeactivateKeepsHistory(t *testing.T) {
	repo := newFakeSaleCodeRepo()
	svc := NewSaleCodeService(repo)
	ctx := context.Background()

	code, err := svc.CreateSaleCode(ctx, "admin-1", 15, nil, nil)
	require.NoError(t, err)
	require.NoError(t, svc.ConsumeUsage(ctx, code.ID))
	require.NoError(t, svc.Deactivate(ctx, code.ID))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
	assert.Equal(t, 1, all[0].TimesUsed)
}
