package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
)

// mockPromoStore implements PromoStore with configurable behavior.
type mockPromoStore struct {
	getPromoCodeByCodeFn     func(ctx context.Context, code string) (database.PromoCode, error)
	countOrdersByPromoUserFn func(ctx context.Context, arg database.CountOrdersByPromoUserParams) (int64, error)
}

func (m *mockPromoStore) GetPromoCodeByCode(ctx context.Context, code string) (database.PromoCode, error) {
	return m.getPromoCodeByCodeFn(ctx, code)
}
func (m *mockPromoStore) CountOrdersByPromoUser(ctx context.Context, arg database.CountOrdersByPromoUserParams) (int64, error) {
	return m.countOrdersByPromoUserFn(ctx, arg)
}

func activePromo(code string) database.PromoCode {
	return database.PromoCode{
		ID:        uuid.New(),
		Code:      code,
		PromoType: enum.PromoTypePercentage,
		Value:     10,
		IsActive:  true,
	}
}

func promoStoreWith(promo database.PromoCode) *mockPromoStore {
	return &mockPromoStore{
		getPromoCodeByCodeFn: func(ctx context.Context, code string) (database.PromoCode, error) {
			if code == promo.Code {
				return promo, nil
			}
			return database.PromoCode{}, pgx.ErrNoRows
		},
		countOrdersByPromoUserFn: func(ctx context.Context, arg database.CountOrdersByPromoUserParams) (int64, error) {
			return 0, nil
		},
	}
}

func TestValidatePromoPercentage(t *testing.T) {
	svc := NewPromoService(promoStoreWith(activePromo("WELCOME10")))

	result, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:          "WELCOME10",
		OrderTotal:    5000,
		CustomerPhone: "+15550001111",
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(500), result.Discount)
	assert.Equal(t, int64(4500), result.NewTotal)
}

func TestValidatePromoIsPure(t *testing.T) {
	svc := NewPromoService(promoStoreWith(activePromo("WELCOME10")))
	req := ValidatePromoRequest{
		Code:          "WELCOME10",
		OrderTotal:    5000,
		CustomerPhone: "+15550001111",
	}

	first, err := svc.Validate(context.Background(), req, testNow)
	require.NoError(t, err)
	second, err := svc.Validate(context.Background(), req, testNow)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidatePromoNotFound(t *testing.T) {
	svc := NewPromoService(promoStoreWith(activePromo("WELCOME10")))

	_, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:       "NOPE",
		OrderTotal: 5000,
	}, testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestValidatePromoInactive(t *testing.T) {
	promo := activePromo("OLD")
	promo.IsActive = false
	svc := NewPromoService(promoStoreWith(promo))

	_, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:       "OLD",
		OrderTotal: 5000,
	}, testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestValidatePromoDateWindow(t *testing.T) {
	t.Run("not yet valid", func(t *testing.T) {
		promo := activePromo("SOON")
		promo.StartDate = pgtype.Timestamptz{Time: testNow.Add(24 * time.Hour), Valid: true}
		svc := NewPromoService(promoStoreWith(promo))

		_, err := svc.Validate(context.Background(), ValidatePromoRequest{
			Code:       "SOON",
			OrderTotal: 5000,
		}, testNow)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
	})

	t.Run("expired", func(t *testing.T) {
		promo := activePromo("GONE")
		promo.EndDate = pgtype.Timestamptz{Time: testNow.Add(-time.Hour), Valid: true}
		svc := NewPromoService(promoStoreWith(promo))

		_, err := svc.Validate(context.Background(), ValidatePromoRequest{
			Code:       "GONE",
			OrderTotal: 5000,
		}, testNow)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
	})

	t.Run("inside window", func(t *testing.T) {
		promo := activePromo("NOW")
		promo.StartDate = pgtype.Timestamptz{Time: testNow.Add(-time.Hour), Valid: true}
		promo.EndDate = pgtype.Timestamptz{Time: testNow.Add(time.Hour), Valid: true}
		svc := NewPromoService(promoStoreWith(promo))

		_, err := svc.Validate(context.Background(), ValidatePromoRequest{
			Code:       "NOW",
			OrderTotal: 5000,
		}, testNow)
		assert.NoError(t, err)
	})
}

func TestValidatePromoGlobalLimit(t *testing.T) {
	promo := activePromo("CAPPED")
	promo.UsageLimit = pgtype.Int4{Int32: 100, Valid: true}
	promo.CurrentUsage = 100
	svc := NewPromoService(promoStoreWith(promo))

	_, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:       "CAPPED",
		OrderTotal: 5000,
	}, testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestValidatePromoPerUserLimit(t *testing.T) {
	promo := activePromo("ONCE")
	promo.UsageLimitPerUser = pgtype.Int4{Int32: 1, Valid: true}
	store := promoStoreWith(promo)
	store.countOrdersByPromoUserFn = func(ctx context.Context, arg database.CountOrdersByPromoUserParams) (int64, error) {
		return 1, nil
	}
	svc := NewPromoService(store)

	_, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:          "ONCE",
		OrderTotal:    5000,
		CustomerPhone: "+15550001111",
	}, testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestValidatePromoBelowMinimum(t *testing.T) {
	promo := activePromo("BIG")
	promo.MinOrderAmount = pgtype.Int8{Int64: 10000, Valid: true}
	svc := NewPromoService(promoStoreWith(promo))

	_, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:       "BIG",
		OrderTotal: 5000,
	}, testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestValidatePromoMaxDiscountCap(t *testing.T) {
	promo := activePromo("CAP")
	promo.Value = 50
	promo.MaxDiscount = pgtype.Int8{Int64: 1000, Valid: true}
	svc := NewPromoService(promoStoreWith(promo))

	result, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:       "CAP",
		OrderTotal: 5000,
	}, testNow)
	require.NoError(t, err)

	// 50% of 5000 is 2500, capped at 1000.
	assert.Equal(t, int64(1000), result.Discount)
	assert.Equal(t, int64(4000), result.NewTotal)
}

func TestValidatePromoFixedNeverExceedsTotal(t *testing.T) {
	promo := activePromo("FLAT")
	promo.PromoType = enum.PromoTypeFixed
	promo.Value = 8000
	svc := NewPromoService(promoStoreWith(promo))

	result, err := svc.Validate(context.Background(), ValidatePromoRequest{
		Code:       "FLAT",
		OrderTotal: 5000,
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), result.Discount)
	assert.Equal(t, int64(0), result.NewTotal)
}
