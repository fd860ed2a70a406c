package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/pricing"
)

// PromoStore defines the DB methods needed to validate a promo code.
// Satisfied by *database.Queries; validation is read-only.
type PromoStore interface {
	GetPromoCodeByCode(ctx context.Context, code string) (database.PromoCode, error)
	CountOrdersByPromoUser(ctx context.Context, arg database.CountOrdersByPromoUserParams) (int64, error)
}

// PromoService previews promo code eligibility without consuming usage.
type PromoService struct {
	store PromoStore
}

// NewPromoService creates a new PromoService.
func NewPromoService(store PromoStore) *PromoService {
	return &PromoService{store: store}
}

// ValidatePromoRequest identifies the customer and the order being priced.
type ValidatePromoRequest struct {
	Code          string
	OrderTotal    int64
	UserID        pgtype.UUID
	CustomerPhone string
}

// ValidatePromoResult is a successful eligibility check.
type ValidatePromoResult struct {
	PromoCodeID string
	Discount    int64
	NewTotal    int64
}

// Validate checks eligibility and computes the discount. It never mutates
// current_usage; consuming the code belongs to order creation. Repeated calls
// with unchanged inputs return identical results.
func (s *PromoService) Validate(ctx context.Context, req ValidatePromoRequest, now time.Time) (*ValidatePromoResult, error) {
	if req.Code == "" {
		return nil, apperr.Validation("promo code is required")
	}
	if req.OrderTotal < 0 {
		return nil, apperr.Validation("order total must not be negative")
	}

	promo, discount, err := checkPromo(ctx, s.store, req.Code, req.UserID, req.CustomerPhone, req.OrderTotal, now)
	if err != nil {
		return nil, err
	}

	return &ValidatePromoResult{
		PromoCodeID: promo.ID.String(),
		Discount:    discount,
		NewTotal:    req.OrderTotal - discount,
	}, nil
}

// checkPromo is the shared read-then-decide eligibility check used by both the
// preview endpoint and order creation.
func checkPromo(ctx context.Context, store PromoStore, code string, userID pgtype.UUID, phone string, orderTotal int64, now time.Time) (database.PromoCode, int64, error) {
	promo, err := store.GetPromoCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.PromoCode{}, 0, apperr.NotFound("promo code not found")
		}
		return database.PromoCode{}, 0, apperr.Storage("get promo code", err)
	}

	if !promo.IsActive {
		return database.PromoCode{}, 0, apperr.Conflict("promo code is not active")
	}
	if promo.StartDate.Valid && now.Before(promo.StartDate.Time) {
		return database.PromoCode{}, 0, apperr.Conflict("promo code is not yet valid")
	}
	if promo.EndDate.Valid && now.After(promo.EndDate.Time) {
		return database.PromoCode{}, 0, apperr.Conflict("promo code has expired")
	}
	if promo.UsageLimit.Valid && promo.CurrentUsage >= promo.UsageLimit.Int32 {
		return database.PromoCode{}, 0, apperr.Conflict("promo code usage limit reached")
	}

	if promo.UsageLimitPerUser.Valid {
		used, err := store.CountOrdersByPromoUser(ctx, database.CountOrdersByPromoUserParams{
			PromoCodeID:   promo.ID,
			UserID:        userID,
			CustomerPhone: phone,
		})
		if err != nil {
			return database.PromoCode{}, 0, apperr.Storage("count promo usage", err)
		}
		if used >= int64(promo.UsageLimitPerUser.Int32) {
			return database.PromoCode{}, 0, apperr.Conflict("promo code usage limit for this customer reached")
		}
	}

	if promo.MinOrderAmount.Valid && orderTotal < promo.MinOrderAmount.Int64 {
		return database.PromoCode{}, 0, apperr.Conflictf(
			"order total %d is below the promo minimum %d", orderTotal, promo.MinOrderAmount.Int64)
	}

	p := pricing.Promo{Type: promo.PromoType, Value: promo.Value}
	if promo.MaxDiscount.Valid {
		v := promo.MaxDiscount.Int64
		p.MaxDiscount = &v
	}
	discount := pricing.Discount(&p, orderTotal)

	return promo, discount, nil
}
