package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/enum"
)

const promoCodeColumns = `id, code, promo_type, value, min_order_amount, max_discount,
	usage_limit, usage_limit_per_user, current_usage, start_date, end_date,
	is_active, created_at`

func scanPromoCode(row pgx.Row) (PromoCode, error) {
	var p PromoCode
	err := row.Scan(
		&p.ID, &p.Code, &p.PromoType, &p.Value, &p.MinOrderAmount, &p.MaxDiscount,
		&p.UsageLimit, &p.UsageLimitPerUser, &p.CurrentUsage, &p.StartDate,
		&p.EndDate, &p.IsActive, &p.CreatedAt,
	)
	return p, err
}

const getPromoCodeByCode = `-- name: GetPromoCodeByCode :one
SELECT ` + promoCodeColumns + ` FROM promo_codes WHERE code = $1`

func (q *Queries) GetPromoCodeByCode(ctx context.Context, code string) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, getPromoCodeByCode, code))
}

const getPromoCode = `-- name: GetPromoCode :one
SELECT ` + promoCodeColumns + ` FROM promo_codes WHERE id = $1`

func (q *Queries) GetPromoCode(ctx context.Context, id uuid.UUID) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, getPromoCode, id))
}

const incrementPromoUsage = `-- name: IncrementPromoUsage :exec
UPDATE promo_codes SET current_usage = current_usage + 1 WHERE id = $1`

// IncrementPromoUsage is called only by the order-creation path that consumes
// the code. Validation never calls it.
func (q *Queries) IncrementPromoUsage(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, incrementPromoUsage, id)
	return err
}

type CreatePromoCodeParams struct {
	Code              string
	PromoType         enum.PromoType
	Value             int64
	MinOrderAmount    pgtype.Int8
	MaxDiscount       pgtype.Int8
	UsageLimit        pgtype.Int4
	UsageLimitPerUser pgtype.Int4
	StartDate         pgtype.Timestamptz
	EndDate           pgtype.Timestamptz
	IsActive          bool
}

const createPromoCode = `-- name: CreatePromoCode :one
INSERT INTO promo_codes (
	code, promo_type, value, min_order_amount, max_discount, usage_limit,
	usage_limit_per_user, start_date, end_date, is_active
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + promoCodeColumns

func (q *Queries) CreatePromoCode(ctx context.Context, arg CreatePromoCodeParams) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, createPromoCode,
		arg.Code, arg.PromoType, arg.Value, arg.MinOrderAmount, arg.MaxDiscount,
		arg.UsageLimit, arg.UsageLimitPerUser, arg.StartDate, arg.EndDate, arg.IsActive,
	))
}
