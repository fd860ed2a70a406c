package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/enum"
)

const orderColumns = `id, order_number, customer_name, customer_phone, user_id,
	service_id, variant_id, status, quantity, base_amount, delivery_fee,
	other_fees, fine_amount, fine_surcharge, discount_amount, total_amount,
	promo_code_id, work_order_number, status_reason, admin_notes,
	estimated_completion_date, completed_at, cancelled_at, created_by,
	created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhone, &o.UserID,
		&o.ServiceID, &o.VariantID, &o.Status, &o.Quantity, &o.BaseAmount,
		&o.DeliveryFee, &o.OtherFees, &o.FineAmount, &o.FineSurcharge,
		&o.DiscountAmount, &o.TotalAmount, &o.PromoCodeID, &o.WorkOrderNumber,
		&o.StatusReason, &o.AdminNotes, &o.EstimatedCompletionDate,
		&o.CompletedAt, &o.CancelledAt, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber    string
	CustomerName   string
	CustomerPhone  string
	UserID         pgtype.UUID
	ServiceID      uuid.UUID
	VariantID      uuid.UUID
	Status         enum.OrderStatus
	Quantity       int32
	BaseAmount     int64
	DeliveryFee    int64
	OtherFees      int64
	FineAmount     int64
	FineSurcharge  int64
	DiscountAmount int64
	TotalAmount    int64
	PromoCodeID    pgtype.UUID
	CreatedBy      pgtype.UUID
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
	order_number, customer_name, customer_phone, user_id, service_id,
	variant_id, status, quantity, base_amount, delivery_fee, other_fees,
	fine_amount, fine_surcharge, discount_amount, total_amount, promo_code_id,
	created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.CustomerName, arg.CustomerPhone, arg.UserID,
		arg.ServiceID, arg.VariantID, arg.Status, arg.Quantity, arg.BaseAmount,
		arg.DeliveryFee, arg.OtherFees, arg.FineAmount, arg.FineSurcharge,
		arg.DiscountAmount, arg.TotalAmount, arg.PromoCodeID, arg.CreatedBy,
	))
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE`

// GetOrderForUpdate locks the order row to serialize concurrent payment
// reconciliation against the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByNumber = `-- name: GetOrderByNumber :one
SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

const getNextOrderNumber = `-- name: GetNextOrderNumber :one
SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INT)), 0) + 1 FROM orders`

func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber).Scan(&n)
	return n, err
}

type ListOrdersParams struct {
	Status        pgtype.Text
	CustomerPhone pgtype.Text
	Limit         int32
	Offset        int32
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR customer_phone = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.CustomerPhone, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type SetOrderStatusParams struct {
	ID                      uuid.UUID
	Status                  enum.OrderStatus
	AdminNotes              pgtype.Text
	WorkOrderNumber         pgtype.Text
	StatusReason            pgtype.Text
	CompletedAt             pgtype.Timestamptz
	CancelledAt             pgtype.Timestamptz
	EstimatedCompletionDate pgtype.Date
}

const setOrderStatus = `-- name: SetOrderStatus :one
UPDATE orders SET
	status = $2,
	admin_notes = COALESCE($3, admin_notes),
	work_order_number = COALESCE($4, work_order_number),
	status_reason = COALESCE($5, status_reason),
	completed_at = COALESCE($6, completed_at),
	cancelled_at = COALESCE($7, cancelled_at),
	estimated_completion_date = COALESCE($8, estimated_completion_date),
	updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) SetOrderStatus(ctx context.Context, arg SetOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderStatus,
		arg.ID, arg.Status, arg.AdminNotes, arg.WorkOrderNumber,
		arg.StatusReason, arg.CompletedAt, arg.CancelledAt,
		arg.EstimatedCompletionDate,
	))
}

type CancelStaleOrderParams struct {
	ID           uuid.UUID
	StatusReason string
}

const cancelStaleOrder = `-- name: CancelStaleOrder :execrows
UPDATE orders SET
	status = 'cancelled',
	status_reason = $2,
	cancelled_at = now(),
	updated_at = now()
WHERE id = $1 AND status = 'waiting_confirmation'`

// CancelStaleOrder cancels an order only if it is still in its initial
// pending state. Zero rows means another sweep (or staff) got there first.
func (q *Queries) CancelStaleOrder(ctx context.Context, arg CancelStaleOrderParams) (int64, error) {
	tag, err := q.db.Exec(ctx, cancelStaleOrder, arg.ID, arg.StatusReason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listStaleUnpaidOrders = `-- name: ListStaleUnpaidOrders :many
SELECT ` + orderColumns + ` FROM orders o
WHERE o.status = 'waiting_confirmation'
  AND o.created_at < $1
  AND NOT EXISTS (
	SELECT 1 FROM payments p
	WHERE p.order_id = o.id AND p.status <> 'PENDING'
  )
ORDER BY o.created_at`

// ListStaleUnpaidOrders returns initial-state orders older than cutoff whose
// payment is absent or still PENDING. Orders with a CONFIRMED or CANCELLED
// payment row are excluded.
func (q *Queries) ListStaleUnpaidOrders(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := q.db.Query(ctx, listStaleUnpaidOrders, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type CountOrdersByPromoUserParams struct {
	PromoCodeID   uuid.UUID
	UserID        pgtype.UUID
	CustomerPhone string
}

const countOrdersByPromoUser = `-- name: CountOrdersByPromoUser :one
SELECT count(*) FROM orders
WHERE promo_code_id = $1
  AND (user_id = $2 OR customer_phone = $3)
  AND status <> 'cancelled'`

// CountOrdersByPromoUser counts prior orders of the same customer (matched by
// account id or phone) that already reference the promo code.
func (q *Queries) CountOrdersByPromoUser(ctx context.Context, arg CountOrdersByPromoUserParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersByPromoUser, arg.PromoCodeID, arg.UserID, arg.CustomerPhone).Scan(&n)
	return n, err
}

type CreateOrderFineParams struct {
	OrderID        uuid.UUID
	FineID         uuid.UUID
	AmountCents    int64
	SurchargeCents int64
}

const createOrderFine = `-- name: CreateOrderFine :exec
INSERT INTO order_fines (order_id, fine_id, amount_cents, surcharge_cents)
VALUES ($1, $2, $3, $4)`

func (q *Queries) CreateOrderFine(ctx context.Context, arg CreateOrderFineParams) error {
	_, err := q.db.Exec(ctx, createOrderFine, arg.OrderID, arg.FineID, arg.AmountCents, arg.SurchargeCents)
	return err
}

const listOrderFines = `-- name: ListOrderFines :many
SELECT order_id, fine_id, amount_cents, surcharge_cents
FROM order_fines WHERE order_id = $1`

func (q *Queries) ListOrderFines(ctx context.Context, orderID uuid.UUID) ([]OrderFine, error) {
	rows, err := q.db.Query(ctx, listOrderFines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderFine
	for rows.Next() {
		var f OrderFine
		if err := rows.Scan(&f.OrderID, &f.FineID, &f.AmountCents, &f.SurchargeCents); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
