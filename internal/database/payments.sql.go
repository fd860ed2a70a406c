package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/enum"
)

const paymentColumns = `id, order_id, amount_cents, method, status, sender_phone,
	evidence_key, notes, recorded_by, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.AmountCents, &p.Method, &p.Status, &p.SenderPhone,
		&p.EvidenceKey, &p.Notes, &p.RecordedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const getPaymentByOrder = `-- name: GetPaymentByOrder :one
SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByOrder, orderID))
}

type UpsertPaymentParams struct {
	OrderID     uuid.UUID
	AmountCents int64
	Method      pgtype.Text
	Status      enum.PaymentStatus
	SenderPhone pgtype.Text
	EvidenceKey pgtype.Text
	Notes       string
	RecordedBy  pgtype.UUID
	CreatedAt   pgtype.Timestamptz
}

const upsertPayment = `-- name: UpsertPayment :one
INSERT INTO payments (
	order_id, amount_cents, method, status, sender_phone, evidence_key,
	notes, recorded_by, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
ON CONFLICT (order_id) DO UPDATE SET
	amount_cents = EXCLUDED.amount_cents,
	method = COALESCE(EXCLUDED.method, payments.method),
	status = EXCLUDED.status,
	sender_phone = COALESCE(EXCLUDED.sender_phone, payments.sender_phone),
	evidence_key = COALESCE(EXCLUDED.evidence_key, payments.evidence_key),
	notes = EXCLUDED.notes,
	recorded_by = COALESCE(EXCLUDED.recorded_by, payments.recorded_by),
	updated_at = now()
RETURNING ` + paymentColumns

// UpsertPayment creates the order's single payment row on first submission and
// mutates it in place thereafter. CreatedAt honors the caller-supplied
// work-date on insert and is never touched on update.
func (q *Queries) UpsertPayment(ctx context.Context, arg UpsertPaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, upsertPayment,
		arg.OrderID, arg.AmountCents, arg.Method, arg.Status, arg.SenderPhone,
		arg.EvidenceKey, arg.Notes, arg.RecordedBy, arg.CreatedAt,
	))
}

type CancelPaymentParams struct {
	OrderID   uuid.UUID
	AuditNote string
}

const cancelPayment = `-- name: CancelPayment :execrows
UPDATE payments SET
	status = 'CANCELLED',
	notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END,
	updated_at = now()
WHERE order_id = $1 AND status <> 'CANCELLED'`

// CancelPayment forces the payment to CANCELLED with an appended audit note.
// Zero rows means there was no payment or it was already cancelled; callers
// treat both as success so repeated cancellation stays a no-op.
func (q *Queries) CancelPayment(ctx context.Context, arg CancelPaymentParams) (int64, error) {
	tag, err := q.db.Exec(ctx, cancelPayment, arg.OrderID, arg.AuditNote)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
