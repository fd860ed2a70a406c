package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const formSerialColumns = `id, form_type_id, serial_number, consumed, consumed_at,
	order_id, added_by, consumed_by, created_at`

func scanFormSerial(row pgx.Row) (FormSerial, error) {
	var s FormSerial
	err := row.Scan(
		&s.ID, &s.FormTypeID, &s.SerialNumber, &s.Consumed, &s.ConsumedAt,
		&s.OrderID, &s.AddedBy, &s.ConsumedBy, &s.CreatedAt,
	)
	return s, err
}

type ConsumeFormSerialParams struct {
	FormTypeID   uuid.UUID
	SerialNumber string
	OrderID      uuid.UUID
	ConsumedBy   uuid.UUID
	ConsumedAt   time.Time
}

const consumeFormSerial = `-- name: ConsumeFormSerial :one
UPDATE form_serials SET
	consumed = TRUE,
	consumed_at = $5,
	order_id = $3,
	consumed_by = $4
WHERE form_type_id = $1 AND serial_number = $2 AND consumed = FALSE
RETURNING ` + formSerialColumns

// ConsumeFormSerial performs the single conditional write that binds a serial
// to an order. The consumed = FALSE predicate is the compare-and-set: two
// concurrent consumers of the same serial yield exactly one row, the loser
// gets pgx.ErrNoRows.
func (q *Queries) ConsumeFormSerial(ctx context.Context, arg ConsumeFormSerialParams) (FormSerial, error) {
	return scanFormSerial(q.db.QueryRow(ctx, consumeFormSerial,
		arg.FormTypeID, arg.SerialNumber, arg.OrderID, arg.ConsumedBy, arg.ConsumedAt,
	))
}

type GetFormSerialByNumberParams struct {
	FormTypeID   uuid.UUID
	SerialNumber string
}

const getFormSerialByNumber = `-- name: GetFormSerialByNumber :one
SELECT ` + formSerialColumns + ` FROM form_serials
WHERE form_type_id = $1 AND serial_number = $2`

func (q *Queries) GetFormSerialByNumber(ctx context.Context, arg GetFormSerialByNumberParams) (FormSerial, error) {
	return scanFormSerial(q.db.QueryRow(ctx, getFormSerialByNumber, arg.FormTypeID, arg.SerialNumber))
}

const getFormSerial = `-- name: GetFormSerial :one
SELECT ` + formSerialColumns + ` FROM form_serials WHERE id = $1`

func (q *Queries) GetFormSerial(ctx context.Context, id uuid.UUID) (FormSerial, error) {
	return scanFormSerial(q.db.QueryRow(ctx, getFormSerial, id))
}

const getConsumedSerialByOrder = `-- name: GetConsumedSerialByOrder :one
SELECT ` + formSerialColumns + ` FROM form_serials WHERE order_id = $1`

func (q *Queries) GetConsumedSerialByOrder(ctx context.Context, orderID uuid.UUID) (FormSerial, error) {
	return scanFormSerial(q.db.QueryRow(ctx, getConsumedSerialByOrder, orderID))
}

type CreateFormSerialParams struct {
	FormTypeID   uuid.UUID
	SerialNumber string
	AddedBy      uuid.UUID
}

const createFormSerial = `-- name: CreateFormSerial :execrows
INSERT INTO form_serials (form_type_id, serial_number, added_by)
VALUES ($1, $2, $3)
ON CONFLICT (form_type_id, serial_number) DO NOTHING`

// CreateFormSerial inserts one serial; duplicates are silently skipped so
// replenishment is idempotent. Returns 1 when a row was inserted.
func (q *Queries) CreateFormSerial(ctx context.Context, arg CreateFormSerialParams) (int64, error) {
	tag, err := q.db.Exec(ctx, createFormSerial, arg.FormTypeID, arg.SerialNumber, arg.AddedBy)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteFormSerial = `-- name: DeleteFormSerial :execrows
DELETE FROM form_serials WHERE id = $1 AND consumed = FALSE`

func (q *Queries) DeleteFormSerial(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteFormSerial, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ListFormSerialsParams struct {
	FormTypeID uuid.UUID
	Limit      int32
	Offset     int32
}

const listFormSerials = `-- name: ListFormSerials :many
SELECT ` + formSerialColumns + ` FROM form_serials
WHERE form_type_id = $1
ORDER BY serial_number
LIMIT $2 OFFSET $3`

func (q *Queries) ListFormSerials(ctx context.Context, arg ListFormSerialsParams) ([]FormSerial, error) {
	rows, err := q.db.Query(ctx, listFormSerials, arg.FormTypeID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FormSerial
	for rows.Next() {
		s, err := scanFormSerial(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// FormTypeStockRow is one form type with its unconsumed-serial count.
type FormTypeStockRow struct {
	FormTypeID uuid.UUID
	Name       string
	Available  int64
}

const listFormTypeStock = `-- name: ListFormTypeStock :many
SELECT ft.id, ft.name, count(fs.id) FILTER (WHERE NOT fs.consumed) AS available
FROM form_types ft
LEFT JOIN form_serials fs ON fs.form_type_id = ft.id
GROUP BY ft.id, ft.name
ORDER BY available, ft.name`

// ListFormTypeStock is the read-side aggregation behind the low-stock signal.
func (q *Queries) ListFormTypeStock(ctx context.Context) ([]FormTypeStockRow, error) {
	rows, err := q.db.Query(ctx, listFormTypeStock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FormTypeStockRow
	for rows.Next() {
		var r FormTypeStockRow
		if err := rows.Scan(&r.FormTypeID, &r.Name, &r.Available); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listFormTypesByVariant = `-- name: ListFormTypesByVariant :many
SELECT ft.id, ft.name, ft.created_at
FROM form_types ft
JOIN form_type_variants ftv ON ftv.form_type_id = ft.id
WHERE ftv.variant_id = $1
ORDER BY ft.name`

func (q *Queries) ListFormTypesByVariant(ctx context.Context, variantID uuid.UUID) ([]FormType, error) {
	rows, err := q.db.Query(ctx, listFormTypesByVariant, variantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FormType
	for rows.Next() {
		var ft FormType
		if err := rows.Scan(&ft.ID, &ft.Name, &ft.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, ft)
	}
	return items, rows.Err()
}
