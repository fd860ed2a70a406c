package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getService = `-- name: GetService :one
SELECT id, name, slug, description, is_active, created_at
FROM services WHERE id = $1`

func (q *Queries) GetService(ctx context.Context, id uuid.UUID) (Service, error) {
	var s Service
	err := q.db.QueryRow(ctx, getService, id).Scan(
		&s.ID, &s.Name, &s.Slug, &s.Description, &s.IsActive, &s.CreatedAt,
	)
	return s, err
}

const listServices = `-- name: ListServices :many
SELECT id, name, slug, description, is_active, created_at
FROM services WHERE is_active ORDER BY name`

func (q *Queries) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := q.db.Query(ctx, listServices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getServiceVariant = `-- name: GetServiceVariant :one
SELECT id, service_id, name, price_cents, eta_days, is_active, created_at
FROM service_variants WHERE id = $1`

func (q *Queries) GetServiceVariant(ctx context.Context, id uuid.UUID) (ServiceVariant, error) {
	var v ServiceVariant
	err := q.db.QueryRow(ctx, getServiceVariant, id).Scan(
		&v.ID, &v.ServiceID, &v.Name, &v.PriceCents, &v.EtaDays, &v.IsActive, &v.CreatedAt,
	)
	return v, err
}

const listVariantsByService = `-- name: ListVariantsByService :many
SELECT id, service_id, name, price_cents, eta_days, is_active, created_at
FROM service_variants WHERE service_id = $1 AND is_active ORDER BY price_cents`

func (q *Queries) ListVariantsByService(ctx context.Context, serviceID uuid.UUID) ([]ServiceVariant, error) {
	rows, err := q.db.Query(ctx, listVariantsByService, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ServiceVariant
	for rows.Next() {
		var v ServiceVariant
		if err := rows.Scan(&v.ID, &v.ServiceID, &v.Name, &v.PriceCents, &v.EtaDays, &v.IsActive, &v.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const listFinesByIDs = `-- name: ListFinesByIDs :many
SELECT id, code, name, amount_cents, is_lost_report, created_at
FROM fines WHERE id = ANY($1::uuid[])`

func (q *Queries) ListFinesByIDs(ctx context.Context, ids []uuid.UUID) ([]Fine, error) {
	rows, err := q.db.Query(ctx, listFinesByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Fine
	for rows.Next() {
		var f Fine
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.AmountCents, &f.IsLostReport, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

const listFines = `-- name: ListFines :many
SELECT id, code, name, amount_cents, is_lost_report, created_at
FROM fines ORDER BY code`

func (q *Queries) ListFines(ctx context.Context) ([]Fine, error) {
	rows, err := q.db.Query(ctx, listFines)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Fine
	for rows.Next() {
		var f Fine
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.AmountCents, &f.IsLostReport, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// ── Seed helpers ──

type CreateServiceParams struct {
	Name        string
	Slug        string
	Description pgtype.Text
}

const createService = `-- name: CreateService :one
INSERT INTO services (name, slug, description) VALUES ($1, $2, $3)
RETURNING id, name, slug, description, is_active, created_at`

func (q *Queries) CreateService(ctx context.Context, arg CreateServiceParams) (Service, error) {
	var s Service
	err := q.db.QueryRow(ctx, createService, arg.Name, arg.Slug, arg.Description).Scan(
		&s.ID, &s.Name, &s.Slug, &s.Description, &s.IsActive, &s.CreatedAt,
	)
	return s, err
}

type CreateServiceVariantParams struct {
	ServiceID  uuid.UUID
	Name       string
	PriceCents int64
	EtaDays    pgtype.Int4
}

const createServiceVariant = `-- name: CreateServiceVariant :one
INSERT INTO service_variants (service_id, name, price_cents, eta_days)
VALUES ($1, $2, $3, $4)
RETURNING id, service_id, name, price_cents, eta_days, is_active, created_at`

func (q *Queries) CreateServiceVariant(ctx context.Context, arg CreateServiceVariantParams) (ServiceVariant, error) {
	var v ServiceVariant
	err := q.db.QueryRow(ctx, createServiceVariant, arg.ServiceID, arg.Name, arg.PriceCents, arg.EtaDays).Scan(
		&v.ID, &v.ServiceID, &v.Name, &v.PriceCents, &v.EtaDays, &v.IsActive, &v.CreatedAt,
	)
	return v, err
}

type CreateFineParams struct {
	Code         string
	Name         string
	AmountCents  int64
	IsLostReport bool
}

const createFine = `-- name: CreateFine :one
INSERT INTO fines (code, name, amount_cents, is_lost_report)
VALUES ($1, $2, $3, $4)
RETURNING id, code, name, amount_cents, is_lost_report, created_at`

func (q *Queries) CreateFine(ctx context.Context, arg CreateFineParams) (Fine, error) {
	var f Fine
	err := q.db.QueryRow(ctx, createFine, arg.Code, arg.Name, arg.AmountCents, arg.IsLostReport).Scan(
		&f.ID, &f.Code, &f.Name, &f.AmountCents, &f.IsLostReport, &f.CreatedAt,
	)
	return f, err
}

const createFormType = `-- name: CreateFormType :one
INSERT INTO form_types (name) VALUES ($1)
RETURNING id, name, created_at`

func (q *Queries) CreateFormType(ctx context.Context, name string) (FormType, error) {
	var ft FormType
	err := q.db.QueryRow(ctx, createFormType, name).Scan(&ft.ID, &ft.Name, &ft.CreatedAt)
	return ft, err
}

type LinkFormTypeVariantParams struct {
	FormTypeID uuid.UUID
	VariantID  uuid.UUID
}

const linkFormTypeVariant = `-- name: LinkFormTypeVariant :exec
INSERT INTO form_type_variants (form_type_id, variant_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`

func (q *Queries) LinkFormTypeVariant(ctx context.Context, arg LinkFormTypeVariantParams) error {
	_, err := q.db.Exec(ctx, linkFormTypeVariant, arg.FormTypeID, arg.VariantID)
	return err
}
