package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/enum"
)

const userColumns = `id, full_name, email, phone, hashed_password, role, is_active, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.FullName, &u.Email, &u.Phone, &u.HashedPassword,
		&u.Role, &u.IsActive, &u.CreatedAt,
	)
	return u, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

type CreateUserParams struct {
	FullName       string
	Email          string
	Phone          pgtype.Text
	HashedPassword string
	Role           enum.UserRole
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (full_name, email, phone, hashed_password, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.FullName, arg.Email, arg.Phone, arg.HashedPassword, arg.Role,
	))
}
