package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/enum"
)

type CreateDocumentParams struct {
	OrderID    uuid.UUID
	DocType    enum.DocumentType
	ObjectKey  string
	UploadedBy pgtype.UUID
}

const createDocument = `-- name: CreateDocument :one
INSERT INTO documents (order_id, doc_type, object_key, uploaded_by)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, doc_type, object_key, uploaded_by, created_at`

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) (Document, error) {
	var d Document
	err := q.db.QueryRow(ctx, createDocument,
		arg.OrderID, arg.DocType, arg.ObjectKey, arg.UploadedBy,
	).Scan(&d.ID, &d.OrderID, &d.DocType, &d.ObjectKey, &d.UploadedBy, &d.CreatedAt)
	return d, err
}

const listDocumentsByOrder = `-- name: ListDocumentsByOrder :many
SELECT id, order_id, doc_type, object_key, uploaded_by, created_at
FROM documents WHERE order_id = $1 ORDER BY created_at`

func (q *Queries) ListDocumentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Document, error) {
	rows, err := q.db.Query(ctx, listDocumentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.OrderID, &d.DocType, &d.ObjectKey, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
