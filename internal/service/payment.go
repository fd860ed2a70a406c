package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
)

// PaymentStore defines the DB methods needed to reconcile payments.
// Satisfied by *database.Queries.
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	UpsertPayment(ctx context.Context, arg database.UpsertPaymentParams) (database.Payment, error)
	SetOrderStatus(ctx context.Context, arg database.SetOrderStatusParams) (database.Order, error)
	CreateDocument(ctx context.Context, arg database.CreateDocumentParams) (database.Document, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentService reconciles payments against orders. Each order carries at
// most one payment row, mutated in place.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(pool TxBeginner, newStore NewPaymentStore, logger zerolog.Logger) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore, logger: logger}
}

// RecordPaymentRequest is a staff-entered payment.
type RecordPaymentRequest struct {
	OrderID    uuid.UUID
	Amount     int64
	Method     enum.PaymentMethod
	Notes      string
	RecordedBy uuid.UUID
}

// PaymentResult pairs the payment with the order state it produced.
type PaymentResult struct {
	Payment database.Payment
	Order   database.Order
}

// Record reconciles a staff-entered payment amount against the order total
// inside one transaction. The order row is locked first so concurrent records
// against the same order serialize. workDate becomes the payment's created_at
// on first insert.
//
// amount >= total marks the payment CONFIRMED and the order payment_confirmed;
// a lower positive amount is a CONFIRMED partial and the order goes back to
// waiting_payment; zero updates the record but leaves the order status alone.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest, workDate time.Time) (*PaymentResult, error) {
	if req.Amount < 0 {
		return nil, apperr.Validation("amount must not be negative")
	}
	if !enum.IsValidPaymentMethod(req.Method) {
		return nil, apperr.Validationf("invalid payment method %q", req.Method)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Storage("get order", err)
	}
	if order.Status == enum.OrderStatusCancelled || order.Status == enum.OrderStatusReturned {
		return nil, apperr.Conflictf("order %s is %s", order.OrderNumber, order.Status)
	}

	status := enum.PaymentStatusPending
	if req.Amount > 0 {
		status = enum.PaymentStatusConfirmed
	}

	payment, err := store.UpsertPayment(ctx, database.UpsertPaymentParams{
		OrderID:     req.OrderID,
		AmountCents: req.Amount,
		Method:      pgtype.Text{String: string(req.Method), Valid: true},
		Status:      status,
		Notes:       req.Notes,
		RecordedBy:  pgtype.UUID{Bytes: req.RecordedBy, Valid: true},
		CreatedAt:   pgtype.Timestamptz{Time: workDate, Valid: true},
	})
	if err != nil {
		return nil, apperr.Storage("upsert payment", err)
	}

	if req.Amount > 0 {
		next := enum.OrderStatusWaitingPayment
		if req.Amount >= order.TotalAmount {
			next = enum.OrderStatusPaymentConfirmed
		}
		order, err = store.SetOrderStatus(ctx, database.SetOrderStatusParams{
			ID:     order.ID,
			Status: next,
		})
		if err != nil {
			return nil, apperr.Storage("set order status", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("commit tx", err)
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Int64("amount_cents", payment.AmountCents).
		Str("order_status", string(order.Status)).
		Msg("payment recorded")

	return &PaymentResult{Payment: payment, Order: order}, nil
}

// SubmitPaymentRequest is a customer-submitted transfer with evidence already
// stored in the object store under EvidenceKey.
type SubmitPaymentRequest struct {
	OrderID     uuid.UUID
	Method      enum.PaymentMethod
	SenderPhone string
	EvidenceKey string
}

// SubmitResult is the payment, the order, and the stored evidence document.
type SubmitResult struct {
	Payment  database.Payment
	Order    database.Order
	Document database.Document
}

// Submit records customer-side payment evidence and moves the order to
// payment_review regardless of its current non-terminal status. The amount is
// not known yet; staff reconcile it later via Record.
func (s *PaymentService) Submit(ctx context.Context, req SubmitPaymentRequest, now time.Time) (*SubmitResult, error) {
	if req.EvidenceKey == "" {
		return nil, apperr.Validation("payment evidence is required")
	}
	if !enum.IsValidPaymentMethod(req.Method) {
		return nil, apperr.Validationf("invalid payment method %q", req.Method)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Storage("get order", err)
	}
	if enum.IsTerminalOrderStatus(order.Status) {
		return nil, apperr.Conflictf("order %s is %s", order.OrderNumber, order.Status)
	}

	// Keep whatever amount staff may already have reconciled; evidence
	// submission never moves money.
	amount := int64(0)
	status := enum.PaymentStatusPending
	if existing, err := store.GetPaymentByOrder(ctx, req.OrderID); err == nil {
		amount = existing.AmountCents
		if existing.Status == enum.PaymentStatusConfirmed {
			status = enum.PaymentStatusConfirmed
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Storage("get payment", err)
	}

	payment, err := store.UpsertPayment(ctx, database.UpsertPaymentParams{
		OrderID:     req.OrderID,
		AmountCents: amount,
		Method:      pgtype.Text{String: string(req.Method), Valid: true},
		Status:      status,
		SenderPhone: pgtype.Text{String: req.SenderPhone, Valid: req.SenderPhone != ""},
		EvidenceKey: pgtype.Text{String: req.EvidenceKey, Valid: true},
		Notes:       fmt.Sprintf("evidence submitted %s", now.Format(time.RFC3339)),
		CreatedAt:   pgtype.Timestamptz{Time: now, Valid: true},
	})
	if err != nil {
		return nil, apperr.Storage("upsert payment", err)
	}

	doc, err := store.CreateDocument(ctx, database.CreateDocumentParams{
		OrderID:   req.OrderID,
		DocType:   enum.DocumentTypePaymentReceipt,
		ObjectKey: req.EvidenceKey,
	})
	if err != nil {
		return nil, apperr.Storage("create document", err)
	}

	order, err = store.SetOrderStatus(ctx, database.SetOrderStatusParams{
		ID:     order.ID,
		Status: enum.OrderStatusPaymentReview,
	})
	if err != nil {
		return nil, apperr.Storage("set order status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("commit tx", err)
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("evidence_key", req.EvidenceKey).
		Msg("payment evidence submitted")

	return &SubmitResult{Payment: payment, Order: order, Document: doc}, nil
}
