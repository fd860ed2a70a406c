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

// StatusStore defines the DB methods needed to move orders through their
// lifecycle. Satisfied by *database.Queries.
type StatusStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetServiceVariant(ctx context.Context, id uuid.UUID) (database.ServiceVariant, error)
	SetOrderStatus(ctx context.Context, arg database.SetOrderStatusParams) (database.Order, error)
	CancelPayment(ctx context.Context, arg database.CancelPaymentParams) (int64, error)
}

// NewStatusStore creates a StatusStore from a DBTX (pool or tx).
type NewStatusStore func(db database.DBTX) StatusStore

// SetStatusRequest is one status change. Optional fields are applied only when
// non-nil; nil leaves the stored value untouched.
type SetStatusRequest struct {
	OrderID         uuid.UUID
	Status          enum.OrderStatus
	AdminNotes      *string
	WorkOrderNumber *string
	StatusReason    *string
}

// StatusService applies order status transitions with their side effects.
type StatusService struct {
	pool     TxBeginner
	newStore NewStatusStore
	logger   zerolog.Logger
}

// NewStatusService creates a new StatusService.
func NewStatusService(pool TxBeginner, newStore NewStatusStore, logger zerolog.Logger) *StatusService {
	return &StatusService{pool: pool, newStore: newStore, logger: logger}
}

// SetStatus applies a single status change atomically. workDate is the
// caller-supplied business date used for completion and estimation timestamps.
func (s *StatusService) SetStatus(ctx context.Context, req SetStatusRequest, workDate time.Time) (database.Order, error) {
	orders, err := s.SetStatusBulk(ctx, []SetStatusRequest{req}, workDate)
	if err != nil {
		return database.Order{}, err
	}
	return orders[0], nil
}

// SetStatusBulk applies every status change in one transaction. Any failure
// rolls the whole batch back.
func (s *StatusService) SetStatusBulk(ctx context.Context, reqs []SetStatusRequest, workDate time.Time) ([]database.Order, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("at least one status change is required")
	}
	for i, req := range reqs {
		if !enum.IsValidOrderStatus(req.Status) {
			return nil, apperr.Validationf("order[%d]: invalid status %q", i, req.Status)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	orders := make([]database.Order, 0, len(reqs))
	for i, req := range reqs {
		order, err := s.applyStatus(ctx, store, req, workDate)
		if err != nil {
			if len(reqs) > 1 {
				return nil, fmt.Errorf("order[%d]: %w", i, err)
			}
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("commit tx", err)
	}

	for _, o := range orders {
		s.logger.Info().
			Str("order_number", o.OrderNumber).
			Str("status", string(o.Status)).
			Msg("order status changed")
	}
	return orders, nil
}

// applyStatus locks the order, checks the transition, and writes the status
// together with its side effects.
func (s *StatusService) applyStatus(ctx context.Context, store StatusStore, req SetStatusRequest, workDate time.Time) (database.Order, error) {
	current, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, apperr.NotFound("order not found")
		}
		return database.Order{}, apperr.Storage("get order", err)
	}

	if enum.IsTerminalOrderStatus(current.Status) && req.Status != current.Status {
		return database.Order{}, apperr.Conflictf(
			"order %s is %s and cannot change status", current.OrderNumber, current.Status)
	}

	arg := database.SetOrderStatusParams{
		ID:     req.OrderID,
		Status: req.Status,
	}
	if req.AdminNotes != nil {
		arg.AdminNotes = pgtype.Text{String: *req.AdminNotes, Valid: true}
	}
	if req.WorkOrderNumber != nil {
		arg.WorkOrderNumber = pgtype.Text{String: *req.WorkOrderNumber, Valid: true}
	}
	if req.StatusReason != nil {
		arg.StatusReason = pgtype.Text{String: *req.StatusReason, Valid: true}
	}

	switch req.Status {
	case enum.OrderStatusDelivered:
		arg.CompletedAt = pgtype.Timestamptz{Time: workDate, Valid: true}
	case enum.OrderStatusCancelled:
		arg.CancelledAt = pgtype.Timestamptz{Time: workDate, Valid: true}
	case enum.OrderStatusSettlement:
		variant, err := store.GetServiceVariant(ctx, current.VariantID)
		if err != nil {
			return database.Order{}, apperr.Storage("get variant", err)
		}
		if variant.EtaDays.Valid {
			eta := workDate.AddDate(0, 0, int(variant.EtaDays.Int32))
			arg.EstimatedCompletionDate = pgtype.Date{Time: eta, Valid: true}
		}
	}

	order, err := store.SetOrderStatus(ctx, arg)
	if err != nil {
		return database.Order{}, apperr.Storage("set order status", err)
	}

	if req.Status == enum.OrderStatusCancelled {
		note := fmt.Sprintf("payment cancelled: order %s cancelled by staff", order.OrderNumber)
		if _, err := store.CancelPayment(ctx, database.CancelPaymentParams{
			OrderID:   order.ID,
			AuditNote: note,
		}); err != nil {
			return database.Order{}, apperr.Storage("cancel payment", err)
		}
	}

	return order, nil
}
