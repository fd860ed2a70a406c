package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/database"
)

// StaleAfter is how long an order may sit in waiting_confirmation without a
// confirmed payment before a sweep cancels it.
const StaleAfter = 30 * time.Minute

// SweeperStore defines the DB methods needed to cancel stale orders.
// Satisfied by *database.Queries.
type SweeperStore interface {
	ListStaleUnpaidOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error)
	CancelStaleOrder(ctx context.Context, arg database.CancelStaleOrderParams) (int64, error)
	CancelPayment(ctx context.Context, arg database.CancelPaymentParams) (int64, error)
}

// NewSweeperStore creates a SweeperStore from a DBTX (pool or tx).
type NewSweeperStore func(db database.DBTX) SweeperStore

// SweeperService cancels orders that sat unconfirmed past the timeout. It has
// no timer of its own: each sweep runs only when an external caller triggers
// it with an explicit now.
type SweeperService struct {
	pool     DB
	newStore NewSweeperStore
	logger   zerolog.Logger
}

// NewSweeperService creates a new SweeperService.
func NewSweeperService(pool DB, newStore NewSweeperStore, logger zerolog.Logger) *SweeperService {
	return &SweeperService{pool: pool, newStore: newStore, logger: logger}
}

// Sweep cancels every order still in waiting_confirmation that was created
// before now minus StaleAfter and has no confirmed payment. Each order is
// cancelled in its own transaction with a conditional status check, so a
// concurrent staff action on the same order simply makes the sweep skip it.
// Per-order failures are logged and do not abort the rest of the sweep.
// Returns the number of orders cancelled.
func (s *SweeperService) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-StaleAfter)

	stale, err := s.newStore(s.pool).ListStaleUnpaidOrders(ctx, cutoff)
	if err != nil {
		return 0, apperr.Storage("list stale orders", err)
	}

	cancelled := 0
	for _, order := range stale {
		ok, err := s.cancelOne(ctx, order)
		if err != nil {
			s.logger.Error().Err(err).
				Str("order_number", order.OrderNumber).
				Msg("sweep: cancel failed")
			continue
		}
		if ok {
			cancelled++
			s.logger.Info().
				Str("order_number", order.OrderNumber).
				Time("created_at", order.CreatedAt).
				Msg("sweep: stale order cancelled")
		}
	}
	return cancelled, nil
}

// cancelOne cancels a single stale order atomically. Returns false when the
// order changed state between the listing and the conditional update.
func (s *SweeperService) cancelOne(ctx context.Context, order database.Order) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	n, err := store.CancelStaleOrder(ctx, database.CancelStaleOrderParams{
		ID:           order.ID,
		StatusReason: "auto-cancelled: payment not confirmed in time",
	})
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	note := fmt.Sprintf("payment cancelled: order %s auto-cancelled", order.OrderNumber)
	if _, err := store.CancelPayment(ctx, database.CancelPaymentParams{
		OrderID:   order.ID,
		AuditNote: note,
	}); err != nil {
		return false, fmt.Errorf("cancel payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}
