package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/database"
)

// Low-stock thresholds on unconsumed serials per form type.
const (
	lowStockWarning  = 5
	lowStockCritical = 3
)

// SerialStore defines the DB methods needed to manage form serial inventory.
// Satisfied by *database.Queries.
type SerialStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetConsumedSerialByOrder(ctx context.Context, orderID uuid.UUID) (database.FormSerial, error)
	ListFormTypesByVariant(ctx context.Context, variantID uuid.UUID) ([]database.FormType, error)
	ConsumeFormSerial(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error)
	GetFormSerialByNumber(ctx context.Context, arg database.GetFormSerialByNumberParams) (database.FormSerial, error)
	GetFormSerial(ctx context.Context, id uuid.UUID) (database.FormSerial, error)
	CreateFormSerial(ctx context.Context, arg database.CreateFormSerialParams) (int64, error)
	DeleteFormSerial(ctx context.Context, id uuid.UUID) (int64, error)
	ListFormSerials(ctx context.Context, arg database.ListFormSerialsParams) ([]database.FormSerial, error)
	ListFormTypeStock(ctx context.Context) ([]database.FormTypeStockRow, error)
}

// SerialService allocates pre-printed form serials to orders.
type SerialService struct {
	store  SerialStore
	logger zerolog.Logger
}

// NewSerialService creates a new SerialService.
func NewSerialService(store SerialStore, logger zerolog.Logger) *SerialService {
	return &SerialService{store: store, logger: logger}
}

// Consume binds one available serial to the order. The write is a single
// conditional UPDATE keyed on consumed = FALSE, so two staff grabbing the same
// serial concurrently produce exactly one winner without any explicit lock.
// The loser, and every precondition failure, leaves the inventory untouched.
func (s *SerialService) Consume(ctx context.Context, orderID uuid.UUID, serialNumber string, staffID uuid.UUID, now time.Time) (database.FormSerial, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return database.FormSerial{}, apperr.Validation("serial_number is required")
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.FormSerial{}, apperr.NotFound("order not found")
		}
		return database.FormSerial{}, apperr.Storage("get order", err)
	}

	existing, err := s.store.GetConsumedSerialByOrder(ctx, orderID)
	if err == nil {
		return database.FormSerial{}, apperr.Conflictf(
			"order %s already holds serial %s", order.OrderNumber, existing.SerialNumber)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.FormSerial{}, apperr.Storage("get consumed serial", err)
	}

	formTypes, err := s.store.ListFormTypesByVariant(ctx, order.VariantID)
	if err != nil {
		return database.FormSerial{}, apperr.Storage("list form types", err)
	}
	switch {
	case len(formTypes) == 0:
		return database.FormSerial{}, apperr.Validation("variant has no linked form type")
	case len(formTypes) > 1:
		return database.FormSerial{}, apperr.Validation("variant maps to multiple form types")
	}
	formType := formTypes[0]

	serial, err := s.store.ConsumeFormSerial(ctx, database.ConsumeFormSerialParams{
		FormTypeID:   formType.ID,
		SerialNumber: serialNumber,
		OrderID:      orderID,
		ConsumedBy:   staffID,
		ConsumedAt:   now,
	})
	if err == nil {
		s.logger.Info().
			Str("order_number", order.OrderNumber).
			Str("serial_number", serial.SerialNumber).
			Str("form_type", formType.Name).
			Msg("serial consumed")
		return serial, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.FormSerial{}, apperr.Storage("consume serial", err)
	}

	// The CAS missed: distinguish a serial that never existed from one
	// another order already took.
	_, err = s.store.GetFormSerialByNumber(ctx, database.GetFormSerialByNumberParams{
		FormTypeID:   formType.ID,
		SerialNumber: serialNumber,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.FormSerial{}, apperr.NotFoundf(
				"serial %s not found for form type %s", serialNumber, formType.Name)
		}
		return database.FormSerial{}, apperr.Storage("get serial", err)
	}
	return database.FormSerial{}, apperr.Conflictf("serial %s is already consumed", serialNumber)
}

// Replenish inserts a batch of new serials for a form type. Blank entries are
// skipped, duplicates already on file are ignored, and the count of serials
// actually added is returned.
func (s *SerialService) Replenish(ctx context.Context, formTypeID uuid.UUID, serialNumbers []string, staffID uuid.UUID) (int64, error) {
	var inserted int64
	var any bool
	for _, raw := range serialNumbers {
		sn := strings.TrimSpace(raw)
		if sn == "" {
			continue
		}
		any = true
		n, err := s.store.CreateFormSerial(ctx, database.CreateFormSerialParams{
			FormTypeID:   formTypeID,
			SerialNumber: sn,
			AddedBy:      staffID,
		})
		if err != nil {
			return inserted, apperr.Storage("create serial", err)
		}
		inserted += n
	}
	if !any {
		return 0, apperr.Validation("at least one serial_number is required")
	}

	s.logger.Info().
		Str("form_type_id", formTypeID.String()).
		Int64("inserted", inserted).
		Msg("serials replenished")
	return inserted, nil
}

// Delete removes an unconsumed serial from inventory. Consumed serials are an
// audit trail and cannot be deleted.
func (s *SerialService) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.store.DeleteFormSerial(ctx, id)
	if err != nil {
		return apperr.Storage("delete serial", err)
	}
	if n > 0 {
		return nil
	}

	_, err = s.store.GetFormSerial(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("serial not found")
		}
		return apperr.Storage("get serial", err)
	}
	return apperr.Conflict("serial is already consumed")
}

// List returns serials of one form type, ordered by serial number.
func (s *SerialService) List(ctx context.Context, formTypeID uuid.UUID, limit, offset int32) ([]database.FormSerial, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	serials, err := s.store.ListFormSerials(ctx, database.ListFormSerialsParams{
		FormTypeID: formTypeID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, apperr.Storage("list serials", err)
	}
	return serials, nil
}

// StockAlert is a form type whose unconsumed inventory crossed a threshold.
type StockAlert struct {
	FormTypeID uuid.UUID `json:"form_type_id"`
	Name       string    `json:"name"`
	Available  int64     `json:"available"`
	Severity   string    `json:"severity"`
}

// LowStock returns form types running low on unconsumed serials, most urgent
// first.
func (s *SerialService) LowStock(ctx context.Context) ([]StockAlert, error) {
	rows, err := s.store.ListFormTypeStock(ctx)
	if err != nil {
		return nil, apperr.Storage("list form type stock", err)
	}

	var alerts []StockAlert
	for _, r := range rows {
		if r.Available >= lowStockWarning {
			continue
		}
		severity := "warning"
		switch {
		case r.Available == 0:
			severity = "out_of_stock"
		case r.Available < lowStockCritical:
			severity = "critical"
		}
		alerts = append(alerts, StockAlert{
			FormTypeID: r.FormTypeID,
			Name:       r.Name,
			Available:  r.Available,
			Severity:   severity,
		})
	}
	return alerts, nil
}
