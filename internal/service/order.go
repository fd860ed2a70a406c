package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
	"github.com/docupos/api/internal/pricing"
)

const maxOrderNumberRetries = 3

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is a query executor that can also open transactions.
// Satisfied by *pgxpool.Pool.
type DB interface {
	database.DBTX
	TxBeginner
}

// OrderStore defines the DB methods needed to create and read orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
	GetServiceVariant(ctx context.Context, id uuid.UUID) (database.ServiceVariant, error)
	ListFinesByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Fine, error)
	GetPromoCodeByCode(ctx context.Context, code string) (database.PromoCode, error)
	CountOrdersByPromoUser(ctx context.Context, arg database.CountOrdersByPromoUserParams) (int64, error)
	IncrementPromoUsage(ctx context.Context, id uuid.UUID) error
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderFine(ctx context.Context, arg database.CreateOrderFineParams) error
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderFines(ctx context.Context, orderID uuid.UUID) ([]database.OrderFine, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	ListDocumentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Document, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerName  string
	CustomerPhone string
	UserID        pgtype.UUID
	ServiceID     string
	VariantID     string
	Quantity      int32
	DeliveryFee   int64
	OtherFees     int64
	FineIDs       []string
	PromoCode     string
	CreatedBy     pgtype.UUID
}

// CreateOrderResult is the created order with its applied fines.
type CreateOrderResult struct {
	Order database.Order
	Fines []database.Fine
}

// OrderService handles order intake and reads.
type OrderService struct {
	pool     DB
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool DB, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// Create validates, prices, and creates an order atomically. The promo code is
// validated and its usage incremented inside the same transaction that inserts
// the order. Retries up to maxOrderNumberRetries times on order_number unique
// constraint violations (concurrent transactions can read the same MAX).
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest, now time.Time) (*CreateOrderResult, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createTx(ctx, []CreateOrderRequest{req}, now)
		if err == nil {
			return &result[0], nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, apperr.Storage("create order", lastErr)
}

// CreateBulk creates several orders in one transaction. Any failure rolls the
// whole batch back; nothing is half-created.
func (s *OrderService) CreateBulk(ctx context.Context, reqs []CreateOrderRequest, now time.Time) ([]CreateOrderResult, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("at least one order is required")
	}
	for i, req := range reqs {
		if err := validateOrderRequest(req); err != nil {
			return nil, fmt.Errorf("order[%d]: %w", i, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		results, err := s.createTx(ctx, reqs, now)
		if err == nil {
			return results, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, apperr.Storage("create orders", lastErr)
}

// OrderDetail is one order with everything attached to it.
type OrderDetail struct {
	Order     database.Order
	Fines     []database.Fine
	Payment   *database.Payment
	Documents []database.Document
}

// Get returns one order with its fines, payment, and documents.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	store := s.newStore(s.pool)
	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Storage("get order", err)
	}
	orderFines, err := store.ListOrderFines(ctx, order.ID)
	if err != nil {
		return nil, apperr.Storage("list order fines", err)
	}
	var fines []database.Fine
	if len(orderFines) > 0 {
		ids := make([]uuid.UUID, 0, len(orderFines))
		for _, f := range orderFines {
			ids = append(ids, f.FineID)
		}
		fines, err = store.ListFinesByIDs(ctx, ids)
		if err != nil {
			return nil, apperr.Storage("list fines", err)
		}
	}

	detail := &OrderDetail{Order: order, Fines: fines}

	payment, err := store.GetPaymentByOrder(ctx, order.ID)
	switch {
	case err == nil:
		detail.Payment = &payment
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, apperr.Storage("get payment", err)
	}

	detail.Documents, err = store.ListDocumentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, apperr.Storage("list documents", err)
	}
	return detail, nil
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	Status        string
	CustomerPhone string
	Limit         int32
	Offset        int32
}

// List returns orders newest-first, optionally filtered by status and phone.
func (s *OrderService) List(ctx context.Context, req ListOrdersRequest) ([]database.Order, error) {
	if req.Status != "" && !enum.IsValidOrderStatus(enum.OrderStatus(req.Status)) {
		return nil, apperr.Validationf("invalid status %q", req.Status)
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}

	arg := database.ListOrdersParams{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		arg.Status = pgtype.Text{String: req.Status, Valid: true}
	}
	if req.CustomerPhone != "" {
		arg.CustomerPhone = pgtype.Text{String: req.CustomerPhone, Valid: true}
	}

	store := s.newStore(s.pool)
	orders, err := store.ListOrders(ctx, arg)
	if err != nil {
		return nil, apperr.Storage("list orders", err)
	}
	return orders, nil
}

func validateOrderRequest(req CreateOrderRequest) error {
	if req.CustomerName == "" {
		return apperr.Validation("customer_name is required")
	}
	if req.CustomerPhone == "" {
		return apperr.Validation("customer_phone is required")
	}
	if req.Quantity <= 0 {
		return apperr.Validation("quantity must be > 0")
	}
	if req.DeliveryFee < 0 || req.OtherFees < 0 {
		return apperr.Validation("fees must not be negative")
	}
	if _, err := uuid.Parse(req.ServiceID); err != nil {
		return apperr.Validation("invalid service_id")
	}
	if _, err := uuid.Parse(req.VariantID); err != nil {
		return apperr.Validation("invalid variant_id")
	}
	for i, id := range req.FineIDs {
		if _, err := uuid.Parse(id); err != nil {
			return apperr.Validationf("invalid fine_id at index %d", i)
		}
	}
	return nil
}

// isOrderNumberConflict checks for a unique constraint violation on the order
// number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// createTx creates every requested order inside a single transaction.
func (s *OrderService) createTx(ctx context.Context, reqs []CreateOrderRequest, now time.Time) ([]CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, apperr.Storage("get next order number", err)
	}

	results := make([]CreateOrderResult, 0, len(reqs))
	for i, req := range reqs {
		orderNumber := fmt.Sprintf("DOC-%06d", nextNum+int32(i))
		result, err := s.createOne(ctx, store, req, orderNumber, now)
		if err != nil {
			if len(reqs) > 1 {
				return nil, fmt.Errorf("order[%d]: %w", i, err)
			}
			return nil, err
		}
		results = append(results, *result)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("commit tx", err)
	}
	return results, nil
}

func (s *OrderService) createOne(ctx context.Context, store OrderStore, req CreateOrderRequest, orderNumber string, now time.Time) (*CreateOrderResult, error) {
	serviceID, _ := uuid.Parse(req.ServiceID)
	variantID, _ := uuid.Parse(req.VariantID)

	svc, err := store.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("service not found")
		}
		return nil, apperr.Storage("get service", err)
	}
	if !svc.IsActive {
		return nil, apperr.Conflict("service is not active")
	}

	variant, err := store.GetServiceVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("variant not found")
		}
		return nil, apperr.Storage("get variant", err)
	}
	if variant.ServiceID != serviceID {
		return nil, apperr.Validation("variant does not belong to service")
	}
	if !variant.IsActive {
		return nil, apperr.Conflict("variant is not active")
	}

	fines, fineCharges, err := s.loadFines(ctx, store, req.FineIDs)
	if err != nil {
		return nil, err
	}

	// Price without the promo first; eligibility rules compare against the
	// pre-discount total.
	gross := pricing.Quote(variant.PriceCents, req.Quantity, req.DeliveryFee, req.OtherFees, fineCharges, nil)

	var promoID pgtype.UUID
	var promoArg *pricing.Promo
	if req.PromoCode != "" {
		promo, _, err := checkPromo(ctx, store, req.PromoCode, req.UserID, req.CustomerPhone, gross.Total, now)
		if err != nil {
			return nil, err
		}
		promoID = pgtype.UUID{Bytes: promo.ID, Valid: true}
		p := pricing.Promo{Type: promo.PromoType, Value: promo.Value}
		if promo.MaxDiscount.Valid {
			v := promo.MaxDiscount.Int64
			p.MaxDiscount = &v
		}
		promoArg = &p
		if err := store.IncrementPromoUsage(ctx, promo.ID); err != nil {
			return nil, apperr.Storage("increment promo usage", err)
		}
	}

	breakdown := pricing.Quote(variant.PriceCents, req.Quantity, req.DeliveryFee, req.OtherFees, fineCharges, promoArg)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:    orderNumber,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		UserID:         req.UserID,
		ServiceID:      serviceID,
		VariantID:      variantID,
		Status:         enum.OrderStatusWaitingConfirmation,
		Quantity:       req.Quantity,
		BaseAmount:     breakdown.BaseAmount,
		DeliveryFee:    breakdown.DeliveryFee,
		OtherFees:      breakdown.OtherFees,
		FineAmount:     breakdown.FineAmount,
		FineSurcharge:  breakdown.FineSurcharge,
		DiscountAmount: breakdown.Discount,
		TotalAmount:    breakdown.Total,
		PromoCodeID:    promoID,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	for _, f := range fines {
		surcharge := pricing.FineSurchargeCents
		if f.IsLostReport {
			surcharge = 0
		}
		if err := store.CreateOrderFine(ctx, database.CreateOrderFineParams{
			OrderID:        order.ID,
			FineID:         f.ID,
			AmountCents:    f.AmountCents,
			SurchargeCents: surcharge,
		}); err != nil {
			return nil, apperr.Storage("create order fine", err)
		}
	}

	return &CreateOrderResult{Order: order, Fines: fines}, nil
}

func (s *OrderService) loadFines(ctx context.Context, store OrderStore, fineIDs []string) ([]database.Fine, []pricing.FineCharge, error) {
	if len(fineIDs) == 0 {
		return nil, nil, nil
	}

	ids := make([]uuid.UUID, 0, len(fineIDs))
	seen := make(map[uuid.UUID]bool, len(fineIDs))
	for _, raw := range fineIDs {
		id, _ := uuid.Parse(raw)
		if seen[id] {
			return nil, nil, apperr.Validationf("duplicate fine_id %s", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	fines, err := store.ListFinesByIDs(ctx, ids)
	if err != nil {
		return nil, nil, apperr.Storage("list fines", err)
	}
	if len(fines) != len(ids) {
		return nil, nil, apperr.NotFound("one or more fines not found")
	}

	charges := make([]pricing.FineCharge, 0, len(fines))
	for _, f := range fines {
		charges = append(charges, pricing.FineCharge{
			Code:         f.Code,
			AmountCents:  f.AmountCents,
			IsLostReport: f.IsLostReport,
		})
	}
	return fines, charges, nil
}
