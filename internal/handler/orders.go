package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
	"github.com/docupos/api/internal/middleware"
	"github.com/docupos/api/internal/notify"
	"github.com/docupos/api/internal/service"
	"github.com/docupos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Create(ctx context.Context, req service.CreateOrderRequest, now time.Time) (*service.CreateOrderResult, error)
	CreateBulk(ctx context.Context, reqs []service.CreateOrderRequest, now time.Time) ([]service.CreateOrderResult, error)
	Get(ctx context.Context, id uuid.UUID) (*service.OrderDetail, error)
	List(ctx context.Context, req service.ListOrdersRequest) ([]database.Order, error)
}

// StatusServicer defines the status transition methods needed by order handlers.
// Satisfied by *service.StatusService.
type StatusServicer interface {
	SetStatus(ctx context.Context, req service.SetStatusRequest, workDate time.Time) (database.Order, error)
	SetStatusBulk(ctx context.Context, reqs []service.SetStatusRequest, workDate time.Time) ([]database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	status StatusServicer
	hub    *ws.Hub
	sms    *notify.SMSClient
	logger zerolog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, status StatusServicer, hub *ws.Hub, sms *notify.SMSClient, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, status: status, hub: hub, sms: sms, logger: logger}
}

// RegisterPublicRoutes registers the unauthenticated intake and tracking
// endpoints. Customers hold the order UUID as their tracking reference.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/{id}/qr", h.PickupQR)
}

// RegisterStaffRoutes registers authenticated order endpoints.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/orders/bulk", h.CreateBulk)
	r.Get("/orders", h.List)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/status", h.BulkUpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName  string   `json:"customer_name"`
	CustomerPhone string   `json:"customer_phone"`
	ServiceID     string   `json:"service_id"`
	VariantID     string   `json:"variant_id"`
	Quantity      int32    `json:"quantity"`
	DeliveryFee   int64    `json:"delivery_fee"`
	OtherFees     int64    `json:"other_fees"`
	FineIDs       []string `json:"fine_ids"`
	PromoCode     string   `json:"promo_code"`
}

type bulkCreateRequest struct {
	Orders []createOrderRequest `json:"orders"`
}

type orderResponse struct {
	ID                      uuid.UUID      `json:"id"`
	OrderNumber             string         `json:"order_number"`
	CustomerName            string         `json:"customer_name"`
	CustomerPhone           string         `json:"customer_phone"`
	ServiceID               uuid.UUID      `json:"service_id"`
	VariantID               uuid.UUID      `json:"variant_id"`
	Status                  string         `json:"status"`
	Quantity                int32          `json:"quantity"`
	BaseAmount              int64          `json:"base_amount"`
	DeliveryFee             int64          `json:"delivery_fee"`
	OtherFees               int64          `json:"other_fees"`
	FineAmount              int64          `json:"fine_amount"`
	FineSurcharge           int64          `json:"fine_surcharge"`
	DiscountAmount          int64          `json:"discount_amount"`
	TotalAmount             int64          `json:"total_amount"`
	WorkOrderNumber         *string        `json:"work_order_number"`
	StatusReason            *string        `json:"status_reason"`
	AdminNotes              *string        `json:"admin_notes"`
	EstimatedCompletionDate *string        `json:"estimated_completion_date"`
	CompletedAt             *time.Time     `json:"completed_at"`
	CancelledAt             *time.Time     `json:"cancelled_at"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	Fines                   []fineResponse `json:"fines,omitempty"`
}

type fineResponse struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	AmountCents  int64     `json:"amount_cents"`
	IsLostReport bool      `json:"is_lost_report"`
}

type orderDetailResponse struct {
	orderResponse
	Payment   *paymentResponse   `json:"payment"`
	Documents []documentResponse `json:"documents,omitempty"`
}

type documentResponse struct {
	ID        uuid.UUID `json:"id"`
	DocType   string    `json:"doc_type"`
	ObjectKey string    `json:"object_key"`
	CreatedAt time.Time `json:"created_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
}

type updateStatusRequest struct {
	Status          string  `json:"status"`
	AdminNotes      *string `json:"admin_notes"`
	WorkOrderNumber *string `json:"work_order_number"`
	StatusReason    *string `json:"status_reason"`
}

type bulkUpdateStatusItem struct {
	OrderID string `json:"order_id"`
	updateStatusRequest
}

type bulkUpdateStatusRequest struct {
	Updates []bulkUpdateStatusItem `json:"updates"`
}

// --- Handlers ---

// Create handles POST /orders. Customers and staff share this intake; a staff
// token marks the order as created by that user.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := toServiceRequest(req)
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		svcReq.CreatedBy = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	result, err := h.svc.Create(r.Context(), svcReq, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.BroadcastOrder(ws.EventOrderCreated, result.Order)
	h.sms.SendAsync(result.Order.CustomerPhone,
		notify.OrderCreated(result.Order.OrderNumber, result.Order.TotalAmount))

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Fines))
}

// CreateBulk handles POST /orders/bulk. The whole batch is created atomically.
func (h *OrderHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	reqs := make([]service.CreateOrderRequest, 0, len(req.Orders))
	for _, o := range req.Orders {
		svcReq := toServiceRequest(o)
		if claims != nil {
			svcReq.CreatedBy = pgtype.UUID{Bytes: claims.UserID, Valid: true}
		}
		reqs = append(reqs, svcReq)
	}

	results, err := h.svc.CreateBulk(r.Context(), reqs, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	orders := make([]orderResponse, 0, len(results))
	for _, res := range results {
		h.hub.BroadcastOrder(ws.EventOrderCreated, res.Order)
		orders = append(orders, toOrderResponse(res.Order, res.Fines))
	}
	writeJSON(w, http.StatusCreated, map[string][]orderResponse{"orders": orders})
}

// Get handles GET /orders/{id}. The detail view includes fines, the payment
// record, and uploaded documents.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := orderDetailResponse{orderResponse: toOrderResponse(detail.Order, detail.Fines)}
	if detail.Payment != nil {
		p := toPaymentResponse(*detail.Payment, detail.Order)
		resp.Payment = &p
	}
	for _, d := range detail.Documents {
		resp.Documents = append(resp.Documents, documentResponse{
			ID:        d.ID,
			DocType:   string(d.DocType),
			ObjectKey: d.ObjectKey,
			CreatedAt: d.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /orders?status=&phone=&limit=&offset=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseInt32(r.URL.Query().Get("limit"), 50)
	offset := parseInt32(r.URL.Query().Get("offset"), 0)

	orders, err := h.svc.List(r.Context(), service.ListOrdersRequest{
		Status:        r.URL.Query().Get("status"),
		CustomerPhone: r.URL.Query().Get("phone"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o, nil))
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: items, Limit: limit, Offset: offset})
}

// PickupQR handles GET /orders/{id}/qr. The code encodes the order number and
// is only issued once the order is ready or delivered.
func (h *OrderHandler) PickupQR(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := result.Order.Status
	if status != enum.OrderStatusReady && status != enum.OrderStatusDelivered {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not ready for pickup"})
		return
	}

	png, err := qrcode.Encode(result.Order.OrderNumber, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error().Err(err).Msg("qr encode failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.status.SetStatus(r.Context(), service.SetStatusRequest{
		OrderID:         id,
		Status:          enum.OrderStatus(req.Status),
		AdminNotes:      req.AdminNotes,
		WorkOrderNumber: req.WorkOrderNumber,
		StatusReason:    req.StatusReason,
	}, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcastStatusChange(order)
	writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
}

// BulkUpdateStatus handles PATCH /orders/status. All updates apply atomically.
func (h *OrderHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reqs := make([]service.SetStatusRequest, 0, len(req.Updates))
	for _, u := range req.Updates {
		id, err := uuid.Parse(u.OrderID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id " + u.OrderID})
			return
		}
		reqs = append(reqs, service.SetStatusRequest{
			OrderID:         id,
			Status:          enum.OrderStatus(u.Status),
			AdminNotes:      u.AdminNotes,
			WorkOrderNumber: u.WorkOrderNumber,
			StatusReason:    u.StatusReason,
		})
	}

	orders, err := h.status.SetStatusBulk(r.Context(), reqs, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		h.broadcastStatusChange(o)
		items = append(items, toOrderResponse(o, nil))
	}
	writeJSON(w, http.StatusOK, map[string][]orderResponse{"orders": items})
}

// --- Helpers ---

func (h *OrderHandler) broadcastStatusChange(order database.Order) {
	h.hub.BroadcastOrder(ws.EventOrderStatusChanged, order)

	switch order.Status {
	case enum.OrderStatusReady:
		h.sms.SendAsync(order.CustomerPhone, notify.OrderReady(order.OrderNumber))
	case enum.OrderStatusCancelled:
		h.sms.SendAsync(order.CustomerPhone, notify.OrderCancelled(order.OrderNumber, order.StatusReason.String))
	case enum.OrderStatusPaymentConfirmed:
		h.sms.SendAsync(order.CustomerPhone, notify.PaymentConfirmed(order.OrderNumber))
	}
}

func toServiceRequest(req createOrderRequest) service.CreateOrderRequest {
	return service.CreateOrderRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		ServiceID:     req.ServiceID,
		VariantID:     req.VariantID,
		Quantity:      req.Quantity,
		DeliveryFee:   req.DeliveryFee,
		OtherFees:     req.OtherFees,
		FineIDs:       req.FineIDs,
		PromoCode:     req.PromoCode,
	}
}

func toOrderResponse(o database.Order, fines []database.Fine) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		CustomerName:   o.CustomerName,
		CustomerPhone:  o.CustomerPhone,
		ServiceID:      o.ServiceID,
		VariantID:      o.VariantID,
		Status:         string(o.Status),
		Quantity:       o.Quantity,
		BaseAmount:     o.BaseAmount,
		DeliveryFee:    o.DeliveryFee,
		OtherFees:      o.OtherFees,
		FineAmount:     o.FineAmount,
		FineSurcharge:  o.FineSurcharge,
		DiscountAmount: o.DiscountAmount,
		TotalAmount:    o.TotalAmount,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.WorkOrderNumber.Valid {
		resp.WorkOrderNumber = &o.WorkOrderNumber.String
	}
	if o.StatusReason.Valid {
		resp.StatusReason = &o.StatusReason.String
	}
	if o.AdminNotes.Valid {
		resp.AdminNotes = &o.AdminNotes.String
	}
	if o.EstimatedCompletionDate.Valid {
		d := o.EstimatedCompletionDate.Time.Format("2006-01-02")
		resp.EstimatedCompletionDate = &d
	}
	if o.CompletedAt.Valid {
		resp.CompletedAt = &o.CompletedAt.Time
	}
	if o.CancelledAt.Valid {
		resp.CancelledAt = &o.CancelledAt.Time
	}
	for _, f := range fines {
		resp.Fines = append(resp.Fines, fineResponse{
			ID:           f.ID,
			Code:         f.Code,
			Name:         f.Name,
			AmountCents:  f.AmountCents,
			IsLostReport: f.IsLostReport,
		})
	}
	return resp
}

func parseInt32(s string, def int32) int32 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}
