package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
	"github.com/docupos/api/internal/middleware"
	"github.com/docupos/api/internal/notify"
	"github.com/docupos/api/internal/objstore"
	"github.com/docupos/api/internal/service"
	"github.com/docupos/api/internal/ws"
)

const maxEvidenceSize = 10 << 20 // 10 MiB upload cap

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService.
type PaymentServicer interface {
	Record(ctx context.Context, req service.RecordPaymentRequest, workDate time.Time) (*service.PaymentResult, error)
	Submit(ctx context.Context, req service.SubmitPaymentRequest, now time.Time) (*service.SubmitResult, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc      PaymentServicer
	evidence objstore.Store
	hub      *ws.Hub
	sms      *notify.SMSClient
	logger   zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, evidence objstore.Store, hub *ws.Hub, sms *notify.SMSClient, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, evidence: evidence, hub: hub, sms: sms, logger: logger}
}

// RegisterPublicRoutes registers the customer evidence upload endpoint.
func (h *PaymentHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders/{id}/payment-proof", h.Submit)
}

// RegisterStaffRoutes registers the staff reconciliation endpoint.
func (h *PaymentHandler) RegisterStaffRoutes(r chi.Router) {
	r.Put("/orders/{id}/payment", h.Record)
}

type recordPaymentRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
	Notes  string `json:"notes"`
}

type paymentResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	Amount      int64     `json:"amount"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	OrderStatus string    `json:"order_status"`
	Notes       string    `json:"notes,omitempty"`
}

// Record handles PUT /orders/{id}/payment. Staff enter the amount actually
// received; the order status follows from the amount.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	result, err := h.svc.Record(r.Context(), service.RecordPaymentRequest{
		OrderID:    id,
		Amount:     req.Amount,
		Method:     enum.PaymentMethod(req.Method),
		Notes:      req.Notes,
		RecordedBy: claims.UserID,
	}, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if result.Order.Status == enum.OrderStatusPaymentConfirmed {
		h.hub.BroadcastOrder(ws.EventOrderStatusChanged, result.Order)
		h.sms.SendAsync(result.Order.CustomerPhone, notify.PaymentConfirmed(result.Order.OrderNumber))
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(result.Payment, result.Order))
}

// Submit handles POST /orders/{id}/payment-proof. Customers upload transfer evidence
// as multipart form data; the file lands in object storage and the order moves
// to payment_review.
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if err := r.ParseMultipartForm(maxEvidenceSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("evidence")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment evidence file is required"})
		return
	}
	defer file.Close() //nolint:errcheck

	key := objstore.EvidenceKey(id, header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.evidence.Put(r.Context(), key, file, contentType); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("evidence upload failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	result, err := h.svc.Submit(r.Context(), service.SubmitPaymentRequest{
		OrderID:     id,
		Method:      enum.PaymentMethod(r.FormValue("method")),
		SenderPhone: r.FormValue("sender_phone"),
		EvidenceKey: key,
	}, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.BroadcastOrder(ws.EventPaymentSubmitted, result.Order)
	writeJSON(w, http.StatusOK, map[string]any{
		"payment":      toPaymentResponse(result.Payment, result.Order),
		"evidence_key": result.Document.ObjectKey,
	})
}

func toPaymentResponse(p database.Payment, o database.Order) paymentResponse {
	return paymentResponse{
		OrderID:     p.OrderID,
		Amount:      p.AmountCents,
		Method:      p.Method.String,
		Status:      string(p.Status),
		OrderStatus: string(o.Status),
		Notes:       p.Notes,
	}
}
