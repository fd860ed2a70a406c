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
	"github.com/docupos/api/internal/middleware"
	"github.com/docupos/api/internal/service"
	"github.com/docupos/api/internal/ws"
)

// SerialServicer defines the service methods needed by serial handlers.
// Satisfied by *service.SerialService.
type SerialServicer interface {
	Consume(ctx context.Context, orderID uuid.UUID, serialNumber string, staffID uuid.UUID, now time.Time) (database.FormSerial, error)
	Replenish(ctx context.Context, formTypeID uuid.UUID, serialNumbers []string, staffID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, formTypeID uuid.UUID, limit, offset int32) ([]database.FormSerial, error)
	LowStock(ctx context.Context) ([]service.StockAlert, error)
}

// SerialHandler handles form serial inventory endpoints. All routes are
// staff-only.
type SerialHandler struct {
	svc    SerialServicer
	hub    *ws.Hub
	logger zerolog.Logger
}

// NewSerialHandler creates a new SerialHandler.
func NewSerialHandler(svc SerialServicer, hub *ws.Hub, logger zerolog.Logger) *SerialHandler {
	return &SerialHandler{svc: svc, hub: hub, logger: logger}
}

// RegisterRoutes registers serial inventory endpoints on the given router.
func (h *SerialHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/{id}/serial", h.Consume)
	r.Post("/form-types/{id}/serials", h.Replenish)
	r.Get("/form-types/{id}/serials", h.List)
	r.Delete("/serials/{id}", h.Delete)
	r.Get("/form-types/low-stock", h.LowStock)
}

type consumeSerialRequest struct {
	SerialNumber string `json:"serial_number"`
}

type replenishRequest struct {
	SerialNumbers []string `json:"serial_numbers"`
}

type serialResponse struct {
	ID           uuid.UUID  `json:"id"`
	FormTypeID   uuid.UUID  `json:"form_type_id"`
	SerialNumber string     `json:"serial_number"`
	Consumed     bool       `json:"consumed"`
	ConsumedAt   *time.Time `json:"consumed_at"`
	OrderID      *uuid.UUID `json:"order_id"`
}

// Consume handles POST /orders/{id}/serial. It binds one physical form to the
// order; a second serial for the same order is rejected.
func (h *SerialHandler) Consume(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req consumeSerialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	serial, err := h.svc.Consume(r.Context(), orderID, req.SerialNumber, claims.UserID, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifyIfLow(r.Context())
	writeJSON(w, http.StatusOK, toSerialResponse(serial))
}

// Replenish handles POST /form-types/{id}/serials. Duplicate serial numbers
// are skipped; the response reports how many were actually added.
func (h *SerialHandler) Replenish(w http.ResponseWriter, r *http.Request) {
	formTypeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form type ID"})
		return
	}

	var req replenishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	added, err := h.svc.Replenish(r.Context(), formTypeID, req.SerialNumbers, claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"added": added})
}

// List handles GET /form-types/{id}/serials.
func (h *SerialHandler) List(w http.ResponseWriter, r *http.Request) {
	formTypeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form type ID"})
		return
	}

	limit := parseInt32(r.URL.Query().Get("limit"), 100)
	offset := parseInt32(r.URL.Query().Get("offset"), 0)

	serials, err := h.svc.List(r.Context(), formTypeID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]serialResponse, 0, len(serials))
	for _, s := range serials {
		items = append(items, toSerialResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string][]serialResponse{"serials": items})
}

// Delete handles DELETE /serials/{id}. Consumed serials cannot be deleted.
func (h *SerialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid serial ID"})
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LowStock handles GET /form-types/low-stock.
func (h *SerialHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.LowStock(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]service.StockAlert{"alerts": alerts})
}

// notifyIfLow pushes a stock.low event after a consume drops availability
// below a threshold. Failures only log; the consume already succeeded.
func (h *SerialHandler) notifyIfLow(ctx context.Context) {
	alerts, err := h.svc.LowStock(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("low stock check failed")
		return
	}
	if len(alerts) == 0 {
		return
	}
	payload, err := json.Marshal(alerts)
	if err != nil {
		h.logger.Warn().Err(err).Msg("low stock payload marshal failed")
		return
	}
	h.hub.Broadcast(ws.Event{Type: ws.EventStockLow, Payload: payload})
}

func toSerialResponse(s database.FormSerial) serialResponse {
	resp := serialResponse{
		ID:           s.ID,
		FormTypeID:   s.FormTypeID,
		SerialNumber: s.SerialNumber,
		Consumed:     s.Consumed,
	}
	if s.ConsumedAt.Valid {
		resp.ConsumedAt = &s.ConsumedAt.Time
	}
	if s.OrderID.Valid {
		id := uuid.UUID(s.OrderID.Bytes)
		resp.OrderID = &id
	}
	return resp
}
