package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/service"
)

// PromoServicer defines the service methods needed by promo handlers.
// Satisfied by *service.PromoService.
type PromoServicer interface {
	Validate(ctx context.Context, req service.ValidatePromoRequest, now time.Time) (*service.ValidatePromoResult, error)
}

// PromoHandler handles promo code validation. Validation is a read-only
// preview; consuming the code happens during order creation.
type PromoHandler struct {
	svc    PromoServicer
	logger zerolog.Logger
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(svc PromoServicer, logger zerolog.Logger) *PromoHandler {
	return &PromoHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the promo validation endpoint.
func (h *PromoHandler) RegisterRoutes(r chi.Router) {
	r.Post("/promo-codes/validate", h.Validate)
}

type validatePromoRequest struct {
	Code          string `json:"code"`
	OrderTotal    int64  `json:"order_total"`
	CustomerPhone string `json:"customer_phone"`
}

type validatePromoResponse struct {
	PromoCodeID string `json:"promo_code_id"`
	Discount    int64  `json:"discount"`
	NewTotal    int64  `json:"new_total"`
}

// Validate handles POST /promo-codes/validate.
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Validate(r.Context(), service.ValidatePromoRequest{
		Code:          req.Code,
		OrderTotal:    req.OrderTotal,
		CustomerPhone: req.CustomerPhone,
	}, workDate(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, validatePromoResponse{
		PromoCodeID: result.PromoCodeID,
		Discount:    result.Discount,
		NewTotal:    result.NewTotal,
	})
}
