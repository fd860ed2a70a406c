package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Sweeper cancels stale unpaid orders. Satisfied by *service.SweeperService.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// SweepHandler exposes the internal sweep trigger. The route sits behind the
// shared-secret middleware, not JWT auth.
type SweepHandler struct {
	svc    Sweeper
	logger zerolog.Logger
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(svc Sweeper, logger zerolog.Logger) *SweepHandler {
	return &SweepHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the sweep endpoint.
func (h *SweepHandler) RegisterRoutes(r chi.Router) {
	r.Post("/internal/sweep", h.Sweep)
}

// Sweep handles POST /internal/sweep.
func (h *SweepHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.svc.Sweep(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}
