package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/database"
)

// CatalogStore defines the read queries needed by catalog handlers.
// Satisfied by *database.Queries.
type CatalogStore interface {
	ListServices(ctx context.Context) ([]database.Service, error)
	ListVariantsByService(ctx context.Context, serviceID uuid.UUID) ([]database.ServiceVariant, error)
	ListFines(ctx context.Context) ([]database.Fine, error)
}

// CatalogHandler serves the public service/variant/fine catalog.
type CatalogHandler struct {
	store  CatalogStore
	logger zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, logger: logger}
}

// RegisterRoutes registers the public catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/services", h.ListServices)
	r.Get("/services/{id}/variants", h.ListVariants)
	r.Get("/fines", h.ListFines)
}

type serviceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
}

type variantResponse struct {
	ID         uuid.UUID `json:"id"`
	ServiceID  uuid.UUID `json:"service_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	EtaDays    *int32    `json:"eta_days"`
}

// ListServices handles GET /services. Inactive services are filtered out.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		if !s.IsActive {
			continue
		}
		items = append(items, serviceResponse{
			ID:          s.ID,
			Name:        s.Name,
			Slug:        s.Slug,
			Description: s.Description.String,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]serviceResponse{"services": items})
}

// ListVariants handles GET /services/{id}/variants.
func (h *CatalogHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service ID"})
		return
	}

	variants, err := h.store.ListVariantsByService(r.Context(), serviceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]variantResponse, 0, len(variants))
	for _, v := range variants {
		if !v.IsActive {
			continue
		}
		items = append(items, variantResponse{
			ID:         v.ID,
			ServiceID:  v.ServiceID,
			Name:       v.Name,
			PriceCents: v.PriceCents,
			EtaDays:    int4Ptr(v.EtaDays),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]variantResponse{"variants": items})
}

// ListFines handles GET /fines.
func (h *CatalogHandler) ListFines(w http.ResponseWriter, r *http.Request) {
	fines, err := h.store.ListFines(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]fineResponse, 0, len(fines))
	for _, f := range fines {
		items = append(items, fineResponse{
			ID:           f.ID,
			Code:         f.Code,
			Name:         f.Name,
			AmountCents:  f.AmountCents,
			IsLostReport: f.IsLostReport,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]fineResponse{"fines": items})
}

func int4Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	n := v.Int32
	return &n
}
