package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/handler"
)

type mockCatalogStore struct {
	listServicesFn func(ctx context.Context) ([]database.Service, error)
	listVariantsFn func(ctx context.Context, serviceID uuid.UUID) ([]database.ServiceVariant, error)
	listFinesFn    func(ctx context.Context) ([]database.Fine, error)
}

func (m *mockCatalogStore) ListServices(ctx context.Context) ([]database.Service, error) {
	return m.listServicesFn(ctx)
}

func (m *mockCatalogStore) ListVariantsByService(ctx context.Context, serviceID uuid.UUID) ([]database.ServiceVariant, error) {
	return m.listVariantsFn(ctx, serviceID)
}

func (m *mockCatalogStore) ListFines(ctx context.Context) ([]database.Fine, error) {
	return m.listFinesFn(ctx)
}

func setupCatalogRouter(store *mockCatalogStore) *chi.Mux {
	h := handler.NewCatalogHandler(store, testLogger)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestCatalogListServices_FiltersInactive(t *testing.T) {
	store := &mockCatalogStore{
		listServicesFn: func(ctx context.Context) ([]database.Service, error) {
			return []database.Service{
				{ID: uuid.New(), Name: "National ID", Slug: "national-id", IsActive: true},
				{ID: uuid.New(), Name: "Old Service", Slug: "old", IsActive: false},
			}, nil
		},
	}

	router := setupCatalogRouter(store)
	rr := doRequest(t, router, "GET", "/services", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	services, ok := resp["services"].([]interface{})
	if !ok || len(services) != 1 {
		t.Fatalf("services: got %v", resp["services"])
	}
	svc := services[0].(map[string]interface{})
	if svc["slug"] != "national-id" {
		t.Errorf("slug: got %v", svc["slug"])
	}
}

func TestCatalogListVariants_HappyPath(t *testing.T) {
	serviceID := uuid.New()
	store := &mockCatalogStore{
		listVariantsFn: func(ctx context.Context, sid uuid.UUID) ([]database.ServiceVariant, error) {
			if sid != serviceID {
				t.Errorf("service id: got %v", sid)
			}
			return []database.ServiceVariant{
				{
					ID:         uuid.New(),
					ServiceID:  sid,
					Name:       "Express",
					PriceCents: 15000,
					EtaDays:    pgtype.Int4{Int32: 3, Valid: true},
					IsActive:   true,
				},
			}, nil
		},
	}

	router := setupCatalogRouter(store)
	rr := doRequest(t, router, "GET", "/services/"+serviceID.String()+"/variants", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	variants, ok := resp["variants"].([]interface{})
	if !ok || len(variants) != 1 {
		t.Fatalf("variants: got %v", resp["variants"])
	}
	v := variants[0].(map[string]interface{})
	if v["price_cents"] != float64(15000) {
		t.Errorf("price_cents: got %v", v["price_cents"])
	}
	if v["eta_days"] != float64(3) {
		t.Errorf("eta_days: got %v", v["eta_days"])
	}
}

func TestCatalogListFines_HappyPath(t *testing.T) {
	store := &mockCatalogStore{
		listFinesFn: func(ctx context.Context) ([]database.Fine, error) {
			return []database.Fine{
				{ID: uuid.New(), Code: "LOST_ID", Name: "Lost ID card", AmountCents: 1000, IsLostReport: true},
				{ID: uuid.New(), Code: "LATE", Name: "Late renewal", AmountCents: 500},
			}, nil
		},
	}

	router := setupCatalogRouter(store)
	rr := doRequest(t, router, "GET", "/fines", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	fines, ok := resp["fines"].([]interface{})
	if !ok || len(fines) != 2 {
		t.Fatalf("fines: got %v", resp["fines"])
	}
	fine := fines[0].(map[string]interface{})
	if fine["is_lost_report"] != true {
		t.Errorf("is_lost_report: got %v", fine["is_lost_report"])
	}
}
