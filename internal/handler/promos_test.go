package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/handler"
	"github.com/docupos/api/internal/service"
)

type mockPromoService struct {
	validateFn func(ctx context.Context, req service.ValidatePromoRequest, now time.Time) (*service.ValidatePromoResult, error)
}

func (m *mockPromoService) Validate(ctx context.Context, req service.ValidatePromoRequest, now time.Time) (*service.ValidatePromoResult, error) {
	return m.validateFn(ctx, req, now)
}

func setupPromoRouter(svc *mockPromoService) *chi.Mux {
	h := handler.NewPromoHandler(svc, testLogger)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestPromoValidate_HappyPath(t *testing.T) {
	svc := &mockPromoService{
		validateFn: func(ctx context.Context, req service.ValidatePromoRequest, now time.Time) (*service.ValidatePromoResult, error) {
			if req.Code != "SAVE10" {
				t.Errorf("code: got %q", req.Code)
			}
			if req.OrderTotal != 5000 {
				t.Errorf("order total: got %d", req.OrderTotal)
			}
			return &service.ValidatePromoResult{PromoCodeID: "abc", Discount: 500, NewTotal: 4500}, nil
		},
	}

	router := setupPromoRouter(svc)
	rr := doRequest(t, router, "POST", "/promo-codes/validate", map[string]interface{}{
		"code":        "SAVE10",
		"order_total": 5000,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["discount"] != float64(500) {
		t.Errorf("discount: got %v, want 500", resp["discount"])
	}
	if resp["new_total"] != float64(4500) {
		t.Errorf("new_total: got %v, want 4500", resp["new_total"])
	}
}

func TestPromoValidate_IneligibleConflict(t *testing.T) {
	svc := &mockPromoService{
		validateFn: func(ctx context.Context, req service.ValidatePromoRequest, now time.Time) (*service.ValidatePromoResult, error) {
			return nil, apperr.Conflict("promo code has expired")
		},
	}

	router := setupPromoRouter(svc)
	rr := doRequest(t, router, "POST", "/promo-codes/validate", map[string]interface{}{
		"code":        "OLD",
		"order_total": 5000,
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	resp := decodeBody(t, rr)
	if resp["error"] != "promo code has expired" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestPromoValidate_UnknownCodeNotFound(t *testing.T) {
	svc := &mockPromoService{
		validateFn: func(ctx context.Context, req service.ValidatePromoRequest, now time.Time) (*service.ValidatePromoResult, error) {
			return nil, apperr.NotFoundf("promo code %q not found", req.Code)
		},
	}

	router := setupPromoRouter(svc)
	rr := doRequest(t, router, "POST", "/promo-codes/validate", map[string]interface{}{
		"code":        "NOPE",
		"order_total": 5000,
	})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
