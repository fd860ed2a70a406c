package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/config"
	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
	"github.com/docupos/api/internal/handler"
	mw "github.com/docupos/api/internal/middleware"
	"github.com/docupos/api/internal/notify"
	"github.com/docupos/api/internal/objstore"
	"github.com/docupos/api/internal/service"
	"github.com/docupos/api/internal/ws"
)

// Deps carries the shared infrastructure the router wires handlers onto.
type Deps struct {
	Queries  *database.Queries
	Pool     *pgxpool.Pool
	Hub      *ws.Hub
	Evidence objstore.Store
	SMS      *notify.SMSClient
	Logger   zerolog.Logger
}

// New creates a Chi router with all application routes wired up. Customer
// intake and catalog reads are public; order management, payment
// reconciliation, and inventory require a staff JWT.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://counter.docupos.id"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Work-Date"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	newSweeperStore := func(db database.DBTX) service.SweeperStore {
		return database.New(db)
	}

	orderService := service.NewOrderService(deps.Pool, newOrderStore)
	statusService := service.NewStatusService(deps.Pool, func(db database.DBTX) service.StatusStore {
		return database.New(db)
	}, deps.Logger)
	paymentService := service.NewPaymentService(deps.Pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	}, deps.Logger)
	serialService := service.NewSerialService(deps.Queries, deps.Logger)
	promoService := service.NewPromoService(deps.Queries)
	sweeperService := service.NewSweeperService(deps.Pool, newSweeperStore, deps.Logger)

	authHandler := handler.NewAuthHandler(deps.Queries, cfg.JWTSecret)
	orderHandler := handler.NewOrderHandler(orderService, statusService, deps.Hub, deps.SMS, deps.Logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, deps.Evidence, deps.Hub, deps.SMS, deps.Logger)
	serialHandler := handler.NewSerialHandler(serialService, deps.Hub, deps.Logger)
	promoHandler := handler.NewPromoHandler(promoService, deps.Logger)
	sweepHandler := handler.NewSweepHandler(sweeperService, deps.Logger)
	catalogHandler := handler.NewCatalogHandler(deps.Queries, deps.Logger)

	// Public routes
	authHandler.RegisterRoutes(r)
	catalogHandler.RegisterRoutes(r)
	promoHandler.RegisterRoutes(r)
	orderHandler.RegisterPublicRoutes(r)
	paymentHandler.RegisterPublicRoutes(r)

	// WebSocket route (authenticates via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(deps.Hub, cfg.JWTSecret, w, r)
	})

	// Staff routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleStaff))

		orderHandler.RegisterStaffRoutes(r)
		paymentHandler.RegisterStaffRoutes(r)
		serialHandler.RegisterRoutes(r)
	})

	// Internal routes (shared secret, no JWT)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSweepSecret(cfg.SweepSecret))
		sweepHandler.RegisterRoutes(r)
	})

	return r
}
