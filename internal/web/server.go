// Package web provides the REST API served to the ERP's single-page app.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/solarerp/internal/config"
	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/report"
	"github.com/JonMunkholm/solarerp/internal/web/middleware"
)

// Server is the HTTP server for the ERP API.
type Server struct {
	service   *core.Service
	cfg       *config.Config
	router    *chi.Mux
	server    *http.Server
	reports   *core.ReportLimiter
	formatter *report.Formatter
}

// NewServer creates a new Server. Background goroutines owned by the server
// (rate limiter cleanup) stop when ctx is cancelled.
func NewServer(ctx context.Context, service *core.Service, cfg *config.Config) *Server {
	formatter, err := report.NewFormatter("en", cfg.Finance.Currency)
	if err != nil {
		slog.Warn("invalid report currency, using default", "currency", cfg.Finance.Currency, "error", err)
		formatter = report.DefaultFormatter()
	}

	s := &Server{
		service:   service,
		cfg:       cfg,
		router:    chi.NewRouter(),
		reports:   core.NewReportLimiter(cfg.Report.MaxConcurrent, cfg.Report.MaxWaitTime),
		formatter: formatter,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(middleware.CORS(s.cfg.Security.AllowedOrigins))

	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.Handler)
	}

	s.router.Use(auditMetadata)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	requireKey := middleware.APIKeyAuth(s.cfg.Security)

	// Report rendering is expensive; exports get their own per-IP budget.
	exportLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled && s.cfg.Rate.ExportLimit > 0 {
		exportLimit = middleware.NewRateLimiter(ctx, s.cfg.Rate.ExportLimit, time.Minute).Handler
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Resource metadata and form schemas
		r.Get("/resources", s.handleListResources)
		r.Get("/resources/{resource}/schema", s.handleResourceSchema)
		r.Get("/schema/{name}", s.handleRequestSchema)

		// Inventory and storefront
		r.Get("/stock/low", s.handleLowStock)
		r.Get("/store/products", s.handleStoreProducts)
		r.Get("/store/products/{itemCode}", s.handleStoreProduct)

		// Cart
		r.Route("/cart/{customerID}", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Delete("/", s.handleClearCart)
			r.Post("/items", s.handleAddToCart)
			r.Put("/items/{itemCode}", s.handleUpdateCartItem)
			r.Delete("/items/{itemCode}", s.handleRemoveCartItem)
			r.Post("/checkout", s.handleCheckout)
		})

		// Finance
		r.Get("/finance/overview", s.handleFinanceOverview)
		r.Get("/finance/dashboard", s.handleFinanceDashboard)
		r.With(exportLimit).Get("/finance/report", s.handleFinanceReport)

		// Audit log
		r.Group(func(r chi.Router) {
			r.Use(requireKey)
			r.Get("/audit-log", s.handleAuditLog)
			r.Get("/audit-log/{id}", s.handleAuditLogEntry)
		})

		// Generic resource CRUD
		r.Route("/{resource}", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.With(exportLimit).Get("/export", s.handleExport)
			r.With(requireKey).Post("/import", s.handleImport)
			r.Get("/{id}", s.handleGet)
			r.Put("/{id}", s.handleUpdate)
			r.With(requireKey).Delete("/{id}", s.handleDelete)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown waits for in-flight reports, then gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.reports.ActiveCount(); active > 0 {
		slog.Info("waiting for reports to finish", "active", active)
		if err := s.reports.WaitForDrain(ctx); err != nil {
			slog.Warn("reports did not finish in time", "error", err)
		}
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
