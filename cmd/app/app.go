// Package app wires configuration into the backend server and the client
// controller.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"goodthings/internal/blogapi"
	"goodthings/internal/config"
	"goodthings/internal/controller"
	"goodthings/internal/database"
	handlers "goodthings/internal/handler"
	"goodthings/internal/middleware"
	"goodthings/internal/repository"
	"goodthings/internal/service"
	"goodthings/internal/storage"
)

// App connects the backend database, applies migrations and builds the
// services on top of it.
func App(ctx context.Context, cfg config.Server, logger *slog.Logger) (*database.DB, *service.Service, error) {
	db, err := database.Connect(ctx, cfg.DB.Driver, cfg.DB.DSN, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.RunMigrations(ctx, repository.Migrations...); err != nil {
		db.CloseDB()
		return nil, nil, err
	}

	repo := repository.NewRepository(db.DB)
	services := service.NewService(repo, cfg)

	return db, services, nil
}

// NewHandler builds the backend's HTTP handler. Metrics are registered on reg
// and served at /metrics.
func NewHandler(services *service.Service, cfg config.Server, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(metrics.Middleware)
	handlers.NewHandlers(services, logger).Routes(api)
	router.NotFoundHandler = api.NotFoundHandler
	router.MethodNotAllowedHandler = api.MethodNotAllowedHandler

	return middleware.Chain(router,
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware,
		middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst),
	)
}

// NewController opens the credential store and builds the client controller.
// The caller closes both.
func NewController(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*controller.Controller, storage.Store, error) {
	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}

	client := blogapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, blogapi.WithLogger(logger))
	ctrl := controller.New(client, store, controller.Options{
		PurgeRejectedToken: cfg.Session.PurgeRejectedToken,
		Logger:             logger,
	})

	return ctrl, store, nil
}
