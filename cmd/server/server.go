// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/clubreserve/internal/api"
	"github.com/codr1/clubreserve/internal/api/calendars"
	"github.com/codr1/clubreserve/internal/api/pricingrules"
	"github.com/codr1/clubreserve/internal/api/promotions"
	"github.com/codr1/clubreserve/internal/api/reservations"
	"github.com/codr1/clubreserve/internal/calendar"
	"github.com/codr1/clubreserve/internal/config"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/directory"
	"github.com/codr1/clubreserve/internal/metrics"
	"github.com/codr1/clubreserve/internal/pricing"
	"github.com/codr1/clubreserve/internal/promotion"
	"github.com/codr1/clubreserve/internal/ratelimit"
	"github.com/codr1/clubreserve/internal/reservation"
)

type routeRegistrar interface {
	Register(mux *http.ServeMux)
}

func newServer(cfg *config.Config, database *db.DB, engine *reservation.Engine, m *metrics.Metrics, limiter *ratelimit.Limiter) (*http.Server, error) {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithMetrics(m),
		limiter.Middleware,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	// Register routes
	if err := registerRoutes(router, database, engine, m); err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

func registerRoutes(mux *http.ServeMux, database *db.DB, engine *reservation.Engine, m *metrics.Metrics) error {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	calendarService, err := calendar.NewService(database)
	if err != nil {
		return err
	}
	pricingService, err := pricing.NewService(database)
	if err != nil {
		return err
	}
	promotionService, err := promotion.NewService(database)
	if err != nil {
		return err
	}
	dir, err := directory.New(database)
	if err != nil {
		return err
	}

	calendarHandlers, err := calendars.NewHandlers(calendarService)
	if err != nil {
		return err
	}
	pricingHandlers, err := pricingrules.NewHandlers(pricingService)
	if err != nil {
		return err
	}
	promotionHandlers, err := promotions.NewHandlers(promotionService)
	if err != nil {
		return err
	}
	reservationHandlers, err := reservations.NewHandlers(engine, dir)
	if err != nil {
		return err
	}

	for _, h := range []routeRegistrar{calendarHandlers, pricingHandlers, promotionHandlers, reservationHandlers} {
		h.Register(mux)
	}
	return nil
}
