/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the forum's HTTP surface, background services and
// metrics listener together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_forum/internal/api"
	"github.com/friendsincode/mimir_forum/internal/audit"
	"github.com/friendsincode/mimir_forum/internal/config"
	"github.com/friendsincode/mimir_forum/internal/db"
	"github.com/friendsincode/mimir_forum/internal/eventbus"
	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/notifications"
	"github.com/friendsincode/mimir_forum/internal/scheduling"
	"github.com/friendsincode/mimir_forum/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db              *gorm.DB
	bus             events.Broker
	api             *api.API
	scheduler       *scheduling.Service
	auditSvc        *audit.Service
	notificationSvc *notifications.Service

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for WebSocket upgrade requests
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout stays 0 so WebSocket event streams are not cut off;
		// the middleware timeout covers regular routes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	s.bus = s.buildBus()

	opts := scheduling.Options{
		SlotMinutes:     s.cfg.SlotMinutes,
		ScanSlots:       s.cfg.SlotScanHorizon,
		DayStartHour:    s.cfg.DayStartHour,
		DayEndHour:      s.cfg.DayEndHour,
		DefaultDuration: s.cfg.DefaultDuration,
	}
	s.scheduler = scheduling.NewService(database, s.bus, scheduling.SystemClock(), opts, s.logger)

	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	notifCfg := notifications.ConfigFromEnv()
	notifCfg.ReminderLeadTime = s.cfg.ReminderLeadTime
	notifCfg.ReminderCheckInterval = s.cfg.ReminderCheckEvery
	s.notificationSvc = notifications.NewService(database, s.bus, notifCfg, s.logger)

	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), s.scheduler, s.bus, s.logger)

	return nil
}

// buildBus returns the Redis-backed bus when distributed mode is on,
// otherwise the in-process bus.
func (s *Server) buildBus() events.Broker {
	if !s.cfg.DistributedBusEnabled {
		return events.NewBus()
	}

	nodeID := s.cfg.InstanceID
	if nodeID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "mimir-forum"
		}
		nodeID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}

	redisCfg := eventbus.DefaultRedisConfig()
	redisCfg.Addr = s.cfg.RedisAddr
	redisCfg.Password = s.cfg.RedisPassword
	redisCfg.DB = s.cfg.RedisDB

	bus, err := eventbus.NewRedisBus(redisCfg, nodeID, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("distributed bus unavailable, using in-process bus")
		return events.NewBus()
	}
	s.DeferClose(bus.Close)
	return bus
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.notificationSvc.Start(ctx)
	}()

	// Pool gauge refresh.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	if s.cfg.MetricsBind != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", telemetry.Handler())
		metricsServer := &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.logger.Info().Str("addr", s.cfg.MetricsBind).Msg("metrics listener starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Msg("metrics listener exited")
			}
		}()
		s.DeferClose(func() error {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

// HTTPServer exposes the configured HTTP server for the caller to run.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
