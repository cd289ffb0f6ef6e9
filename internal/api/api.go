/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the forum's REST and WebSocket surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/mimir_forum/internal/auth"
	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/friendsincode/mimir_forum/internal/scheduling"
	"github.com/friendsincode/mimir_forum/internal/telemetry"
)

const tokenTTL = 12 * time.Hour

// API bundles the HTTP handlers and their dependencies.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	scheduler *scheduling.Service
	bus       events.Broker
	logger    zerolog.Logger
}

// New creates the API surface.
func New(db *gorm.DB, jwtSecret []byte, scheduler *scheduling.Service, bus events.Broker, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		jwtSecret: jwtSecret,
		scheduler: scheduler,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API routes on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Get("/events", a.handleEvents)

			pr.Route("/interviews", func(r chi.Router) {
				r.Get("/", a.handleInterviewsList)
				r.Post("/", a.handleInterviewCreate)
				r.Get("/stats", a.handleInterviewStats)
				r.Get("/upcoming", a.handleInterviewsUpcoming)
				r.Get("/in-progress", a.handleInterviewsInProgress)

				r.Route("/{interviewID}", func(r chi.Router) {
					r.Get("/", a.handleInterviewGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleCommittee)).Group(func(r chi.Router) {
						r.Post("/start", a.handleInterviewStart)
						r.Post("/end", a.handleInterviewEnd)
						r.Post("/cancel", a.handleInterviewCancel)
						r.Post("/no-show", a.handleInterviewNoShow)
						r.Post("/resolve-conflicts", a.handleInterviewResolveConflicts)
					})
				})
			})

			pr.Route("/companies", func(r chi.Router) {
				r.Get("/", a.handleCompaniesList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleOrganizer)).Post("/", a.handleCompanyCreate)

				r.Route("/{companyID}", func(r chi.Router) {
					r.Get("/", a.handleCompanyGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleOrganizer)).Put("/", a.handleCompanyUpdate)
					r.Get("/interviews", a.handleCompanyInterviews)
					r.Get("/queue/stats", a.handleQueueStats)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleCommittee)).
						Post("/queue/optimize", a.handleQueueOptimize)
				})
			})

			pr.Route("/students", func(r chi.Router) {
				r.Get("/", a.handleStudentsList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleOrganizer)).Post("/", a.handleStudentCreate)

				r.Route("/{studentID}", func(r chi.Router) {
					r.Get("/", a.handleStudentGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleOrganizer)).Put("/", a.handleStudentUpdate)
					r.Get("/interviews", a.handleStudentInterviews)
					r.Get("/availability", a.handleStudentAvailability)
				})
			})

			pr.Route("/committee", func(r chi.Router) {
				r.Get("/", a.handleCommitteeList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleOrganizer)).Post("/", a.handleCommitteeCreate)
			})

			pr.Get("/slots", a.handleDaySlots)

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeyCreate)
				r.Delete("/{keyID}", a.handleAPIKeyRevoke)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		writeError(w, http.StatusServiceUnavailable, "database_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var user models.User
	err := a.db.First(&user, "username = ?", req.Username).Error
	if err != nil || !user.Active {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{
		UserID: user.ID.String(),
		Roles:  []string{string(user.Role)},
	}, tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_issue_failed")
		return
	}

	now := time.Now()
	a.db.Model(&user).Update("last_login_at", now)

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// handleEvents streams bus events over a WebSocket connection.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{
			events.EventInterviewCreated,
			events.EventInterviewStarted,
			events.EventInterviewEnded,
			events.EventQueueOptimized,
		}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i := range subscribers {
			a.bus.Unsubscribe(eventTypes[i], subscribers[i])
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.db, a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	roles := make([]string, 0, len(allowed))
	for _, role := range allowed {
		roles = append(roles, string(role))
	}
	return auth.RequireRole(roles...)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, events.EventType(strings.TrimSpace(part)))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// auditContext extracts user and request info for audit logging.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil {
		payload["user_id"] = claims.UserID

		var user models.User
		if err := a.db.Select("email").First(&user, "id = ?", claims.UserID).Error; err == nil {
			payload["user_email"] = user.Email
		}
	}

	return payload
}

// publishAuditEvent publishes an audit event with user and request context.
func (a *API) publishAuditEvent(r *http.Request, eventType events.EventType, data events.Payload) {
	payload := a.auditContext(r)
	for k, v := range data {
		payload[k] = v
	}
	a.bus.Publish(eventType, payload)
}
