/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    events.Broker
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	interviewCreated := s.bus.Subscribe(events.EventInterviewCreated)
	interviewStarted := s.bus.Subscribe(events.EventInterviewStarted)
	interviewEnded := s.bus.Subscribe(events.EventInterviewEnded)
	interviewCancelled := s.bus.Subscribe(events.EventInterviewCancelled)
	interviewNoShow := s.bus.Subscribe(events.EventInterviewNoShow)
	conflictResolved := s.bus.Subscribe(events.EventConflictResolved)
	queueOptimized := s.bus.Subscribe(events.EventQueueOptimized)
	auditAPIKeyCreate := s.bus.Subscribe(events.EventAuditAPIKeyCreate)
	auditAPIKeyRevoke := s.bus.Subscribe(events.EventAuditAPIKeyRevoke)

	defer func() {
		s.bus.Unsubscribe(events.EventInterviewCreated, interviewCreated)
		s.bus.Unsubscribe(events.EventInterviewStarted, interviewStarted)
		s.bus.Unsubscribe(events.EventInterviewEnded, interviewEnded)
		s.bus.Unsubscribe(events.EventInterviewCancelled, interviewCancelled)
		s.bus.Unsubscribe(events.EventInterviewNoShow, interviewNoShow)
		s.bus.Unsubscribe(events.EventConflictResolved, conflictResolved)
		s.bus.Unsubscribe(events.EventQueueOptimized, queueOptimized)
		s.bus.Unsubscribe(events.EventAuditAPIKeyCreate, auditAPIKeyCreate)
		s.bus.Unsubscribe(events.EventAuditAPIKeyRevoke, auditAPIKeyRevoke)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-interviewCreated:
			s.logAuditEntry(ctx, models.AuditActionInterviewCreate, payload)

		case payload := <-interviewStarted:
			s.logAuditEntry(ctx, models.AuditActionInterviewStart, payload)

		case payload := <-interviewEnded:
			s.logAuditEntry(ctx, models.AuditActionInterviewEnd, payload)

		case payload := <-interviewCancelled:
			s.logAuditEntry(ctx, models.AuditActionInterviewCancel, payload)

		case payload := <-interviewNoShow:
			s.logAuditEntry(ctx, models.AuditActionInterviewNoShow, payload)

		case payload := <-conflictResolved:
			s.logAuditEntry(ctx, models.AuditActionConflictResolve, payload)

		case payload := <-queueOptimized:
			s.logAuditEntry(ctx, models.AuditActionQueueOptimize, payload)

		case payload := <-auditAPIKeyCreate:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyCreate, payload)

		case payload := <-auditAPIKeyRevoke:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyRevoke, payload)
		}
	}
}

// logAuditEntry persists one audit record built from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := models.AuditLog{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Action:    action,
		Details:   map[string]any(payload),
	}

	if v, ok := payload["user_id"].(string); ok && v != "" {
		if id, err := uuid.Parse(v); err == nil {
			entry.UserID = &id
		}
	}
	if v, ok := payload["user_email"].(string); ok {
		entry.UserEmail = v
	}
	if v, ok := payload["company_id"].(string); ok && v != "" {
		if id, err := uuid.Parse(v); err == nil {
			entry.CompanyID = &id
		}
	}
	if v, ok := payload["interview_id"].(string); ok && v != "" {
		entry.ResourceType = "interview"
		entry.ResourceID = v
	}
	if v, ok := payload["resource_type"].(string); ok && v != "" {
		entry.ResourceType = v
	}
	if v, ok := payload["resource_id"].(string); ok && v != "" {
		entry.ResourceID = v
	}
	if v, ok := payload["ip_address"].(string); ok {
		entry.IPAddress = v
	}
	if v, ok := payload["user_agent"].(string); ok {
		entry.UserAgent = v
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("failed to write audit entry")
		return
	}

	s.logger.Debug().Str("action", string(action)).Str("resource_id", entry.ResourceID).Msg("audit entry recorded")
}

// Record writes an audit entry directly, for callers outside the event loop.
func (s *Service) Record(ctx context.Context, action models.AuditAction, details events.Payload) {
	s.logAuditEntry(ctx, action, details)
}

// Query returns audit entries filtered by action, newest first.
func (s *Service) Query(ctx context.Context, action models.AuditAction, limit int) ([]models.AuditLog, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Order("timestamp DESC")
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.AuditLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
