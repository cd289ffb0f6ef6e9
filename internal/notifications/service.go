/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/models"
)

// Config holds notification service configuration.
type Config struct {
	// SMTP settings
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Reminder settings
	ReminderCheckInterval time.Duration
	ReminderLeadTime      time.Duration
}

// ConfigFromEnv loads configuration from environment variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnv("MIMIR_SMTP_PORT", "587"))
	interval, _ := time.ParseDuration(getEnv("MIMIR_REMINDER_CHECK_INTERVAL", "1m"))
	lead, _ := time.ParseDuration(getEnv("MIMIR_REMINDER_LEAD_TIME", "10m"))

	return Config{
		SMTPHost:              getEnv("MIMIR_SMTP_HOST", ""),
		SMTPPort:              port,
		SMTPUsername:          getEnv("MIMIR_SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("MIMIR_SMTP_PASSWORD", ""),
		SMTPFrom:              getEnv("MIMIR_SMTP_FROM", "noreply@example.com"),
		SMTPFromName:          getEnv("MIMIR_SMTP_FROM_NAME", "Mimir Forum"),
		ReminderCheckInterval: interval,
		ReminderLeadTime:      lead,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Service delivers interview notifications and runs the approaching
// interview reminder sweep. The scheduling core only appends
// notification records; this service owns actual delivery.
type Service struct {
	db     *gorm.DB
	bus    events.Broker
	config Config
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool
}

// NewService creates a new notification service.
func NewService(db *gorm.DB, bus events.Broker, config Config, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		config: config,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Running reports whether the service loop is active.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Start begins the notification service, subscribing to events and
// running the reminder scheduler. Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Msg("notification service starting")

	created := s.bus.Subscribe(events.EventInterviewCreated)
	started := s.bus.Subscribe(events.EventInterviewStarted)
	ended := s.bus.Subscribe(events.EventInterviewEnded)
	cancelled := s.bus.Subscribe(events.EventInterviewCancelled)
	rescheduled := s.bus.Subscribe(events.EventInterviewRescheduled)

	defer func() {
		s.bus.Unsubscribe(events.EventInterviewCreated, created)
		s.bus.Unsubscribe(events.EventInterviewStarted, started)
		s.bus.Unsubscribe(events.EventInterviewEnded, ended)
		s.bus.Unsubscribe(events.EventInterviewCancelled, cancelled)
		s.bus.Unsubscribe(events.EventInterviewRescheduled, rescheduled)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	reminderTicker := time.NewTicker(s.config.ReminderCheckInterval)
	defer reminderTicker.Stop()

	s.logger.Info().Msg("notification service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification service stopping")
			return

		case payload := <-created:
			s.deliverForEvent(ctx, payload, "scheduled", "Your interview has been scheduled")

		case payload := <-started:
			s.deliverForEvent(ctx, payload, "started", "Your interview has started")

		case payload := <-ended:
			s.deliverForEvent(ctx, payload, "ended", "Your interview has ended")

		case payload := <-cancelled:
			s.deliverForEvent(ctx, payload, "cancelled", "Your interview has been cancelled")

		case payload := <-rescheduled:
			s.deliverForEvent(ctx, payload, "rescheduled", "Your interview has been rescheduled")

		case <-reminderTicker.C:
			s.processReminders(ctx)
		}
	}
}

// deliverForEvent emails the student referenced by an interview event.
func (s *Service) deliverForEvent(ctx context.Context, payload events.Payload, kind, subject string) {
	interviewID, _ := payload["interview_id"].(string)
	if interviewID == "" {
		return
	}

	var interview models.Interview
	if err := s.db.WithContext(ctx).First(&interview, "id = ?", interviewID).Error; err != nil {
		s.logger.Warn().Err(err).Str("interview_id", interviewID).Msg("interview not found for notification")
		return
	}

	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, "id = ?", interview.StudentID).Error; err != nil {
		s.logger.Warn().Err(err).Str("student_id", interview.StudentID.String()).Msg("student not found for notification")
		return
	}

	body := fmt.Sprintf("%s.\n\nCompany: %s\nRoom: %s\nScheduled: %s\n",
		subject, interview.CompanyName, interview.Room, interview.ScheduledTime.Format(time.RFC1123))

	if err := s.sendEmail(student.Email, subject, body); err != nil {
		s.logger.Error().Err(err).Str("to", student.Email).Str("kind", kind).Msg("failed to send notification email")
		return
	}

	s.logger.Debug().Str("to", student.Email).Str("kind", kind).Msg("notification delivered")
}

// processReminders finds interviews starting within the lead window
// whose students have not been reminded yet and sends "approaching"
// notifications.
func (s *Service) processReminders(ctx context.Context) {
	now := time.Now()
	horizon := now.Add(s.config.ReminderLeadTime)

	var upcoming []models.Interview
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.InterviewStatus{models.StatusScheduled, models.StatusWaiting}).
		Where("scheduled_time > ? AND scheduled_time <= ?", now, horizon).
		Find(&upcoming).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep query failed")
		return
	}

	for i := range upcoming {
		interview := &upcoming[i]
		if hasNotification(interview, "approaching") {
			continue
		}

		var student models.Student
		if err := s.db.WithContext(ctx).First(&student, "id = ?", interview.StudentID).Error; err != nil {
			continue
		}

		minutes := int(interview.ScheduledTime.Sub(now).Minutes())
		message := fmt.Sprintf("Your interview with %s starts in about %d minute(s) in %s.",
			interview.CompanyName, minutes, interview.Room)

		if err := s.sendEmail(student.Email, "Interview approaching", message); err != nil {
			s.logger.Error().Err(err).Str("to", student.Email).Msg("failed to send reminder email")
			continue
		}

		interview.RecordNotification("approaching", "student", message, now)
		if err := s.db.WithContext(ctx).Model(interview).
			Update("notifications", interview.Notifications).Error; err != nil {
			s.logger.Error().Err(err).Msg("failed to record reminder notification")
		}

		s.bus.Publish(events.EventStudentApproaching, events.Payload{
			"interview_id": interview.ID.String(),
			"student_id":   interview.StudentID.String(),
			"company_id":   interview.CompanyID.String(),
		})
	}
}

func hasNotification(interview *models.Interview, kind string) bool {
	for _, n := range interview.Notifications {
		if n.Type == kind {
			return true
		}
	}
	return false
}

// sendEmail delivers a plain-text email via SMTP. A missing SMTP host
// disables delivery, which keeps development setups quiet.
func (s *Service) sendEmail(to, subject, body string) error {
	if s.config.SMTPHost == "" || to == "" {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.config.SMTPFromName, s.config.SMTPFrom, to, subject, body)

	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	return smtp.SendMail(addr, auth, s.config.SMTPFrom, []string{to}, []byte(msg))
}
