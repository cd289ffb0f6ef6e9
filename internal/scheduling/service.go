/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/friendsincode/mimir_forum/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventPublisher is the slice of the event bus the service needs.
type EventPublisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Service coordinates interview creation, lifecycle transitions, queue
// ordering and conflict resolution.
type Service struct {
	db       *gorm.DB
	detector *Detector
	finder   *SlotFinder
	queue    *Queue
	bus      EventPublisher
	clock    Clock
	opts     Options
	logger   zerolog.Logger
}

// Options tune the slot finder's scan.
type Options struct {
	SlotMinutes     int
	ScanSlots       int
	DayStartHour    int
	DayEndHour      int
	DefaultDuration int
}

// DefaultOptions returns the standard event-day configuration:
// 15-minute slots, a 12-hour scan horizon and a 9:00-17:00 day.
func DefaultOptions() Options {
	return Options{
		SlotMinutes:     15,
		ScanSlots:       48,
		DayStartHour:    9,
		DayEndHour:      17,
		DefaultDuration: 15,
	}
}

// NewService creates a scheduling service.
func NewService(db *gorm.DB, bus EventPublisher, clock Clock, opts Options, logger zerolog.Logger) *Service {
	detector := NewDetector(db)
	return &Service{
		db:       db,
		detector: detector,
		finder:   NewSlotFinder(detector, opts.SlotMinutes, opts.ScanSlots, opts.DayStartHour, opts.DayEndHour),
		queue:    NewQueue(db, clock),
		bus:      bus,
		clock:    clock,
		logger:   logger.With().Str("component", "scheduling").Logger(),
		opts:     opts,
	}
}

// CreateRequest carries a registration for a new interview.
type CreateRequest struct {
	StudentID         uuid.UUID
	CompanyID         uuid.UUID
	CommitteeMemberID *uuid.UUID
	OpportunityType   models.OpportunityType
	ScheduledTime     time.Time
	EstimatedDuration int // minutes; zero means the configured default
	Notes             string

	// AllowConflicts creates the interview anyway when the window
	// overlaps existing bookings, annotating the record with the
	// detected conflicts so they can be resolved later.
	AllowConflicts bool
}

// CreateInterview validates a registration, computes its priority,
// checks the student's calendar for overlaps and enqueues the interview
// at the end of the company's queue.
func (s *Service) CreateInterview(ctx context.Context, req CreateRequest) (*models.Interview, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	duration := req.EstimatedDuration
	if duration == 0 {
		duration = s.opts.DefaultDuration
	}

	student, company, err := s.loadParticipants(ctx, req.StudentID, req.CompanyID)
	if err != nil {
		return nil, err
	}

	if !company.Accepts(req.OpportunityType) {
		return nil, ErrOpportunityNotAccepted
	}

	if err := s.checkCapacity(ctx, company, req.ScheduledTime); err != nil {
		return nil, err
	}

	priority := CalculatePriority(student.Kind, req.OpportunityType, student.CommitteeMember)

	conflicts, err := s.detector.FindConflicts(ctx, req.StudentID, req.ScheduledTime, duration)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		telemetry.ConflictsDetectedTotal.Inc()
		if !req.AllowConflicts {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	interview := &models.Interview{
		StudentID:         student.ID,
		StudentName:       student.FullName,
		CompanyID:         company.ID,
		CompanyName:       company.Name,
		Room:              company.Room,
		CommitteeMemberID: req.CommitteeMemberID,
		OpportunityType:   req.OpportunityType,
		Priority:          priority,
		Status:            models.StatusWaiting,
		EstimatedDuration: duration,
		ScheduledTime:     req.ScheduledTime,
		Notes:             req.Notes,
	}

	for _, c := range conflicts {
		interview.AddConflict("time_conflict",
			fmt.Sprintf("overlaps interview with %s at %s", c.CompanyName, c.ScheduledTime.Format(time.RFC3339)))
	}

	interview.RecordNotification("scheduled", "student",
		fmt.Sprintf("Interview with %s scheduled for %s", company.Name, req.ScheduledTime.Format(time.RFC3339)),
		s.clock.Now())

	// The per-company lock closes the read-count/write-position race
	// between concurrent registrations.
	lock := s.queue.Lock(company.ID)
	defer lock.Unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.queue.WaitingCount(ctx, tx, company.ID)
		if err != nil {
			return err
		}
		interview.Position = int(count) + 1
		return tx.Create(interview).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create interview: %w", err)
	}

	telemetry.InterviewsCreatedTotal.WithLabelValues(string(req.OpportunityType)).Inc()

	s.logger.Info().
		Str("interview_id", interview.ID.String()).
		Str("student", student.FullName).
		Str("company", company.Name).
		Int("priority", priority).
		Int("position", interview.Position).
		Msg("interview created")

	s.publish(events.EventInterviewCreated, interview)
	if len(conflicts) > 0 {
		s.publish(events.EventConflictDetected, interview)
	}

	return interview, nil
}

func (s *Service) validateCreate(req CreateRequest) error {
	if req.StudentID == uuid.Nil {
		return &ValidationError{Field: "student_id", Reason: "required"}
	}
	if req.CompanyID == uuid.Nil {
		return &ValidationError{Field: "company_id", Reason: "required"}
	}
	if req.ScheduledTime.IsZero() {
		return &ValidationError{Field: "scheduled_time", Reason: "required"}
	}
	if req.EstimatedDuration < 0 {
		return &ValidationError{Field: "estimated_duration", Reason: "must not be negative"}
	}
	if !models.ValidOpportunityType(req.OpportunityType) {
		return &ValidationError{Field: "opportunity_type", Reason: fmt.Sprintf("unknown type %q", req.OpportunityType)}
	}
	return nil
}

func (s *Service) loadParticipants(ctx context.Context, studentID, companyID uuid.UUID) (*models.Student, *models.Company, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, "id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("student %s: %w", studentID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("load student: %w", err)
	}

	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("company %s: %w", companyID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("load company: %w", err)
	}

	return &student, &company, nil
}

// checkCapacity enforces the company's daily booking bound. Cancelled
// and no-show interviews free their slot.
func (s *Service) checkCapacity(ctx context.Context, company *models.Company, scheduledTime time.Time) error {
	if company.DailyCapacity <= 0 {
		return nil
	}

	dayStart := time.Date(scheduledTime.Year(), scheduledTime.Month(), scheduledTime.Day(), 0, 0, 0, 0, scheduledTime.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("company_id = ?", company.ID).
		Where("scheduled_time >= ? AND scheduled_time < ?", dayStart, dayEnd).
		Where("status NOT IN ?", []models.InterviewStatus{models.StatusCancelled, models.StatusNoShow}).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("count daily bookings: %w", err)
	}

	if count >= int64(company.DailyCapacity) {
		return ErrCapacityExceeded
	}

	return nil
}

// Start moves a waiting interview into in_progress.
func (s *Service) Start(ctx context.Context, interviewID uuid.UUID) (*models.Interview, error) {
	now := s.clock.Now()
	interview, err := s.transition(ctx, interviewID, func(iv *models.Interview) error {
		if err := iv.Start(now); err != nil {
			return err
		}
		iv.RecordNotification("started", "student",
			fmt.Sprintf("Interview with %s started", iv.CompanyName), now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.InterviewTransitionsTotal.WithLabelValues(string(models.StatusInProgress)).Inc()
	s.publish(events.EventInterviewStarted, interview)
	return interview, nil
}

// End completes an in_progress interview.
func (s *Service) End(ctx context.Context, interviewID uuid.UUID) (*models.Interview, error) {
	now := s.clock.Now()
	interview, err := s.transition(ctx, interviewID, func(iv *models.Interview) error {
		if err := iv.End(now); err != nil {
			return err
		}
		iv.RecordNotification("ended", "student",
			fmt.Sprintf("Interview with %s ended", iv.CompanyName), now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.InterviewTransitionsTotal.WithLabelValues(string(models.StatusCompleted)).Inc()
	s.publish(events.EventInterviewEnded, interview)
	return interview, nil
}

// Cancel aborts an interview that has not completed.
func (s *Service) Cancel(ctx context.Context, interviewID uuid.UUID, reason string) (*models.Interview, error) {
	interview, err := s.transition(ctx, interviewID, func(iv *models.Interview) error {
		return iv.Cancel(reason)
	})
	if err != nil {
		return nil, err
	}

	telemetry.InterviewTransitionsTotal.WithLabelValues(string(models.StatusCancelled)).Inc()
	s.publish(events.EventInterviewCancelled, interview)
	return interview, nil
}

// MarkNoShow flags an interview whose student never appeared.
func (s *Service) MarkNoShow(ctx context.Context, interviewID uuid.UUID) (*models.Interview, error) {
	interview, err := s.transition(ctx, interviewID, func(iv *models.Interview) error {
		return iv.MarkNoShow()
	})
	if err != nil {
		return nil, err
	}

	telemetry.InterviewTransitionsTotal.WithLabelValues(string(models.StatusNoShow)).Inc()
	s.publish(events.EventInterviewNoShow, interview)
	return interview, nil
}

// transition loads the interview under a row lock, applies mutate and
// persists the whole record. Either the full transition commits, fields
// and notification log together, or nothing does.
func (s *Service) transition(ctx context.Context, interviewID uuid.UUID, mutate func(*models.Interview) error) (*models.Interview, error) {
	var interview models.Interview

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.withRowLock(tx).First(&interview, "id = ?", interviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
			}
			return fmt.Errorf("load interview: %w", err)
		}

		if err := mutate(&interview); err != nil {
			return err
		}

		return tx.Save(&interview).Error
	})
	if err != nil {
		return nil, err
	}

	return &interview, nil
}

// withRowLock adds SELECT ... FOR UPDATE where the backend supports it.
// SQLite has no row locks; its single-writer lock serializes instead.
func (s *Service) withRowLock(tx *gorm.DB) *gorm.DB {
	if s.db.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Resolution reports the outcome of a conflict-resolution attempt.
type Resolution struct {
	Resolved bool       `json:"resolved"`
	NewTime  *time.Time `json:"new_time,omitempty"`
}

// ResolveConflicts rechecks the interview's current window and, when it
// overlaps other bookings, reschedules it to the next free slot and
// records the resolution. Reports Resolved false, rather than an error,
// when no free slot exists within the scan horizon or there was nothing
// to resolve.
func (s *Service) ResolveConflicts(ctx context.Context, interviewID uuid.UUID) (*Resolution, error) {
	var interview models.Interview
	if err := s.db.WithContext(ctx).First(&interview, "id = ?", interviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
		}
		return nil, fmt.Errorf("load interview: %w", err)
	}

	conflicts, err := s.detector.FindConflicts(ctx, interview.StudentID, interview.ScheduledTime, interview.EstimatedDuration)
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		return &Resolution{Resolved: false}, nil
	}

	newTime, err := s.finder.NextAvailableTime(ctx, interview.StudentID, interview.ScheduledTime, interview.EstimatedDuration)
	if err != nil {
		if errors.Is(err, ErrSlotExhausted) {
			return &Resolution{Resolved: false}, nil
		}
		return nil, err
	}

	now := s.clock.Now()
	interview.ScheduledTime = newTime
	interview.Conflicts = append(interview.Conflicts, models.ConflictRecord{
		Type:        "time_conflict",
		Description: "Resolved by rescheduling",
		Resolved:    true,
		ResolvedAt:  &now,
	})
	interview.ResolveConflicts(now)

	if err := s.db.WithContext(ctx).Save(&interview).Error; err != nil {
		return nil, fmt.Errorf("save rescheduled interview: %w", err)
	}

	s.logger.Info().
		Str("interview_id", interview.ID.String()).
		Time("new_time", newTime).
		Msg("conflicts resolved by rescheduling")

	s.publish(events.EventConflictResolved, &interview)
	s.publish(events.EventInterviewRescheduled, &interview)

	return &Resolution{Resolved: true, NewTime: &newTime}, nil
}

// OptimizeQueue re-sorts the company's waiting queue by priority.
func (s *Service) OptimizeQueue(ctx context.Context, companyID uuid.UUID) ([]models.Interview, error) {
	interviews, err := s.queue.Optimize(ctx, companyID)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.EventQueueOptimized, events.Payload{
		"company_id":    companyID.String(),
		"total_waiting": len(interviews),
	})

	return interviews, nil
}

// GetQueueStats summarizes the company's waiting queue.
func (s *Service) GetQueueStats(ctx context.Context, companyID uuid.UUID) (*Stats, error) {
	return s.queue.GetStats(ctx, companyID)
}

// CheckStudentAvailability reports whether a student is free in the
// given window.
func (s *Service) CheckStudentAvailability(ctx context.Context, studentID uuid.UUID, startTime, endTime time.Time) (*Availability, error) {
	return s.detector.CheckStudentAvailability(ctx, studentID, startTime, endTime)
}

// NextAvailableTime exposes the slot finder's forward scan.
func (s *Service) NextAvailableTime(ctx context.Context, studentID uuid.UUID, fromTime time.Time, durationMinutes int) (time.Time, error) {
	return s.finder.NextAvailableTime(ctx, studentID, fromTime, durationMinutes)
}

// DaySlots returns every candidate start instant of the event day.
func (s *Service) DaySlots(ref time.Time) []time.Time {
	return s.finder.DaySlots(ref)
}

// SuggestSlot picks a slot on the event day for the given priority:
// high-priority students are placed early, medium mid-day, low late.
func (s *Service) SuggestSlot(ref time.Time, priority int) (time.Time, bool) {
	return s.finder.SelectSlot(s.finder.DaySlots(ref), priority)
}

// Get loads a single interview.
func (s *Service) Get(ctx context.Context, interviewID uuid.UUID) (*models.Interview, error) {
	var interview models.Interview
	if err := s.db.WithContext(ctx).First(&interview, "id = ?", interviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
		}
		return nil, fmt.Errorf("load interview: %w", err)
	}
	return &interview, nil
}

// ListFilter narrows List results. Zero values mean "any".
type ListFilter struct {
	CompanyID uuid.UUID
	StudentID uuid.UUID
	Status    models.InterviewStatus
	Room      string
	Limit     int
}

// List returns interviews matching the filter, ordered by scheduled time.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Interview, error) {
	query := s.db.WithContext(ctx).Model(&models.Interview{}).Order("scheduled_time ASC")

	if filter.CompanyID != uuid.Nil {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.StudentID != uuid.Nil {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Room != "" {
		query = query.Where("room = ?", filter.Room)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var interviews []models.Interview
	if err := query.Find(&interviews).Error; err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	return interviews, nil
}

// ListUpcoming returns active interviews scheduled from now on.
func (s *Service) ListUpcoming(ctx context.Context, limit int) ([]models.Interview, error) {
	query := s.db.WithContext(ctx).
		Where("status IN ?", []models.InterviewStatus{models.StatusScheduled, models.StatusWaiting}).
		Where("scheduled_time >= ?", s.clock.Now()).
		Order("scheduled_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var interviews []models.Interview
	if err := query.Find(&interviews).Error; err != nil {
		return nil, fmt.Errorf("list upcoming interviews: %w", err)
	}
	return interviews, nil
}

// ListInProgress returns interviews currently running.
func (s *Service) ListInProgress(ctx context.Context) ([]models.Interview, error) {
	var interviews []models.Interview
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusInProgress).
		Order("start_time ASC").
		Find(&interviews).Error
	if err != nil {
		return nil, fmt.Errorf("list in-progress interviews: %w", err)
	}
	return interviews, nil
}

// InterviewStats summarizes the forum's interviews.
type InterviewStats struct {
	Total                  int64                           `json:"total"`
	ByStatus               map[models.InterviewStatus]int64 `json:"by_status"`
	AverageDurationMinutes int                             `json:"average_duration_minutes"`
}

// GetInterviewStats aggregates counts by status and the average actual
// duration of completed interviews.
func (s *Service) GetInterviewStats(ctx context.Context) (*InterviewStats, error) {
	stats := &InterviewStats{
		ByStatus: make(map[models.InterviewStatus]int64),
	}

	type statusCount struct {
		Status models.InterviewStatus
		Count  int64
	}
	var rows []statusCount
	err := s.db.WithContext(ctx).
		Model(&models.Interview{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count interviews by status: %w", err)
	}

	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	var completed []models.Interview
	err = s.db.WithContext(ctx).
		Where("status = ?", models.StatusCompleted).
		Where("actual_duration IS NOT NULL").
		Find(&completed).Error
	if err != nil {
		return nil, fmt.Errorf("load completed interviews: %w", err)
	}

	if len(completed) > 0 {
		total := 0
		for _, iv := range completed {
			if iv.ActualDuration != nil {
				total += *iv.ActualDuration
			}
		}
		stats.AverageDurationMinutes = total / len(completed)
	}

	return stats, nil
}

func (s *Service) publish(eventType events.EventType, interview *models.Interview) {
	s.bus.Publish(eventType, events.Payload{
		"interview_id": interview.ID.String(),
		"student_id":   interview.StudentID.String(),
		"company_id":   interview.CompanyID.String(),
		"status":       string(interview.Status),
		"position":     interview.Position,
		"priority":     interview.Priority,
	})
}
