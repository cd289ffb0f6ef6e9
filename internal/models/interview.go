/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidTransition is wrapped by every rejected lifecycle transition.
var ErrInvalidTransition = errors.New("invalid state transition")

// InterviewStatus is the lifecycle state of an interview.
type InterviewStatus string

const (
	StatusScheduled  InterviewStatus = "scheduled"
	StatusWaiting    InterviewStatus = "waiting"
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
	StatusCancelled  InterviewStatus = "cancelled"
	StatusNoShow     InterviewStatus = "no_show"
)

// ActiveStatuses are the states that occupy a student's time and
// therefore participate in conflict detection.
var ActiveStatuses = []InterviewStatus{StatusScheduled, StatusWaiting, StatusInProgress}

// ConflictRecord notes a scheduling clash detected on an interview.
type ConflictRecord struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// NotificationRecord is an audit trail entry of a message sent about
// this interview.
type NotificationRecord struct {
	Type    string    `json:"type"` // scheduled, approaching, ready, started, ended
	SentTo  string    `json:"sent_to"` // student, committee, organizer
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Interview is a single student/company meeting slot.
type Interview struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	StudentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	StudentName string    `gorm:"not null" json:"student_name"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	CompanyName string    `gorm:"not null" json:"company_name"`
	Room        string    `json:"room"`

	CommitteeMemberID *uuid.UUID `gorm:"type:uuid" json:"committee_member_id,omitempty"`

	OpportunityType OpportunityType `gorm:"not null" json:"opportunity_type"`
	Priority        int             `gorm:"not null;default:0;index" json:"priority"`
	Status          InterviewStatus `gorm:"not null;default:'scheduled';index" json:"status"`

	// Position is the 1-based rank in the company's queue.
	Position int `gorm:"not null;default:0" json:"position"`

	EstimatedDuration int  `gorm:"not null;default:15" json:"estimated_duration"`
	ActualDuration    *int `json:"actual_duration,omitempty"`

	ScheduledTime time.Time  `gorm:"not null;index" json:"scheduled_time"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`

	Notes string `json:"notes"`

	Conflicts     []ConflictRecord     `gorm:"type:text;serializer:json" json:"conflicts"`
	Notifications []NotificationRecord `gorm:"type:text;serializer:json" json:"notifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (iv *Interview) BeforeCreate(tx *gorm.DB) error {
	if iv.ID == uuid.Nil {
		iv.ID = uuid.New()
	}
	return nil
}

// ScheduledEnd is the exclusive end of the interview's planned window.
func (iv *Interview) ScheduledEnd() time.Time {
	return iv.ScheduledTime.Add(time.Duration(iv.EstimatedDuration) * time.Minute)
}

// Active reports whether the interview still occupies the student's time.
func (iv *Interview) Active() bool {
	switch iv.Status {
	case StatusScheduled, StatusWaiting, StatusInProgress:
		return true
	}
	return false
}

// Start transitions the interview into in_progress at the given time.
// Only waiting interviews can be started.
func (iv *Interview) Start(now time.Time) error {
	if iv.Status != StatusWaiting {
		return fmt.Errorf("cannot start interview in status %q: %w", iv.Status, ErrInvalidTransition)
	}
	iv.Status = StatusInProgress
	iv.StartTime = &now
	return nil
}

// End completes an in_progress interview and records the actual
// duration in whole minutes.
func (iv *Interview) End(now time.Time) error {
	if iv.Status != StatusInProgress {
		return fmt.Errorf("cannot end interview in status %q: %w", iv.Status, ErrInvalidTransition)
	}
	iv.Status = StatusCompleted
	iv.EndTime = &now
	if iv.StartTime != nil {
		minutes := int(now.Sub(*iv.StartTime).Minutes())
		iv.ActualDuration = &minutes
	}
	return nil
}

// Cancel aborts an interview that has not completed, recording the reason.
func (iv *Interview) Cancel(reason string) error {
	if iv.Status == StatusCompleted {
		return fmt.Errorf("cannot cancel interview in status %q: %w", iv.Status, ErrInvalidTransition)
	}
	iv.Status = StatusCancelled
	if reason != "" {
		iv.Notes = reason
	}
	return nil
}

// MarkNoShow flags an interview whose student never appeared.
func (iv *Interview) MarkNoShow() error {
	if iv.Status == StatusCompleted {
		return fmt.Errorf("cannot mark no-show for interview in status %q: %w", iv.Status, ErrInvalidTransition)
	}
	iv.Status = StatusNoShow
	return nil
}

// AddConflict appends an unresolved conflict record.
func (iv *Interview) AddConflict(conflictType, description string) {
	iv.Conflicts = append(iv.Conflicts, ConflictRecord{
		Type:        conflictType,
		Description: description,
	})
}

// ResolveConflicts marks every recorded conflict resolved at the given time.
func (iv *Interview) ResolveConflicts(now time.Time) int {
	resolved := 0
	for i := range iv.Conflicts {
		if !iv.Conflicts[i].Resolved {
			iv.Conflicts[i].Resolved = true
			at := now
			iv.Conflicts[i].ResolvedAt = &at
			resolved++
		}
	}
	return resolved
}

// HasUnresolvedConflicts reports whether any recorded conflict is open.
func (iv *Interview) HasUnresolvedConflicts() bool {
	for _, c := range iv.Conflicts {
		if !c.Resolved {
			return true
		}
	}
	return false
}

// RecordNotification appends a notification trail entry.
func (iv *Interview) RecordNotification(kind, sentTo, message string, now time.Time) {
	iv.Notifications = append(iv.Notifications, NotificationRecord{
		Type:    kind,
		SentTo:  sentTo,
		Message: message,
		SentAt:  now,
	})
}
