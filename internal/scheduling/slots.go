/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SlotFinder locates conflict-free candidate start times for a student.
type SlotFinder struct {
	detector *Detector

	slotMinutes int // step between candidate slots
	scanSlots   int // how many slots the forward scan covers
	dayStart    int // first schedulable hour of the event day
	dayEnd      int // last schedulable hour (exclusive)
}

// NewSlotFinder creates a slot finder. slotMinutes and scanSlots bound
// the forward scan; dayStart/dayEnd bound full-day slot generation.
func NewSlotFinder(detector *Detector, slotMinutes, scanSlots, dayStart, dayEnd int) *SlotFinder {
	return &SlotFinder{
		detector:    detector,
		slotMinutes: slotMinutes,
		scanSlots:   scanSlots,
		dayStart:    dayStart,
		dayEnd:      dayEnd,
	}
}

// NextAvailableTime scans forward from fromTime in fixed increments and
// returns the first candidate instant with zero conflicts for the
// student. The scan starts one increment after fromTime; fromTime
// itself is never a candidate. Returns ErrSlotExhausted when the whole
// horizon is booked.
func (f *SlotFinder) NextAvailableTime(ctx context.Context, studentID uuid.UUID, fromTime time.Time, durationMinutes int) (time.Time, error) {
	step := time.Duration(f.slotMinutes) * time.Minute

	for i := 1; i <= f.scanSlots; i++ {
		proposed := fromTime.Add(time.Duration(i) * step)

		conflicts, err := f.detector.FindConflicts(ctx, studentID, proposed, durationMinutes)
		if err != nil {
			return time.Time{}, err
		}

		if len(conflicts) == 0 {
			return proposed, nil
		}
	}

	return time.Time{}, ErrSlotExhausted
}

// DaySlots generates every candidate start instant of the event day
// containing ref, from dayStart to dayEnd in slot-sized steps.
func (f *SlotFinder) DaySlots(ref time.Time) []time.Time {
	step := time.Duration(f.slotMinutes) * time.Minute
	start := time.Date(ref.Year(), ref.Month(), ref.Day(), f.dayStart, 0, 0, 0, ref.Location())
	end := time.Date(ref.Year(), ref.Month(), ref.Day(), f.dayEnd, 0, 0, 0, ref.Location())

	var slots []time.Time
	for t := start; t.Before(end); t = t.Add(step) {
		slots = append(slots, t)
	}
	return slots
}

// SelectSlot picks a slot from candidates according to the student's
// priority band: high priority takes the earliest slot, medium the
// middle of the day, low the latest. Returns false when candidates is
// empty.
func (f *SlotFinder) SelectSlot(candidates []time.Time, priority int) (time.Time, bool) {
	if len(candidates) == 0 {
		return time.Time{}, false
	}

	switch BandFor(priority) {
	case BandHigh:
		return candidates[0], true
	case BandMedium:
		return candidates[len(candidates)/2], true
	default:
		return candidates[len(candidates)-1], true
	}
}
