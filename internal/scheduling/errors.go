/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"errors"
	"fmt"

	"github.com/friendsincode/mimir_forum/internal/models"
)

var (
	// ErrNotFound indicates the referenced interview or collaborator
	// record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrSlotExhausted indicates the slot finder scanned its whole
	// horizon without finding a free slot.
	ErrSlotExhausted = errors.New("no available slot within scan horizon")

	// ErrInvalidTransition re-exports the model-level sentinel so
	// callers can match rejected lifecycle transitions.
	ErrInvalidTransition = models.ErrInvalidTransition

	// ErrCapacityExceeded indicates the company's daily interview
	// capacity is already booked.
	ErrCapacityExceeded = errors.New("company daily capacity exceeded")

	// ErrOpportunityNotAccepted indicates the company does not accept
	// the requested opportunity type.
	ErrOpportunityNotAccepted = errors.New("opportunity type not accepted by company")
)

// ValidationError reports a malformed or incomplete registration
// request. Nothing is persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports that a candidate time window overlaps existing
// bookings. It carries the full conflict set so callers can offer
// alternatives.
type ConflictError struct {
	Conflicts []models.Interview
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflicts with %d existing interview(s)", len(e.Conflicts))
}

// AsConflictError unwraps err into a ConflictError if it is one.
func AsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
