/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import "github.com/friendsincode/mimir_forum/internal/models"

// Priority band thresholds used by queue statistics.
const (
	priorityHighThreshold   = 80
	priorityMediumThreshold = 50
)

// CalculatePriority computes a student's scheduling priority score.
// Deterministic and side-effect free: identical input always yields
// the identical score.
func CalculatePriority(studentKind models.StudentKind, opportunityType models.OpportunityType, isCommitteeMember bool) int {
	priority := 1

	// Committee members outrank everyone.
	if isCommitteeMember {
		priority += 100
	}

	// Internal students outrank externals.
	if studentKind == models.StudentInternal {
		priority += 50
	}

	switch opportunityType {
	case models.OpportunityPFA, models.OpportunityPFE:
		priority += 30
	case models.OpportunityEmploi:
		priority += 20
	case models.OpportunityStageObservation:
		priority += 10
	default:
		// Unrecognized opportunity types get the floor addend rather
		// than an error.
		priority += 5
	}

	return priority
}

// PriorityBand classifies a score for queue statistics.
type PriorityBand string

const (
	BandHigh   PriorityBand = "high"
	BandMedium PriorityBand = "medium"
	BandLow    PriorityBand = "low"
)

// BandFor returns the band a priority score falls into.
func BandFor(priority int) PriorityBand {
	switch {
	case priority >= priorityHighThreshold:
		return BandHigh
	case priority >= priorityMediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}
