/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/friendsincode/mimir_forum/internal/telemetry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// companyLocks serializes queue mutations per company so a reorder pass
// cannot interleave with a concurrent enqueue.
type companyLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newCompanyLocks() *companyLocks {
	return &companyLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (c *companyLocks) forCompany(companyID uuid.UUID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[companyID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[companyID] = lock
	}
	return lock
}

// Queue reorders and inspects a company's waiting interviews.
type Queue struct {
	db    *gorm.DB
	clock Clock
	locks *companyLocks
}

// NewQueue creates a queue manager.
func NewQueue(db *gorm.DB, clock Clock) *Queue {
	return &Queue{
		db:    db,
		clock: clock,
		locks: newCompanyLocks(),
	}
}

// Lock acquires the company's queue ordering lock. Callers must release
// it with the returned mutex once their enqueue or reorder completes.
func (q *Queue) Lock(companyID uuid.UUID) *sync.Mutex {
	lock := q.locks.forCompany(companyID)
	lock.Lock()
	return lock
}

// WaitingCount returns how many interviews occupy the company's waiting
// set (status scheduled or waiting).
func (q *Queue) WaitingCount(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Interview{}).
		Where("company_id = ?", companyID).
		Where("status IN ?", []models.InterviewStatus{models.StatusScheduled, models.StatusWaiting}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count waiting interviews: %w", err)
	}
	return count, nil
}

// Optimize re-sorts the company's waiting interviews by descending
// priority and reassigns dense 1-based positions. The sort is stable so
// equal-priority entries keep their prior relative order and repeated
// passes do not flap the queue.
func (q *Queue) Optimize(ctx context.Context, companyID uuid.UUID) ([]models.Interview, error) {
	lock := q.Lock(companyID)
	defer lock.Unlock()

	var interviews []models.Interview

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("company_id = ?", companyID).
			Where("status = ?", models.StatusWaiting).
			Order("position ASC").
			Find(&interviews).Error; err != nil {
			return fmt.Errorf("fetch waiting interviews: %w", err)
		}

		sort.SliceStable(interviews, func(i, j int) bool {
			return interviews[i].Priority > interviews[j].Priority
		})

		for i := range interviews {
			newPosition := i + 1
			if interviews[i].Position == newPosition {
				continue
			}
			interviews[i].Position = newPosition
			if err := tx.Model(&models.Interview{}).
				Where("id = ?", interviews[i].ID).
				Update("position", newPosition).Error; err != nil {
				return fmt.Errorf("update position: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.QueueOptimizationsTotal.Inc()

	return interviews, nil
}

// Stats summarizes the company's waiting queue.
type Stats struct {
	TotalWaiting         int                             `json:"total_waiting"`
	AverageWaitMinutes   int                             `json:"average_wait_minutes"`
	PriorityDistribution map[PriorityBand]int            `json:"priority_distribution"`
	OpportunityTypes     map[models.OpportunityType]int  `json:"opportunity_type_distribution"`
}

// GetStats computes queue statistics for the company's waiting set.
// Average wait is now minus scheduled time, floored to whole minutes,
// averaged over entries with a scheduled time.
func (q *Queue) GetStats(ctx context.Context, companyID uuid.UUID) (*Stats, error) {
	var interviews []models.Interview

	err := q.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("status = ?", models.StatusWaiting).
		Find(&interviews).Error
	if err != nil {
		return nil, fmt.Errorf("fetch waiting interviews: %w", err)
	}

	stats := &Stats{
		TotalWaiting: len(interviews),
		PriorityDistribution: map[PriorityBand]int{
			BandHigh:   0,
			BandMedium: 0,
			BandLow:    0,
		},
		OpportunityTypes: map[models.OpportunityType]int{
			models.OpportunityPFA:              0,
			models.OpportunityPFE:              0,
			models.OpportunityEmploi:           0,
			models.OpportunityStageObservation: 0,
		},
	}

	now := q.clock.Now()
	totalWait := 0
	waitCount := 0

	for _, iv := range interviews {
		if !iv.ScheduledTime.IsZero() {
			totalWait += int(now.Sub(iv.ScheduledTime).Minutes())
			waitCount++
		}

		stats.PriorityDistribution[BandFor(iv.Priority)]++
		stats.OpportunityTypes[iv.OpportunityType]++
	}

	if waitCount > 0 {
		stats.AverageWaitMinutes = totalWait / waitCount
	}

	return stats, nil
}
