/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/mimir_forum/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Access control
		&models.User{},
		&models.APIKey{},
		&models.AuditLog{},

		// Forum directory
		&models.Company{},
		&models.Student{},
		&models.CommitteeMember{},

		// Scheduling
		&models.Interview{},
	); err != nil {
		return err
	}

	if err := applyPostgresInterviewIndexes(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresInterviewIndexes adds a partial index covering the active
// statuses that conflict detection scans on every create.
func applyPostgresInterviewIndexes(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE INDEX IF NOT EXISTS idx_interviews_student_active
ON interviews (student_id, scheduled_time)
WHERE status IN ('scheduled', 'waiting', 'in_progress');
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres interview indexes: %w", err)
	}

	return nil
}
