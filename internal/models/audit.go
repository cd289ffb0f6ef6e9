/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for all sensitive operations.
const (
	AuditActionUserRoleChange     AuditAction = "user.role_change"
	AuditActionUserDelete         AuditAction = "user.delete"
	AuditActionAPIKeyCreate       AuditAction = "apikey.create"
	AuditActionAPIKeyRevoke       AuditAction = "apikey.revoke"
	AuditActionInterviewCreate    AuditAction = "interview.create"
	AuditActionInterviewStart     AuditAction = "interview.start"
	AuditActionInterviewEnd       AuditAction = "interview.end"
	AuditActionInterviewCancel    AuditAction = "interview.cancel"
	AuditActionInterviewNoShow    AuditAction = "interview.no_show"
	AuditActionConflictResolve    AuditAction = "interview.conflict_resolve"
	AuditActionQueueOptimize      AuditAction = "queue.optimize"
	AuditActionCompanyCreate      AuditAction = "company.create"
	AuditActionCompanyUpdate      AuditAction = "company.update"
	AuditActionStudentCreate      AuditAction = "student.create"
	AuditActionStudentUpdate      AuditAction = "student.update"
	AuditActionCommitteeAssign    AuditAction = "committee.assign"
)

// AuditLog records sensitive operations for security and compliance.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null"`
	UserID       *uuid.UUID     `gorm:"type:uuid;index:idx_audit_user"` // NULL for system actions
	UserEmail    string         `gorm:"type:varchar(255)"`              // Denormalized for readability
	CompanyID    *uuid.UUID     `gorm:"type:uuid;index:idx_audit_company"` // NULL if forum-wide
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null"`
	ResourceType string         `gorm:"type:varchar(64)"` // "interview", "company", "student", etc.
	ResourceID   string         `gorm:"type:uuid"`        // ID of the affected resource
	Details      map[string]any `gorm:"type:jsonb;serializer:json"` // Action-specific details
	IPAddress    string         `gorm:"type:varchar(45)"`           // IPv4 or IPv6
	UserAgent    string         `gorm:"type:varchar(512)"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
