/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleName enumerates the access roles known to the forum.
type RoleName string

const (
	RoleAdmin     RoleName = "admin"
	RoleOrganizer RoleName = "organizer"
	RoleCommittee RoleName = "committee"
	RoleCompany   RoleName = "company"
	RoleStudent   RoleName = "student"
)

// OpportunityType classifies what a student is interviewing for.
type OpportunityType string

const (
	OpportunityPFA              OpportunityType = "PFA"
	OpportunityPFE              OpportunityType = "PFE"
	OpportunityStageObservation OpportunityType = "stage_observation"
	OpportunityEmploi           OpportunityType = "emploi"
)

// ValidOpportunityType reports whether t is a known opportunity type.
func ValidOpportunityType(t OpportunityType) bool {
	switch t {
	case OpportunityPFA, OpportunityPFE, OpportunityStageObservation, OpportunityEmploi:
		return true
	}
	return false
}

// StudentKind distinguishes internal students from externals.
type StudentKind string

const (
	StudentInternal StudentKind = "internal"
	StudentExternal StudentKind = "external"
)

// User is an authenticated operator of the system (organizers, admins).
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         RoleName  `gorm:"not null;default:'organizer'" json:"role"`
	Active       bool      `gorm:"default:true" json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Company is a participating employer with a booth at the forum.
type Company struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string    `gorm:"uniqueIndex;not null" json:"name"`
	Room   string    `json:"room"`
	Sector string    `json:"sector"`

	// Opportunity types the company accepts, stored as a JSON array.
	AcceptedOpportunities StringList `gorm:"type:text;serializer:json" json:"accepted_opportunities"`

	// DailyCapacity bounds how many interviews the company takes in a day.
	// Zero means unbounded.
	DailyCapacity int  `gorm:"default:0" json:"daily_capacity"`
	Active        bool `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Accepts reports whether the company takes the given opportunity type.
// An empty accepted list means the company takes everything.
func (c *Company) Accepts(t OpportunityType) bool {
	if len(c.AcceptedOpportunities) == 0 {
		return true
	}
	for _, accepted := range c.AcceptedOpportunities {
		if OpportunityType(accepted) == t {
			return true
		}
	}
	return false
}

// Student is a candidate attending the forum.
type Student struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string      `gorm:"not null" json:"full_name"`
	Email     string      `gorm:"uniqueIndex" json:"email"`
	Kind      StudentKind `gorm:"not null;default:'external'" json:"kind"`
	Program   string      `json:"program"`
	// Committee members get a priority boost when they interview themselves.
	CommitteeMember bool `gorm:"default:false" json:"committee_member"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CommitteeMember is an organizing committee volunteer who can run
// interview rooms and gets scheduling precedence.
type CommitteeMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Phone     string    `json:"phone"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *CommitteeMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// StringList is a JSON-serialized slice of strings.
type StringList []string
