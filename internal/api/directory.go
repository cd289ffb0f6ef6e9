/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/friendsincode/mimir_forum/internal/scheduling"
)

// --- companies ---

type companyRequest struct {
	Name                  string   `json:"name"`
	Room                  string   `json:"room"`
	Sector                string   `json:"sector"`
	AcceptedOpportunities []string `json:"accepted_opportunities"`
	DailyCapacity         int      `json:"daily_capacity"`
	Active                *bool    `json:"active,omitempty"`
}

func (req *companyRequest) validate() string {
	if req.Name == "" {
		return "name_required"
	}
	if req.DailyCapacity < 0 {
		return "invalid_daily_capacity"
	}
	for _, raw := range req.AcceptedOpportunities {
		if !models.ValidOpportunityType(models.OpportunityType(raw)) {
			return "invalid_opportunity_type"
		}
	}
	return ""
}

func (a *API) handleCompaniesList(w http.ResponseWriter, r *http.Request) {
	query := a.db.WithContext(r.Context()).Order("name ASC")
	if r.URL.Query().Get("active") == "true" {
		query = query.Where("active = ?", true)
	}

	var companies []models.Company
	if err := query.Find(&companies).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies, "count": len(companies)})
}

func (a *API) handleCompanyCreate(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if code := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	company := models.Company{
		Name:                  req.Name,
		Room:                  req.Room,
		Sector:                req.Sector,
		AcceptedOpportunities: models.StringList(req.AcceptedOpportunities),
		DailyCapacity:         req.DailyCapacity,
		Active:                true,
	}
	if req.Active != nil {
		company.Active = *req.Active
	}

	if err := a.db.WithContext(r.Context()).Create(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(w, http.StatusConflict, "company_exists")
			return
		}
		a.logger.Error().Err(err).Msg("company create failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	a.publishAuditEvent(r, events.EventCompanyCreated, events.Payload{
		"company_id":   company.ID.String(),
		"company_name": company.Name,
	})

	writeJSON(w, http.StatusCreated, company)
}

func (a *API) handleCompanyGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "companyID")
	if !ok {
		return
	}

	var company models.Company
	if err := a.db.WithContext(r.Context()).First(&company, "id = ?", id).Error; err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *API) handleCompanyUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "companyID")
	if !ok {
		return
	}

	var company models.Company
	if err := a.db.WithContext(r.Context()).First(&company, "id = ?", id).Error; err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if code := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	company.Name = req.Name
	company.Room = req.Room
	company.Sector = req.Sector
	company.AcceptedOpportunities = models.StringList(req.AcceptedOpportunities)
	company.DailyCapacity = req.DailyCapacity
	if req.Active != nil {
		company.Active = *req.Active
	}

	if err := a.db.WithContext(r.Context()).Save(&company).Error; err != nil {
		a.logger.Error().Err(err).Msg("company update failed")
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	a.publishAuditEvent(r, events.EventCompanyUpdated, events.Payload{
		"company_id":   company.ID.String(),
		"company_name": company.Name,
	})

	writeJSON(w, http.StatusOK, company)
}

func (a *API) handleCompanyInterviews(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "companyID")
	if !ok {
		return
	}

	filter := scheduling.ListFilter{CompanyID: id}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = models.InterviewStatus(raw)
	}

	interviews, err := a.scheduler.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews, "count": len(interviews)})
}

// --- students ---

type studentRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Kind            string `json:"kind"`
	Program         string `json:"program"`
	CommitteeMember bool   `json:"committee_member"`
}

func (req *studentRequest) validate() string {
	if req.FullName == "" {
		return "full_name_required"
	}
	switch models.StudentKind(req.Kind) {
	case models.StudentInternal, models.StudentExternal:
		return ""
	}
	return "invalid_kind"
}

func (a *API) handleStudentsList(w http.ResponseWriter, r *http.Request) {
	query := a.db.WithContext(r.Context()).Order("full_name ASC")
	if raw := r.URL.Query().Get("kind"); raw != "" {
		query = query.Where("kind = ?", raw)
	}

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": students, "count": len(students)})
}

func (a *API) handleStudentCreate(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if code := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	student := models.Student{
		FullName:        req.FullName,
		Email:           req.Email,
		Kind:            models.StudentKind(req.Kind),
		Program:         req.Program,
		CommitteeMember: req.CommitteeMember,
	}

	if err := a.db.WithContext(r.Context()).Create(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(w, http.StatusConflict, "student_exists")
			return
		}
		a.logger.Error().Err(err).Msg("student create failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	a.publishAuditEvent(r, events.EventStudentCreated, events.Payload{
		"student_id":   student.ID.String(),
		"student_name": student.FullName,
	})

	writeJSON(w, http.StatusCreated, student)
}

func (a *API) handleStudentGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "studentID")
	if !ok {
		return
	}

	var student models.Student
	if err := a.db.WithContext(r.Context()).First(&student, "id = ?", id).Error; err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (a *API) handleStudentUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "studentID")
	if !ok {
		return
	}

	var student models.Student
	if err := a.db.WithContext(r.Context()).First(&student, "id = ?", id).Error; err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if code := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	student.FullName = req.FullName
	student.Email = req.Email
	student.Kind = models.StudentKind(req.Kind)
	student.Program = req.Program
	student.CommitteeMember = req.CommitteeMember

	if err := a.db.WithContext(r.Context()).Save(&student).Error; err != nil {
		a.logger.Error().Err(err).Msg("student update failed")
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	a.publishAuditEvent(r, events.EventStudentUpdated, events.Payload{
		"student_id":   student.ID.String(),
		"student_name": student.FullName,
	})

	writeJSON(w, http.StatusOK, student)
}

func (a *API) handleStudentInterviews(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "studentID")
	if !ok {
		return
	}

	interviews, err := a.scheduler.List(r.Context(), scheduling.ListFilter{StudentID: id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews, "count": len(interviews)})
}

// --- committee ---

func (a *API) handleCommitteeList(w http.ResponseWriter, r *http.Request) {
	var members []models.CommitteeMember
	if err := a.db.WithContext(r.Context()).Order("full_name ASC").Find(&members).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

func (a *API) handleCommitteeCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.FullName == "" {
		writeError(w, http.StatusBadRequest, "full_name_required")
		return
	}

	member := models.CommitteeMember{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Active:   true,
	}
	if err := a.db.WithContext(r.Context()).Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(w, http.StatusConflict, "member_exists")
			return
		}
		a.logger.Error().Err(err).Msg("committee member create failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, member)
}
