/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/friendsincode/mimir_forum/internal/scheduling"
)

type createInterviewRequest struct {
	StudentID         uuid.UUID  `json:"student_id"`
	CompanyID         uuid.UUID  `json:"company_id"`
	CommitteeMemberID *uuid.UUID `json:"committee_member_id,omitempty"`
	OpportunityType   string     `json:"opportunity_type"`
	ScheduledTime     time.Time  `json:"scheduled_time"`
	EstimatedDuration int        `json:"estimated_duration,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	AllowConflicts    bool       `json:"allow_conflicts,omitempty"`
}

func (a *API) handleInterviewCreate(w http.ResponseWriter, r *http.Request) {
	var req createInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	interview, err := a.scheduler.CreateInterview(r.Context(), scheduling.CreateRequest{
		StudentID:         req.StudentID,
		CompanyID:         req.CompanyID,
		CommitteeMemberID: req.CommitteeMemberID,
		OpportunityType:   models.OpportunityType(req.OpportunityType),
		ScheduledTime:     req.ScheduledTime,
		EstimatedDuration: req.EstimatedDuration,
		Notes:             req.Notes,
		AllowConflicts:    req.AllowConflicts,
	})
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, interview)
}

func (a *API) handleInterviewGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "interviewID")
	if !ok {
		return
	}

	interview, err := a.scheduler.Get(r.Context(), id)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

func (a *API) handleInterviewsList(w http.ResponseWriter, r *http.Request) {
	filter := scheduling.ListFilter{}
	q := r.URL.Query()

	if raw := q.Get("company_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_company_id")
			return
		}
		filter.CompanyID = id
	}
	if raw := q.Get("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_student_id")
			return
		}
		filter.StudentID = id
	}
	if raw := q.Get("status"); raw != "" {
		filter.Status = models.InterviewStatus(raw)
	}
	if raw := q.Get("room"); raw != "" {
		filter.Room = raw
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := parsePositiveInt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		filter.Limit = limit
	}

	interviews, err := a.scheduler.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews, "count": len(interviews)})
}

func (a *API) handleInterviewsUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = parsed
	}

	interviews, err := a.scheduler.ListUpcoming(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews, "count": len(interviews)})
}

func (a *API) handleInterviewsInProgress(w http.ResponseWriter, r *http.Request) {
	interviews, err := a.scheduler.ListInProgress(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews, "count": len(interviews)})
}

func (a *API) handleInterviewStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.scheduler.GetInterviewStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats_failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleInterviewStart(w http.ResponseWriter, r *http.Request) {
	a.handleTransition(w, r, models.AuditActionInterviewStart, func(id uuid.UUID) (*models.Interview, error) {
		return a.scheduler.Start(r.Context(), id)
	})
}

func (a *API) handleInterviewEnd(w http.ResponseWriter, r *http.Request) {
	a.handleTransition(w, r, models.AuditActionInterviewEnd, func(id uuid.UUID) (*models.Interview, error) {
		return a.scheduler.End(r.Context(), id)
	})
}

func (a *API) handleInterviewCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional for cancellation.
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.handleTransition(w, r, models.AuditActionInterviewCancel, func(id uuid.UUID) (*models.Interview, error) {
		return a.scheduler.Cancel(r.Context(), id, req.Reason)
	})
}

func (a *API) handleInterviewNoShow(w http.ResponseWriter, r *http.Request) {
	a.handleTransition(w, r, models.AuditActionInterviewNoShow, func(id uuid.UUID) (*models.Interview, error) {
		return a.scheduler.MarkNoShow(r.Context(), id)
	})
}

func (a *API) handleTransition(w http.ResponseWriter, r *http.Request, action models.AuditAction, apply func(uuid.UUID) (*models.Interview, error)) {
	id, ok := parseUUIDParam(w, r, "interviewID")
	if !ok {
		return
	}

	interview, err := apply(id)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	a.logger.Info().
		Str("interview_id", id.String()).
		Str("action", string(action)).
		Str("status", string(interview.Status)).
		Msg("interview transition")

	writeJSON(w, http.StatusOK, interview)
}

func (a *API) handleInterviewResolveConflicts(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "interviewID")
	if !ok {
		return
	}

	resolution, err := a.scheduler.ResolveConflicts(r.Context(), id)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resolution)
}

// writeSchedulingError maps scheduling errors onto HTTP responses.
func (a *API) writeSchedulingError(w http.ResponseWriter, err error) {
	if ve, ok := scheduling.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation_failed",
			"field":  ve.Field,
			"reason": ve.Reason,
		})
		return
	}
	if ce, ok := scheduling.AsConflictError(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "schedule_conflict",
			"conflicts": ce.Conflicts,
		})
		return
	}

	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, scheduling.ErrCapacityExceeded):
		writeError(w, http.StatusUnprocessableEntity, "capacity_exceeded")
	case errors.Is(err, scheduling.ErrOpportunityNotAccepted):
		writeError(w, http.StatusUnprocessableEntity, "opportunity_not_accepted")
	case errors.Is(err, scheduling.ErrSlotExhausted):
		writeError(w, http.StatusConflict, "no_available_slot")
	default:
		a.logger.Error().Err(err).Msg("scheduling operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return uuid.Nil, false
	}
	return id, true
}
