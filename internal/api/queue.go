/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/mimir_forum/internal/scheduling"
)

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func (a *API) handleQueueOptimize(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseUUIDParam(w, r, "companyID")
	if !ok {
		return
	}

	queue, err := a.scheduler.OptimizeQueue(r.Context(), companyID)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	a.logger.Info().
		Str("company_id", companyID.String()).
		Int("queue_length", len(queue)).
		Msg("queue optimized")

	writeJSON(w, http.StatusOK, map[string]any{"queue": queue, "count": len(queue)})
}

func (a *API) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseUUIDParam(w, r, "companyID")
	if !ok {
		return
	}

	stats, err := a.scheduler.GetQueueStats(r.Context(), companyID)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleStudentAvailability(w http.ResponseWriter, r *http.Request) {
	studentID, ok := parseUUIDParam(w, r, "studentID")
	if !ok {
		return
	}

	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start")
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "invalid_window")
		return
	}

	availability, err := a.scheduler.CheckStudentAvailability(r.Context(), studentID, start, end)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

// handleDaySlots returns the forum-day slot grid. An optional priority
// parameter marks the slot that would be suggested for that priority.
func (a *API) handleDaySlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ref := time.Now()
	if raw := q.Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		ref = parsed
	}

	slots := a.scheduler.DaySlots(ref)
	response := map[string]any{"slots": slots, "count": len(slots)}

	if raw := q.Get("priority"); raw != "" {
		priority, err := parsePositiveInt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_priority")
			return
		}
		response["band"] = scheduling.BandFor(priority)
		if suggested, ok := a.scheduler.SuggestSlot(ref, priority); ok {
			response["suggested"] = suggested
		}
	}

	writeJSON(w, http.StatusOK, response)
}
