/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/mimir_forum/internal/auth"
	"github.com/friendsincode/mimir_forum/internal/events"
)

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}

	keys, err := auth.ListAPIKeys(a.db, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys, "count": len(keys)})
}

func (a *API) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name      string `json:"name"`
		ExpiresIn string `json:"expires_in,omitempty"` // Go duration, e.g. "720h"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	expiresIn := 90 * 24 * time.Hour
	if req.ExpiresIn != "" {
		parsed, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_expires_in")
			return
		}
		expiresIn = parsed
	}

	plaintext, key, err := auth.GenerateAPIKey(userID, req.Name, expiresIn)
	if err != nil {
		a.logger.Error().Err(err).Msg("api key generation failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	if err := a.db.WithContext(r.Context()).Create(key).Error; err != nil {
		a.logger.Error().Err(err).Msg("api key persist failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	a.publishAuditEvent(r, events.EventAuditAPIKeyCreate, events.Payload{
		"resource_type": "apikey",
		"resource_id":   key.ID.String(),
		"key_name":      key.Name,
		"key_prefix":    key.KeyPrefix,
	})

	// The plaintext key is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":    plaintext,
		"record": key,
	})
}

func (a *API) handleAPIKeyRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}
	keyID, ok := parseUUIDParam(w, r, "keyID")
	if !ok {
		return
	}

	if err := auth.RevokeAPIKey(a.db, keyID, userID); err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	a.publishAuditEvent(r, events.EventAuditAPIKeyRevoke, events.Payload{
		"resource_type": "apikey",
		"resource_id":   keyID.String(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (a *API) currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}
