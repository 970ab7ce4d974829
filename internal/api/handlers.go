// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gatewatch/internal/feed"
	"github.com/tomtom215/gatewatch/internal/logging"
)

// defaultWatchlistWindowMinutes is used when since_minutes is absent.
const defaultWatchlistWindowMinutes = 60

type errorResponse struct {
	Error string `json:"error"`
}

// healthResponse is the /healthz payload. The engine is "degraded", never
// "down", when the feed is unhealthy: historical queries keep working.
type healthResponse struct {
	Status string              `json:"status"` // "ok" or "degraded"
	Feed   feed.HealthSnapshot `json:"feed"`
}

// Activity handles GET /api/v1/activity/{systemID}.
func (rt *Router) Activity(w http.ResponseWriter, r *http.Request) {
	systemID, err := strconv.ParseInt(chi.URLParam(r, "systemID"), 10, 64)
	if err != nil || systemID <= 0 {
		writeError(w, http.StatusBadRequest, "systemID must be a positive integer")
		return
	}

	resp, err := rt.query.GetActivity(systemID)
	if err != nil {
		logging.Err(err).Int64("solar_system_id", systemID).Msg("Activity query failed")
		writeError(w, http.StatusInternalServerError, "activity query failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// WatchlistActivity handles GET /api/v1/watchlist/activity?since_minutes=N.
func (rt *Router) WatchlistActivity(w http.ResponseWriter, r *http.Request) {
	sinceMinutes := defaultWatchlistWindowMinutes
	if raw := r.URL.Query().Get("since_minutes"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "since_minutes must be a positive integer")
			return
		}
		sinceMinutes = v
	}

	resp, err := rt.query.GetWatchlistActivity(sinceMinutes)
	if err != nil {
		logging.Err(err).Msg("Watchlist query failed")
		writeError(w, http.StatusInternalServerError, "watchlist query failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /healthz.
func (rt *Router) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	snapshot := rt.feed.Snapshot()
	resp := healthResponse{Status: "ok", Feed: snapshot}
	if !snapshot.Healthy {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
