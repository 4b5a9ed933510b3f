package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/blueprintai/backend/internal/audit"
	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/logging"
	"github.com/blueprintai/backend/internal/logutil"
	"github.com/blueprintai/backend/internal/middleware"
	"github.com/blueprintai/backend/internal/plans"
)

// SetTeamAIBlock handles PUT /api/v1/admin/teams/{id}/ai-block. The block
// denies every generation request for the team until cleared.
func SetTeamAIBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}

	var body struct {
		Blocked *bool `json:"blocked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Blocked == nil {
		writeError(w, http.StatusBadRequest, "blocked is required")
		return
	}

	team, err := database.GetTeamByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}

	team.AIBlocked = *body.Blocked
	if err := database.DB.Save(team).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update team")
		return
	}

	admin := middleware.GetUser(r)
	log.Printf("[admin] team %d ai_blocked=%v set by %s",
		team.ID, team.AIBlocked, logutil.SanitizeForLog(admin.Email))
	writeJSON(w, http.StatusOK, team)
}

// SetTeamPlan handles PUT /api/v1/admin/teams/{id}/plan, changing the team's
// subscription tier.
func SetTeamPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}

	var body struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Plan == "" {
		writeError(w, http.StatusBadRequest, "plan is required")
		return
	}
	plan := plans.Normalize(body.Plan)
	if string(plan) != body.Plan {
		writeError(w, http.StatusBadRequest, "Unknown plan")
		return
	}

	team, err := database.GetTeamByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}

	if team.Subscription == nil {
		sub := database.Subscription{TeamID: team.ID, Plan: string(plan), Status: "active"}
		if err := database.DB.Create(&sub).Error; err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create subscription")
			return
		}
		team.Subscription = &sub
	} else {
		team.Subscription.Plan = string(plan)
		if err := database.DB.Save(team.Subscription).Error; err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update subscription")
			return
		}
	}

	writeJSON(w, http.StatusOK, team)
}

// ResetTeamUsage handles POST /api/v1/admin/teams/{id}/usage/reset. It
// deletes the team's usage events for the current month, the only path that
// decrements the counting window.
func ResetTeamUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	if _, err := database.GetTeamByID(id); err != nil {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}

	removed, err := database.ResetMonthUsage(database.DB, id, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset usage")
		return
	}

	admin := middleware.GetUser(r)
	log.Printf("[admin] usage reset for team %d (%d events) by %s",
		id, removed, logutil.SanitizeForLog(admin.Email))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "reset",
		"removed": removed,
	})
}

// GetGateAudit handles GET /api/v1/admin/audit.
// Query parameters: team_id, decision, limit, offset.
func GetGateAudit(w http.ResponseWriter, r *http.Request) {
	if Auditor == nil {
		writeError(w, http.StatusServiceUnavailable, "Audit logging not initialized")
		return
	}

	opts := audit.QueryOptions{}

	if idStr := r.URL.Query().Get("team_id"); idStr != "" {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid team_id")
			return
		}
		opts.TeamID = uint(id)
	}
	opts.Decision = r.URL.Query().Get("decision")

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = limit
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		opts.Offset = offset
	}

	result, err := Auditor.Query(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetServerLogs handles GET /api/v1/admin/server-logs?lines=N.
func GetServerLogs(w http.ResponseWriter, r *http.Request) {
	lines := 500
	if s := r.URL.Query().Get("lines"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid lines")
			return
		}
		if n > 5000 {
			n = 5000
		}
		lines = n
	}

	content, err := logging.ReadTail(lines)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": content})
}

// ClearServerLogs handles DELETE /api/v1/admin/server-logs.
func ClearServerLogs(w http.ResponseWriter, r *http.Request) {
	if err := logging.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
