package handlers

import (
	"net/http"
	"time"

	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/gate"
	"github.com/blueprintai/backend/internal/middleware"
	"github.com/blueprintai/backend/internal/plans"
)

// GetTeamUsage returns the team's plan, monthly count, and limit for
// user-facing "used/limit" display.
func GetTeamUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	if !middleware.CanAccessTeam(r, id) {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	team, err := database.GetTeamByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}

	user := middleware.GetUser(r)
	plan := plans.Free
	if team.Subscription != nil {
		plan = plans.Normalize(team.Subscription.Plan)
	}
	limits := plans.Resolve(plan, user.Role)

	now := time.Now()
	monthStart := database.MonthStart(now)
	used, err := database.CountUsageSince(database.DB, team.ID, monthStart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count usage")
		return
	}
	recent, err := database.CountUsageSince(database.DB, team.ID, now.Add(-gate.RateLimitWindow))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count usage")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"team_id":     team.ID,
		"plan":        plan,
		"ai_blocked":  team.AIBlocked,
		"used":        used,
		"limit":       limits.MaxAIGenerationsPerMonth,
		"recent_60s":  recent,
		"month_start": monthStart.Format(time.RFC3339),
	})
}

// ListTeamUsageEvents returns the team's usage events for the current month,
// newest first.
func ListTeamUsageEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	if !middleware.CanAccessTeam(r, id) {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}
	if _, err := database.GetTeamByID(id); err != nil {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}

	var events []database.UsageEvent
	err := database.DB.
		Where("team_id = ? AND created_at >= ?", id, database.MonthStart(time.Now())).
		Order("created_at DESC").
		Limit(200).
		Find(&events).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list usage events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
