package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blueprintai/backend/internal/database"
)

func TestGetTeamUsage(t *testing.T) {
	setupHandlerTest(t)
	user := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", user)
	seedUsageEvents(t, team.ID, 3, time.Now().Add(-2*time.Minute))
	seedUsageEvents(t, team.ID, 2, time.Now().Add(-10*time.Second))

	w := httptest.NewRecorder()
	GetTeamUsage(w, newRequest(t, http.MethodGet, "/", nil, user,
		map[string]string{"id": fmt.Sprint(team.ID)}))
	wantStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	if body["plan"] != "FREE" {
		t.Fatalf("expected FREE plan, got %v", body["plan"])
	}
	if body["used"].(float64) != 5 {
		t.Fatalf("expected 5 used, got %v", body["used"])
	}
	if body["limit"].(float64) != 5 {
		t.Fatalf("expected limit 5, got %v", body["limit"])
	}
	if body["recent_60s"].(float64) != 2 {
		t.Fatalf("expected 2 recent, got %v", body["recent_60s"])
	}
	if body["ai_blocked"] != false {
		t.Fatalf("expected not blocked, got %v", body["ai_blocked"])
	}
	if _, err := time.Parse(time.RFC3339, body["month_start"].(string)); err != nil {
		t.Fatalf("bad month_start: %v", err)
	}
}

func TestGetTeamUsageAdminSeesUnlimited(t *testing.T) {
	setupHandlerTest(t)
	admin := createTestUser(t, "admin")
	team := createTestTeam(t, "FREE", nil)

	w := httptest.NewRecorder()
	GetTeamUsage(w, newRequest(t, http.MethodGet, "/", nil, admin,
		map[string]string{"id": fmt.Sprint(team.ID)}))
	wantStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	if body["limit"].(float64) != -1 {
		t.Fatalf("expected unlimited for admin, got %v", body["limit"])
	}
}

func TestListTeamUsageEventsCurrentMonthOnly(t *testing.T) {
	setupHandlerTest(t)
	user := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", user)
	seedUsageEvents(t, team.ID, 2, time.Now().Add(-2*time.Minute))
	seedUsageEvents(t, team.ID, 1, database.MonthStart(time.Now()).Add(-time.Hour))

	w := httptest.NewRecorder()
	ListTeamUsageEvents(w, newRequest(t, http.MethodGet, "/", nil, user,
		map[string]string{"id": fmt.Sprint(team.ID)}))
	wantStatus(t, w, http.StatusOK)

	var events []database.UsageEvent
	mustUnmarshal(t, w, &events)
	if len(events) != 2 {
		t.Fatalf("expected 2 current-month events, got %d", len(events))
	}
}

func TestGetTeamUsageAccessDenied(t *testing.T) {
	setupHandlerTest(t)
	owner := createTestUser(t, "user")
	outsider := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", owner)

	w := httptest.NewRecorder()
	GetTeamUsage(w, newRequest(t, http.MethodGet, "/", nil, outsider,
		map[string]string{"id": fmt.Sprint(team.ID)}))
	wantError(t, w, http.StatusForbidden, "Access denied")
}
