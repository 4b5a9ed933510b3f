package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blueprintai/backend/internal/database"
)

func TestCreateTeam(t *testing.T) {
	setupHandlerTest(t)
	user := createTestUser(t, "user")

	w := httptest.NewRecorder()
	CreateTeam(w, newRequest(t, http.MethodPost, "/api/v1/teams",
		map[string]string{"name": "Acme"}, user, nil))
	wantStatus(t, w, http.StatusCreated)

	body := decodeBody(t, w)
	sub, ok := body["subscription"].(map[string]interface{})
	if !ok || sub["plan"] != "FREE" {
		t.Fatalf("expected FREE subscription, got %v", body["subscription"])
	}

	teamID := uint(body["id"].(float64))
	role, found := database.GetTeamMemberRole(user.ID, teamID)
	if !found || role != "owner" {
		t.Fatalf("expected creator as owner, got %q found=%v", role, found)
	}
}

func TestCreateTeamRequiresName(t *testing.T) {
	setupHandlerTest(t)
	user := createTestUser(t, "user")

	w := httptest.NewRecorder()
	CreateTeam(w, newRequest(t, http.MethodPost, "/api/v1/teams",
		map[string]string{"name": ""}, user, nil))
	wantError(t, w, http.StatusBadRequest, "Team name is required")
}

func TestListTeamsScoping(t *testing.T) {
	setupHandlerTest(t)
	member := createTestUser(t, "user")
	outsider := createTestUser(t, "user")
	admin := createTestUser(t, "admin")
	createTestTeam(t, "FREE", member)
	createTestTeam(t, "PRO", nil)

	w := httptest.NewRecorder()
	ListTeams(w, newRequest(t, http.MethodGet, "/api/v1/teams", nil, member, nil))
	wantStatus(t, w, http.StatusOK)
	var memberTeams []database.Team
	mustUnmarshal(t, w, &memberTeams)
	if len(memberTeams) != 1 {
		t.Fatalf("expected member to see 1 team, got %d", len(memberTeams))
	}

	w = httptest.NewRecorder()
	ListTeams(w, newRequest(t, http.MethodGet, "/api/v1/teams", nil, outsider, nil))
	var none []database.Team
	mustUnmarshal(t, w, &none)
	if len(none) != 0 {
		t.Fatalf("expected outsider to see no teams, got %d", len(none))
	}

	w = httptest.NewRecorder()
	ListTeams(w, newRequest(t, http.MethodGet, "/api/v1/teams", nil, admin, nil))
	var all []database.Team
	mustUnmarshal(t, w, &all)
	if len(all) != 2 {
		t.Fatalf("expected admin to see all teams, got %d", len(all))
	}
}

func TestGetTeamAccess(t *testing.T) {
	setupHandlerTest(t)
	member := createTestUser(t, "user")
	outsider := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", member)
	params := map[string]string{"id": fmt.Sprint(team.ID)}

	w := httptest.NewRecorder()
	GetTeam(w, newRequest(t, http.MethodGet, "/api/v1/teams/1", nil, member, params))
	wantStatus(t, w, http.StatusOK)

	w = httptest.NewRecorder()
	GetTeam(w, newRequest(t, http.MethodGet, "/api/v1/teams/1", nil, outsider, params))
	wantError(t, w, http.StatusForbidden, "Access denied")
}

func TestUpdateTeamOwnerOnly(t *testing.T) {
	setupHandlerTest(t)
	owner := createTestUser(t, "user")
	member := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", owner)
	database.DB.Create(&database.TeamMember{TeamID: team.ID, UserID: member.ID, Role: "member"})
	params := map[string]string{"id": fmt.Sprint(team.ID)}

	w := httptest.NewRecorder()
	UpdateTeam(w, newRequest(t, http.MethodPut, "/", map[string]string{"name": "Renamed"}, member, params))
	wantError(t, w, http.StatusForbidden, "Team owner access required")

	w = httptest.NewRecorder()
	UpdateTeam(w, newRequest(t, http.MethodPut, "/", map[string]string{"name": "Renamed"}, owner, params))
	wantStatus(t, w, http.StatusOK)
	if body := decodeBody(t, w); body["name"] != "Renamed" {
		t.Fatalf("expected renamed team, got %v", body["name"])
	}
}

func TestAddTeamMember(t *testing.T) {
	setupHandlerTest(t)
	owner := createTestUser(t, "user")
	joiner := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", owner)
	params := map[string]string{"id": fmt.Sprint(team.ID)}

	w := httptest.NewRecorder()
	AddTeamMember(w, newRequest(t, http.MethodPost, "/",
		map[string]string{"email": joiner.Email}, owner, params))
	wantStatus(t, w, http.StatusCreated)

	role, found := database.GetTeamMemberRole(joiner.ID, team.ID)
	if !found || role != "member" {
		t.Fatalf("expected member role, got %q found=%v", role, found)
	}

	// Duplicate add conflicts.
	w = httptest.NewRecorder()
	AddTeamMember(w, newRequest(t, http.MethodPost, "/",
		map[string]string{"email": joiner.Email}, owner, params))
	wantError(t, w, http.StatusConflict, "User is already a member")

	// Unknown user.
	w = httptest.NewRecorder()
	AddTeamMember(w, newRequest(t, http.MethodPost, "/",
		map[string]string{"email": "ghost@example.com"}, owner, params))
	wantError(t, w, http.StatusNotFound, "User not found")
}

func TestRemoveTeamMemberLastOwnerGuard(t *testing.T) {
	setupHandlerTest(t)
	owner := createTestUser(t, "user")
	member := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", owner)
	database.DB.Create(&database.TeamMember{TeamID: team.ID, UserID: member.ID, Role: "member"})
	params := func(userID uint) map[string]string {
		return map[string]string{"id": fmt.Sprint(team.ID), "userId": fmt.Sprint(userID)}
	}

	// The sole owner cannot be removed.
	w := httptest.NewRecorder()
	RemoveTeamMember(w, newRequest(t, http.MethodDelete, "/", nil, owner, params(owner.ID)))
	wantError(t, w, http.StatusConflict, "Cannot remove the last owner")

	// A plain member can.
	w = httptest.NewRecorder()
	RemoveTeamMember(w, newRequest(t, http.MethodDelete, "/", nil, owner, params(member.ID)))
	wantStatus(t, w, http.StatusOK)
	if _, found := database.GetTeamMemberRole(member.ID, team.ID); found {
		t.Fatal("expected member removed")
	}
}

func TestListTeamMembers(t *testing.T) {
	setupHandlerTest(t)
	owner := createTestUser(t, "user")
	member := createTestUser(t, "user")
	team := createTestTeam(t, "FREE", owner)
	database.DB.Create(&database.TeamMember{TeamID: team.ID, UserID: member.ID, Role: "member"})

	w := httptest.NewRecorder()
	ListTeamMembers(w, newRequest(t, http.MethodGet, "/", nil, owner,
		map[string]string{"id": fmt.Sprint(team.ID)}))
	wantStatus(t, w, http.StatusOK)

	var members []struct {
		UserID uint   `json:"user_id"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	}
	mustUnmarshal(t, w, &members)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Email == "" {
		t.Fatal("expected user email joined in")
	}
}
