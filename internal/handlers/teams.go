package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/middleware"
	"github.com/blueprintai/backend/internal/plans"
)

// CreateTeam creates a team with a FREE subscription and the caller as owner.
func CreateTeam(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "Team name is required")
		return
	}

	team := database.Team{Name: body.Name}
	if err := database.DB.Create(&team).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create team")
		return
	}
	sub := database.Subscription{TeamID: team.ID, Plan: string(plans.Free), Status: "active"}
	if err := database.DB.Create(&sub).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create subscription")
		return
	}
	member := database.TeamMember{TeamID: team.ID, UserID: user.ID, Role: "owner"}
	if err := database.DB.Create(&member).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add owner")
		return
	}

	team.Subscription = &sub
	writeJSON(w, http.StatusCreated, team)
}

// ListTeams returns the caller's teams. Global admins see all teams.
func ListTeams(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if user.Role == "admin" {
		var teams []database.Team
		if err := database.DB.Preload("Subscription").Order("id").Find(&teams).Error; err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list teams")
			return
		}
		writeJSON(w, http.StatusOK, teams)
		return
	}

	teams, err := database.ListTeamsForUser(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teams")
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func GetTeam(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, team)
}

// UpdateTeam renames a team. Owner or global admin only.
func UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	if !requireTeamOwner(w, r, id) {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "Team name is required")
		return
	}

	team, err := database.GetTeamByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}
	team.Name = body.Name
	if err := database.DB.Save(team).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update team")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	if !middleware.CanAccessTeam(r, id) {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	type memberOut struct {
		UserID uint   `json:"user_id"`
		Email  string `json:"email"`
		Name   string `json:"name"`
		Role   string `json:"role"`
	}
	var members []memberOut
	err := database.DB.Model(&database.TeamMember{}).
		Select("team_members.user_id, users.email, users.name, team_members.role").
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id = ?", id).
		Order("team_members.user_id").
		Scan(&members).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// AddTeamMember adds an existing user to the team by email. Owner only.
func AddTeamMember(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	if !requireTeamOwner(w, r, id) {
		return
	}

	var body struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if body.Role == "" {
		body.Role = "member"
	}
	if body.Role != "member" && body.Role != "owner" {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	target, err := database.GetUserByEmail(body.Email)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if database.IsUserMemberOfTeam(target.ID, id) {
		writeError(w, http.StatusConflict, "User is already a member")
		return
	}

	member := database.TeamMember{TeamID: id, UserID: target.ID, Role: body.Role}
	if err := database.DB.Create(&member).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add member")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// RemoveTeamMember removes a user from the team. Owner only; the last owner
// cannot be removed.
func RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	userID, ok := idParam(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if !requireTeamOwner(w, r, id) {
		return
	}

	role, found := database.GetTeamMemberRole(userID, id)
	if !found {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if role == "owner" {
		var owners int64
		database.DB.Model(&database.TeamMember{}).
			Where("team_id = ? AND role = ?", id, "owner").Count(&owners)
		if owners <= 1 {
			writeError(w, http.StatusConflict, "Cannot remove the last owner")
			return
		}
	}

	if err := database.DB.Where("team_id = ? AND user_id = ?", id, userID).
		Delete(&database.TeamMember{}).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to remove member")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// requireTeamOwner writes an error response and returns false unless the
// caller owns the team or is a global admin.
func requireTeamOwner(w http.ResponseWriter, r *http.Request, teamID uint) bool {
	user := middleware.GetUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if user.Role == "admin" {
		return true
	}
	role, found := database.GetTeamMemberRole(user.ID, teamID)
	if !found || role != "owner" {
		writeError(w, http.StatusForbidden, "Team owner access required")
		return false
	}
	return true
}
