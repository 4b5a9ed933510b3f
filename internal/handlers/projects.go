package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/middleware"
)

func CreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TeamID      uint   `json:"team_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" || body.TeamID == 0 {
		writeError(w, http.StatusBadRequest, "team_id and name are required")
		return
	}
	if !middleware.CanAccessTeam(r, body.TeamID) {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}
	if _, err := database.GetTeamByID(body.TeamID); err != nil {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}

	project := database.Project{
		TeamID:      body.TeamID,
		Name:        body.Name,
		Description: body.Description,
	}
	if err := database.DB.Create(&project).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// ListProjects returns projects in a team (?team_id=) the caller can access.
func ListProjects(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.ParseUint(r.URL.Query().Get("team_id"), 10, 32)
	if err != nil || teamID == 0 {
		writeError(w, http.StatusBadRequest, "team_id query parameter is required")
		return
	}
	if !middleware.CanAccessTeam(r, uint(teamID)) {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	var projects []database.Project
	if err := database.DB.Where("team_id = ?", teamID).Order("id").Find(&projects).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// loadAccessibleProject resolves the {id} URL param to a project the caller
// can access, writing the error response itself on failure.
func loadAccessibleProject(w http.ResponseWriter, r *http.Request) (*database.Project, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid project ID")
		return nil, false
	}
	project, err := database.GetProjectByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return nil, false
	}
	if !middleware.CanAccessTeam(r, project.TeamID) {
		writeError(w, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return project, true
}

func GetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := loadAccessibleProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func UpdateProject(w http.ResponseWriter, r *http.Request) {
	project, ok := loadAccessibleProject(w, r)
	if !ok {
		return
	}

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name != nil {
		if *body.Name == "" {
			writeError(w, http.StatusBadRequest, "Project name cannot be empty")
			return
		}
		project.Name = *body.Name
	}
	if body.Description != nil {
		project.Description = *body.Description
	}

	if err := database.DB.Save(project).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func DeleteProject(w http.ResponseWriter, r *http.Request) {
	project, ok := loadAccessibleProject(w, r)
	if !ok {
		return
	}

	if err := database.DB.Where("project_id = ?", project.ID).
		Delete(&database.CanvasDocument{}).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete canvas")
		return
	}
	if err := database.DB.Delete(project).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
