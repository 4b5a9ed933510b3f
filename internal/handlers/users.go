package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blueprintai/backend/internal/auth"
	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/middleware"
)

func ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := database.ListUsers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if len(body.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	if body.Role == "" {
		body.Role = "user"
	}
	if body.Role != "user" && body.Role != "admin" {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := &database.User{
		Email:        body.Email,
		Name:         body.Name,
		PasswordHash: hash,
		Role:         body.Role,
	}
	if err := database.CreateUser(user); err != nil {
		writeError(w, http.StatusConflict, "Email already in use")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	caller := middleware.GetUser(r)
	if caller.ID == id {
		writeError(w, http.StatusConflict, "Cannot delete your own account")
		return
	}
	if _, err := database.GetUserByID(id); err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	if err := database.DeleteUser(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	SessionStore.DeleteByUserID(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Role != "user" && body.Role != "admin" {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	caller := middleware.GetUser(r)
	if caller.ID == id && body.Role != "admin" {
		writeError(w, http.StatusConflict, "Cannot demote your own account")
		return
	}

	user, err := database.GetUserByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	user.Role = body.Role
	if err := database.DB.Save(user).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	if _, err := database.GetUserByID(id); err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	if err := database.UpdateUserPassword(id, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}
	SessionStore.DeleteByUserID(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
