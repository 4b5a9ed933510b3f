package handlers

import (
	"net/http"

	"github.com/blueprintai/backend/internal/database"
)

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if database.DB == nil {
		status = "degraded"
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}
