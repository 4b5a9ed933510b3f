package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/blueprintai/backend/internal/canvas"
	"github.com/blueprintai/backend/internal/database"
	"github.com/coder/websocket"
	"gorm.io/gorm"
)

// CanvasHub is set from main.go during init.
var CanvasHub *canvas.Hub

// GetCanvas returns the stored canvas snapshot for a project, creating an
// empty one on first access.
func GetCanvas(w http.ResponseWriter, r *http.Request) {
	project, ok := loadAccessibleProject(w, r)
	if !ok {
		return
	}

	var doc database.CanvasDocument
	err := database.DB.Where("project_id = ?", project.ID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		doc = database.CanvasDocument{ProjectID: project.ID, Nodes: "[]", Edges: "[]"}
		if err := database.DB.Create(&doc).Error; err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create canvas")
			return
		}
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load canvas")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PutCanvas replaces the canvas snapshot. Last write wins; the version only
// counts writes, it is not used for conflict detection.
func PutCanvas(w http.ResponseWriter, r *http.Request) {
	project, ok := loadAccessibleProject(w, r)
	if !ok {
		return
	}

	var body struct {
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Nodes == nil || body.Edges == nil {
		writeError(w, http.StatusBadRequest, "nodes and edges are required")
		return
	}

	var doc database.CanvasDocument
	err := database.DB.Where("project_id = ?", project.ID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		doc = database.CanvasDocument{ProjectID: project.ID}
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load canvas")
		return
	}

	doc.Nodes = string(body.Nodes)
	doc.Edges = string(body.Edges)
	doc.Version++
	if err := database.DB.Save(&doc).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save canvas")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CanvasWS relays canvas edit frames between clients of the same project.
// Frames are forwarded verbatim to the other subscribers; the server keeps no
// per-frame state and resolves nothing.
func CanvasWS(w http.ResponseWriter, r *http.Request) {
	project, ok := loadAccessibleProject(w, r)
	if !ok {
		return
	}
	if CanvasHub == nil {
		writeError(w, http.StatusServiceUnavailable, "Canvas relay not initialized")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[canvas] failed to accept websocket: %v", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 * 1024 * 1024)

	sub := CanvasHub.Join(project.ID)
	defer sub.Leave()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer: forward frames from other subscribers.
	go func() {
		for frame := range sub.Frames {
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				cancel()
				return
			}
		}
	}()

	// Reader: broadcast every incoming frame to the room.
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		CanvasHub.Broadcast(project.ID, sub, data)
	}
}
