package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blueprintai/backend/internal/audit"
	"github.com/blueprintai/backend/internal/auth"
	"github.com/blueprintai/backend/internal/canvas"
	"github.com/blueprintai/backend/internal/config"
	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/gate"
	"github.com/blueprintai/backend/internal/llm"
	"github.com/blueprintai/backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupHandlerTest swaps the package globals for an in-memory database and
// restores them when the test ends.
func setupHandlerTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	origDB := database.DB
	origStore := SessionStore
	origGate := GenGate
	origAuditor := Auditor
	origHub := CanvasHub
	origFactory := LLMClientFactory
	origCfg := config.Cfg

	database.DB = db
	SessionStore = auth.NewSessionStore()
	GenGate = gate.New(db)
	Auditor = audit.NewAuditor(db, 90)
	CanvasHub = canvas.NewHub()
	LLMClientFactory = func() *llm.Client {
		return llm.NewClient("", "", "test-model", time.Second)
	}
	config.Cfg = config.Settings{}

	t.Cleanup(func() {
		database.DB = origDB
		SessionStore = origStore
		GenGate = origGate
		Auditor = origAuditor
		CanvasHub = origHub
		LLMClientFactory = origFactory
		config.Cfg = origCfg
	})
	return db
}

var userSeq int

func createTestUser(t *testing.T, role string) *database.User {
	t.Helper()
	userSeq++
	user := &database.User{
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		Name:         fmt.Sprintf("User %d", userSeq),
		PasswordHash: "x",
		Role:         role,
	}
	if err := database.DB.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// createTestTeam creates a team on the given plan with owner as its owner.
func createTestTeam(t *testing.T, plan string, owner *database.User) *database.Team {
	t.Helper()
	team := &database.Team{Name: "acme"}
	if err := database.DB.Create(team).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}
	sub := database.Subscription{TeamID: team.ID, Plan: plan, Status: "active"}
	if err := database.DB.Create(&sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	team.Subscription = &sub
	if owner != nil {
		member := database.TeamMember{TeamID: team.ID, UserID: owner.ID, Role: "owner"}
		if err := database.DB.Create(&member).Error; err != nil {
			t.Fatalf("create member: %v", err)
		}
	}
	return team
}

func createTestProject(t *testing.T, teamID uint) *database.Project {
	t.Helper()
	project := &database.Project{TeamID: teamID, Name: "Rocket", Description: "Plan launches faster"}
	if err := database.DB.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func seedUsageEvents(t *testing.T, teamID uint, n int, createdAt time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		event := database.UsageEvent{
			TeamID:    teamID,
			Action:    "generate_story",
			Model:     llm.MockModel,
			CreatedAt: createdAt,
		}
		if err := database.DB.Create(&event).Error; err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
}

// newRequest builds a request with an optional JSON body, the acting user in
// context, and chi URL params.
func newRequest(t *testing.T, method, target string, body interface{}, user *database.User, params map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	r := httptest.NewRequest(method, target, reader)
	if user != nil {
		r = middleware.SetUser(r, user)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func mustUnmarshal(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected HTTP %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	wantStatus(t, w, status)
	body := decodeBody(t, w)
	if body["error"] != message {
		t.Fatalf("expected error %q, got %q", message, body["error"])
	}
}

func countUsageEvents(t *testing.T, teamID uint) int64 {
	t.Helper()
	var count int64
	if err := database.DB.Model(&database.UsageEvent{}).
		Where("team_id = ?", teamID).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}
