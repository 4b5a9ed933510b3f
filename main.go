package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blueprintai/backend/internal/audit"
	"github.com/blueprintai/backend/internal/auth"
	"github.com/blueprintai/backend/internal/canvas"
	"github.com/blueprintai/backend/internal/config"
	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/gate"
	"github.com/blueprintai/backend/internal/handlers"
	"github.com/blueprintai/backend/internal/logging"
	"github.com/blueprintai/backend/internal/middleware"
	"github.com/blueprintai/backend/internal/plans"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
)

func main() {
	// Handle CLI commands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--create-admin":
			runCLICommand("create-admin")
			return
		case "--reset-password":
			runCLICommand("reset-password")
			return
		}
	}

	config.Load()
	logging.Init()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	if err := plans.LoadCatalog(config.Cfg.PlansPath); err != nil {
		log.Fatalf("Plan catalog: %v", err)
	}

	// Init session store
	sessionStore := auth.NewSessionStore()
	handlers.SessionStore = sessionStore

	// Session cleanup goroutine
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sessionStore.Cleanup()
		}
	}()

	auditor := audit.NewAuditor(database.DB, config.Cfg.AuditRetentionDays)
	handlers.Auditor = auditor

	handlers.GenGate = gate.New(database.DB)
	handlers.CanvasHub = canvas.NewHub()

	// Background jobs: monthly usage archival, daily audit retention purge.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("10 3 1 * *", runUsageArchival); err != nil {
		log.Fatalf("Schedule usage archival: %v", err)
	}
	if _, err := scheduler.AddFunc("40 3 * * *", func() { runAuditPurge(auditor) }); err != nil {
		log.Fatalf("Schedule audit purge: %v", err)
	}
	scheduler.Start()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// Health (no auth)
	r.Get("/health", handlers.HealthCheck)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (no auth required)
		r.Post("/auth/login", handlers.Login)
		r.Get("/auth/setup-required", handlers.SetupRequired)
		r.Post("/auth/setup", handlers.SetupCreateAdmin)

		// Protected routes (require auth)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionStore))

			r.Post("/auth/logout", handlers.Logout)
			r.Get("/auth/me", handlers.GetCurrentUser)

			// Teams and members
			r.Post("/teams", handlers.CreateTeam)
			r.Get("/teams", handlers.ListTeams)
			r.Get("/teams/{id}", handlers.GetTeam)
			r.Put("/teams/{id}", handlers.UpdateTeam)
			r.Get("/teams/{id}/members", handlers.ListTeamMembers)
			r.Post("/teams/{id}/members", handlers.AddTeamMember)
			r.Delete("/teams/{id}/members/{userId}", handlers.RemoveTeamMember)
			r.Get("/teams/{id}/usage", handlers.GetTeamUsage)
			r.Get("/teams/{id}/usage/events", handlers.ListTeamUsageEvents)

			// Projects
			r.Post("/projects", handlers.CreateProject)
			r.Get("/projects", handlers.ListProjects)
			r.Get("/projects/{id}", handlers.GetProject)
			r.Put("/projects/{id}", handlers.UpdateProject)
			r.Delete("/projects/{id}", handlers.DeleteProject)

			// Canvas snapshot and relay WebSocket
			r.Get("/projects/{id}/canvas", handlers.GetCanvas)
			r.Put("/projects/{id}/canvas", handlers.PutCanvas)
			r.Get("/projects/{id}/canvas/ws", handlers.CanvasWS)

			// AI generation
			r.Post("/projects/{id}/generate/{kind}", handlers.Generate)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Put("/admin/teams/{id}/ai-block", handlers.SetTeamAIBlock)
				r.Put("/admin/teams/{id}/plan", handlers.SetTeamPlan)
				r.Post("/admin/teams/{id}/usage/reset", handlers.ResetTeamUsage)
				r.Get("/admin/audit", handlers.GetGateAudit)
				r.Get("/admin/server-logs", handlers.GetServerLogs)
				r.Delete("/admin/server-logs", handlers.ClearServerLogs)

				// Settings
				r.Get("/admin/settings", handlers.GetSettings)
				r.Put("/admin/settings", handlers.UpdateSettings)

				// User management
				r.Get("/admin/users", handlers.ListUsers)
				r.Post("/admin/users", handlers.CreateUser)
				r.Delete("/admin/users/{userId}", handlers.DeleteUser)
				r.Put("/admin/users/{userId}/role", handlers.UpdateUserRole)
				r.Post("/admin/users/{userId}/reset-password", handlers.ResetUserPassword)
			})
		})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// runUsageArchival rolls prior-month usage events into monthly archive rows.
func runUsageArchival() {
	if err := database.ArchiveUsage(database.DB, time.Now()); err != nil {
		log.Printf("Usage archival: %v", err)
		return
	}
	log.Printf("Usage archival completed")
}

// runAuditPurge drops gate audit entries past the retention window.
func runAuditPurge(auditor *audit.Auditor) {
	removed, err := auditor.Purge()
	if err != nil {
		log.Printf("Audit purge: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Audit purge removed %d entries", removed)
	}
}

func runCLICommand(command string) {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	email := fs.String("email", "", "Email")
	name := fs.String("name", "", "Display name")
	password := fs.String("password", "", "Password")
	fs.Parse(os.Args[2:])

	if *email == "" || *password == "" {
		fmt.Fprintf(os.Stderr, "Usage: blueprint --%s --email <email> --password <pass>\n", command)
		os.Exit(1)
	}

	config.Load()
	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	switch command {
	case "create-admin":
		user := &database.User{
			Email:        *email,
			Name:         *name,
			PasswordHash: hash,
			Role:         "admin",
		}
		if err := database.CreateUser(user); err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
		fmt.Printf("Admin user '%s' created successfully.\n", *email)

	case "reset-password":
		user, err := database.GetUserByEmail(*email)
		if err != nil {
			log.Fatalf("User '%s' not found", *email)
		}
		if err := database.UpdateUserPassword(user.ID, hash); err != nil {
			log.Fatalf("Failed to update password: %v", err)
		}
		fmt.Printf("Password reset for '%s'. Existing sessions are revoked on restart.\n", *email)
	}
}
