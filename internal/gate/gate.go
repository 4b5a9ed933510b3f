// Package gate is the admission policy evaluated before every AI generation
// request. The decision sequence is fixed and short-circuiting: team lookup,
// administrative block, plan limits, entitlement, trailing-window rate limit,
// monthly quota. The two counting reads and the caller's subsequent insert are
// not transactional; concurrent requests for one team can overshoot a ceiling
// by the concurrency degree. The quota is a soft cap.
package gate

import (
	"errors"
	"fmt"
	"time"

	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/plans"
	"gorm.io/gorm"
)

const (
	// RateLimitWindow and RateLimitMax bound generation requests per team in
	// a trailing window, independent of the monthly quota.
	RateLimitWindow = 60 * time.Second
	RateLimitMax    = 20
)

// ErrTeamNotFound is returned when the target team does not exist.
var ErrTeamNotFound = errors.New("team not found")

// BlockedError denies a team flagged ai_blocked. Permanent until an operator
// clears the flag.
type BlockedError struct {
	TeamID uint
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("AI generation is blocked for team %d", e.TeamID)
}

// NotEntitledError denies a plan without AI generation access.
type NotEntitledError struct {
	Plan plans.Plan
}

func (e *NotEntitledError) Error() string {
	return fmt.Sprintf("plan %s does not include AI generation", e.Plan)
}

// RateLimitedError denies a team that exceeded the trailing-window ceiling.
// Retryable once the window elapses.
type RateLimitedError struct {
	TeamID uint
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for team %d", e.TeamID)
}

// QuotaExceededError denies a team at its monthly ceiling. Used and Limit are
// surfaced verbatim to the end user.
type QuotaExceededError struct {
	Used  int64
	Limit int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly AI generation limit reached (%d/%d)", e.Used, e.Limit)
}

// Decision is the allow result: the resolved limits plus the monthly count so
// the caller can show "used/limit" to the end user.
type Decision struct {
	Plan          plans.Plan
	Limits        plans.Limits
	UsedThisMonth int64
}

type Gate struct {
	db    *gorm.DB
	nowFn func() time.Time // injectable clock for testing
}

func New(db *gorm.DB) *Gate {
	return &Gate{db: db, nowFn: time.Now}
}

// NewWithClock creates a Gate with a fixed clock. Used by tests.
func NewWithClock(db *gorm.DB, nowFn func() time.Time) *Gate {
	return &Gate{db: db, nowFn: nowFn}
}

// Evaluate decides whether one generation request for the team may proceed.
// role is the acting user's global role ("admin" unlocks unlimited limits).
// Evaluate only reads; the caller records the usage event after a successful
// generation attempt.
func (g *Gate) Evaluate(teamID uint, role string) (*Decision, error) {
	var team database.Team
	if err := g.db.Preload("Subscription").First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("load team: %w", err)
	}

	if team.AIBlocked {
		return nil, &BlockedError{TeamID: team.ID}
	}

	plan := plans.Free
	if team.Subscription != nil {
		plan = plans.Normalize(team.Subscription.Plan)
	}
	limits := plans.Resolve(plan, role)

	// Entitlement is only checked for non-FREE plans with a zero ceiling.
	// Deliberately narrower than "plan lacks AI": FREE keeps its small
	// allotment, and a disabled plan with a nonzero ceiling still passes.
	if !limits.CanGenerateAI && plan != plans.Free && limits.MaxAIGenerationsPerMonth == 0 {
		return nil, &NotEntitledError{Plan: plan}
	}

	now := g.nowFn()

	recent, err := database.CountUsageSince(g.db, team.ID, now.Add(-RateLimitWindow))
	if err != nil {
		return nil, fmt.Errorf("count recent usage: %w", err)
	}
	if recent >= RateLimitMax {
		return nil, &RateLimitedError{TeamID: team.ID}
	}

	monthly, err := database.CountUsageSince(g.db, team.ID, database.MonthStart(now))
	if err != nil {
		return nil, fmt.Errorf("count monthly usage: %w", err)
	}
	if limits.MaxAIGenerationsPerMonth != plans.Unlimited && monthly >= limits.MaxAIGenerationsPerMonth {
		return nil, &QuotaExceededError{Used: monthly, Limit: limits.MaxAIGenerationsPerMonth}
	}

	return &Decision{Plan: plan, Limits: limits, UsedThisMonth: monthly}, nil
}
