// Package audit records gate decisions for later review. Writes are
// best-effort: a failed audit write is logged and never fails the request
// that produced it.
package audit

import (
	"log"
	"time"

	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/logutil"
	"gorm.io/gorm"
)

// Decision values recorded per gate evaluation.
const (
	DecisionAllow         = "allow"
	DecisionNotFound      = "not_found"
	DecisionBlocked       = "blocked"
	DecisionNotEntitled   = "not_entitled"
	DecisionRateLimited   = "rate_limited"
	DecisionQuotaExceeded = "quota_exceeded"
	DecisionProviderError = "provider_error"
)

// DefaultRetentionDays is the default number of days to keep audit entries.
const DefaultRetentionDays = 90

type Entry struct {
	TeamID   uint
	Plan     string
	Action   string
	Decision string
	Detail   string
	Email    string
}

type Auditor struct {
	db            *gorm.DB
	retentionDays int
	nowFn         func() time.Time // injectable clock for testing
}

func NewAuditor(db *gorm.DB, retentionDays int) *Auditor {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Auditor{
		db:            db,
		retentionDays: retentionDays,
		nowFn:         time.Now,
	}
}

// Log records a gate decision to the database and the standard logger.
func (a *Auditor) Log(entry Entry) {
	record := database.GateAuditLog{
		TeamID:   entry.TeamID,
		Plan:     entry.Plan,
		Action:   entry.Action,
		Decision: entry.Decision,
		Detail:   entry.Detail,
		Email:    entry.Email,
	}

	if err := a.db.Create(&record).Error; err != nil {
		log.Printf("[gate-audit] failed to write audit entry: %v", err)
	}

	log.Printf("[gate-audit] %s team=%d plan=%s action=%s user=%s detail=%s",
		entry.Decision,
		entry.TeamID,
		entry.Plan,
		entry.Action,
		logutil.SanitizeForLog(entry.Email),
		logutil.SanitizeForLog(entry.Detail),
	)
}

// QueryOptions specifies filters for retrieving audit entries.
type QueryOptions struct {
	TeamID   uint
	Decision string
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Offset   int
}

// QueryResult contains audit entries and pagination metadata.
type QueryResult struct {
	Entries []database.GateAuditLog `json:"entries"`
	Total   int64                   `json:"total"`
	Limit   int                     `json:"limit"`
	Offset  int                     `json:"offset"`
}

// Query retrieves audit entries matching the given options, newest first.
func (a *Auditor) Query(opts QueryOptions) (*QueryResult, error) {
	tx := a.db.Model(&database.GateAuditLog{})

	if opts.TeamID > 0 {
		tx = tx.Where("team_id = ?", opts.TeamID)
	}
	if opts.Decision != "" {
		tx = tx.Where("decision = ?", opts.Decision)
	}
	if opts.Since != nil {
		tx = tx.Where("created_at >= ?", *opts.Since)
	}
	if opts.Until != nil {
		tx = tx.Where("created_at <= ?", *opts.Until)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	var entries []database.GateAuditLog
	if err := tx.Order("created_at DESC").Limit(limit).Offset(opts.Offset).Find(&entries).Error; err != nil {
		return nil, err
	}

	return &QueryResult{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  opts.Offset,
	}, nil
}

// Purge deletes entries older than the retention window and returns the
// number removed.
func (a *Auditor) Purge() (int64, error) {
	cutoff := a.nowFn().AddDate(0, 0, -a.retentionDays)
	res := a.db.Where("created_at < ?", cutoff).Delete(&database.GateAuditLog{})
	return res.RowsAffected, res.Error
}
