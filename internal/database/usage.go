package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MonthStart returns the first instant of now's calendar month in now's
// location. The gate counts monthly usage from this boundary; there is no
// per-team timezone normalization.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// CountUsageSince counts a team's usage events created at or after the given
// instant. Events exactly at the boundary are included.
func CountUsageSince(db *gorm.DB, teamID uint, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&UsageEvent{}).
		Where("team_id = ? AND created_at >= ?", teamID, since).
		Count(&count).Error
	return count, err
}

// RecordUsage appends one usage event. Callers insert exactly one row per
// allowed generation attempt, real or mocked.
func RecordUsage(db *gorm.DB, event *UsageEvent) error {
	return db.Create(event).Error
}

// ResetMonthUsage deletes a team's usage events for the current month. This is
// the administrative reset; it is the only path that removes rows from the
// counting window.
func ResetMonthUsage(db *gorm.DB, teamID uint, now time.Time) (int64, error) {
	res := db.Where("team_id = ? AND created_at >= ?", teamID, MonthStart(now)).
		Delete(&UsageEvent{})
	return res.RowsAffected, res.Error
}

// ArchiveUsage rolls all usage events older than the current month into
// per-team monthly UsageArchive rows and deletes the rolled-up events. The
// current month is never touched, so gate counting is unaffected.
func ArchiveUsage(db *gorm.DB, now time.Time) error {
	cutoff := MonthStart(now)

	type rollup struct {
		TeamID       uint
		Month        string
		Events       int64
		InputTokens  int64
		OutputTokens int64
	}

	var rollups []rollup
	err := db.Model(&UsageEvent{}).
		Select("team_id, strftime('%Y-%m', created_at) AS month, COUNT(*) AS events, "+
			"COALESCE(SUM(input_tokens), 0) AS input_tokens, COALESCE(SUM(output_tokens), 0) AS output_tokens").
		Where("created_at < ?", cutoff).
		Group("team_id, month").
		Scan(&rollups).Error
	if err != nil {
		return fmt.Errorf("aggregate usage: %w", err)
	}

	for _, r := range rollups {
		var existing UsageArchive
		err := db.Where("team_id = ? AND month = ?", r.TeamID, r.Month).First(&existing).Error
		if err == nil {
			existing.Events += r.Events
			existing.InputTokens += r.InputTokens
			existing.OutputTokens += r.OutputTokens
			if err := db.Save(&existing).Error; err != nil {
				return fmt.Errorf("update archive: %w", err)
			}
			continue
		}
		archive := UsageArchive{
			TeamID:       r.TeamID,
			Month:        r.Month,
			Events:       r.Events,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
		}
		if err := db.Create(&archive).Error; err != nil {
			return fmt.Errorf("create archive: %w", err)
		}
	}

	if err := db.Where("created_at < ?", cutoff).Delete(&UsageEvent{}).Error; err != nil {
		return fmt.Errorf("prune archived events: %w", err)
	}
	return nil
}
