package database

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:user" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Team struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	AIBlocked bool      `gorm:"not null;default:false" json:"ai_blocked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Subscription *Subscription `gorm:"foreignKey:TeamID" json:"subscription,omitempty"`
}

type TeamMember struct {
	TeamID    uint      `gorm:"primaryKey" json:"team_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Role      string    `gorm:"not null;default:member" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Subscription struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID      uint      `gorm:"uniqueIndex;not null" json:"team_id"`
	Plan        string    `gorm:"not null;default:FREE" json:"plan"`
	Status      string    `gorm:"not null;default:active" json:"status"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Project struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID      uint      `gorm:"not null;index" json:"team_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanvasDocument is the last-write-wins snapshot of a project's flow canvas.
// Nodes and Edges hold the client's JSON verbatim; the server never merges.
type CanvasDocument struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex;not null" json:"project_id"`
	Nodes     string    `gorm:"type:text;default:'[]'" json:"nodes"`
	Edges     string    `gorm:"type:text;default:'[]'" json:"edges"`
	Version   int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UsageEvent is one immutable record of an AI generation attempt. Rows are
// only ever counted; they are deleted by the admin usage reset or rolled into
// UsageArchive by the monthly archival job.
type UsageEvent struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID    string    `gorm:"size:36" json:"request_id"`
	TeamID       uint      `gorm:"not null;index" json:"team_id"`
	Action       string    `gorm:"not null" json:"action"`
	Model        string    `gorm:"not null" json:"model"`
	InputTokens  int64     `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens int64     `gorm:"not null;default:0" json:"output_tokens"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// UsageArchive is a per-team monthly rollup produced before old usage events
// are pruned.
type UsageArchive struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID       uint      `gorm:"not null;uniqueIndex:idx_team_month" json:"team_id"`
	Month        string    `gorm:"not null;size:7;uniqueIndex:idx_team_month" json:"month"` // "2006-01"
	Events       int64     `gorm:"not null;default:0" json:"events"`
	InputTokens  int64     `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens int64     `gorm:"not null;default:0" json:"output_tokens"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type GateAuditLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	Plan      string    `json:"plan"`
	Action    string    `json:"action"`
	Decision  string    `gorm:"not null;index" json:"decision"`
	Detail    string    `json:"detail"`
	Email     string    `json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
