package storage

import (
	"time"

	"gorm.io/datatypes"
)

// SessionRecord backs the sqlite session store driver.
type SessionRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SessionID string         `gorm:"uniqueIndex;not null" json:"session_id"`
	APIKey    string         `gorm:"not null" json:"-"`
	Provider  string         `gorm:"index" json:"provider"`
	ClipDir   string         `json:"clip_dir"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt *time.Time     `gorm:"index" json:"expires_at"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
}

func (SessionRecord) TableName() string {
	return "sessions"
}

// GenerationRecord is one manifest entry: a script submission mapped to
// the clip it produced. The caller reconstructs playback order from
// ScriptIndex.
type GenerationRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SessionID   string         `gorm:"index;not null" json:"session_id"`
	ScriptIndex int            `gorm:"not null" json:"script_index"`
	ClipName    string         `gorm:"not null" json:"clip_name"`
	Voice       string         `json:"voice"`
	Format      string         `json:"format"`
	DurationMS  int64          `json:"duration_ms"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (GenerationRecord) TableName() string {
	return "generations"
}

// MixRecord captures one completed sequencer run.
type MixRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     string    `gorm:"index;not null" json:"session_id"`
	OutputName    string    `gorm:"not null" json:"output_name"`
	ClipCount     int       `json:"clip_count"`
	GapMinSeconds float64   `json:"gap_min_seconds"`
	GapMaxSeconds float64   `json:"gap_max_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

func (MixRecord) TableName() string {
	return "mixes"
}
