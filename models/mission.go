package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyEpic   Difficulty = "epic"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyEpic:
		return true
	}
	return false
}

// MissionStatus is a one-way lifecycle: available -> active -> completed.
// A completed mission never goes back.
type MissionStatus string

const (
	MissionStatusAvailable MissionStatus = "available"
	MissionStatusActive    MissionStatus = "active"
	MissionStatusCompleted MissionStatus = "completed"
)

// MaxProgress is the progress value that marks a mission as done.
const MaxProgress = 100

// Mission is either a template (UserID nil) or assigned to a user.
type Mission struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Category    string        `gorm:"index;not null" json:"category"`
	Difficulty  Difficulty    `gorm:"type:varchar(16);not null;default:'medium'" json:"difficulty"`
	XP          int64         `gorm:"not null" json:"xp"`       // fixed at creation
	Duration    int           `gorm:"not null" json:"duration"` // days
	IsActive    bool          `gorm:"index;not null;default:false" json:"is_active"`
	Progress    int           `gorm:"not null;default:0" json:"progress"`
	UserID      *string       `gorm:"index" json:"user_id"`
	Status      MissionStatus `gorm:"type:varchar(16);not null;default:'available'" json:"status"`

	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// Completed reports whether the completion transition already happened.
func (m *Mission) Completed() bool {
	return m.Status == MissionStatusCompleted
}

// OwnerID returns the assigned user or "" for templates.
func (m *Mission) OwnerID() string {
	if m.UserID == nil {
		return ""
	}
	return *m.UserID
}
