package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// DefaultXPMax is the XP ceiling a freshly registered user starts with.
const DefaultXPMax int64 = 1000

// XPProgress is the user's position inside the current level.
// Invariant: 0 <= Current < Max outside of a level-up computation.
type XPProgress struct {
	Current int64 `json:"current" gorm:"not null;default:0"`
	Max     int64 `json:"max" gorm:"not null;default:1000"`
}

// UserStats are the counters achievements are evaluated against.
type UserStats struct {
	Streak     int64 `json:"streak" gorm:"not null;default:0"`
	Missions   int64 `json:"missions" gorm:"not null;default:0"`
	Badges     int64 `json:"badges" gorm:"not null;default:0"`
	Workouts   int64 `json:"workouts" gorm:"not null;default:0"`
	TotalSteps int64 `json:"total_steps" gorm:"not null;default:0"`
}

type User struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	AvatarURL    string     `gorm:"type:text" json:"avatar_url,omitempty"`
	Level        int        `gorm:"not null;default:1" json:"level"`
	XP           XPProgress `gorm:"embedded;embeddedPrefix:xp_" json:"xp"`
	Stats        UserStats  `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`

	LastLogin     *time.Time `json:"last_login,omitempty"`
	LastActiveAt  *time.Time `json:"last_active_at,omitempty"`
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}
