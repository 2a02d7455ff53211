package models

import "time"

type CompletionSource string

const (
	CompletionSourceMission CompletionSource = "mission"
	CompletionSourceWorkout CompletionSource = "workout"
)

// CompletedMission is an append-only ledger row written once per completion.
// It snapshots the mission (or workout) so history survives later edits or deletes.
type CompletedMission struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string           `gorm:"index;not null" json:"user_id"`
	MissionID     string           `gorm:"index;not null" json:"mission_id"`
	Source        CompletionSource `gorm:"type:varchar(16);not null;default:'mission'" json:"source"`
	CompletionKey string           `gorm:"uniqueIndex;not null" json:"-"` // "mission:<id>" or "workout:<completion id>"
	Title         string           `gorm:"not null" json:"title"`
	Description   string           `gorm:"type:text" json:"description"`
	Difficulty    string           `gorm:"type:varchar(16)" json:"difficulty"`
	XP            int64            `gorm:"not null" json:"xp"`
	Category      string           `json:"category"`
	CompletedAt   time.Time        `gorm:"index;not null" json:"completed_at"`
}

func MissionCompletionKey(missionID string) string {
	return "mission:" + missionID
}

func WorkoutCompletionKey(completionID string) string {
	return "workout:" + completionID
}
