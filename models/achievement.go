package models

import (
	"strings"
	"time"
)

type AchievementCategory string

const (
	AchievementWorkout   AchievementCategory = "workout"
	AchievementStreak    AchievementCategory = "streak"
	AchievementMilestone AchievementCategory = "milestone"
	AchievementChallenge AchievementCategory = "challenge"
	AchievementNutrition AchievementCategory = "nutrition"
)

type AchievementLevel string

const (
	LevelBronze   AchievementLevel = "bronze"
	LevelSilver   AchievementLevel = "silver"
	LevelGold     AchievementLevel = "gold"
	LevelPlatinum AchievementLevel = "platinum"
)

// AchievementState is a latch: Locked -> Completed, never back.
type AchievementState string

const (
	AchievementLocked    AchievementState = "locked"
	AchievementCompleted AchievementState = "completed"
)

// Achievement is a static threshold definition.
type Achievement struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    AchievementCategory `json:"category"`
	Requirement int64               `json:"requirement"`
	XP          int64               `json:"xp"`
	Level       AchievementLevel    `json:"level"`
}

// StatValue selects the stat an achievement is measured against.
// ok is false for achievements that no stat tracks (e.g. nutrition).
func (a Achievement) StatValue(s UserStats) (value int64, ok bool) {
	switch a.Category {
	case AchievementWorkout:
		return s.Workouts, true
	case AchievementStreak:
		return s.Streak, true
	case AchievementMilestone:
		if strings.HasPrefix(a.ID, "steps") {
			return s.TotalSteps, true
		}
	case AchievementChallenge:
		if strings.HasPrefix(a.ID, "mission") {
			return s.Missions, true
		}
	}
	return 0, false
}

// AchievementProgress is one achievement as seen by one user.
type AchievementProgress struct {
	Achievement
	CurrentProgress int64            `json:"current_progress"`
	State           AchievementState `json:"state"`
	Completed       bool             `json:"completed"`
	DateCompleted   *time.Time       `json:"date_completed,omitempty"`
}

// Observe feeds a new progress value. It returns true only on the
// Locked -> Completed edge; once completed, further values are ignored.
func (p *AchievementProgress) Observe(value int64, now time.Time) bool {
	if p.State == AchievementCompleted {
		return false
	}
	p.CurrentProgress = value
	if value < p.Requirement {
		return false
	}
	p.State = AchievementCompleted
	p.Completed = true
	p.DateCompleted = &now
	return true
}

// UserAchievement persists the latch once an achievement unlocks.
type UserAchievement struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"user_id"`
	AchievementID    string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	ProgressAtUnlock int64     `json:"progress_at_unlock"`
	XPAwarded        int64     `json:"xp_awarded"`
	UnlockedAt       time.Time `gorm:"not null" json:"unlocked_at"`
}

// AchievementCatalog is the static threshold table.
var AchievementCatalog = []Achievement{
	{ID: "workout-first", Title: "First Sweat", Description: "Complete your first workout", Category: AchievementWorkout, Requirement: 1, XP: 50, Level: LevelBronze},
	{ID: "workout-10", Title: "Getting Serious", Description: "Complete 10 workouts", Category: AchievementWorkout, Requirement: 10, XP: 150, Level: LevelSilver},
	{ID: "workout-50", Title: "Gym Regular", Description: "Complete 50 workouts", Category: AchievementWorkout, Requirement: 50, XP: 500, Level: LevelGold},
	{ID: "streak-3", Title: "On a Roll", Description: "Keep a 3 day streak", Category: AchievementStreak, Requirement: 3, XP: 75, Level: LevelBronze},
	{ID: "streak-7", Title: "Week Warrior", Description: "Keep a 7 day streak", Category: AchievementStreak, Requirement: 7, XP: 200, Level: LevelSilver},
	{ID: "streak-30", Title: "Unstoppable", Description: "Keep a 30 day streak", Category: AchievementStreak, Requirement: 30, XP: 1000, Level: LevelPlatinum},
	{ID: "steps-10k", Title: "First Ten Thousand", Description: "Walk 10,000 steps", Category: AchievementMilestone, Requirement: 10_000, XP: 100, Level: LevelBronze},
	{ID: "steps-100k", Title: "Trailblazer", Description: "Walk 100,000 steps", Category: AchievementMilestone, Requirement: 100_000, XP: 300, Level: LevelSilver},
	{ID: "steps-1m", Title: "Million Stepper", Description: "Walk 1,000,000 steps", Category: AchievementMilestone, Requirement: 1_000_000, XP: 1500, Level: LevelPlatinum},
	{ID: "mission-1", Title: "Mission Accomplished", Description: "Complete your first mission", Category: AchievementChallenge, Requirement: 1, XP: 50, Level: LevelBronze},
	{ID: "mission-10", Title: "Challenge Seeker", Description: "Complete 10 missions", Category: AchievementChallenge, Requirement: 10, XP: 250, Level: LevelSilver},
	{ID: "mission-25", Title: "Quest Master", Description: "Complete 25 missions", Category: AchievementChallenge, Requirement: 25, XP: 750, Level: LevelGold},
	{ID: "nutrition-week", Title: "Clean Plate", Description: "Log meals for 7 days", Category: AchievementNutrition, Requirement: 7, XP: 100, Level: LevelBronze},
}
