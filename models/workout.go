package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
)

type WorkoutDifficulty string

const (
	WorkoutBeginner     WorkoutDifficulty = "beginner"
	WorkoutIntermediate WorkoutDifficulty = "intermediate"
	WorkoutAdvanced     WorkoutDifficulty = "advanced"
)

func (d WorkoutDifficulty) Valid() bool {
	switch d {
	case WorkoutBeginner, WorkoutIntermediate, WorkoutAdvanced:
		return true
	}
	return false
}

type Exercise struct {
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	Reps        int    `json:"reps"`
	RestSeconds int    `json:"rest_seconds"`
}

type Workout struct {
	ID          string                        `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string                        `gorm:"not null" json:"title"`
	Description string                        `gorm:"type:text" json:"description,omitempty"`
	Difficulty  WorkoutDifficulty             `gorm:"type:varchar(16);index;not null" json:"difficulty"`
	Duration    int                           `gorm:"not null" json:"duration"` // minutes
	Categories  datatypes.JSONSlice[string]   `json:"categories"`
	Exercises   datatypes.JSONSlice[Exercise] `json:"exercises"`
	CompletedBy []WorkoutCompletion           `gorm:"foreignKey:WorkoutID" json:"completed_by"`

	Timestamps
}

// CategoryKey folds a category tag to the form used for matching, so
// "Strength & Conditioning" and "strength-and-conditioning" compare equal.
// Stored tags keep the caller's spelling.
func CategoryKey(tag string) string {
	return slug.Make(strings.TrimSpace(tag))
}

// HasCategory reports whether the workout carries a tag whose key matches
// category's.
func (w *Workout) HasCategory(category string) bool {
	key := CategoryKey(category)
	if key == "" {
		return false
	}
	for _, c := range w.Categories {
		if CategoryKey(c) == key {
			return true
		}
	}
	return false
}

// WorkoutCompletion is an immutable entry in Workout.CompletedBy.
type WorkoutCompletion struct {
	ID                 string                      `gorm:"primaryKey;type:uuid" json:"id"`
	WorkoutID          string                      `gorm:"index;not null" json:"workout_id"`
	UserID             string                      `gorm:"index;not null" json:"user_id"`
	CompletedAt        time.Time                   `gorm:"not null" json:"completed_at"`
	XPGained           int64                       `gorm:"not null;default:0" json:"xp_gained"`
	ExercisesCompleted datatypes.JSONSlice[string] `json:"exercises_completed"`
}
