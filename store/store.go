// Package store defines the data-access port the services depend on.
// gormstore is the live adapter, memstore the in-memory mock dataset.
package store

import (
	"context"
	"errors"
	"time"

	"fitquest-api/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type MissionFilter struct {
	IsActive *bool
	UserID   *string
}

func (f MissionFilter) Match(m *models.Mission) bool {
	if f.IsActive != nil && m.IsActive != *f.IsActive {
		return false
	}
	if f.UserID != nil && m.OwnerID() != *f.UserID {
		return false
	}
	return true
}

type WorkoutFilter struct {
	Difficulty models.WorkoutDifficulty
	Category   string
}

func (f WorkoutFilter) Match(w *models.Workout) bool {
	if f.Difficulty != "" && w.Difficulty != f.Difficulty {
		return false
	}
	if f.Category != "" && !w.HasCategory(f.Category) {
		return false
	}
	return true
}

// Store is implemented by every data source. Lock* variants take a row
// lock for the rest of the enclosing transaction.
type Store interface {
	// Transaction runs fn against a transactional view; any error rolls back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	ListMissions(ctx context.Context, f MissionFilter) ([]models.Mission, error)
	GetMission(ctx context.Context, id string) (*models.Mission, error)
	LockMission(ctx context.Context, id string) (*models.Mission, error)
	CreateMission(ctx context.Context, m *models.Mission) error
	SaveMission(ctx context.Context, m *models.Mission) error
	DeleteMission(ctx context.Context, id string) error

	CreateCompletedMission(ctx context.Context, cm *models.CompletedMission) error
	ListCompletedMissions(ctx context.Context, userID string, since time.Time) ([]models.CompletedMission, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	LockUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SaveUser(ctx context.Context, u *models.User) error

	ListWorkouts(ctx context.Context, f WorkoutFilter) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id string) (*models.Workout, error)
	CreateWorkout(ctx context.Context, w *models.Workout) error
	SaveWorkout(ctx context.Context, w *models.Workout) error
	CreateWorkoutCompletion(ctx context.Context, wc *models.WorkoutCompletion) error

	ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error)
	CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error
}
