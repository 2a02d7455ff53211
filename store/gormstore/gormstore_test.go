package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "fitquest.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testUser(id, email string) *models.User {
	return &models.User{ID: id, Name: "User " + id, Email: email, PasswordHash: "x", Level: 1, XP: models.XPProgress{Max: models.DefaultXPMax}}
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	u := testUser("u1", "a@example.com")
	u.Stats = models.UserStats{Streak: 2, Workouts: 5, TotalSteps: 1200}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u.Stats, got.Stats)
	assert.Equal(t, models.DefaultXPMax, got.XP.Max)

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.CreateUser(ctx, testUser("u1", "a@example.com")))
	assert.ErrorIs(t, s.CreateUser(ctx, testUser("u2", "a@example.com")), store.ErrDuplicate)
}

func TestCompletionKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Now().UTC()
	first := &models.CompletedMission{ID: "c1", UserID: "u1", MissionID: "m1", CompletionKey: models.MissionCompletionKey("m1"), Title: "t", XP: 10, CompletedAt: now}
	require.NoError(t, s.CreateCompletedMission(ctx, first))

	second := &models.CompletedMission{ID: "c2", UserID: "u1", MissionID: "m1", CompletionKey: models.MissionCompletionKey("m1"), Title: "t", XP: 10, CompletedAt: now}
	assert.ErrorIs(t, s.CreateCompletedMission(ctx, second), store.ErrDuplicate)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.CreateUser(ctx, testUser("u1", "a@example.com")))
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, "u1")
		if err != nil {
			return err
		}
		u.Stats.Missions = 7
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, u.Stats.Missions)

	err = s.Transaction(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, "u1")
		if err != nil {
			return err
		}
		u.Stats.Missions = 7
		return tx.SaveUser(ctx, u)
	})
	require.NoError(t, err)
	u, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, u.Stats.Missions)
}

func TestMissions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	owner := "u1"
	require.NoError(t, s.CreateMission(ctx, &models.Mission{ID: "m1", Title: "Run", Description: "d", Category: "cardio", Difficulty: models.DifficultyEasy, XP: 100, Duration: 3, IsActive: true, UserID: &owner, Status: models.MissionStatusActive}))
	require.NoError(t, s.CreateMission(ctx, &models.Mission{ID: "m2", Title: "Lift", Description: "d", Category: "strength", Difficulty: models.DifficultyHard, XP: 300, Duration: 7, Status: models.MissionStatusAvailable}))

	active := true
	got, err := s.ListMissions(ctx, store.MissionFilter{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)

	got, err = s.ListMissions(ctx, store.MissionFilter{UserID: &owner})
	require.NoError(t, err)
	require.Len(t, got, 1)

	m, err := s.LockMission(ctx, "m2")
	require.NoError(t, err)
	m.Progress = 50
	require.NoError(t, s.SaveMission(ctx, m))
	m, err = s.GetMission(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, 50, m.Progress)

	require.NoError(t, s.DeleteMission(ctx, "m2"))
	assert.ErrorIs(t, s.DeleteMission(ctx, "m2"), store.ErrNotFound)
	_, err = s.GetMission(ctx, "m2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkoutsWithCompletions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := &models.Workout{
		ID: "w1", Title: "HIIT", Difficulty: models.WorkoutIntermediate, Duration: 20,
		Categories: []string{"cardio", "hiit"},
		Exercises:  []models.Exercise{{Name: "Burpee", Sets: 3, Reps: 10, RestSeconds: 30}},
	}
	require.NoError(t, s.CreateWorkout(ctx, w))
	require.NoError(t, s.CreateWorkout(ctx, &models.Workout{ID: "w2", Title: "Lift", Difficulty: models.WorkoutAdvanced, Duration: 60, Categories: []string{"strength"}}))
	require.NoError(t, s.CreateWorkoutCompletion(ctx, &models.WorkoutCompletion{ID: "wc1", WorkoutID: "w1", UserID: "u1", CompletedAt: time.Now().UTC(), XPGained: 40, ExercisesCompleted: []string{"Burpee"}}))

	got, err := s.GetWorkout(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cardio", "hiit"}, []string(got.Categories))
	require.Len(t, got.Exercises, 1)
	assert.Equal(t, "Burpee", got.Exercises[0].Name)
	require.Len(t, got.CompletedBy, 1)
	assert.EqualValues(t, 40, got.CompletedBy[0].XPGained)

	list, err := s.ListWorkouts(ctx, store.WorkoutFilter{Category: "hiit"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "w1", list[0].ID)

	list, err = s.ListWorkouts(ctx, store.WorkoutFilter{Difficulty: models.WorkoutAdvanced})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "w2", list[0].ID)
}

func TestLedgerAndAchievements(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, key := range []string{"k1", "k2", "k3"} {
		require.NoError(t, s.CreateCompletedMission(ctx, &models.CompletedMission{
			ID: key, UserID: "u1", MissionID: "m", CompletionKey: key, Title: "t", XP: 10,
			CompletedAt: base.AddDate(0, 0, i),
		}))
	}
	recent, err := s.ListCompletedMissions(ctx, "u1", base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "k2", recent[0].ID)

	require.NoError(t, s.CreateUserAchievement(ctx, &models.UserAchievement{ID: "a1", UserID: "u1", AchievementID: "workout-first", ProgressAtUnlock: 1, XPAwarded: 50, UnlockedAt: base}))
	assert.ErrorIs(t, s.CreateUserAchievement(ctx, &models.UserAchievement{ID: "a2", UserID: "u1", AchievementID: "workout-first", UnlockedAt: base}), store.ErrDuplicate)

	unlocked, err := s.ListUserAchievements(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.EqualValues(t, 1, unlocked[0].ProgressAtUnlock)
}
