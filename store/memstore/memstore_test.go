package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, email string) *models.User {
	return &models.User{ID: id, Name: "User " + id, Email: email, Level: 1, XP: models.XPProgress{Max: models.DefaultXPMax}}
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@example.com")))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	u.Name = "changed"
	u.Stats.Workouts = 99

	again, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "User u1", again.Name)
	assert.Zero(t, again.Stats.Workouts)
}

func TestWorkoutSlicesAreNotAliased(t *testing.T) {
	ctx := context.Background()
	s := New()
	w := &models.Workout{ID: "w1", Title: "Legs", Difficulty: models.WorkoutBeginner, Duration: 10, Categories: []string{"strength"}}
	require.NoError(t, s.CreateWorkout(ctx, w))
	w.Categories[0] = "mutated"

	got, err := s.GetWorkout(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"strength"}, []string(got.Categories))
	assert.Empty(t, got.CompletedBy)
}

func TestTransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@example.com")))

	err := s.Transaction(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, "u1")
		if err != nil {
			return err
		}
		u.Stats.Missions = 3
		return tx.SaveUser(ctx, u)
	})
	require.NoError(t, err)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, u.Stats.Missions)
}

func TestTransactionRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@example.com")))
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, "u1")
		if err != nil {
			return err
		}
		u.Stats.Missions = 3
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		if err := tx.CreateCompletedMission(ctx, &models.CompletedMission{ID: "c1", UserID: "u1", CompletionKey: "mission:m1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, u.Stats.Missions)
	ledger, err := s.ListCompletedMissions(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestNestedTransactionRunsInline(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.Transaction(ctx, func(tx store.Store) error {
		return tx.Transaction(ctx, func(inner store.Store) error {
			return inner.CreateUser(ctx, newUser("u1", "a@example.com"))
		})
	})
	require.NoError(t, err)
	_, err = s.GetUser(ctx, "u1")
	assert.NoError(t, err)
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@example.com")))
	require.NoError(t, s.CreateUser(ctx, newUser("u2", "b@example.com")))

	assert.ErrorIs(t, s.CreateUser(ctx, newUser("u3", "a@example.com")), store.ErrDuplicate)
	assert.ErrorIs(t, s.CreateUser(ctx, newUser("u1", "c@example.com")), store.ErrDuplicate)

	u2, err := s.GetUser(ctx, "u2")
	require.NoError(t, err)
	u2.Email = "a@example.com"
	assert.ErrorIs(t, s.SaveUser(ctx, u2), store.ErrDuplicate)

	cm := &models.CompletedMission{ID: "c1", UserID: "u1", CompletionKey: "mission:m1"}
	require.NoError(t, s.CreateCompletedMission(ctx, cm))
	assert.ErrorIs(t, s.CreateCompletedMission(ctx, &models.CompletedMission{ID: "c2", UserID: "u1", CompletionKey: "mission:m1"}), store.ErrDuplicate)

	ua := &models.UserAchievement{ID: "a1", UserID: "u1", AchievementID: "workout-first"}
	require.NoError(t, s.CreateUserAchievement(ctx, ua))
	assert.ErrorIs(t, s.CreateUserAchievement(ctx, &models.UserAchievement{ID: "a2", UserID: "u1", AchievementID: "workout-first"}), store.ErrDuplicate)
}

func TestMissionFiltersAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := "u1"
	require.NoError(t, s.CreateMission(ctx, &models.Mission{ID: "m1", Title: "A", IsActive: true, UserID: &owner}))
	require.NoError(t, s.CreateMission(ctx, &models.Mission{ID: "m2", Title: "B"}))

	active := true
	got, err := s.ListMissions(ctx, store.MissionFilter{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)

	got, err = s.ListMissions(ctx, store.MissionFilter{UserID: &owner})
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, s.DeleteMission(ctx, "m1"))
	assert.ErrorIs(t, s.DeleteMission(ctx, "m1"), store.ErrNotFound)
	_, err = s.GetMission(ctx, "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err = s.ListMissions(ctx, store.MissionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m2", got[0].ID)
}

func TestLedgerSinceAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateCompletedMission(ctx, &models.CompletedMission{ID: "c2", UserID: "u1", CompletionKey: "k2", CompletedAt: base.Add(48 * time.Hour)}))
	require.NoError(t, s.CreateCompletedMission(ctx, &models.CompletedMission{ID: "c1", UserID: "u1", CompletionKey: "k1", CompletedAt: base}))
	require.NoError(t, s.CreateCompletedMission(ctx, &models.CompletedMission{ID: "c3", UserID: "u2", CompletionKey: "k3", CompletedAt: base}))

	all, err := s.ListCompletedMissions(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c1", all[0].ID)
	assert.Equal(t, "c2", all[1].ID)

	recent, err := s.ListCompletedMissions(ctx, "u1", base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c2", recent[0].ID)
}

func TestWorkoutCompletionsAttach(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateWorkout(ctx, &models.Workout{ID: "w1", Title: "Legs", Difficulty: models.WorkoutBeginner, Duration: 10}))
	require.NoError(t, s.CreateWorkoutCompletion(ctx, &models.WorkoutCompletion{ID: "wc1", WorkoutID: "w1", UserID: "u1"}))
	assert.ErrorIs(t, s.CreateWorkoutCompletion(ctx, &models.WorkoutCompletion{ID: "wc2", WorkoutID: "missing", UserID: "u1"}), store.ErrNotFound)

	w, err := s.GetWorkout(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, w.CompletedBy, 1)
	assert.Equal(t, "wc1", w.CompletedBy[0].ID)
}

func TestSeededDataset(t *testing.T) {
	ctx := context.Background()
	s, err := NewSeeded()
	require.NoError(t, err)

	demo, err := s.GetUser(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, "demo@fitquest.app", demo.Email)
	assert.NotEmpty(t, demo.PasswordHash)

	missions, err := s.ListMissions(ctx, store.MissionFilter{})
	require.NoError(t, err)
	assert.Len(t, missions, 5)

	workouts, err := s.ListWorkouts(ctx, store.WorkoutFilter{Category: "strength"})
	require.NoError(t, err)
	assert.Len(t, workouts, 2)

	unlocked, err := s.ListUserAchievements(ctx, DemoUserID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "workout-first", unlocked[0].AchievementID)

	again, err := NewSeeded()
	require.NoError(t, err)
	_, err = again.GetUser(ctx, DemoUserID)
	assert.NoError(t, err, "seed ids are stable")
}
