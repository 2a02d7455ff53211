package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"fitquest-api/models"
	"fitquest-api/store/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	userID string
	name   string
	data   any
}

// recorder is a Notifier that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) Emit(userID, name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{userID: userID, name: name, data: data})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

func (r *recorder) count(name string) int {
	n := 0
	for _, got := range r.names() {
		if got == name {
			n++
		}
	}
	return n
}

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedUser(t *testing.T, st *memstore.Store, mutate ...func(*models.User)) *models.User {
	t.Helper()
	id := uuid.NewString()
	u := &models.User{
		ID:    id,
		Name:  "Test User",
		Email: id[:8] + "@example.com",
		Level: 1,
		XP:    models.XPProgress{Current: 0, Max: models.DefaultXPMax},
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func seedWorkout(t *testing.T, st *memstore.Store) *models.Workout {
	t.Helper()
	w := &models.Workout{
		ID:         uuid.NewString(),
		Title:      "Full Body Blast",
		Difficulty: models.WorkoutIntermediate,
		Duration:   30,
		Categories: []string{"strength"},
		Exercises:  []models.Exercise{{Name: "squat", Sets: 3, Reps: 12, RestSeconds: 60}},
	}
	require.NoError(t, st.CreateWorkout(context.Background(), w))
	return w
}

func ptr[T any](v T) *T {
	return &v
}
