// Package memstore is the in-memory store.Store used for mock mode and tests.
//
// Reads return copies, so callers never alias stored records. A transaction
// runs against a private clone of the dataset and swaps it in on success, which
// gives the same all-or-nothing behaviour as the database adapter.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"
)

type dataset struct {
	users        map[string]models.User
	userOrder    []string
	missions     map[string]models.Mission
	missionOrder []string
	workouts     map[string]models.Workout
	workoutOrder []string
	ledger       []models.CompletedMission
	completions  []models.WorkoutCompletion
	achievements []models.UserAchievement
}

func newDataset() *dataset {
	return &dataset{
		users:    make(map[string]models.User),
		missions: make(map[string]models.Mission),
		workouts: make(map[string]models.Workout),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:        make(map[string]models.User, len(d.users)),
		userOrder:    slices.Clone(d.userOrder),
		missions:     make(map[string]models.Mission, len(d.missions)),
		missionOrder: slices.Clone(d.missionOrder),
		workouts:     make(map[string]models.Workout, len(d.workouts)),
		workoutOrder: slices.Clone(d.workoutOrder),
		ledger:       slices.Clone(d.ledger),
		completions:  slices.Clone(d.completions),
		achievements: slices.Clone(d.achievements),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.missions {
		c.missions[k] = v
	}
	for k, v := range d.workouts {
		c.workouts[k] = cloneWorkout(v)
	}
	return c
}

func cloneWorkout(w models.Workout) models.Workout {
	w.Categories = slices.Clone(w.Categories)
	w.Exercises = slices.Clone(w.Exercises)
	w.CompletedBy = nil
	return w
}

type Store struct {
	mu   *sync.RWMutex // nil inside a transaction view
	data *dataset
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newDataset(), now: time.Now}
}

func (s *Store) rlock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	if s.mu == nil {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{data: s.data.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func stamp(ts *models.Timestamps, now time.Time, creating bool) {
	if creating && ts.CreatedAt.IsZero() {
		ts.CreatedAt = now
	}
	ts.UpdatedAt = now
}

// --- missions ---

func (s *Store) ListMissions(ctx context.Context, f store.MissionFilter) ([]models.Mission, error) {
	defer s.rlock()()
	out := []models.Mission{}
	for _, id := range s.data.missionOrder {
		m := s.data.missions[id]
		if f.Match(&m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	defer s.rlock()()
	m, ok := s.data.missions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

// LockMission is GetMission: transactions are already serialized.
func (s *Store) LockMission(ctx context.Context, id string) (*models.Mission, error) {
	return s.GetMission(ctx, id)
}

func (s *Store) CreateMission(ctx context.Context, m *models.Mission) error {
	defer s.lock()()
	if _, ok := s.data.missions[m.ID]; ok {
		return store.ErrDuplicate
	}
	stamp(&m.Timestamps, s.now(), true)
	s.data.missions[m.ID] = *m
	s.data.missionOrder = append(s.data.missionOrder, m.ID)
	return nil
}

func (s *Store) SaveMission(ctx context.Context, m *models.Mission) error {
	defer s.lock()()
	if _, ok := s.data.missions[m.ID]; !ok {
		s.data.missionOrder = append(s.data.missionOrder, m.ID)
	}
	stamp(&m.Timestamps, s.now(), true)
	s.data.missions[m.ID] = *m
	return nil
}

func (s *Store) DeleteMission(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.missions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.missions, id)
	s.data.missionOrder = slices.DeleteFunc(s.data.missionOrder, func(v string) bool { return v == id })
	return nil
}

// --- completion ledger ---

func (s *Store) CreateCompletedMission(ctx context.Context, cm *models.CompletedMission) error {
	defer s.lock()()
	for _, existing := range s.data.ledger {
		if existing.CompletionKey == cm.CompletionKey || existing.ID == cm.ID {
			return store.ErrDuplicate
		}
	}
	s.data.ledger = append(s.data.ledger, *cm)
	return nil
}

func (s *Store) ListCompletedMissions(ctx context.Context, userID string, since time.Time) ([]models.CompletedMission, error) {
	defer s.rlock()()
	out := []models.CompletedMission{}
	for _, cm := range s.data.ledger {
		if cm.UserID != userID {
			continue
		}
		if !since.IsZero() && cm.CompletedAt.Before(since) {
			continue
		}
		out = append(out, cm)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

// --- users ---

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	defer s.rlock()()
	out := make([]models.User, 0, len(s.data.userOrder))
	for _, id := range s.data.userOrder {
		out = append(out, s.data.users[id])
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	defer s.rlock()()
	u, ok := s.data.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.rlock()()
	for _, id := range s.data.userOrder {
		if u := s.data.users[id]; u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) LockUser(ctx context.Context, id string) (*models.User, error) {
	return s.GetUser(ctx, id)
}

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, u := range s.data.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	defer s.lock()()
	if _, ok := s.data.users[u.ID]; ok || s.emailTaken(u.Email, "") {
		return store.ErrDuplicate
	}
	stamp(&u.Timestamps, s.now(), true)
	s.data.users[u.ID] = *u
	s.data.userOrder = append(s.data.userOrder, u.ID)
	return nil
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	defer s.lock()()
	if s.emailTaken(u.Email, u.ID) {
		return store.ErrDuplicate
	}
	if _, ok := s.data.users[u.ID]; !ok {
		s.data.userOrder = append(s.data.userOrder, u.ID)
	}
	stamp(&u.Timestamps, s.now(), true)
	s.data.users[u.ID] = *u
	return nil
}

// --- workouts ---

func (s *Store) withCompletions(w models.Workout) models.Workout {
	w = cloneWorkout(w)
	w.CompletedBy = []models.WorkoutCompletion{}
	for _, wc := range s.data.completions {
		if wc.WorkoutID == w.ID {
			wc.ExercisesCompleted = slices.Clone(wc.ExercisesCompleted)
			w.CompletedBy = append(w.CompletedBy, wc)
		}
	}
	return w
}

func (s *Store) ListWorkouts(ctx context.Context, f store.WorkoutFilter) ([]models.Workout, error) {
	defer s.rlock()()
	out := []models.Workout{}
	for _, id := range s.data.workoutOrder {
		w := s.data.workouts[id]
		if f.Match(&w) {
			out = append(out, s.withCompletions(w))
		}
	}
	return out, nil
}

func (s *Store) GetWorkout(ctx context.Context, id string) (*models.Workout, error) {
	defer s.rlock()()
	w, ok := s.data.workouts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	w = s.withCompletions(w)
	return &w, nil
}

func (s *Store) CreateWorkout(ctx context.Context, w *models.Workout) error {
	defer s.lock()()
	if _, ok := s.data.workouts[w.ID]; ok {
		return store.ErrDuplicate
	}
	stamp(&w.Timestamps, s.now(), true)
	s.data.workouts[w.ID] = cloneWorkout(*w)
	s.data.workoutOrder = append(s.data.workoutOrder, w.ID)
	return nil
}

func (s *Store) SaveWorkout(ctx context.Context, w *models.Workout) error {
	defer s.lock()()
	if _, ok := s.data.workouts[w.ID]; !ok {
		s.data.workoutOrder = append(s.data.workoutOrder, w.ID)
	}
	stamp(&w.Timestamps, s.now(), true)
	s.data.workouts[w.ID] = cloneWorkout(*w)
	return nil
}

func (s *Store) CreateWorkoutCompletion(ctx context.Context, wc *models.WorkoutCompletion) error {
	defer s.lock()()
	if _, ok := s.data.workouts[wc.WorkoutID]; !ok {
		return store.ErrNotFound
	}
	entry := *wc
	entry.ExercisesCompleted = slices.Clone(wc.ExercisesCompleted)
	s.data.completions = append(s.data.completions, entry)
	return nil
}

// --- achievements ---

func (s *Store) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	defer s.rlock()()
	out := []models.UserAchievement{}
	for _, ua := range s.data.achievements {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	return out, nil
}

func (s *Store) CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	defer s.lock()()
	for _, existing := range s.data.achievements {
		if existing.UserID == ua.UserID && existing.AchievementID == ua.AchievementID {
			return store.ErrDuplicate
		}
	}
	s.data.achievements = append(s.data.achievements, *ua)
	return nil
}
