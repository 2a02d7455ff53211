package services

import (
	"context"
	"strings"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WorkoutService struct {
	Store  store.Store
	Events Notifier
	Stats  StatsObserver // optional
	Logger *zap.Logger
	Now    func() time.Time
}

func NewWorkoutService(st store.Store, events Notifier, logger *zap.Logger) *WorkoutService {
	return &WorkoutService{Store: st, Events: events, Logger: logger.Named("workouts"), Now: time.Now}
}

type CreateWorkoutInput struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Difficulty  models.WorkoutDifficulty `json:"difficulty"`
	Duration    int                      `json:"duration"`
	Categories  []string                 `json:"categories"`
	Exercises   []models.Exercise        `json:"exercises"`
}

// WorkoutPatch updates template fields. Completed with UserID records a
// completion for that user instead of editing the template.
type WorkoutPatch struct {
	Title       *string                   `json:"title"`
	Description *string                   `json:"description"`
	Difficulty  *models.WorkoutDifficulty `json:"difficulty"`
	Duration    *int                      `json:"duration"`
	Categories  *[]string                 `json:"categories"`
	Exercises   *[]models.Exercise        `json:"exercises"`
	Completed   bool                      `json:"completed"`
	UserID      string                    `json:"user_id"`
	XPGained    int64                     `json:"xp_gained"`
}

type CompleteWorkoutInput struct {
	WorkoutID          string   `json:"workout_id"`
	UserID             string   `json:"user_id"`
	XPGained           int64    `json:"xp_gained"`
	ExercisesCompleted []string `json:"exercises_completed"`
}

type WorkoutCompletionResult struct {
	Workout    *models.Workout           `json:"workout"`
	Completion *models.WorkoutCompletion `json:"completion"`
	Ledger     *models.CompletedMission  `json:"completed_mission"`
	User       *models.User              `json:"user"`
}

func normalizeCategories(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		n, err := normalizeCategory(c)
		if err != nil {
			return nil, invalid("categories", "must not contain empty tags")
		}
		// first spelling of a tag wins
		if key := models.CategoryKey(n); !seen[key] {
			seen[key] = true
			out = append(out, n)
		}
	}
	return out, nil
}

func validateExercises(exercises []models.Exercise) error {
	for i, e := range exercises {
		if strings.TrimSpace(e.Name) == "" {
			return invalid("exercises", "exercise %d needs a name", i)
		}
		if e.Sets < 0 || e.Reps < 0 || e.RestSeconds < 0 {
			return invalid("exercises", "exercise %d has a negative value", i)
		}
	}
	return nil
}

func (s *WorkoutService) List(ctx context.Context, f store.WorkoutFilter) ([]models.Workout, error) {
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return nil, invalid("difficulty", "must be one of beginner, intermediate, advanced")
	}
	if f.Category != "" {
		c, err := normalizeCategory(f.Category)
		if err != nil {
			return nil, err
		}
		f.Category = c
	}
	workouts, err := s.Store.ListWorkouts(ctx, f)
	if err != nil {
		return nil, storeErr("list workouts", "workout", "", err)
	}
	return workouts, nil
}

func (s *WorkoutService) Get(ctx context.Context, id string) (*models.Workout, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	w, err := s.Store.GetWorkout(ctx, id)
	if err != nil {
		return nil, storeErr("get workout", "workout", id, err)
	}
	return w, nil
}

func (s *WorkoutService) Create(ctx context.Context, in CreateWorkoutInput) (*models.Workout, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if !in.Difficulty.Valid() {
		return nil, invalid("difficulty", "must be one of beginner, intermediate, advanced")
	}
	if in.Duration <= 0 {
		return nil, invalid("duration", "must be greater than 0")
	}
	categories, err := normalizeCategories(in.Categories)
	if err != nil {
		return nil, err
	}
	if err := validateExercises(in.Exercises); err != nil {
		return nil, err
	}

	w := &models.Workout{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Difficulty:  in.Difficulty,
		Duration:    in.Duration,
		Categories:  categories,
		Exercises:   in.Exercises,
	}
	if err := s.Store.CreateWorkout(ctx, w); err != nil {
		return nil, storeErr("create workout", "workout", w.ID, err)
	}
	s.Logger.Info("workout created", zap.String("workout_id", w.ID))
	return w, nil
}

// Update edits the template, or records a completion when the patch says
// completed=true for a user.
func (s *WorkoutService) Update(ctx context.Context, id string, patch WorkoutPatch) (*models.Workout, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	if patch.Completed {
		res, err := s.Complete(ctx, CompleteWorkoutInput{WorkoutID: id, UserID: patch.UserID, XPGained: patch.XPGained})
		if err != nil {
			return nil, err
		}
		return res.Workout, nil
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, invalid("title", "must not be empty")
	}
	if patch.Difficulty != nil && !patch.Difficulty.Valid() {
		return nil, invalid("difficulty", "must be one of beginner, intermediate, advanced")
	}
	if patch.Duration != nil && *patch.Duration <= 0 {
		return nil, invalid("duration", "must be greater than 0")
	}
	var categories []string
	if patch.Categories != nil {
		var err error
		if categories, err = normalizeCategories(*patch.Categories); err != nil {
			return nil, err
		}
	}
	if patch.Exercises != nil {
		if err := validateExercises(*patch.Exercises); err != nil {
			return nil, err
		}
	}

	w, err := s.Store.GetWorkout(ctx, id)
	if err != nil {
		return nil, storeErr("get workout", "workout", id, err)
	}
	if patch.Title != nil {
		w.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		w.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Difficulty != nil {
		w.Difficulty = *patch.Difficulty
	}
	if patch.Duration != nil {
		w.Duration = *patch.Duration
	}
	if patch.Categories != nil {
		w.Categories = categories
	}
	if patch.Exercises != nil {
		w.Exercises = *patch.Exercises
	}
	if err := s.Store.SaveWorkout(ctx, w); err != nil {
		return nil, storeErr("save workout", "workout", id, err)
	}
	return w, nil
}

// Complete appends a completion to the workout and a ledger row, bumps the
// user's workout count and streak, and awards XPGained, all in one
// transaction.
func (s *WorkoutService) Complete(ctx context.Context, in CompleteWorkoutInput) (*WorkoutCompletionResult, error) {
	if err := requireID("workout_id", in.WorkoutID); err != nil {
		return nil, err
	}
	if err := requireID("user_id", in.UserID); err != nil {
		return nil, err
	}
	if in.XPGained < 0 {
		return nil, invalid("xp_gained", "must not be negative")
	}
	if err := checkReward("xp_gained", in.XPGained); err != nil {
		return nil, err
	}

	now := s.Now()
	res := &WorkoutCompletionResult{}
	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		w, err := tx.GetWorkout(ctx, in.WorkoutID)
		if err != nil {
			return storeErr("get workout", "workout", in.WorkoutID, err)
		}
		u, err := tx.LockUser(ctx, in.UserID)
		if err != nil {
			return storeErr("load user", "user", in.UserID, err)
		}

		wc := &models.WorkoutCompletion{
			ID:                 uuid.NewString(),
			WorkoutID:          w.ID,
			UserID:             u.ID,
			CompletedAt:        now,
			XPGained:           in.XPGained,
			ExercisesCompleted: append([]string{}, in.ExercisesCompleted...),
		}
		if err := tx.CreateWorkoutCompletion(ctx, wc); err != nil {
			return storeErr("record workout completion", "workout", w.ID, err)
		}
		category := ""
		if len(w.Categories) > 0 {
			category = w.Categories[0]
		}
		cm := &models.CompletedMission{
			ID:            uuid.NewString(),
			UserID:        u.ID,
			MissionID:     w.ID,
			Source:        models.CompletionSourceWorkout,
			CompletionKey: models.WorkoutCompletionKey(wc.ID),
			Title:         w.Title,
			Description:   w.Description,
			Difficulty:    string(w.Difficulty),
			XP:            in.XPGained,
			Category:      category,
			CompletedAt:   now,
		}
		if err := tx.CreateCompletedMission(ctx, cm); err != nil {
			return storeErr("record completion", "workout", w.ID, err)
		}

		u.Stats.Workouts++
		touchStreak(u, now)
		if in.XPGained > 0 {
			applyXP(u, in.XPGained, now)
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return storeErr("save user", "user", u.ID, err)
		}

		w.CompletedBy = append(w.CompletedBy, *wc)
		res.Workout, res.Completion, res.Ledger, res.User = w, wc, cm, u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("workout completed",
		zap.String("workout_id", in.WorkoutID),
		zap.String("user_id", in.UserID),
		zap.Int64("xp", in.XPGained),
		zap.Int64("workouts", res.User.Stats.Workouts))
	s.Events.Emit(in.UserID, EventWorkoutCompleted, res)
	if s.Stats != nil {
		s.Stats.StatsChanged(ctx, res.User)
	}
	return res, nil
}
