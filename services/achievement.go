package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StatsObserver is told about a user's stats after a mutation commits.
type StatsObserver interface {
	StatsChanged(ctx context.Context, u *models.User)
}

type AchievementService struct {
	Store   store.Store
	Events  Notifier
	Logger  *zap.Logger
	Now     func() time.Time
	Catalog []models.Achievement
}

func NewAchievementService(st store.Store, events Notifier, logger *zap.Logger) *AchievementService {
	return &AchievementService{
		Store:   st,
		Events:  events,
		Logger:  logger.Named("achievements"),
		Now:     time.Now,
		Catalog: models.AchievementCatalog,
	}
}

// Unlock is the payload of an achievementUnlocked event.
type Unlock struct {
	Achievement models.AchievementProgress `json:"achievement"`
	Message     string                     `json:"message"`
	User        *models.User               `json:"user"`
}

func unlockMessage(a models.Achievement) string {
	// a Caser holds state, so one per call
	return cases.Title(language.English).String(string(a.Level)) + " achievement unlocked: " + a.Title
}

// view builds the per-user progress of every catalog entry. Unlocked
// entries keep the value they were latched at.
func (s *AchievementService) view(u *models.User, unlocked []models.UserAchievement) []models.AchievementProgress {
	byID := make(map[string]models.UserAchievement, len(unlocked))
	for _, ua := range unlocked {
		byID[ua.AchievementID] = ua
	}
	out := make([]models.AchievementProgress, 0, len(s.Catalog))
	for _, a := range s.Catalog {
		p := models.AchievementProgress{Achievement: a, State: models.AchievementLocked}
		if ua, ok := byID[a.ID]; ok {
			at := ua.UnlockedAt
			p.State = models.AchievementCompleted
			p.Completed = true
			p.DateCompleted = &at
			p.CurrentProgress = ua.ProgressAtUnlock
		} else if v, ok := a.StatValue(u.Stats); ok {
			p.CurrentProgress = v
		}
		out = append(out, p)
	}
	return out
}

// List returns the user's achievements without evaluating them.
func (s *AchievementService) List(ctx context.Context, userID string) ([]models.AchievementProgress, error) {
	if err := requireID("id", userID); err != nil {
		return nil, err
	}
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr("get user", "user", userID, err)
	}
	unlocked, err := s.Store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, storeErr("list achievements", "user", userID, err)
	}
	return s.view(u, unlocked), nil
}

// Evaluate feeds the user's current stats into every locked achievement
// and persists the ones that cross their requirement. Each unlock bumps
// stats.badges and awards the achievement XP in the same transaction.
func (s *AchievementService) Evaluate(ctx context.Context, userID string) ([]models.AchievementProgress, error) {
	if err := requireID("id", userID); err != nil {
		return nil, err
	}

	now := s.Now()
	var (
		unlocked []models.AchievementProgress
		user     *models.User
	)
	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		unlocked = nil
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return storeErr("load user", "user", userID, err)
		}
		existing, err := tx.ListUserAchievements(ctx, userID)
		if err != nil {
			return storeErr("list achievements", "user", userID, err)
		}

		for _, p := range s.view(u, existing) {
			value, tracked := p.StatValue(u.Stats)
			if !tracked || !p.Observe(value, now) {
				continue
			}
			ua := &models.UserAchievement{
				ID:               uuid.NewString(),
				UserID:           userID,
				AchievementID:    p.ID,
				ProgressAtUnlock: value,
				XPAwarded:        p.XP,
				UnlockedAt:       now,
			}
			if err := tx.CreateUserAchievement(ctx, ua); err != nil {
				return storeErr("record achievement", "user", userID, err)
			}
			u.Stats.Badges++
			applyXP(u, p.XP, now)
			unlocked = append(unlocked, p)
		}
		if len(unlocked) == 0 {
			return nil
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return storeErr("save user", "user", userID, err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range unlocked {
		s.Logger.Info("achievement unlocked",
			zap.String("user_id", userID),
			zap.String("achievement_id", p.ID),
			zap.Int64("xp", p.XP))
		s.Events.Emit(userID, EventAchievementUnlocked, Unlock{Achievement: p, Message: unlockMessage(p.Achievement), User: user})
	}
	return unlocked, nil
}

// statsSnapshot is the part of UserStats achievements are measured on.
// Badges is left out: an unlock changes it and must not retrigger.
type statsSnapshot struct {
	workouts, streak, steps, missions int64
}

func snapshotOf(s models.UserStats) statsSnapshot {
	return statsSnapshot{workouts: s.Workouts, streak: s.Streak, steps: s.TotalSteps, missions: s.Missions}
}

// AchievementWatcher evaluates a user only when the relevant stats differ
// from the last snapshot it saw.
type AchievementWatcher struct {
	Store     store.Store
	Evaluator *AchievementService
	Logger    *zap.Logger

	mu   sync.Mutex
	seen map[string]statsSnapshot
}

func NewAchievementWatcher(st store.Store, evaluator *AchievementService, logger *zap.Logger) *AchievementWatcher {
	return &AchievementWatcher{
		Store:     st,
		Evaluator: evaluator,
		Logger:    logger.Named("achievement-watcher"),
		seen:      make(map[string]statsSnapshot),
	}
}

// Observe evaluates u if its stats changed since the last call.
func (w *AchievementWatcher) Observe(ctx context.Context, u *models.User) ([]models.AchievementProgress, error) {
	snap := snapshotOf(u.Stats)
	w.mu.Lock()
	prev, ok := w.seen[u.ID]
	if ok && prev == snap {
		w.mu.Unlock()
		return nil, nil
	}
	w.seen[u.ID] = snap
	w.mu.Unlock()

	unlocked, err := w.Evaluator.Evaluate(ctx, u.ID)
	if err != nil {
		// evaluate again next time
		w.Forget(u.ID)
		return nil, err
	}
	return unlocked, nil
}

func (w *AchievementWatcher) StatsChanged(ctx context.Context, u *models.User) {
	if _, err := w.Observe(ctx, u); err != nil {
		w.Logger.Warn("achievement evaluation failed", zap.String("user_id", u.ID), zap.Error(err))
	}
}

// Poll observes every user once.
func (w *AchievementWatcher) Poll(ctx context.Context) (int, error) {
	users, err := w.Store.ListUsers(ctx)
	if err != nil {
		return 0, storeErr("list users", "user", "", err)
	}
	var errs []error
	unlocked := 0
	for i := range users {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		got, err := w.Observe(ctx, &users[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		unlocked += len(got)
	}
	return unlocked, errors.Join(errs...)
}

func (w *AchievementWatcher) Forget(userID string) {
	w.mu.Lock()
	delete(w.seen, userID)
	w.mu.Unlock()
}

func (w *AchievementWatcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
