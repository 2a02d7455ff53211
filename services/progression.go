package services

import (
	"context"
	"math"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"go.uber.org/zap"
)

// LevelGrowth is the factor xp.max grows by on every level gained.
const LevelGrowth = 1.1

// maxRewardXP caps a single XP reward (mission, workout or grant).
const maxRewardXP int64 = 1_000_000

// ApplyXP adds delta to the current level's XP and rolls over as many
// levels as the total covers. Each level-up subtracts the old ceiling and
// raises the ceiling by LevelGrowth (rounded). Negative deltas are applied
// as-is: current may drop below zero. A sum past the int64 range
// saturates instead of wrapping.
func ApplyXP(level int, current, max, delta int64) (newLevel int, newCurrent, newMax int64) {
	if max <= 0 {
		max = models.DefaultXPMax
	}
	var total int64
	switch {
	case delta > 0 && current > math.MaxInt64-delta:
		total = math.MaxInt64
	case delta < 0 && current < math.MinInt64-delta:
		total = math.MinInt64
	default:
		total = current + delta
	}
	for total >= max {
		level++
		total -= max
		max = nextLevelMax(max)
	}
	return level, total, max
}

func nextLevelMax(max int64) int64 {
	next := math.Round(float64(max) * LevelGrowth)
	if next >= math.MaxInt64 {
		return math.MaxInt64
	}
	if int64(next) <= max {
		// tiny ceilings would otherwise never grow
		return max + 1
	}
	return int64(next)
}

func checkReward(field string, xp int64) error {
	if xp > maxRewardXP {
		return invalid(field, "must be at most %d", maxRewardXP)
	}
	return nil
}

// applyXP runs ApplyXP on a user record and returns the levels gained.
func applyXP(u *models.User, delta int64, now time.Time) int {
	before := u.Level
	u.Level, u.XP.Current, u.XP.Max = ApplyXP(u.Level, u.XP.Current, u.XP.Max, delta)
	if u.Level > before {
		u.LastLevelUpAt = &now
	}
	return u.Level - before
}

// touchStreak records activity on now's calendar day. Consecutive days
// extend the streak; a gap restarts it at 1.
func touchStreak(u *models.User, now time.Time) {
	today := dayStart(now)
	if u.LastActiveAt != nil {
		last := dayStart(*u.LastActiveAt)
		switch {
		case last.Equal(today):
			return
		case last.Equal(today.AddDate(0, 0, -1)):
			u.Stats.Streak++
		default:
			u.Stats.Streak = 1
		}
	} else {
		u.Stats.Streak = 1
	}
	u.LastActiveAt = &now
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type ProgressionService struct {
	Store  store.Store
	Logger *zap.Logger
	Now    func() time.Time
}

func NewProgressionService(st store.Store, logger *zap.Logger) *ProgressionService {
	return &ProgressionService{Store: st, Logger: logger.Named("progression"), Now: time.Now}
}

// AwardXP atomically updates XP and level; returns the updated user.
func (s *ProgressionService) AwardXP(ctx context.Context, userID string, xp int64, reason string) (*models.User, error) {
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}
	if xp <= 0 {
		return nil, invalid("xp", "must be greater than 0")
	}
	if err := checkReward("xp", xp); err != nil {
		return nil, err
	}

	var updated *models.User
	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return storeErr("load user", "user", userID, err)
		}
		gained := applyXP(u, xp, s.Now())
		if err := tx.SaveUser(ctx, u); err != nil {
			return storeErr("save user", "user", userID, err)
		}
		updated = u
		s.Logger.Info("xp awarded",
			zap.String("user_id", userID),
			zap.Int64("xp", xp),
			zap.Int("level", u.Level),
			zap.Int("levels_gained", gained),
			zap.String("reason", reason))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ResetStaleStreaks zeroes the streak of every user whose last activity
// is older than yesterday. Returns how many users were reset.
func (s *ProgressionService) ResetStaleStreaks(ctx context.Context) (int, error) {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return 0, storeErr("list users", "user", "", err)
	}
	cutoff := dayStart(s.Now()).AddDate(0, 0, -1)
	reset := 0
	for _, candidate := range users {
		if candidate.Stats.Streak == 0 || !stale(candidate.LastActiveAt, cutoff) {
			continue
		}
		zeroed := false
		err := s.Store.Transaction(ctx, func(tx store.Store) error {
			u, err := tx.LockUser(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// re-check under the lock; the user may have been active meanwhile
			if u.Stats.Streak == 0 || !stale(u.LastActiveAt, cutoff) {
				return nil
			}
			u.Stats.Streak = 0
			zeroed = true
			return tx.SaveUser(ctx, u)
		})
		if err != nil {
			return reset, storeErr("reset streak", "user", candidate.ID, err)
		}
		if zeroed {
			reset++
		}
	}
	return reset, nil
}

func stale(lastActive *time.Time, cutoff time.Time) bool {
	return lastActive == nil || lastActive.Before(cutoff)
}
