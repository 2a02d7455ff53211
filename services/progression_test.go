package services

import (
	"context"
	"math"
	"testing"
	"time"

	"fitquest-api/models"
	"fitquest-api/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplyXP(t *testing.T) {
	tests := []struct {
		name                 string
		level                int
		current, max, delta  int64
		wantLevel            int
		wantCurrent, wantMax int64
	}{
		{"no level up", 1, 100, 1000, 50, 1, 150, 1000},
		{"single rollover", 1, 950, 1000, 100, 2, 50, 1100},
		{"exact threshold", 1, 900, 1000, 100, 2, 0, 1100},
		{"multi level rollover", 1, 0, 100, 250, 3, 40, 121},
		{"zero delta", 4, 10, 500, 0, 4, 10, 500},
		{"negative delta is not floored", 2, 10, 1100, -30, 2, -20, 1100},
		{"zero max falls back to default", 1, 0, 0, 999, 1, 999, models.DefaultXPMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, current, max := ApplyXP(tt.level, tt.current, tt.max, tt.delta)
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantMax, max)
		})
	}
}

func TestApplyXPMaxNeverShrinks(t *testing.T) {
	level, current, max := 1, int64(0), int64(100)
	for i := 0; i < 50; i++ {
		prevMax := max
		level, current, max = ApplyXP(level, current, max, 97)
		assert.GreaterOrEqual(t, max, prevMax)
		assert.Less(t, current, max)
	}
	assert.Greater(t, level, 1)
}

func TestApplyXPSaturatesInsteadOfWrapping(t *testing.T) {
	level, current, max := ApplyXP(1, 10, 1000, math.MaxInt64)
	assert.Greater(t, level, 1)
	assert.GreaterOrEqual(t, current, int64(0))
	assert.Less(t, current, max)
	assert.Positive(t, max)

	level, current, max = ApplyXP(1, -10, 1000, math.MinInt64)
	assert.Equal(t, 1, level)
	assert.Equal(t, int64(math.MinInt64), current)
	assert.Equal(t, int64(1000), max)
}

func TestApplyXPGrowsTinyCeilings(t *testing.T) {
	level, current, max := ApplyXP(1, 0, 1, 10)
	assert.Equal(t, 5, level)
	assert.Equal(t, int64(0), current)
	assert.Equal(t, int64(5), max)
}

func TestTouchStreak(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	earlierToday := testNow.Add(-2 * time.Hour)
	lastWeek := testNow.AddDate(0, 0, -7)

	tests := []struct {
		name       string
		lastActive *time.Time
		streak     int64
		want       int64
	}{
		{"first activity", nil, 0, 1},
		{"same day keeps streak", &earlierToday, 4, 4},
		{"consecutive day extends", &yesterday, 4, 5},
		{"gap restarts", &lastWeek, 9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &models.User{LastActiveAt: tt.lastActive, Stats: models.UserStats{Streak: tt.streak}}
			touchStreak(u, testNow)
			assert.Equal(t, tt.want, u.Stats.Streak)
			require.NotNil(t, u.LastActiveAt)
		})
	}
}

func TestAwardXP(t *testing.T) {
	st := memstore.New()
	u := seedUser(t, st, func(u *models.User) { u.XP.Current = 950 })
	svc := NewProgressionService(st, zap.NewNop())
	svc.Now = clock(testNow)

	got, err := svc.AwardXP(context.Background(), u.ID, 100, "bonus")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, int64(50), got.XP.Current)
	assert.Equal(t, int64(1100), got.XP.Max)
	require.NotNil(t, got.LastLevelUpAt)

	stored, err := st.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Level)
}

func TestAwardXPRejectsBadInput(t *testing.T) {
	st := memstore.New()
	u := seedUser(t, st)
	svc := NewProgressionService(st, zap.NewNop())

	_, err := svc.AwardXP(context.Background(), u.ID, 0, "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "xp", ve.Field)

	_, err = svc.AwardXP(context.Background(), u.ID, maxRewardXP+1, "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "xp", ve.Field)

	_, err = svc.AwardXP(context.Background(), "not-a-uuid", 10, "")
	require.ErrorAs(t, err, &ve)

	_, err = svc.AwardXP(context.Background(), "6f1c1a34-5c59-4a4c-9d5e-1c0d7d4f0a11", 10, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResetStaleStreaks(t *testing.T) {
	st := memstore.New()
	yesterday := testNow.AddDate(0, 0, -1)
	threeDaysAgo := testNow.AddDate(0, 0, -3)

	active := seedUser(t, st, func(u *models.User) { u.Stats.Streak = 5; u.LastActiveAt = &yesterday })
	stale := seedUser(t, st, func(u *models.User) { u.Stats.Streak = 3; u.LastActiveAt = &threeDaysAgo })
	never := seedUser(t, st, func(u *models.User) { u.Stats.Streak = 2 })
	seedUser(t, st) // streak already zero

	svc := NewProgressionService(st, zap.NewNop())
	svc.Now = clock(testNow)

	n, err := svc.ResetStaleStreaks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[string]int64{active.ID: 5, stale.ID: 0, never.ID: 0} {
		u, err := st.GetUser(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, u.Stats.Streak)
	}
}
