package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePoller struct {
	calls    atomic.Int32
	unlocked int
	err      error
}

func (f *fakePoller) Poll(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return f.unlocked, f.err
}

type fakeStreaks struct {
	calls atomic.Int32
	reset int
	err   error
}

func (f *fakeStreaks) ResetStaleStreaks(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.reset, f.err
}

func newTestScheduler(t *testing.T, poller AchievementPoller, streaks StreakResetter, opts Options, logger *zap.Logger) *Scheduler {
	t.Helper()
	s, err := NewScheduler(poller, streaks, opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestNewSchedulerRegistersJobs(t *testing.T) {
	s := newTestScheduler(t, &fakePoller{}, &fakeStreaks{}, Options{PollInterval: time.Minute, StreakResetAt: "00:05"}, zap.NewNop())
	assert.ElementsMatch(t, []string{"achievement-poll", "streak-reset"}, s.JobNames())
}

func TestNewSchedulerRejectsBadOptions(t *testing.T) {
	_, err := NewScheduler(&fakePoller{}, &fakeStreaks{}, Options{PollInterval: time.Minute, StreakResetAt: "noon"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewScheduler(&fakePoller{}, &fakeStreaks{}, Options{StreakResetAt: "00:05"}, zap.NewNop())
	assert.Error(t, err)
}

func TestJobsLogOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	poller := &fakePoller{unlocked: 2}
	streaks := &fakeStreaks{err: errors.New("db down")}
	s := newTestScheduler(t, poller, streaks, Options{PollInterval: time.Minute, StreakResetAt: "00:05"}, zap.New(core))

	s.pollAchievements(context.Background())
	s.resetStreaks(context.Background())

	assert.EqualValues(t, 1, poller.calls.Load())
	assert.EqualValues(t, 1, streaks.calls.Load())
	assert.Equal(t, 1, logs.FilterMessage("achievement poll").Len())
	failed := logs.FilterMessage("streak reset failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
}

func TestPollRunsOnInterval(t *testing.T) {
	poller := &fakePoller{}
	s := newTestScheduler(t, poller, &fakeStreaks{}, Options{PollInterval: 20 * time.Millisecond, StreakResetAt: "00:05"}, zap.NewNop())
	s.Start()

	assert.Eventually(t, func() bool { return poller.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
