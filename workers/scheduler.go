package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type AchievementPoller interface {
	Poll(ctx context.Context) (int, error)
}

type StreakResetter interface {
	ResetStaleStreaks(ctx context.Context) (int, error)
}

type Options struct {
	PollInterval  time.Duration
	StreakResetAt string // HH:MM
	JobTimeout    time.Duration
}

// Scheduler runs the background jobs: achievement polling and the daily
// streak reset. Each job is singleton; an overrunning run is skipped, not queued.
type Scheduler struct {
	sched   gocron.Scheduler
	poller  AchievementPoller
	streaks StreakResetter
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(poller AchievementPoller, streaks StreakResetter, opts Options, logger *zap.Logger, schedOpts ...gocron.SchedulerOption) (*Scheduler, error) {
	at, err := time.Parse("15:04", opts.StreakResetAt)
	if err != nil {
		return nil, fmt.Errorf("streak reset time: %w", err)
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}

	sched, err := gocron.NewScheduler(schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Scheduler{
		sched:   sched,
		poller:  poller,
		streaks: streaks,
		timeout: opts.JobTimeout,
		logger:  logger.Named("scheduler"),
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(opts.PollInterval),
		gocron.NewTask(s.pollAchievements),
		gocron.WithName("achievement-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("schedule achievement poll: %w", err)
	}

	if _, err := sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(at.Hour()), uint(at.Minute()), 0))),
		gocron.NewTask(s.resetStreaks),
		gocron.WithName("streak-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("schedule streak reset: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.sched.Jobs())))
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) pollAchievements(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	unlocked, err := s.poller.Poll(ctx)
	if err != nil {
		s.logger.Warn("achievement poll failed", zap.Int("unlocked", unlocked), zap.Error(err))
		return
	}
	if unlocked > 0 {
		s.logger.Info("achievement poll", zap.Int("unlocked", unlocked))
	}
}

func (s *Scheduler) resetStreaks(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reset, err := s.streaks.ResetStaleStreaks(ctx)
	if err != nil {
		s.logger.Error("streak reset failed", zap.Int("reset", reset), zap.Error(err))
		return
	}
	s.logger.Info("streaks reset", zap.Int("users", reset))
}
