package services

import (
	"context"
	"math"
	"sync"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"go.uber.org/zap"
)

const (
	DefaultStepThreshold = 10.0
	DefaultStepCooldown  = 250 * time.Millisecond

	maxSamplesPerBatch = 10_000
	maxDirectSteps     = 100_000
)

type Vector struct {
	X, Y, Z float64
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// StepDetector counts steps in an accelerometer stream (gravity included).
// A step is a jump larger than Threshold from the previous sample, at least
// Cooldown after the last step. Not safe for concurrent use.
type StepDetector struct {
	Threshold float64
	Cooldown  time.Duration

	last     Vector
	lastStep time.Time
}

func NewStepDetector(threshold float64, cooldown time.Duration) *StepDetector {
	if threshold <= 0 {
		threshold = DefaultStepThreshold
	}
	if cooldown < 0 {
		cooldown = DefaultStepCooldown
	}
	return &StepDetector{Threshold: threshold, Cooldown: cooldown}
}

// Feed processes one sample taken at `at` and reports whether it is a step.
func (d *StepDetector) Feed(current Vector, at time.Time) bool {
	delta := current.Sub(d.last).Norm()
	d.last = current

	if delta <= d.Threshold {
		return false
	}
	if !d.lastStep.IsZero() && at.Sub(d.lastStep) <= d.Cooldown {
		return false
	}
	d.lastStep = at
	return true
}

// AccelSample is one accelerometer reading. T is unix milliseconds. It may
// be omitted (zero, meaning "now") only when the batch holds one sample.
type AccelSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	T int64   `json:"t"`
}

type StepInput struct {
	Samples []AccelSample `json:"samples"`
	Count   int64         `json:"count"`
}

type StepResult struct {
	Detected   int64        `json:"detected"`
	Added      int64        `json:"added"`
	TotalSteps int64        `json:"total_steps"`
	User       *models.User `json:"user"`
}

// StepService keeps one detector per user so a stream split over several
// requests is detected as one.
type StepService struct {
	Store     store.Store
	Stats     StatsObserver // optional
	Logger    *zap.Logger
	Threshold float64
	Cooldown  time.Duration
	Now       func() time.Time

	mu        sync.Mutex
	detectors map[string]*StepDetector
}

func NewStepService(st store.Store, threshold float64, cooldown time.Duration, logger *zap.Logger) *StepService {
	return &StepService{
		Store:     st,
		Logger:    logger.Named("steps"),
		Threshold: threshold,
		Cooldown:  cooldown,
		Now:       time.Now,
		detectors: make(map[string]*StepDetector),
	}
}

func (s *StepService) detect(userID string, samples []AccelSample) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.detectors[userID]
	if !ok {
		d = NewStepDetector(s.Threshold, s.Cooldown)
		s.detectors[userID] = d
	}
	var steps int64
	for _, sm := range samples {
		at := s.Now()
		if sm.T > 0 {
			at = time.UnixMilli(sm.T)
		}
		if d.Feed(Vector{sm.X, sm.Y, sm.Z}, at) {
			steps++
		}
	}
	return steps
}

// validateSamples requires timestamps that never go backwards. Without
// them every sample would share one instant and fall inside the cooldown.
func validateSamples(samples []AccelSample) error {
	if len(samples) < 2 {
		return nil
	}
	for i, sm := range samples {
		if sm.T <= 0 {
			return invalid("samples", "sample %d needs a timestamp", i)
		}
		if i > 0 && sm.T < samples[i-1].T {
			return invalid("samples", "sample %d is older than the one before it", i)
		}
	}
	return nil
}

// Ingest runs the samples through the user's detector, adds any direct
// count, and increments stats.total_steps by the sum.
func (s *StepService) Ingest(ctx context.Context, userID string, in StepInput) (*StepResult, error) {
	if err := requireID("id", userID); err != nil {
		return nil, err
	}
	if len(in.Samples) == 0 && in.Count == 0 {
		return nil, invalid("samples", "samples or count is required")
	}
	if len(in.Samples) > maxSamplesPerBatch {
		return nil, invalid("samples", "at most %d samples per request", maxSamplesPerBatch)
	}
	if in.Count < 0 || in.Count > maxDirectSteps {
		return nil, invalid("count", "must be between 0 and %d", maxDirectSteps)
	}
	if err := validateSamples(in.Samples); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetUser(ctx, userID); err != nil {
		return nil, storeErr("get user", "user", userID, err)
	}

	res := &StepResult{Detected: s.detect(userID, in.Samples)}
	res.Added = res.Detected + in.Count
	if res.Added == 0 {
		u, err := s.Store.GetUser(ctx, userID)
		if err != nil {
			return nil, storeErr("get user", "user", userID, err)
		}
		res.TotalSteps, res.User = u.Stats.TotalSteps, u
		return res, nil
	}

	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return storeErr("load user", "user", userID, err)
		}
		u.Stats.TotalSteps += res.Added
		if err := tx.SaveUser(ctx, u); err != nil {
			return storeErr("save user", "user", userID, err)
		}
		res.TotalSteps, res.User = u.Stats.TotalSteps, u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("steps recorded",
		zap.String("user_id", userID),
		zap.Int64("added", res.Added),
		zap.Int64("total", res.TotalSteps))
	if s.Stats != nil {
		s.Stats.StatsChanged(ctx, res.User)
	}
	return res, nil
}

// Reset drops the user's detector state.
func (s *StepService) Reset(userID string) {
	s.mu.Lock()
	delete(s.detectors, userID)
	s.mu.Unlock()
}

func (s *StepService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.detectors)
}
