package services

import (
	"context"
	"testing"
	"time"

	"fitquest-api/models"
	"fitquest-api/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	rest  = Vector{0, 0, 9.8}
	spike = Vector{15, 0, 9.8}
)

func countSteps(d *StepDetector, samples []Vector, times []time.Duration) int {
	base := time.Unix(1_700_000_000, 0)
	n := 0
	for i, v := range samples {
		if d.Feed(v, base.Add(times[i])) {
			n++
		}
	}
	return n
}

func TestStepCooldown(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
		want int
	}{
		{"spikes 100ms apart count once", 100 * time.Millisecond, 1},
		{"spikes 300ms apart count twice", 300 * time.Millisecond, 2},
		{"spikes exactly at the cooldown count once", 250 * time.Millisecond, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewStepDetector(DefaultStepThreshold, DefaultStepCooldown)
			// rest, spike up, back to rest: both edges exceed the threshold
			got := countSteps(d,
				[]Vector{rest, spike, rest},
				[]time.Duration{0, time.Second, time.Second + tt.gap})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStepDetectorIgnoresSmallChanges(t *testing.T) {
	d := NewStepDetector(DefaultStepThreshold, DefaultStepCooldown)
	samples := []Vector{rest, {1, 0.5, 9.5}, {0.5, 1, 10.2}, {2, 0, 9.8}}
	times := []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second}
	// the first sample jumps 9.8 from the zero vector, still under the threshold
	assert.Zero(t, countSteps(d, samples, times))
}

func TestStepDetectorUpdatesLastSampleEveryTime(t *testing.T) {
	d := NewStepDetector(DefaultStepThreshold, DefaultStepCooldown)
	// the drop at 1.1s is inside the cooldown but still becomes the
	// reference, so the quiet sample at 1.4s is no step
	got := countSteps(d,
		[]Vector{rest, spike, rest, rest},
		[]time.Duration{0, time.Second, time.Second + 100*time.Millisecond, time.Second + 400*time.Millisecond})
	assert.Equal(t, 1, got)
}

func TestStepServiceKeepsStateAcrossBatches(t *testing.T) {
	st := memstore.New()
	u := seedUser(t, st)
	svc := NewStepService(st, DefaultStepThreshold, DefaultStepCooldown, zap.NewNop())
	ctx := context.Background()
	ms := time.Unix(1_700_000_000, 0).UnixMilli()

	res, err := svc.Ingest(ctx, u.ID, StepInput{Samples: []AccelSample{
		{X: 0, Y: 0, Z: 9.8, T: ms},
		{X: 15, Y: 0, Z: 9.8, T: ms + 1000},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Detected)

	// continues from the spike: the drop 100ms later is inside the cooldown
	res, err = svc.Ingest(ctx, u.ID, StepInput{Samples: []AccelSample{
		{X: 0, Y: 0, Z: 9.8, T: ms + 1100},
	}})
	require.NoError(t, err)
	assert.Zero(t, res.Detected)
	assert.Equal(t, int64(1), res.TotalSteps)

	res, err = svc.Ingest(ctx, u.ID, StepInput{Count: 250})
	require.NoError(t, err)
	assert.Equal(t, int64(250), res.Added)
	assert.Equal(t, int64(251), res.TotalSteps)

	stored, err := st.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(251), stored.Stats.TotalSteps)

	assert.Equal(t, 1, svc.Active())
	svc.Reset(u.ID)
	assert.Zero(t, svc.Active())
}

func TestStepServiceCountsEveryTimedEdge(t *testing.T) {
	st := memstore.New()
	u := seedUser(t, st)
	svc := NewStepService(st, DefaultStepThreshold, DefaultStepCooldown, zap.NewNop())
	ms := time.Unix(1_700_000_000, 0).UnixMilli()

	// four threshold crossings 300ms apart
	res, err := svc.Ingest(context.Background(), u.ID, StepInput{Samples: []AccelSample{
		{Z: 9.8, T: ms},
		{X: 15, Z: 9.8, T: ms + 300},
		{Z: 9.8, T: ms + 600},
		{X: 15, Z: 9.8, T: ms + 900},
		{Z: 9.8, T: ms + 1200},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Detected)

	// a lone sample may still omit its timestamp
	_, err = svc.Ingest(context.Background(), u.ID, StepInput{Samples: []AccelSample{{Z: 9.8}}})
	assert.NoError(t, err)
}

func TestStepServiceValidation(t *testing.T) {
	st := memstore.New()
	u := seedUser(t, st)
	svc := NewStepService(st, DefaultStepThreshold, DefaultStepCooldown, zap.NewNop())
	ctx := context.Background()

	var ve *ValidationError
	_, err := svc.Ingest(ctx, u.ID, StepInput{})
	require.ErrorAs(t, err, &ve)
	_, err = svc.Ingest(ctx, u.ID, StepInput{Count: -5})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "count", ve.Field)
	_, err = svc.Ingest(ctx, "nope", StepInput{Count: 1})
	require.ErrorAs(t, err, &ve)

	untimed := []AccelSample{{Z: 9.8}, {X: 15, Z: 9.8}, {Z: 9.8}, {X: 15, Z: 9.8}, {Z: 9.8}}
	_, err = svc.Ingest(ctx, u.ID, StepInput{Samples: untimed})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "samples", ve.Field)

	ms := time.Unix(1_700_000_000, 0).UnixMilli()
	_, err = svc.Ingest(ctx, u.ID, StepInput{Samples: []AccelSample{{Z: 9.8, T: ms + 500}, {X: 15, Z: 9.8, T: ms}}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "samples", ve.Field)

	_, err = svc.Ingest(ctx, "d8a4f6a2-6b1e-4bd6-8f57-08e0a0f1c2d3", StepInput{Count: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, svc.Active(), "unknown users get no detector")
}

func TestStepServiceNotifiesObserver(t *testing.T) {
	st := memstore.New()
	u := seedUser(t, st, func(u *models.User) { u.Stats.TotalSteps = 9_990 })
	svc := NewStepService(st, DefaultStepThreshold, DefaultStepCooldown, zap.NewNop())
	spy := &statsSpy{}
	svc.Stats = spy

	_, err := svc.Ingest(context.Background(), u.ID, StepInput{Count: 10})
	require.NoError(t, err)
	require.Equal(t, 1, spy.calls)
	assert.Equal(t, int64(10_000), spy.last.Stats.TotalSteps)
}
