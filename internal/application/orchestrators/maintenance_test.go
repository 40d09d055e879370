package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct{ n, calls int }

func (f *fakeSweeper) Sweep() int { f.calls++; return f.n }

type fakeLimiter struct{ idle time.Duration }

func (f *fakeLimiter) Sweep(maxIdle time.Duration) int { f.idle = maxIdle; return 2 }

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, f.err
}

func TestExecuteSweepSessions(t *testing.T) {
	sessions := &fakeSweeper{n: 3}
	limiter := &fakeLimiter{}

	err := ExecuteSweepSessions(context.Background(), SweepSessionsDeps{Sessions: sessions, Limiter: limiter, LimiterIdle: 10 * time.Minute})

	require.NoError(t, err)
	assert.Equal(t, 1, sessions.calls)
	assert.Equal(t, 10*time.Minute, limiter.idle)
}

func TestExecuteSweepSessions_NilLimiter(t *testing.T) {
	sessions := &fakeSweeper{}

	require.NoError(t, ExecuteSweepSessions(context.Background(), SweepSessionsDeps{Sessions: sessions}))
	assert.Equal(t, 1, sessions.calls)
	assert.Error(t, ExecuteSweepSessions(context.Background(), SweepSessionsDeps{}))
}

func TestExecutePruneAudit(t *testing.T) {
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	store := &fakePruner{}

	err := ExecutePruneAudit(context.Background(), PruneAuditDeps{
		AuditStore: store,
		Retention:  30 * 24 * time.Hour,
		Now:        func() time.Time { return now },
	})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 8, 3, 0, 0, 0, time.UTC), store.cutoff)
}

func TestExecutePruneAudit_Errors(t *testing.T) {
	boom := errors.New("disk full")

	err := ExecutePruneAudit(context.Background(), PruneAuditDeps{AuditStore: &fakePruner{err: boom}, Retention: time.Hour})
	assert.ErrorIs(t, err, boom)

	assert.Error(t, ExecutePruneAudit(context.Background(), PruneAuditDeps{AuditStore: &fakePruner{}}))
	assert.Error(t, ExecutePruneAudit(context.Background(), PruneAuditDeps{Retention: time.Hour}))
}
