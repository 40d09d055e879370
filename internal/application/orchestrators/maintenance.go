package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionSweeper drops expired viewer sessions.
type SessionSweeper interface {
	Sweep() int
}

// LimiterSweeper forgets rate limiter buckets idle longer than maxIdle.
type LimiterSweeper interface {
	Sweep(maxIdle time.Duration) int
}

// AuditPruner deletes audit events recorded before cutoff.
type AuditPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepSessionsDeps holds dependencies for SweepSessions.
type SweepSessionsDeps struct {
	Sessions SessionSweeper
	// Limiter may be nil when rate limiting is off.
	Limiter     LimiterSweeper
	LimiterIdle time.Duration
}

// ExecuteSweepSessions releases expired sessions (and their boards' timers)
// and idle rate limiter buckets.
// PRE: Sessions is set
// POST: Expired entries are gone
func ExecuteSweepSessions(_ context.Context, deps SweepSessionsDeps) error {
	if deps.Sessions == nil {
		return errors.New("session store is not configured")
	}
	sessions := deps.Sessions.Sweep()
	buckets := 0
	if deps.Limiter != nil {
		buckets = deps.Limiter.Sweep(deps.LimiterIdle)
	}
	slog.Info("maintenance_event", "event", "sessions_swept", "sessions", sessions, "limiter_buckets", buckets)
	return nil
}

// PruneAuditDeps holds dependencies for PruneAudit.
type PruneAuditDeps struct {
	AuditStore AuditPruner
	Retention  time.Duration
	Now        func() time.Time
}

// ExecutePruneAudit deletes audit events older than the retention window.
// PRE: AuditStore is set; Retention > 0
// POST: Events before now-Retention are deleted
func ExecutePruneAudit(ctx context.Context, deps PruneAuditDeps) error {
	if deps.AuditStore == nil {
		return errors.New("audit store is not configured")
	}
	if deps.Retention <= 0 {
		return fmt.Errorf("audit retention must be positive, got %s", deps.Retention)
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	cutoff := now().Add(-deps.Retention)
	n, err := deps.AuditStore.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune audit events: %w", err)
	}
	slog.Info("maintenance_event", "event", "audit_pruned", "deleted", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	return nil
}
