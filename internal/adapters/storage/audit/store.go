package audit

import (
	"context"
	"time"

	domain "activityboard/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event is valid
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events with optional filtering.
	// PRE: limit > 0
	// POST: Returns events ordered by timestamp desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)

	// DeleteBefore removes events older than cutoff.
	// POST: Returns the number of events removed
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Filter defines query parameters for listing audit events.
// Zero-valued fields do not filter.
type Filter struct {
	Action   domain.Action
	Outcome  domain.Outcome
	Activity string
	Since    time.Time
}

var _ Store = (*SQLiteStore)(nil)
