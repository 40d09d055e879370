package audit

import (
	"context"
	"database/sql"
	"time"

	"activityboard/internal/adapters/storage"
	domain "activityboard/internal/domain/audit"
)

// Timestamps are stored in UTC with fixed width so text order is time order.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Save persists an audit event.
// PRE: event is valid
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, action, outcome, activity, email, message, session_id, status_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, formatTime(event.Timestamp), string(event.Action), string(event.Outcome),
		event.Activity, event.Email, event.Message, event.SessionID, event.StatusCode)
	return err
}

// List returns audit events with optional filtering.
// PRE: limit > 0
// POST: Returns events ordered by timestamp desc
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	query := `SELECT id, timestamp, action, outcome, activity, email, message, session_id, status_code FROM audit_event WHERE 1=1`
	args := []any{}

	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, string(filter.Action))
	}
	if filter.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(filter.Outcome))
	}
	if filter.Activity != "" {
		query += " AND activity = ?"
		args = append(args, filter.Activity)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(filter.Since))
	}

	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DeleteBefore removes events older than cutoff.
// POST: Returns the number of events removed
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_event WHERE timestamp < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var timestamp string
		if err := rows.Scan(&e.ID, &timestamp, &e.Action, &e.Outcome, &e.Activity, &e.Email, &e.Message, &e.SessionID, &e.StatusCode); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(dateLayout, timestamp)
		events = append(events, e)
	}
	return events, rows.Err()
}
