package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"activityboard/internal/adapters/activityapi"
	"activityboard/internal/application/board"
	auditDomain "activityboard/internal/domain/audit"
	"activityboard/internal/domain/status"
)

// AuditStore defines the audit persistence needed by RecordBoardAction.
type AuditStore interface {
	Save(ctx context.Context, e auditDomain.Event) error
}

// ActionCounter counts board actions by action and status kind.
type ActionCounter interface {
	IncAction(action, kind string)
}

// RecordBoardActionDeps holds dependencies for RecordBoardAction.
// AuditStore and Counter may be nil.
type RecordBoardActionDeps struct {
	AuditStore AuditStore
	Counter    ActionCounter
	Now        func() time.Time
}

// ExecuteRecordBoardAction counts a completed board action and writes it to the audit log.
// PRE: report.Action is a board action name
// POST: Counter incremented; event persisted when an AuditStore is configured
func ExecuteRecordBoardAction(ctx context.Context, report board.ActionReport, deps RecordBoardActionDeps) error {
	if report.Action == "" {
		return errors.New("action is required")
	}

	if deps.Counter != nil {
		deps.Counter.IncAction(report.Action, string(report.Kind))
	}
	if deps.AuditStore == nil {
		return nil
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	ev := auditDomain.NewEvent(auditDomain.Action(report.Action), report.Activity, report.Email, now()).
		WithOutcome(outcomeOf(report), report.Text).
		WithSession(report.SessionID).
		WithStatusCode(report.StatusCode)
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := deps.AuditStore.Save(ctx, ev); err != nil {
		return err
	}

	slog.Debug("audit_event", "event", "board_action_recorded", "id", ev.ID, "action", ev.Action, "outcome", ev.Outcome)
	return nil
}

// outcomeOf classifies a report. An accepted mutation whose body was
// malformed still counts as a success.
func outcomeOf(r board.ActionReport) auditDomain.Outcome {
	switch {
	case r.Rejected:
		return auditDomain.OutcomeRejected
	case r.Kind == status.KindSuccess:
		return auditDomain.OutcomeSuccess
	}
	switch r.ErrKind {
	case activityapi.KindServer:
		return auditDomain.OutcomeServer
	case activityapi.KindMalformed:
		return auditDomain.OutcomeMalformed
	default:
		return auditDomain.OutcomeNetwork
	}
}
