package orchestrators

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"activityboard/internal/application/board"
	"activityboard/internal/domain/status"
)

// confirmationTimeout bounds one background confirmation send.
const confirmationTimeout = 30 * time.Second

// ActionRecorder observes board controllers: it records every action and,
// when a sender is configured, confirms successful signups by email.
type ActionRecorder struct {
	Record  RecordBoardActionDeps
	Confirm SendSignupConfirmationDeps

	wg sync.WaitGroup
}

var _ board.Observer = (*ActionRecorder)(nil)

// ActionCompleted implements board.Observer. Audit failures are logged and
// never reach the viewer. Confirmations are sent in the background.
func (r *ActionRecorder) ActionCompleted(ctx context.Context, report board.ActionReport) {
	if err := ExecuteRecordBoardAction(ctx, report, r.Record); err != nil {
		slog.Error("audit_event", "event", "record_failed", "action", report.Action, "error", err)
	}

	if r.Confirm.EmailSender == nil || report.Action != board.ActionSignup || report.Kind != status.KindSuccess {
		return
	}

	input := SendSignupConfirmationInput{Email: report.Email, Activity: report.Activity}
	sendCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(sendCtx, confirmationTimeout)
		defer cancel()
		if _, err := ExecuteSendSignupConfirmation(ctx, input, r.Confirm); err != nil {
			slog.Error("email_event", "event", "signup_confirmation_failed", "activity", input.Activity, "error", err)
		}
	}()
}

// Wait blocks until in-flight confirmations finish.
func (r *ActionRecorder) Wait() {
	r.wg.Wait()
}
