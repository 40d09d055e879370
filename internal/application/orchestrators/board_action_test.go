package orchestrators

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"activityboard/internal/adapters/activityapi"
	emailAdapter "activityboard/internal/adapters/email"
	"activityboard/internal/application/board"
	auditDomain "activityboard/internal/domain/audit"
	"activityboard/internal/domain/status"
)

type mockAuditStore struct {
	mu     sync.Mutex
	events []auditDomain.Event
	err    error
}

func (m *mockAuditStore) Save(_ context.Context, e auditDomain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

type mockCounter struct {
	counts map[string]int
}

func (m *mockCounter) IncAction(action, kind string) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[action+"/"+kind]++
}

type failingSender struct{}

func (failingSender) Send(context.Context, emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	return emailAdapter.SendResult{}, errors.New("provider down")
}

func fixedNow() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }

func TestExecuteRecordBoardAction_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		report board.ActionReport
		want   auditDomain.Outcome
	}{
		{"success", board.ActionReport{Action: board.ActionSignup, Kind: status.KindSuccess}, auditDomain.OutcomeSuccess},
		{"accepted malformed", board.ActionReport{Action: board.ActionSignup, Kind: status.KindSuccess, ErrKind: activityapi.KindMalformed}, auditDomain.OutcomeSuccess},
		{"server", board.ActionReport{Action: board.ActionUnregister, Kind: status.KindError, ErrKind: activityapi.KindServer, StatusCode: 404}, auditDomain.OutcomeServer},
		{"malformed", board.ActionReport{Action: board.ActionUnregister, Kind: status.KindError, ErrKind: activityapi.KindMalformed}, auditDomain.OutcomeMalformed},
		{"network", board.ActionReport{Action: board.ActionSignup, Kind: status.KindError, ErrKind: activityapi.KindNetwork}, auditDomain.OutcomeNetwork},
		{"rejected", board.ActionReport{Action: board.ActionSignup, Kind: status.KindError, Rejected: true}, auditDomain.OutcomeRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockAuditStore{}
			counter := &mockCounter{}
			tt.report.Activity = "Chess Club"
			tt.report.Email = "a@b.edu"
			tt.report.SessionID = "s1"

			err := ExecuteRecordBoardAction(context.Background(), tt.report, RecordBoardActionDeps{AuditStore: store, Counter: counter, Now: fixedNow})
			if err != nil {
				t.Fatalf("ExecuteRecordBoardAction: %v", err)
			}
			if len(store.events) != 1 {
				t.Fatalf("events = %d, want 1", len(store.events))
			}
			ev := store.events[0]
			if ev.Outcome != tt.want {
				t.Errorf("Outcome = %q, want %q", ev.Outcome, tt.want)
			}
			if ev.SessionID != "s1" || ev.Activity != "Chess Club" || !ev.Timestamp.Equal(fixedNow()) {
				t.Errorf("event = %+v", ev)
			}
			if counter.counts[tt.report.Action+"/"+string(tt.report.Kind)] != 1 {
				t.Errorf("counts = %v", counter.counts)
			}
		})
	}
}

func TestExecuteRecordBoardAction_NoStore(t *testing.T) {
	counter := &mockCounter{}
	err := ExecuteRecordBoardAction(context.Background(), board.ActionReport{Action: board.ActionSignup, Kind: status.KindSuccess}, RecordBoardActionDeps{Counter: counter})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if counter.counts["signup/success"] != 1 {
		t.Errorf("counts = %v", counter.counts)
	}
}

func TestExecuteRecordBoardAction_MissingAction(t *testing.T) {
	if err := ExecuteRecordBoardAction(context.Background(), board.ActionReport{}, RecordBoardActionDeps{}); err == nil {
		t.Error("expected error for empty action")
	}
}

func TestExecuteSendSignupConfirmation_EscapesAndAddresses(t *testing.T) {
	sender := emailAdapter.NewNoopSender()
	_, err := ExecuteSendSignupConfirmation(context.Background(),
		SendSignupConfirmationInput{Email: "a@b.edu", Activity: "<b>Art</b> & Craft"},
		SendSignupConfirmationDeps{EmailSender: sender, FromAddress: "Board <board@example.com>", ReplyTo: "office@example.com"})
	if err != nil {
		t.Fatalf("ExecuteSendSignupConfirmation: %v", err)
	}

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sent))
	}
	req := sent[0]
	if req.To[0] != "a@b.edu" || req.From != "Board <board@example.com>" || req.ReplyTo != "office@example.com" {
		t.Errorf("addressing = %+v", req)
	}
	if strings.Contains(req.HTML, "<b>Art</b>") || !strings.Contains(req.HTML, "&lt;b&gt;Art&lt;/b&gt; &amp; Craft") {
		t.Errorf("activity name not escaped in HTML: %s", req.HTML)
	}
}

func TestExecuteSendSignupConfirmation_Validation(t *testing.T) {
	if _, err := ExecuteSendSignupConfirmation(context.Background(), SendSignupConfirmationInput{Email: "a@b"}, SendSignupConfirmationDeps{EmailSender: emailAdapter.NewNoopSender()}); err == nil {
		t.Error("expected error for missing activity")
	}
	if _, err := ExecuteSendSignupConfirmation(context.Background(), SendSignupConfirmationInput{Email: "a@b", Activity: "Chess"}, SendSignupConfirmationDeps{}); err == nil {
		t.Error("expected error for missing sender")
	}
}

func TestActionRecorder_ConfirmsOnlySuccessfulSignups(t *testing.T) {
	store := &mockAuditStore{}
	sender := emailAdapter.NewNoopSender()
	r := &ActionRecorder{
		Record:  RecordBoardActionDeps{AuditStore: store, Now: fixedNow},
		Confirm: SendSignupConfirmationDeps{EmailSender: sender},
	}
	ctx := context.Background()

	r.ActionCompleted(ctx, board.ActionReport{Action: board.ActionSignup, Kind: status.KindSuccess, Activity: "Chess Club", Email: "a@b"})
	r.ActionCompleted(ctx, board.ActionReport{Action: board.ActionSignup, Kind: status.KindError, ErrKind: activityapi.KindServer, Activity: "Chess Club", Email: "c@d"})
	r.ActionCompleted(ctx, board.ActionReport{Action: board.ActionUnregister, Kind: status.KindSuccess, Activity: "Chess Club", Email: "a@b"})
	r.Wait()

	if len(store.events) != 3 {
		t.Errorf("events = %d, want 3", len(store.events))
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "a@b" {
		t.Errorf("sent = %+v, want one confirmation to a@b", sent)
	}
}

func TestActionRecorder_FailuresAreSwallowed(t *testing.T) {
	r := &ActionRecorder{
		Record:  RecordBoardActionDeps{AuditStore: &mockAuditStore{err: errors.New("disk full")}},
		Confirm: SendSignupConfirmationDeps{EmailSender: failingSender{}},
	}
	r.ActionCompleted(context.Background(), board.ActionReport{Action: board.ActionSignup, Kind: status.KindSuccess, Activity: "Chess", Email: "a@b"})
	r.Wait()
}
