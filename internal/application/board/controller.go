// Package board implements the activity board controller: it keeps a
// document (activity list, selector, signup form, status area) in sync with
// the backend activity API and relays signup and unregister actions.
//
// One Controller serves one viewer. Every mutation is followed by a full
// refetch-and-rerender; the document is never patched incrementally.
package board

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"activityboard/internal/adapters/activityapi"
	"activityboard/internal/domain/activity"
	"activityboard/internal/domain/status"
	"activityboard/internal/validation"
)

// Action names reported to observers.
const (
	ActionSignup     = "signup"
	ActionUnregister = "unregister"
)

// ActivityAPI is the backend the controller reads from and mutates.
type ActivityAPI interface {
	ListActivities(ctx context.Context) (activity.Collection, error)
	Signup(ctx context.Context, activityName, email string) (activityapi.Result, error)
	Unregister(ctx context.Context, activityName, email string) (activityapi.Result, error)
}

// ActionReport describes one completed signup or unregister attempt.
type ActionReport struct {
	SessionID  string
	Action     string
	Activity   string
	Email      string
	Kind       status.Kind
	Text       string
	ErrKind    activityapi.ErrorKind
	StatusCode int
	// Rejected is true when the input was refused before any request was made.
	Rejected bool
}

// Observer is told about every completed action, after the document is updated.
type Observer interface {
	ActionCompleted(ctx context.Context, report ActionReport)
}

// Options tunes controller behaviour.
type Options struct {
	// ReenableOnFailure re-enables a delete control when its unregister fails.
	// When false the control stays disabled until the next applied load.
	ReenableOnFailure bool
}

// Deps holds dependencies for a Controller.
type Deps struct {
	API       ActivityAPI
	Clock     Clock
	Observer  Observer
	SessionID string
	Options   Options
}

// Controller is the activity board controller for a single viewer.
type Controller struct {
	api       ActivityAPI
	clock     Clock
	observer  Observer
	sessionID string
	opts      Options

	mu         sync.Mutex
	doc        Document
	disabled   map[string]bool
	hideTimer  Timer
	loadTicket uint64
	applied    uint64
	// fresh is set when an action has just produced the document; the
	// render that follows shows it as is instead of loading again.
	fresh bool
}

// New creates a controller with an empty document.
// PRE: deps.API is non-nil
// POST: Returns a controller; nothing is fetched until LoadActivities
func New(deps Deps) *Controller {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Controller{
		api:       deps.API,
		clock:     clock,
		observer:  deps.Observer,
		sessionID: deps.SessionID,
		opts:      deps.Options,
		doc: Document{
			Options: []Option{{Value: "", Label: PlaceholderOption}},
		},
		disabled: make(map[string]bool),
	}
}

// Document returns a snapshot of the current document.
func (c *Controller) Document() Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.clone(c.disabled)
}

// ConsumeFresh reports whether the document was produced by an action since
// the last render, and clears the mark. A page view that gets true must
// render without calling LoadActivities, so a kept form and disabled
// controls survive the redirect after the action.
func (c *Controller) ConsumeFresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := c.fresh
	c.fresh = false
	return fresh
}

// Reload runs LoadActivities on request and marks the result fresh.
func (c *Controller) Reload(ctx context.Context) {
	c.LoadActivities(ctx)
	c.mu.Lock()
	c.fresh = true
	c.mu.Unlock()
}

// SessionID returns the viewer session this controller belongs to.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// LoadActivities fetches the collection and re-renders the list and the
// selector. A failure replaces the list with a notice and is only logged.
// When loads overlap, a result older than one already applied is dropped.
// PRE: ctx is valid
// POST: Document reflects the newest completed load
func (c *Controller) LoadActivities(ctx context.Context) {
	c.mu.Lock()
	c.loadTicket++
	ticket := c.loadTicket
	c.mu.Unlock()

	col, err := c.api.ListActivities(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ticket < c.applied {
		slog.Debug("board_event", "event", "stale_load_dropped", "session_id", c.sessionID, "ticket", ticket, "applied", c.applied)
		return
	}
	c.applied = ticket
	c.doc.Loaded = true

	if err != nil {
		c.doc.Cards = nil
		c.doc.LoadError = status.TextLoadFailed
		slog.Error("board_event", "event", "load_failed", "session_id", c.sessionID, "error_kind", string(activityapi.Kind(err)), "error", err.Error())
		return
	}

	c.doc.LoadError = ""
	c.doc.Cards = buildCards(col)
	c.doc.Options = buildOptions(col)
	// Rebuilding the selector drops its selection.
	c.doc.Form.Activity = ""
	c.disabled = make(map[string]bool)
	slog.Debug("board_event", "event", "loaded", "session_id", c.sessionID, "activities", col.Len())
}

// signupInput is the signup form as submitted. Email format is deliberately not checked.
type signupInput struct {
	Email    string `form:"email" validate:"notblank,max=320"`
	Activity string `form:"activity" validate:"notblank"`
}

// SubmitSignup registers email for activityName and shows exactly one status
// message, hidden after status.SignupHideDelay. On success the form is
// cleared and the board reloaded; on failure the form keeps its values.
// PRE: ctx is valid
// POST: Returns the status message shown
func (c *Controller) SubmitSignup(ctx context.Context, activityName, email string) status.Message {
	c.mu.Lock()
	c.doc.Form = Form{Email: email, Activity: activityName}
	c.mu.Unlock()

	report := ActionReport{SessionID: c.sessionID, Action: ActionSignup, Activity: activityName, Email: email}

	if err := validation.Validate(ctx, signupInput{Email: email, Activity: activityName}); err != nil {
		slog.Info("board_event", "event", "signup_rejected", "session_id", c.sessionID, "reason", err.Error())
		report.Rejected = true
		return c.finish(ctx, report, status.KindError, status.TextSignupIncomplete, status.SignupHideDelay)
	}

	res, err := c.api.Signup(ctx, activityName, email)
	report.StatusCode = res.StatusCode
	report.ErrKind = activityapi.Kind(err)

	var (
		se *activityapi.ServerError
		me *activityapi.MalformedResponseError
	)
	switch {
	case err == nil, errors.As(err, &me) && me.Accepted():
		if err != nil {
			slog.Warn("board_event", "event", "malformed_response", "session_id", c.sessionID, "op", activityapi.OpSignup, "error", err.Error())
		}
		text := res.Message
		if text == "" {
			text = status.SignupSucceeded(email, activityName)
		}
		c.mu.Lock()
		c.doc.Form = Form{}
		c.mu.Unlock()
		msg := c.finish(ctx, report, status.KindSuccess, text, status.SignupHideDelay)
		c.LoadActivities(ctx)
		return msg

	case errors.As(err, &se):
		text := se.Detail
		if text == "" {
			text = status.TextSignupFallbackError
		}
		slog.Warn("board_event", "event", "signup_failed", "session_id", c.sessionID, "status", se.StatusCode, "detail", se.Detail)
		return c.finish(ctx, report, status.KindError, text, status.SignupHideDelay)

	case me != nil:
		slog.Warn("board_event", "event", "malformed_response", "session_id", c.sessionID, "op", activityapi.OpSignup, "error", err.Error())
		return c.finish(ctx, report, status.KindError, status.TextSignupFallbackError, status.SignupHideDelay)

	default:
		slog.Error("board_event", "event", "signup_network_error", "session_id", c.sessionID, "error", err.Error())
		return c.finish(ctx, report, status.KindError, status.TextSignupNetworkError, status.SignupHideDelay)
	}
}

// SubmitUnregister removes email from activityName. Empty inputs are a
// no-op and return ok=false. Otherwise the participant's delete control is
// disabled for the duration of the call and a status message is always
// shown, hidden after status.UnregisterHideDelay.
// PRE: ctx is valid
// POST: Returns the status message shown and ok=true, or ok=false for a no-op
func (c *Controller) SubmitUnregister(ctx context.Context, activityName, email string) (status.Message, bool) {
	if activityName == "" || email == "" {
		return status.Message{}, false
	}

	key := controlKey(activityName, email)
	c.mu.Lock()
	c.disabled[key] = true
	c.mu.Unlock()

	report := ActionReport{SessionID: c.sessionID, Action: ActionUnregister, Activity: activityName, Email: email}

	res, err := c.api.Unregister(ctx, activityName, email)
	report.StatusCode = res.StatusCode
	report.ErrKind = activityapi.Kind(err)

	var (
		se *activityapi.ServerError
		me *activityapi.MalformedResponseError
	)
	kind := status.KindError
	var text string
	switch {
	case err == nil, errors.As(err, &me) && me.Accepted():
		if err != nil {
			slog.Warn("board_event", "event", "malformed_response", "session_id", c.sessionID, "op", activityapi.OpUnregister, "error", err.Error())
		}
		c.LoadActivities(ctx)
		kind = status.KindSuccess
		text = res.Message
		if text == "" {
			text = status.Removed(email)
		}

	case errors.As(err, &se):
		text = se.Detail
		if text == "" {
			text = status.TextUnregisterFallbackError
		}
		slog.Warn("board_event", "event", "unregister_failed", "session_id", c.sessionID, "status", se.StatusCode, "detail", se.Detail)

	case me != nil:
		text = status.TextUnregisterFallbackError
		slog.Warn("board_event", "event", "malformed_response", "session_id", c.sessionID, "op", activityapi.OpUnregister, "error", err.Error())

	default:
		text = status.TextUnregisterNetworkError
		slog.Error("board_event", "event", "unregister_network_error", "session_id", c.sessionID, "error", err.Error())
	}

	if kind == status.KindError && c.opts.ReenableOnFailure {
		c.mu.Lock()
		delete(c.disabled, key)
		c.mu.Unlock()
	}

	return c.finish(ctx, report, kind, text, status.UnregisterHideDelay), true
}

// finish shows the status message, schedules its hide and notifies the observer.
func (c *Controller) finish(ctx context.Context, report ActionReport, kind status.Kind, text string, hideAfter time.Duration) status.Message {
	msg := c.showStatus(kind, text, hideAfter)
	c.mu.Lock()
	c.fresh = true
	c.mu.Unlock()
	report.Kind = kind
	report.Text = text
	slog.Info("board_event", "event", report.Action, "session_id", c.sessionID, "activity", report.Activity, "kind", string(kind))
	if c.observer != nil {
		c.observer.ActionCompleted(ctx, report)
	}
	return msg
}

// showStatus replaces the status message and arms its hide timer. A
// superseded message's timer is stopped, and a timer that already fired
// only hides the message it was armed for.
func (c *Controller) showStatus(kind status.Kind, text string, hideAfter time.Duration) status.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := status.Message{
		ID:        uuid.New().String(),
		Text:      text,
		Kind:      kind,
		Visible:   true,
		ShownAt:   c.clock.Now(),
		HideAfter: hideAfter,
	}
	if c.hideTimer != nil {
		c.hideTimer.Stop()
	}
	c.doc.Message = msg
	id := msg.ID
	c.hideTimer = c.clock.AfterFunc(hideAfter, func() { c.hide(id) })
	return msg
}

func (c *Controller) hide(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc.Message.ID != id {
		return
	}
	c.doc.Message.Visible = false
}

// Close stops the pending hide timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}
}
