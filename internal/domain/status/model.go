package status

import (
	"errors"
	"time"
)

// Kind is the styling class of a status message.
type Kind string

// Message kinds
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Hide delays per action.
const (
	SignupHideDelay     = 5000 * time.Millisecond
	UnregisterHideDelay = 4000 * time.Millisecond
)

// User-facing texts.
const (
	TextSignupFallbackError     = "An error occurred"
	TextSignupNetworkError      = "Failed to sign up. Please try again."
	TextUnregisterFallbackError = "Failed to remove participant"
	TextUnregisterNetworkError  = "Network error while removing participant"
	TextLoadFailed              = "Failed to load activities. Please try again later."
	TextSignupIncomplete        = "Please enter an email and choose an activity."
)

// SignupSucceeded is the success text used when the backend sent none.
func SignupSucceeded(email, activityName string) string {
	return "Signed up " + email + " for " + activityName
}

// Removed is the success text used when the backend sent none for an unregister.
func Removed(email string) string {
	return "Removed " + email
}

// Domain errors
var (
	ErrEmptyText   = errors.New("status message text cannot be empty")
	ErrInvalidKind = errors.New("status message kind must be one of: success, error")
)

// Message is a transient, auto-expiring notice of success or failure.
type Message struct {
	ID        string
	Text      string
	Kind      Kind
	Visible   bool
	ShownAt   time.Time
	HideAfter time.Duration
}

// Validate checks if the Message has valid data.
// PRE: Message struct is populated
// POST: Returns nil if valid, error otherwise
func (m Message) Validate() error {
	if m.Text == "" {
		return ErrEmptyText
	}
	if m.Kind != KindSuccess && m.Kind != KindError {
		return ErrInvalidKind
	}
	return nil
}

// HidesAt returns the instant the message expires.
func (m Message) HidesAt() time.Time {
	return m.ShownAt.Add(m.HideAfter)
}

// Remaining returns how long the message stays visible after now.
// Returns zero once hidden or expired.
func (m Message) Remaining(now time.Time) time.Duration {
	if !m.Visible {
		return 0
	}
	d := m.HidesAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Class returns the CSS class list for the status area.
func (m Message) Class() string {
	if m.Kind == "" {
		return "hidden"
	}
	if !m.Visible {
		return string(m.Kind) + " hidden"
	}
	return string(m.Kind)
}
