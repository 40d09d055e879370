package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action is the board action that was relayed to the backend.
type Action string

const (
	ActionSignup     Action = "signup"
	ActionUnregister Action = "unregister"
)

// Outcome is the result class of a relayed action.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeServer    Outcome = "server_error"
	OutcomeNetwork   Outcome = "network_error"
	OutcomeMalformed Outcome = "malformed_response"
	OutcomeRejected  Outcome = "rejected"
)

// Domain errors
var (
	ErrInvalidAction  = errors.New("audit action must be one of: signup, unregister")
	ErrInvalidOutcome = errors.New("audit outcome is not recognised")
)

// Event is a single audit log entry for a relayed board action.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	Outcome    Outcome   `json:"outcome"`
	Activity   string    `json:"activity"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	SessionID  string    `json:"session_id"`
	StatusCode int       `json:"status_code"`
}

// NewEvent creates a new audit event stamped with now.
// PRE: action is non-empty
// POST: Returns an Event with a fresh ID and the provided fields
func NewEvent(action Action, activityName, email string, now time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: now,
		Action:    action,
		Activity:  activityName,
		Email:     email,
	}
}

// WithOutcome sets the outcome and the status text shown to the user.
func (e Event) WithOutcome(o Outcome, message string) Event {
	e.Outcome = o
	e.Message = message
	return e
}

// WithSession sets the viewer session the action came from.
func (e Event) WithSession(sessionID string) Event {
	e.SessionID = sessionID
	return e
}

// WithStatusCode sets the backend HTTP status, zero when no response arrived.
func (e Event) WithStatusCode(code int) Event {
	e.StatusCode = code
	return e
}

// Validate checks if the Event has valid data.
// PRE: Event struct is populated
// POST: Returns nil if valid, error otherwise
func (e Event) Validate() error {
	switch e.Action {
	case ActionSignup, ActionUnregister:
	default:
		return ErrInvalidAction
	}
	switch e.Outcome {
	case OutcomeSuccess, OutcomeServer, OutcomeNetwork, OutcomeMalformed, OutcomeRejected:
	default:
		return ErrInvalidOutcome
	}
	return nil
}
