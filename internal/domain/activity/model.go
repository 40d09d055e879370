package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Domain errors
var (
	ErrEmptyName           = errors.New("activity name cannot be empty")
	ErrNegativeCapacity    = errors.New("activity max_participants cannot be negative")
	ErrDuplicateName       = errors.New("activity name appears more than once in collection")
	ErrCollectionNotObject = errors.New("activity collection must be a JSON object")
)

// Activity is a named, capacity-bounded event with a participant roster.
// Name is both the display label and the API key.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns capacity minus the current participant count.
// The result is negative when the backend has over-enrolled the activity.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Validate checks if the Activity has valid data.
// PRE: Activity struct is populated
// POST: Returns nil if valid, error otherwise
func (a Activity) Validate() error {
	if a.Name == "" {
		return ErrEmptyName
	}
	if a.MaxParticipants < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// Collection maps activity name to Activity, keeping the order in which the
// backend delivered the entries.
type Collection struct {
	order []string
	items map[string]Activity
}

// NewCollection builds a collection from activities in the given order.
// PRE: names are unique
// POST: Returns a collection preserving input order, or ErrDuplicateName
func NewCollection(activities ...Activity) (Collection, error) {
	c := Collection{items: make(map[string]Activity, len(activities))}
	for _, a := range activities {
		if _, exists := c.items[a.Name]; exists {
			return Collection{}, fmt.Errorf("%w: %q", ErrDuplicateName, a.Name)
		}
		c.order = append(c.order, a.Name)
		c.items[a.Name] = a
	}
	return c, nil
}

// Len returns the number of activities.
func (c Collection) Len() int {
	return len(c.order)
}

// Names returns activity names in delivery order.
func (c Collection) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get looks up an activity by name.
func (c Collection) Get(name string) (Activity, bool) {
	a, ok := c.items[name]
	return a, ok
}

// All returns the activities in delivery order.
func (c Collection) All() []Activity {
	out := make([]Activity, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.items[name])
	}
	return out
}

// DecodeCollection reads a JSON object of name -> activity details.
// Object key order is preserved, which a Go map would lose.
// PRE: r yields a single JSON object
// POST: Returns the ordered collection or a decode error
func DecodeCollection(r io.Reader) (Collection, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return Collection{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Collection{}, ErrCollectionNotObject
	}

	var activities []Activity
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Collection{}, err
		}
		name, ok := tok.(string)
		if !ok {
			return Collection{}, fmt.Errorf("unexpected key token %v", tok)
		}
		var a Activity
		if err := dec.Decode(&a); err != nil {
			return Collection{}, fmt.Errorf("activity %q: %w", name, err)
		}
		a.Name = name
		if a.Participants == nil {
			a.Participants = []string{}
		}
		// A repeated key replaces the earlier value in its original slot.
		if i, dup := seen[name]; dup {
			activities[i] = a
			continue
		}
		seen[name] = len(activities)
		activities = append(activities, a)
	}

	if _, err := dec.Token(); err != nil {
		return Collection{}, err
	}
	return NewCollection(activities...)
}
