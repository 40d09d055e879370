package board

import (
	"activityboard/internal/domain/activity"
	"activityboard/internal/domain/status"
)

// Element identifiers of the board page.
const (
	ElementList    = "activities-list"
	ElementSelect  = "activity"
	ElementForm    = "signup-form"
	ElementEmail   = "email"
	ElementMessage = "message"
)

// Fixed texts of the board document.
const (
	PlaceholderOption = "-- Select an activity --"
	NoParticipants    = "No participants yet"
)

// Document is the board's rendered state: the list container, the activity
// selector, the signup form and the status area.
type Document struct {
	Cards     []Card
	LoadError string
	Options   []Option
	Form      Form
	Message   status.Message
	// Loaded is true once any load has been applied, successful or not.
	Loaded bool
}

// Card is one activity in the list container.
type Card struct {
	Name         string
	Description  string
	Schedule     string
	SpotsLeft    int
	Participants []Participant
}

// Participant is one roster row. Activity and Email are the data the delete
// control dispatches with.
type Participant struct {
	Activity string
	Email    string
	Disabled bool
}

// Option is one entry of the activity selector.
type Option struct {
	Value string
	Label string
}

// Form holds the signup form's field values.
type Form struct {
	Email    string
	Activity string
}

// Selected reports whether opt is the form's current selection.
func (f Form) Selected(opt Option) bool {
	return opt.Value == f.Activity
}

// buildCards renders one card per activity in collection order.
func buildCards(col activity.Collection) []Card {
	cards := make([]Card, 0, col.Len())
	for _, a := range col.All() {
		card := Card{
			Name:         a.Name,
			Description:  a.Description,
			Schedule:     a.Schedule,
			SpotsLeft:    a.SpotsLeft(),
			Participants: make([]Participant, 0, len(a.Participants)),
		}
		for _, email := range a.Participants {
			card.Participants = append(card.Participants, Participant{Activity: a.Name, Email: email})
		}
		cards = append(cards, card)
	}
	return cards
}

// buildOptions renders the placeholder followed by one option per activity.
func buildOptions(col activity.Collection) []Option {
	opts := make([]Option, 0, col.Len()+1)
	opts = append(opts, Option{Value: "", Label: PlaceholderOption})
	for _, name := range col.Names() {
		opts = append(opts, Option{Value: name, Label: name})
	}
	return opts
}

// clone deep-copies the document and marks disabled controls.
func (d Document) clone(disabled map[string]bool) Document {
	out := d
	out.Cards = make([]Card, len(d.Cards))
	for i, c := range d.Cards {
		cc := c
		cc.Participants = make([]Participant, len(c.Participants))
		for j, p := range c.Participants {
			p.Disabled = disabled[controlKey(p.Activity, p.Email)]
			cc.Participants[j] = p
		}
		out.Cards[i] = cc
	}
	out.Options = append([]Option(nil), d.Options...)
	return out
}

// controlKey identifies a participant delete control.
func controlKey(activityName, email string) string {
	return activityName + "\x00" + email
}
