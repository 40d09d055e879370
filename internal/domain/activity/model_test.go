package activity

import (
	"errors"
	"strings"
	"testing"
)

func TestSpotsLeft(t *testing.T) {
	tests := []struct {
		name string
		a    Activity
		want int
	}{
		{"empty roster", Activity{Name: "Chess", MaxParticipants: 12}, 12},
		{"partly full", Activity{Name: "Chess", MaxParticipants: 3, Participants: []string{"a@x", "b@x"}}, 1},
		{"over-enrolled", Activity{Name: "Chess", MaxParticipants: 1, Participants: []string{"a@x", "b@x"}}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.SpotsLeft(); got != tt.want {
				t.Errorf("SpotsLeft() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := (Activity{MaxParticipants: 1}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Validate() = %v, want ErrEmptyName", err)
	}
	if err := (Activity{Name: "Art", MaxParticipants: -1}).Validate(); !errors.Is(err, ErrNegativeCapacity) {
		t.Errorf("Validate() = %v, want ErrNegativeCapacity", err)
	}
	if err := (Activity{Name: "Art"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestDecodeCollection_PreservesOrder(t *testing.T) {
	body := `{
		"Programming Class": {"description": "Learn", "schedule": "Tue", "max_participants": 20, "participants": ["emma@mergington.edu"]},
		"Chess Club": {"description": "Play", "schedule": "Fri", "max_participants": 12, "participants": []},
		"Art Club": {"description": "Paint", "schedule": "Wed", "max_participants": 5}
	}`

	c, err := DecodeCollection(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeCollection: %v", err)
	}

	want := []string{"Programming Class", "Chess Club", "Art Club"}
	got := c.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	art, ok := c.Get("Art Club")
	if !ok {
		t.Fatal("Art Club missing")
	}
	if art.Participants == nil || len(art.Participants) != 0 {
		t.Errorf("Participants = %v, want empty non-nil slice", art.Participants)
	}
	if art.SpotsLeft() != 5 {
		t.Errorf("SpotsLeft = %d, want 5", art.SpotsLeft())
	}
}

func TestDecodeCollection_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `[]`},
		{"truncated", `{"Chess": {"description": "x"`},
		{"wrong field type", `{"Chess": {"max_participants": "ten"}}`},
		{"not json", `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCollection(strings.NewReader(tt.body)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCollection_AllReturnsCopyInOrder(t *testing.T) {
	c, err := NewCollection(Activity{Name: "B"}, Activity{Name: "A"})
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	all := c.All()
	if all[0].Name != "B" || all[1].Name != "A" {
		t.Errorf("All() order = %q,%q, want B,A", all[0].Name, all[1].Name)
	}
	names := c.Names()
	names[0] = "mutated"
	if c.Names()[0] != "B" {
		t.Error("Names() exposed internal slice")
	}
}

func TestDecodeCollection_DuplicateKeyLastWins(t *testing.T) {
	body := `{"Chess": {"max_participants": 5}, "Art": {}, "Chess": {"max_participants": 9, "participants": ["a@x"]}}`

	c, err := DecodeCollection(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeCollection: %v", err)
	}
	if names := c.Names(); len(names) != 2 || names[0] != "Chess" || names[1] != "Art" {
		t.Errorf("Names() = %v, want [Chess Art]", names)
	}
	chess, _ := c.Get("Chess")
	if chess.MaxParticipants != 9 || len(chess.Participants) != 1 {
		t.Errorf("Chess = %+v, want the later value", chess)
	}
}
