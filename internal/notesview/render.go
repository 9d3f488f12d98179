package notesview

import (
	"fmt"
	"strings"

	"github.com/mmynk/notekeeper/internal/models"
)

// Empty-list copy.
const (
	EmptyMessage = "You don't have any notes yet."
	EmptyHint    = "Add a note to create your first one!"
)

// Screen is what the list view shows for a State.
type Screen struct {
	Status Status

	// Spinner is a full-screen spinner; nothing else is shown with it.
	Spinner bool

	// Error is a full-screen error message; nothing else is shown with it.
	Error string

	Notes []models.Note

	// Empty is set when a fetched list has no notes.
	Empty bool
	Hint  string

	// Overlay is a spinner drawn over a populated list during a background load.
	Overlay bool

	AddForm bool
	Notice  string
}

// Render maps a State onto a Screen.
func Render(s State) Screen {
	status := s.Status()
	switch status {
	case StatusLoading:
		return Screen{Status: status, Spinner: true}
	case StatusError:
		return Screen{Status: status, Error: FetchFailedMessage}
	}

	return Screen{
		Status:  status,
		Notes:   s.clone().Notes,
		Empty:   len(s.Notes) == 0 && !s.Loading,
		Hint:    EmptyHint,
		Overlay: s.Loading,
		AddForm: s.AddFormOpen,
		Notice:  s.Notice,
	}
}

// String draws the screen as plain text.
func (sc Screen) String() string {
	var b strings.Builder
	switch {
	case sc.Spinner:
		b.WriteString("Loading notes...\n")
		return b.String()
	case sc.Error != "":
		b.WriteString(sc.Error)
		b.WriteByte('\n')
		return b.String()
	}

	if sc.Overlay {
		b.WriteString("(refreshing...)\n")
	}
	for i, n := range sc.Notes {
		fmt.Fprintf(&b, "%2d. %s  [%s]\n", i+1, n.Text, n.ID)
	}
	if sc.Empty {
		b.WriteString(EmptyMessage)
		b.WriteByte('\n')
		if sc.Hint != "" {
			b.WriteString(sc.Hint)
			b.WriteByte('\n')
		}
	}
	if sc.AddForm {
		b.WriteString("[adding a note]\n")
	}
	if sc.Notice != "" {
		fmt.Fprintf(&b, "! %s\n", sc.Notice)
	}
	return b.String()
}
