package notesview

import (
	"github.com/mmynk/notekeeper/internal/models"
	"github.com/mmynk/notekeeper/internal/session"
)

// Status is the presentation state derived from State.
type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusEmpty
	StatusPopulated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusEmpty:
		return "empty"
	case StatusPopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the list view.
type State struct {
	// Notes is the in-memory list, newest first.
	Notes []models.Note

	// Loading is true while a fetch is outstanding, and initially.
	Loading bool

	// Err is the last fetch failure. Write failures do not set it.
	Err error

	// Fetched is true once a fetch for the current user succeeded.
	Fetched bool

	// AddFormOpen tracks the add-note form.
	AddFormOpen bool

	// Notice is a user-visible message about the last failed write.
	Notice string

	// User is the identity the list belongs to.
	User session.User
}

func initialState() State {
	return State{Loading: true}
}

// Status derives what the view should show. Loading and error only take over
// the screen while the list is empty.
func (s State) Status() Status {
	switch {
	case s.Loading && len(s.Notes) == 0:
		return StatusLoading
	case s.Err != nil && len(s.Notes) == 0:
		return StatusError
	case len(s.Notes) == 0:
		return StatusEmpty
	default:
		return StatusPopulated
	}
}

func (s State) clone() State {
	if s.Notes != nil {
		notes := make([]models.Note, len(s.Notes))
		copy(notes, s.Notes)
		s.Notes = notes
	}
	return s
}
