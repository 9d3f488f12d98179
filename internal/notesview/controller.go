// Package notesview drives the note list screen: it fetches the signed-in
// user's notes, applies adds, edits and deletes to the in-memory list, and
// derives what the screen shows.
package notesview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mmynk/notekeeper/internal/models"
	"github.com/mmynk/notekeeper/internal/session"
)

// User-visible failure messages.
const (
	FetchFailedMessage  = "Failed to fetch notes. Please try again."
	AddFailedMessage    = "Failed to add note. Please try again."
	UpdateFailedMessage = "Failed to update note. Please try again."
	DeleteFailedMessage = "Failed to delete note. Please try again."
)

// ErrAlreadyMounted is returned by Mount on a mounted controller.
var ErrAlreadyMounted = errors.New("notes view already mounted")

// NoteRepository is the data access the controller needs. *notes.Repository implements it.
type NoteRepository interface {
	List(ctx context.Context, ownerID string) ([]models.Note, error)
	Create(ctx context.Context, text, ownerID string) (*models.Note, error)
	Update(ctx context.Context, noteID, text string) (*models.Note, error)
	Delete(ctx context.Context, noteID string) error
}

// Controller owns the note list of one mounted view.
type Controller struct {
	repo     NoteRepository
	identity session.Provider
	logger   *slog.Logger
	onChange func(State)

	mu    sync.Mutex
	state State
	// gen is bumped whenever the list is discarded; results carrying an
	// older generation are dropped.
	gen         uint64
	lifetime    context.Context
	cancel      context.CancelFunc
	cancelFetch context.CancelFunc
	// journal holds list edits made while a fetch is in flight; they are
	// replayed on top of its result.
	journal []func([]models.Note) []models.Note

	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithOnChange registers fn to receive a snapshot after every state change.
// Calls are serialized. fn must not call Mount, Unmount or the mutating methods.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// New creates an unmounted controller.
func New(repo NoteRepository, identity session.Provider, opts ...Option) *Controller {
	c := &Controller{
		repo:     repo,
		identity: identity,
		logger:   slog.Default(),
		state:    initialState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Mount starts the view lifetime. The controller follows the identity
// provider until Unmount or until ctx ends: each new user triggers a fetch,
// and logout resets the view.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.lifetime, c.cancel = context.WithCancel(ctx)
	lifetime := c.lifetime
	c.mu.Unlock()

	identities := c.identity.Subscribe(lifetime)

	// The current identity is delivered first; apply it before returning so
	// writes issued right after Mount see the user.
	if u, ok := <-identities; ok {
		c.setUser(u)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for u := range identities {
			c.setUser(u)
		}
	}()
	return nil
}

// Unmount ends the view lifetime. Outstanding operations are cancelled and
// their results dropped; the list is discarded. It waits for background
// work to finish.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.cancelFetch = nil
	c.journal = nil
	c.lifetime = nil
	c.gen++
	c.state = initialState()
	c.mu.Unlock()

	c.wg.Wait()
}

// setUser reacts to an identity change.
func (c *Controller) setUser(u session.User) {
	c.mu.Lock()
	if c.lifetime == nil {
		c.mu.Unlock()
		return
	}
	if u.ID == c.state.User.ID {
		// Same account, possibly with a new display name.
		c.state.User = u
		c.mu.Unlock()
		return
	}

	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.gen++
	c.journal = nil
	c.state = initialState()
	c.state.User = u

	if u.IsZero() {
		c.logger.Debug("Signed out, notes discarded")
		c.mu.Unlock()
		c.notify()
		return
	}

	fetchCtx, cancel := context.WithCancel(c.lifetime)
	c.cancelFetch = cancel
	gen := c.gen
	c.wg.Add(1)
	c.mu.Unlock()

	c.notify()
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.fetch(fetchCtx, gen, u.ID)
	}()
}

func (c *Controller) fetch(ctx context.Context, gen uint64, userID string) {
	notes, err := c.repo.List(ctx, userID)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("Dropping stale fetch", "user_id", userID)
		return
	}
	c.cancelFetch = nil
	c.state.Loading = false
	if err != nil {
		c.state.Err = err
		c.logger.Warn("Failed to fetch notes", "user_id", userID, "error", err)
	} else {
		for _, edit := range c.journal {
			notes = edit(notes)
		}
		c.state.Err = nil
		c.state.Fetched = true
		c.state.Notes = notes
	}
	c.journal = nil
	c.mu.Unlock()

	c.notify()
}

// begin captures what a write needs. ok is false when nobody is signed in
// or the view is not mounted.
func (c *Controller) begin(ctx context.Context) (opCtx context.Context, done func(), user session.User, gen uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lifetime == nil || c.state.User.IsZero() {
		return nil, nil, session.User{}, 0, false
	}

	// Bound the call by both the caller and the view lifetime.
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.lifetime, cancel)
	return opCtx, func() { stop(); cancel() }, c.state.User, c.gen, true
}

// finish applies a write's outcome if the list it was issued against is
// still current. edit changes the list and may be nil; ui adjusts the rest
// of the state.
func (c *Controller) finish(gen uint64, edit func([]models.Note) []models.Note, ui func(*State)) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if edit != nil {
		c.state.Notes = edit(c.state.Notes)
		if c.cancelFetch != nil {
			c.journal = append(c.journal, edit)
		}
	}
	if ui != nil {
		ui(&c.state)
	}
	c.mu.Unlock()
	c.notify()
}

func clearNotice(s *State) { s.Notice = "" }

func prepend(note models.Note) func([]models.Note) []models.Note {
	return func(notes []models.Note) []models.Note {
		out := make([]models.Note, 0, len(notes)+1)
		out = append(out, note)
		for _, n := range notes {
			if n.ID != note.ID {
				out = append(out, n)
			}
		}
		return out
	}
}

func replace(note models.Note) func([]models.Note) []models.Note {
	return func(notes []models.Note) []models.Note {
		out := make([]models.Note, len(notes))
		for i, n := range notes {
			if n.ID == note.ID {
				n = note
			}
			out[i] = n
		}
		return out
	}
}

func remove(noteID string) func([]models.Note) []models.Note {
	return func(notes []models.Note) []models.Note {
		out := make([]models.Note, 0, len(notes))
		for _, n := range notes {
			if n.ID != noteID {
				out = append(out, n)
			}
		}
		return out
	}
}

// Add creates a note and puts it at the head of the list. Without a
// signed-in user it does nothing. On failure the list is unchanged, a notice
// is set and the error returned.
func (c *Controller) Add(ctx context.Context, text string) error {
	opCtx, done, user, gen, ok := c.begin(ctx)
	if !ok {
		return nil
	}
	defer done()

	note, err := c.repo.Create(opCtx, text, user.ID)
	if err != nil {
		c.logger.Error("Failed to add note", "user_id", user.ID, "error", err)
		c.finish(gen, nil, func(s *State) { s.Notice = AddFailedMessage })
		return err
	}

	c.finish(gen, prepend(*note), func(s *State) {
		s.AddFormOpen = false
		s.Notice = ""
	})
	return nil
}

// Update replaces the text of a listed note in place.
func (c *Controller) Update(ctx context.Context, noteID, text string) error {
	opCtx, done, user, gen, ok := c.begin(ctx)
	if !ok {
		return nil
	}
	defer done()

	note, err := c.repo.Update(opCtx, noteID, text)
	if err != nil {
		c.logger.Error("Failed to update note", "user_id", user.ID, "note_id", noteID, "error", err)
		c.finish(gen, nil, func(s *State) { s.Notice = UpdateFailedMessage })
		return err
	}

	c.finish(gen, replace(*note), clearNotice)
	return nil
}

// Delete removes a note from the store and the list.
func (c *Controller) Delete(ctx context.Context, noteID string) error {
	opCtx, done, user, gen, ok := c.begin(ctx)
	if !ok {
		return nil
	}
	defer done()

	if err := c.repo.Delete(opCtx, noteID); err != nil {
		c.logger.Error("Failed to delete note", "user_id", user.ID, "note_id", noteID, "error", err)
		c.finish(gen, nil, func(s *State) { s.Notice = DeleteFailedMessage })
		return err
	}

	c.finish(gen, remove(noteID), clearNotice)
	return nil
}

// OpenAddForm shows the add-note form.
func (c *Controller) OpenAddForm() {
	c.update(func(s *State) { s.AddFormOpen = true })
}

// CloseAddForm hides the add-note form.
func (c *Controller) CloseAddForm() {
	c.update(func(s *State) { s.AddFormOpen = false })
}

// DismissNotice clears the failure notice.
func (c *Controller) DismissNotice() {
	c.update(func(s *State) { s.Notice = "" })
}

func (c *Controller) update(apply func(*State)) {
	c.mu.Lock()
	apply(&c.state)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.onChange(c.State())
}
