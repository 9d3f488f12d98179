// Package session provides the current-user identity that scopes note queries.
//
// A Provider reports who is signed in and pushes every change to subscribers,
// so views can refetch on login and discard state on logout.
package session

import (
	"context"
	"sync"
)

// User is the signed-in identity. The zero User means nobody is signed in.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// IsZero reports whether u represents "logged out".
func (u User) IsZero() bool {
	return u.ID == ""
}

// Provider is the source of the current identity.
type Provider interface {
	// Current returns the signed-in user, or false when nobody is.
	Current() (User, bool)

	// Subscribe delivers the current identity first and then every change.
	// A zero User means logged out. The channel is closed when ctx ends.
	// Slow readers only see the latest identity.
	Subscribe(ctx context.Context) <-chan User
}

// hub fans identity changes out to subscribers.
type hub struct {
	mu      sync.Mutex
	current User
	subs    map[chan User]struct{}
}

func (h *hub) get() User {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// set stores u and notifies subscribers when it differs from the previous identity.
func (h *hub) set(u User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if u == h.current {
		return
	}
	h.current = u
	for ch := range h.subs {
		offer(ch, u)
	}
}

func (h *hub) subscribe(ctx context.Context) <-chan User {
	ch := make(chan User, 1)

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[chan User]struct{})
	}
	h.subs[ch] = struct{}{}
	ch <- h.current
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// offer replaces any undelivered value with u. Must be called with h.mu held.
func offer(ch chan User, u User) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- u
}

// Static is a Provider whose identity is set in code. Tests and the direct
// storage drivers use it.
type Static struct {
	hub hub
}

var _ Provider = (*Static)(nil)

// NewStatic creates a provider signed in as u. Pass the zero User to start logged out.
func NewStatic(u User) *Static {
	s := &Static{}
	s.hub.current = u
	return s
}

// Current returns the signed-in user.
func (s *Static) Current() (User, bool) {
	u := s.hub.get()
	return u, !u.IsZero()
}

// Subscribe implements Provider.
func (s *Static) Subscribe(ctx context.Context) <-chan User {
	return s.hub.subscribe(ctx)
}

// Set signs u in, replacing any previous identity.
func (s *Static) Set(u User) {
	s.hub.set(u)
}

// Clear signs the current user out.
func (s *Static) Clear() {
	s.hub.set(User{})
}
