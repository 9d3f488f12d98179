package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

// Session is what `notes login` persists.
type Session struct {
	User     User      `json:"user"`
	Token    string    `json:"token"`
	Endpoint string    `json:"endpoint,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
}

// FileProvider reads the identity from a JSON session file. Sessions whose
// token has expired count as logged out. Call Watch to pick up changes made
// by other processes.
type FileProvider struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
	hub    hub

	mu         sync.RWMutex
	session    Session
	expires    time.Time
	unreadable bool
}

var _ Provider = (*FileProvider)(nil)

// NewFileProvider loads the session stored at path. A missing file means logged out.
func NewFileProvider(path string, logger *slog.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &FileProvider{path: path, logger: logger, now: time.Now}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Path returns the session file location.
func (p *FileProvider) Path() string {
	return p.path
}

// Current returns the signed-in user unless the session is missing or expired.
func (p *FileProvider) Current() (User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.validLocked() {
		return User{}, false
	}
	return p.session.User, true
}

// Token returns the bearer token of a valid session, or "".
// It makes FileProvider a docapi.TokenSource.
func (p *FileProvider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.validLocked() {
		return ""
	}
	return p.session.Token
}

// Session returns the raw stored session, expired or not.
func (p *FileProvider) Session() Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// Subscribe implements Provider.
func (p *FileProvider) Subscribe(ctx context.Context) <-chan User {
	return p.hub.subscribe(ctx)
}

// Save writes s to the session file and signs its user in.
func (p *FileProvider) Save(s Session) error {
	if s.SavedAt.IsZero() {
		s.SavedAt = p.now().UTC()
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	p.apply(s)
	return nil
}

// Clear removes the session file and signs the user out.
func (p *FileProvider) Clear() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	p.apply(Session{})
	return nil
}

// Watch follows the session file until ctx ends, publishing logins, logouts and
// token expiry. It returns nil when ctx is cancelled.
func (p *FileProvider) Watch(ctx context.Context) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: Save replaces the file by rename.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Catch up on anything written before the watch started.
	if err := p.reload(); err != nil {
		p.logger.Warn("Failed to reload session", "path", p.path, "error", err)
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	expiry := time.NewTimer(time.Hour)
	p.armExpiry(expiry)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			p.logger.Debug("Session file changed", "op", event.Op.String())
			debounce.Reset(50 * time.Millisecond)

		case <-debounce.C:
			if err := p.reload(); err != nil {
				p.logger.Warn("Failed to reload session", "path", p.path, "error", err)
				continue
			}
			p.armExpiry(expiry)

		case <-expiry.C:
			p.logger.Info("Session expired", "path", p.path)
			p.hub.set(User{})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("fsnotify error", "error", err)
		}
	}
}

// armExpiry schedules t to fire when the current token expires.
func (p *FileProvider) armExpiry(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	p.mu.RLock()
	expires := p.expires
	valid := p.validLocked()
	p.mu.RUnlock()
	if valid && !expires.IsZero() {
		t.Reset(expires.Sub(p.now()))
	}
}

// reload re-reads the session file. A missing file means logged out.
func (p *FileProvider) reload() error {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.apply(Session{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode session %s: %w", p.path, err)
	}
	p.apply(s)
	return nil
}

func (p *FileProvider) apply(s Session) {
	expires, err := tokenExpiry(s.Token)
	if err != nil && s.Token != "" {
		p.logger.Warn("Ignoring unreadable session token", "path", p.path, "error", err)
	}

	p.mu.Lock()
	p.session = s
	p.expires = expires
	p.unreadable = err != nil
	valid := p.validLocked()
	p.mu.Unlock()

	if valid {
		p.hub.set(s.User)
	} else {
		p.hub.set(User{})
	}
}

// validLocked reports whether the stored session can be used. Must be called with p.mu held.
func (p *FileProvider) validLocked() bool {
	if p.session.User.IsZero() || p.session.Token == "" || p.unreadable {
		return false
	}
	return p.expires.IsZero() || p.now().Before(p.expires)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server does that on every call.
func tokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, nil
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
