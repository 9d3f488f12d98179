package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan User) User {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for identity")
		return User{}
	}
}

func TestStatic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewStatic(User{})
	_, ok := p.Current()
	assert.False(t, ok)

	ch := p.Subscribe(ctx)
	assert.True(t, receive(t, ch).IsZero(), "current identity is delivered first")

	p.Set(User{ID: "u1", Email: "u1@example.com"})
	assert.Equal(t, "u1", receive(t, ch).ID)

	u, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	// Setting the same identity again is not a change.
	p.Set(User{ID: "u1", Email: "u1@example.com"})
	p.Clear()
	assert.True(t, receive(t, ch).IsZero())

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStaticSlowSubscriberSeesLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewStatic(User{ID: "u0"})
	ch := p.Subscribe(ctx)

	p.Set(User{ID: "u1"})
	p.Set(User{ID: "u2"})
	p.Set(User{ID: "u3"})

	assert.Equal(t, "u3", receive(t, ch).ID)
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	_, ok := p.Current()
	assert.False(t, ok, "missing file means logged out")
	assert.Empty(t, p.Token())

	token := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, p.Save(Session{User: User{ID: "u1", Email: "u1@example.com"}, Token: token}))

	u, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, token, p.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	u, ok = reopened.Current()
	require.True(t, ok)
	assert.Equal(t, "u1@example.com", u.Email)

	require.NoError(t, p.Clear())
	_, ok = p.Current()
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, p.Clear(), "clearing twice is fine")
}

func TestFileProviderExpiredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)

	require.NoError(t, p.Save(Session{User: User{ID: "u1"}, Token: signedToken(t, time.Now().Add(-time.Minute))}))
	_, ok := p.Current()
	assert.False(t, ok)
	assert.Empty(t, p.Token())
	assert.Equal(t, "u1", p.Session().User.ID, "raw session is still readable")

	require.NoError(t, p.Save(Session{User: User{ID: "u1"}, Token: "not-a-jwt"}))
	_, ok = p.Current()
	assert.False(t, ok, "unreadable tokens count as logged out")
}

func TestFileProviderWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	watched, err := NewFileProvider(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- watched.Watch(ctx) }()

	ch := watched.Subscribe(ctx)
	assert.True(t, receive(t, ch).IsZero())

	// Another process logs in.
	writer, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	token := signedToken(t, time.Now().Add(time.Hour))
	require.Eventually(t, func() bool {
		if err := writer.Save(Session{User: User{ID: "u2"}, Token: token}); err != nil {
			return false
		}
		u, ok := watched.Current()
		return ok && u.ID == "u2"
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, "u2", receive(t, ch).ID)

	// And logs out again.
	require.NoError(t, writer.Clear())
	assert.True(t, receive(t, ch).IsZero())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
