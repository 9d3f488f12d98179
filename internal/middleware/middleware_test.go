package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/notekeeper/internal/auth"
	"github.com/mmynk/notekeeper/internal/models"
)

type capture struct {
	userID  string
	email   string
	tokenID string
	called  bool
}

func (c *capture) next(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
	c.called = true
	c.userID = GetUserID(ctx)
	c.email = GetEmail(ctx)
	c.tokenID = GetTokenID(ctx)
	return nil, nil
}

func newRequest(header string) *connect.Request[struct{}] {
	req := connect.NewRequest(&struct{}{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Email: "a@example.com"}
	token, err := jwtManager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	claims, err := jwtManager.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		c := &capture{}
		_, err := RequireAuth(jwtManager, nil)(c.next)(context.Background(), newRequest("Bearer "+token))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.userID != "user-1" || c.email != "a@example.com" {
			t.Errorf("identity = %q/%q, want user-1/a@example.com", c.userID, c.email)
		}
		if c.tokenID != claims.ID {
			t.Errorf("token ID = %q, want %q", c.tokenID, claims.ID)
		}
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &capture{}
			_, err := RequireAuth(jwtManager, nil)(c.next)(context.Background(), newRequest(tt.header))
			if connect.CodeOf(err) != connect.CodeUnauthenticated {
				t.Errorf("code = %v, want unauthenticated", connect.CodeOf(err))
			}
			if c.called {
				t.Error("next should not be called")
			}
		})
	}

	t.Run("revoked token", func(t *testing.T) {
		revocations := auth.NewMemoryRevocationList()
		if err := revocations.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time); err != nil {
			t.Fatalf("Revoke failed: %v", err)
		}
		c := &capture{}
		_, err := RequireAuth(jwtManager, revocations)(c.next)(context.Background(), newRequest("Bearer "+token))
		if !errors.Is(err, auth.ErrRevokedToken) {
			t.Errorf("err = %v, want ErrRevokedToken", err)
		}
	})
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	c := &capture{}
	if _, err := OptionalAuth(jwtManager, nil)(c.next)(context.Background(), newRequest("")); err != nil {
		t.Fatalf("anonymous call failed: %v", err)
	}
	if !c.called || c.userID != "" {
		t.Errorf("anonymous call: called=%v user=%q", c.called, c.userID)
	}

	c = &capture{}
	if _, err := OptionalAuth(jwtManager, nil)(c.next)(context.Background(), newRequest("Bearer bogus")); err != nil {
		t.Fatalf("invalid token should be ignored: %v", err)
	}
	if c.userID != "" {
		t.Errorf("invalid token set user %q", c.userID)
	}

	c = &capture{}
	if _, err := OptionalAuth(jwtManager, nil)(c.next)(context.Background(), newRequest("Bearer "+token)); err != nil {
		t.Fatalf("authenticated call failed: %v", err)
	}
	if c.userID != "user-1" {
		t.Errorf("user = %q, want user-1", c.userID)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, "/auth/Login")

	if !rl.Allow("/auth/Login", "peer-a") || !rl.Allow("/auth/Login", "peer-a") {
		t.Fatal("burst of two should be allowed")
	}
	if rl.Allow("/auth/Login", "peer-a") {
		t.Error("third call should be limited")
	}
	if !rl.Allow("/auth/Login", "peer-b") {
		t.Error("other peers have their own bucket")
	}
	for i := 0; i < 5; i++ {
		if !rl.Allow("/docs/List", "peer-a") {
			t.Fatal("unlisted procedures are not limited")
		}
	}
}
