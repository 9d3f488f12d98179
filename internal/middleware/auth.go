package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/notekeeper/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
	// TokenIDKey is the context key for the ID of the presented token.
	TokenIDKey contextKey = "token_id"
	// TokenExpiryKey is the context key for the expiry of the presented token.
	TokenExpiryKey contextKey = "token_expiry"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// GetTokenID extracts the presented token's ID from the context.
func GetTokenID(ctx context.Context) string {
	id, _ := ctx.Value(TokenIDKey).(string)
	return id
}

// GetTokenExpiry extracts the presented token's expiry from the context.
func GetTokenExpiry(ctx context.Context) time.Time {
	exp, _ := ctx.Value(TokenExpiryKey).(time.Time)
	return exp
}

// WithIdentity returns a context carrying an authenticated user, as RequireAuth would.
func WithIdentity(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, EmailKey, email)
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = WithIdentity(ctx, claims.UserID, claims.Email)
	ctx = context.WithValue(ctx, TokenIDKey, claims.ID)
	if claims.ExpiresAt != nil {
		ctx = context.WithValue(ctx, TokenExpiryKey, claims.ExpiresAt.Time)
	}
	return ctx
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// validate checks the token signature and that it has not been revoked.
func validate(ctx context.Context, jwtManager *auth.JWTManager, revocations auth.RevocationList, token string) (*auth.Claims, error) {
	claims, err := jwtManager.Validate(token)
	if err != nil {
		return nil, err
	}
	if revocations != nil && claims.ID != "" {
		revoked, err := revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Fail closed: an unreachable revocation list rejects the request.
			slog.Error("Revocation check failed", "error", err)
			return nil, auth.ErrInvalidToken
		}
		if revoked {
			return nil, auth.ErrRevokedToken
		}
	}
	return claims, nil
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it against the signing key
// and the revocation list (which may be nil), and adds the user identity to the request context.
func RequireAuth(jwtManager *auth.JWTManager, revocations auth.RevocationList) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := validate(ctx, jwtManager, revocations, tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(withClaims(ctx, claims), req)
		}
	}
}

// OptionalAuth returns a middleware that validates JWT tokens if present, but allows
// requests without authentication. The auth service uses it so Register and Login stay
// public while Logout and GetCurrentUser see the caller.
func OptionalAuth(jwtManager *auth.JWTManager, revocations auth.RevocationList) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if tokenString, ok := bearerToken(req.Header().Get("Authorization")); ok {
				// Invalid tokens are ignored (optional auth)
				if claims, err := validate(ctx, jwtManager, revocations, tokenString); err == nil {
					ctx = withClaims(ctx, claims)
				}
			}
			return next(ctx, req)
		}
	}
}
