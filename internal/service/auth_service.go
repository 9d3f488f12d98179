package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/notekeeper/internal/auth"
	"github.com/mmynk/notekeeper/internal/metrics"
	"github.com/mmynk/notekeeper/internal/middleware"
	"github.com/mmynk/notekeeper/pkg/docapi"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	revocations   auth.RevocationList
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// NewAuthService creates a new authentication service.
// revocations may be nil, in which case Logout only acknowledges the call.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, revocations auth.RevocationList, logger *slog.Logger, m *metrics.Metrics) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		revocations:   revocations,
		logger:        logger,
		metrics:       m,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[docapi.RegisterRequest]) (*connect.Response[docapi.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	// Validate input
	if strings.TrimSpace(req.Msg.Email) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}
	displayName := req.Msg.DisplayName
	if displayName == "" {
		displayName = strings.SplitN(req.Msg.Email, "@", 2)[0]
	}

	// Register user
	user, err := s.authenticator.Register(ctx, req.Msg.Email, displayName, req.Msg.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	// Generate JWT token
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&docapi.RegisterResponse{
		User:  docapi.UserFromModel(user),
		Token: token,
	}), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[docapi.LoginRequest]) (*connect.Response[docapi.LoginResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	// Validate input
	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	// Authenticate user
	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	// Generate JWT token
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&docapi.LoginResponse{
		User:  docapi.UserFromModel(user),
		Token: token,
	}), nil
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[docapi.LogoutRequest]) (*connect.Response[docapi.LogoutResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	tokenID := middleware.GetTokenID(ctx)
	if s.revocations != nil && tokenID != "" {
		if err := s.revocations.Revoke(ctx, tokenID, middleware.GetTokenExpiry(ctx)); err != nil {
			s.logger.Error("Failed to revoke token", "user_id", userID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		s.metrics.ObserveRevocation()
	}

	s.logger.Info("User logged out", "user_id", userID)
	return connect.NewResponse(&docapi.LogoutResponse{}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[docapi.GetCurrentUserRequest]) (*connect.Response[docapi.GetCurrentUserResponse], error) {
	// Get user ID from context (set by auth middleware)
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	s.logger.Info("GetCurrentUser request", "user_id", userID)

	user, err := s.authenticator.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		s.logger.Error("GetCurrentUser failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&docapi.GetCurrentUserResponse{User: docapi.UserFromModel(user)}), nil
}
