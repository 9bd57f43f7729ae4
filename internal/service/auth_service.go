package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"wastepoints/internal/auth"
	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/model"
	"wastepoints/internal/repository"
)

const (
	bcryptCost = 10
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
)

// ErrInvalidRefreshToken is returned when a refresh token is invalid, expired or revoked.
var ErrInvalidRefreshToken = apperrors.Unauthenticated("invalid refresh token")

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, principal auth.Principal, refreshToken string) error
	Me(ctx context.Context, principal auth.Principal) (*model.User, error)
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	logger     *zap.Logger
	timeout    time.Duration
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		logger:     logger,
		timeout:    DefaultStorageTimeout,
	}
}

// Register creates a new user with a hashed password and signs them in.
func (s *authService) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = model.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", apperrors.ErrInvalidRequest)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrInvalidRequest, MinPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", storageError(err))
	}

	s.logger.Info("user registered", zap.String("uid", user.UID))
	return s.issue(ctx, user)
}

// Login authenticates a user and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", storageError(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

func (s *authService) issue(ctx context.Context, user *model.User) (*Session, error) {
	access, err := s.jwtService.GenerateAccessToken(user.UID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refresh, err := s.jwtService.GenerateRefreshToken(user.UID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, refresh.ID, user.UID, s.jwtService.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &Session{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresAt:    access.ExpiresAt,
		User:         user,
	}, nil
}

// RefreshToken validates a refresh token and returns a new access token.
// Without a token store every signature-valid refresh token is accepted.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	if s.tokenStore.Enabled() {
		storedUID, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
		if err != nil || storedUID != claims.UID() {
			return "", ErrInvalidRefreshToken
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.users.FindByUID(ctx, claims.UID()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthenticated(apperrors.ReasonUserNotFound)
		}
		return "", storageError(err)
	}

	access, err := s.jwtService.GenerateAccessToken(claims.UID(), claims.Email)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return access.Token, nil
}

// Logout revokes the caller's access token and, when given, their refresh token.
func (s *authService) Logout(ctx context.Context, principal auth.Principal, refreshToken string) error {
	if principal.TokenID() != "" {
		ttl := time.Until(principal.ExpiresAt())
		if err := s.tokenStore.RevokeAccessToken(ctx, principal.TokenID(), ttl); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	if refreshToken == "" {
		return nil
	}

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil || claims.UID() != principal.UID() {
		return ErrInvalidRefreshToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, claims.ID)
}

// Me returns the caller's profile.
func (s *authService) Me(ctx context.Context, principal auth.Principal) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.FindByUID(ctx, principal.UID())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated(apperrors.ReasonUserNotFound)
		}
		return nil, storageError(err)
	}
	return user, nil
}
