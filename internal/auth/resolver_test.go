package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/model"
	"wastepoints/internal/repository"
)

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID, uid string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, uid, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) RevokeAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type failingLookup struct{ err error }

func (f failingLookup) FindByUID(context.Context, string) (*model.User, error) {
	return nil, f.err
}

func newTestUser(t *testing.T, repo repository.UserRepository, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: "Tester", PasswordHash: "x"}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var unauth *apperrors.UnauthenticatedError
	require.True(t, errors.As(err, &unauth), "expected UnauthenticatedError, got %v", err)
	return unauth.Reason
}

func TestResolver_Resolve(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	user := newTestUser(t, repo, "a@example.com")

	jwtService := NewJWTService("test-secret", time.Hour, time.Hour)
	resolver := NewResolver(jwtService, nil, repo, time.Second)

	valid, err := jwtService.GenerateAccessToken(user.UID, user.Email)
	require.NoError(t, err)
	refresh, err := jwtService.GenerateRefreshToken(user.UID, user.Email)
	require.NoError(t, err)
	ghost, err := jwtService.GenerateAccessToken("00000000-0000-0000-0000-000000000000", "ghost@example.com")
	require.NoError(t, err)
	foreign, err := NewJWTService("other", time.Hour, time.Hour).GenerateAccessToken(user.UID, user.Email)
	require.NoError(t, err)

	expiredService := NewJWTService("test-secret", time.Minute, time.Minute)
	expiredService.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredService.GenerateAccessToken(user.UID, user.Email)
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantReason string
	}{
		{name: "missing token", token: "", wantReason: apperrors.ReasonNoToken},
		{name: "blank token", token: "   ", wantReason: apperrors.ReasonNoToken},
		{name: "malformed token", token: "abc.def", wantReason: apperrors.ReasonInvalidToken},
		{name: "foreign signature", token: foreign.Token, wantReason: apperrors.ReasonInvalidToken},
		{name: "refresh token", token: refresh.Token, wantReason: apperrors.ReasonInvalidToken},
		{name: "expired token", token: expired.Token, wantReason: apperrors.ReasonExpired},
		{name: "deleted user", token: ghost.Token, wantReason: apperrors.ReasonUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, err := resolver.Resolve(context.Background(), tt.token)
			assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
			assert.Equal(t, tt.wantReason, reasonOf(t, err))
			assert.True(t, principal.IsZero())
		})
	}

	t.Run("valid token", func(t *testing.T) {
		principal, err := resolver.Resolve(context.Background(), valid.Token)
		require.NoError(t, err)
		assert.Equal(t, user.UID, principal.UID())
		assert.Equal(t, valid.ID, principal.TokenID())
		assert.WithinDuration(t, valid.ExpiresAt, principal.ExpiresAt(), time.Second)
	})
}

func TestResolver_RevokedToken(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	user := newTestUser(t, repo, "a@example.com")
	jwtService := NewJWTService("test-secret", time.Hour, time.Hour)
	issued, err := jwtService.GenerateAccessToken(user.UID, user.Email)
	require.NoError(t, err)

	tokens := new(MockTokenStore)
	tokens.On("Enabled").Return(true)
	tokens.On("IsAccessTokenRevoked", mock.Anything, issued.ID).Return(true, nil)

	_, err = NewResolver(jwtService, tokens, repo, time.Second).Resolve(context.Background(), issued.Token)
	assert.Equal(t, apperrors.ReasonInvalidToken, reasonOf(t, err))
	tokens.AssertExpectations(t)
}

func TestResolver_StorageUnavailable(t *testing.T) {
	jwtService := NewJWTService("test-secret", time.Hour, time.Hour)
	issued, err := jwtService.GenerateAccessToken("uid-1", "a@example.com")
	require.NoError(t, err)

	lookup := failingLookup{err: apperrors.ErrStorageUnavailable}
	_, err = NewResolver(jwtService, nil, lookup, time.Second).Resolve(context.Background(), issued.Token)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthenticated)
}
