package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wastepoints/internal/cache"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	accessTokenKeyPrefix  = "revoked:access_token:"
)

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	// Enabled reports whether tokens are tracked. A disabled store accepts
	// every signature-valid refresh token and never reports revocations.
	Enabled() bool
	StoreRefreshToken(ctx context.Context, tokenID, uid string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (uid string, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	RevokeAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type refreshTokenRecord struct {
	UID string `json:"uid"`
}

// Enabled reports whether the backing Redis is configured.
func (s *TokenStore) Enabled() bool {
	return s.cache.Enabled()
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID, uid string, ttl time.Duration) error {
	payload, err := json.Marshal(refreshTokenRecord{UID: uid})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves the uid a refresh token was issued to.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (string, error) {
	data, err := s.cache.Get(ctx, refreshTokenKeyPrefix+tokenID)
	if err != nil || data == nil {
		return "", fmt.Errorf("refresh token not found")
	}

	var record refreshTokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("unmarshal token data: %w", err)
	}
	if record.UID == "" {
		return "", fmt.Errorf("invalid uid in token data")
	}
	return record.UID, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// RevokeAccessToken marks an access token revoked until it would have expired.
func (s *TokenStore) RevokeAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenRevoked checks if an access token is revoked.
func (s *TokenStore) IsAccessTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, accessTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil // Not revoked if error (fail safe)
	}
	return data != nil, nil
}
