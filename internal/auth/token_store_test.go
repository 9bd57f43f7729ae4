package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wastepoints/internal/cache"
)

func TestTokenStore_Disabled(t *testing.T) {
	store := NewTokenStore(cache.New("", "", 0))
	ctx := context.Background()

	assert.False(t, store.Enabled())
	assert.NoError(t, store.StoreRefreshToken(ctx, "jti", "uid-1", time.Minute))

	_, err := store.GetRefreshToken(ctx, "jti")
	assert.Error(t, err)

	assert.NoError(t, store.RevokeAccessToken(ctx, "jti", time.Minute))
	revoked, err := store.IsAccessTokenRevoked(ctx, "jti")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
