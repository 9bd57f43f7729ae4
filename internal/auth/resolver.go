package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/model"
)

// DefaultLookupTimeout bounds the user lookup made while resolving a token.
const DefaultLookupTimeout = 3 * time.Second

// UserLookup is the part of the user store the resolver needs.
type UserLookup interface {
	FindByUID(ctx context.Context, uid string) (*model.User, error)
}

// Resolver turns a bearer token into a Principal.
type Resolver struct {
	jwt     *JWTService
	tokens  TokenStoreInterface
	users   UserLookup
	timeout time.Duration
}

// NewResolver creates a Resolver. tokens may be nil when no revocation list
// is kept.
func NewResolver(jwtService *JWTService, tokens TokenStoreInterface, users UserLookup, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{jwt: jwtService, tokens: tokens, users: users, timeout: timeout}
}

// Resolve verifies token and returns the caller's Principal. Failures are
// UnauthenticatedError values, except store outages which surface as
// ErrStorageUnavailable.
func (r *Resolver) Resolve(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, apperrors.Unauthenticated(apperrors.ReasonNoToken)
	}

	claims, err := r.jwt.ValidateAccessToken(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Principal{}, apperrors.Unauthenticated(apperrors.ReasonExpired)
		}
		return Principal{}, apperrors.Unauthenticated(apperrors.ReasonInvalidToken)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.tokens != nil && r.tokens.Enabled() {
		revoked, err := r.tokens.IsAccessTokenRevoked(ctx, claims.ID)
		if err != nil {
			return Principal{}, apperrors.ErrStorageUnavailable
		}
		if revoked {
			return Principal{}, apperrors.Unauthenticated(apperrors.ReasonInvalidToken)
		}
	}

	if _, err := r.users.FindByUID(ctx, claims.UID()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Principal{}, apperrors.Unauthenticated(apperrors.ReasonUserNotFound)
		}
		return Principal{}, err
	}

	return Principal{
		uid:       claims.UID(),
		tokenID:   claims.ID,
		expiresAt: claims.ExpiresAt.Time,
	}, nil
}
