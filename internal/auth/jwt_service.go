package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenExpiry is the access-token lifetime when none is configured.
	DefaultAccessTokenExpiry = 7 * 24 * time.Hour
	// DefaultRefreshTokenExpiry is the refresh-token lifetime when none is configured.
	DefaultRefreshTokenExpiry = 30 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed tokens, bad signatures and wrong token types.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims represents JWT claims. The subject is the user's uid.
type Claims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// UID returns the uid the token was issued for.
func (c *Claims) UID() string {
	return c.Subject
}

// IssuedToken is a signed token together with its id and expiry.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service with the given secret. Zero TTLs
// fall back to the defaults.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenExpiry
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenExpiry
	}
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// RefreshTTL returns the configured refresh-token lifetime.
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccessToken generates a new access token for the user.
func (s *JWTService) GenerateAccessToken(uid, email string) (IssuedToken, error) {
	return s.generate(uid, email, tokenTypeAccess, s.accessTTL)
}

// GenerateRefreshToken generates a new refresh token for the user.
// The token ID is returned for storage in the token store.
func (s *JWTService) GenerateRefreshToken(uid, email string) (IssuedToken, error) {
	return s.generate(uid, email, tokenTypeRefresh, s.refreshTTL)
}

func (s *JWTService) generate(uid, email, typ string, ttl time.Duration) (IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return IssuedToken{Token: token, ID: claims.ID, ExpiresAt: expiresAt}, nil
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, tokenTypeRefresh)
}

func (s *JWTService) validate(tokenString, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
