package auth

import "time"

// Principal is the verified identity of the caller. It carries no credential
// material and cannot be modified after resolution.
type Principal struct {
	uid       string
	tokenID   string
	expiresAt time.Time
}

// UID returns the caller's uid.
func (p Principal) UID() string { return p.uid }

// TokenID returns the id of the access token the principal was resolved from.
func (p Principal) TokenID() string { return p.tokenID }

// ExpiresAt returns when the access token stops being valid.
func (p Principal) ExpiresAt() time.Time { return p.expiresAt }

// IsZero reports whether p is the zero Principal.
func (p Principal) IsZero() bool { return p.uid == "" }

// NewPrincipal builds a Principal for uid. Used by tests and trusted tooling
// such as the seed command.
func NewPrincipal(uid string) Principal {
	return Principal{uid: uid}
}
