// Package identity talks to the external identity provider: it verifies the
// RS256 ID tokens the browser obtains at sign-in and manages custom claims
// through the provider's account REST API.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when an ID token fails signature or claim checks.
	ErrInvalidToken = errors.New("invalid id token")

	// ErrUserNotFound is returned when the provider has no account for the lookup key.
	ErrUserNotFound = errors.New("identity user not found")
)

// Token is a verified ID token.
type Token struct {
	UID     string
	Email   string
	Name    string
	Picture string
	Claims  map[string]any
}

// Role returns the role custom claim, or "" when the token carries none.
func (t *Token) Role() string {
	role, _ := t.Claims["role"].(string)
	return role
}

// UserRecord is an account as stored by the provider.
type UserRecord struct {
	UID          string
	Email        string
	DisplayName  string
	CustomClaims map[string]any
}

// Provider is the subset of the identity provider the service relies on.
type Provider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
	GetUser(ctx context.Context, uid string) (*UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
}

// MergeCustomClaims returns a new map holding existing overlaid with updates.
func MergeCustomClaims(existing, updates map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(updates))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}
