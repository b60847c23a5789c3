// Package session issues and parses the signed session cookie.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aurorallabs/referral-portal/internal/model"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

const issuer = "referral-portal"

// ErrInvalidSession is returned for missing, tampered or expired session tokens.
var ErrInvalidSession = errors.New("invalid session")

// Session is the identity resolved from the cookie. Role is a snapshot taken at sign-in.
type Session struct {
	UID       string
	Email     string
	Role      model.Role
	ExpiresAt time.Time
}

// IsAdmin reports whether the snapshot role is admin.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == model.RoleAdmin
}

// Claims are the JWT claims stored in the cookie.
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs session tokens with HS256.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a session token for the user.
func (m *Manager) Issue(uid, email string, role model.Role) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a session token.
func (m *Manager) Parse(token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidSession)
	}

	return &Session{
		UID:       claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
