// Package session keeps the signed-in user's token pair on the server side.
//
// The browser only carries an opaque cookie holding the session id; the
// record behind it is {access, refresh, profile}. Only this package and the
// Store implementations create, change or destroy records.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"evergreen/internal/core"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID              string    `json:"id"`
	AccessToken     string    `json:"access"`
	RefreshToken    string    `json:"refresh"`
	User            core.User `json:"user"`
	SelectedAccount string    `json:"selected_account,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get returns ErrNotFound for unknown or expired ids.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// PurgeExpired drops every record that expired before now.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ExpiryFromToken reads the exp claim of a JWT without verifying it. The
// backend stays the authority on token validity; this only bounds how long
// the server keeps the record around. ok is false when there is no usable exp.
func ExpiryFromToken(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
