package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"evergreen/internal/core"
	"evergreen/internal/log"
)

const DefaultCookieName = "evergreen_session"

type ctxKey struct{}

// Manager binds Store records to browser cookies and request contexts.
type Manager struct {
	store      Store
	cookieName string
	secure     bool
	ttl        time.Duration
	now        func() time.Time
	logger     *log.Logger
}

type ManagerOption func(*Manager)

func WithSecureCookie(secure bool) ManagerOption {
	return func(m *Manager) { m.secure = secure }
}

func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l.WithComponent(log.ComponentSession) }
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager. ttl bounds sessions whose refresh token
// carries no readable expiry.
func NewManager(store Store, ttl time.Duration, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		cookieName: DefaultCookieName,
		ttl:        ttl,
		now:        time.Now,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Credentials is what a successful login hands to Start.
type Credentials struct {
	Access  string
	Refresh string
	User    core.User
}

// Start creates a session for creds, persists it and sets the cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, creds Credentials) (*Session, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	if exp, ok := ExpiryFromToken(creds.Refresh); ok && exp.After(now) {
		expires = exp
	}

	s := &Session{
		ID:           NewID(),
		AccessToken:  creds.Access,
		RefreshToken: creds.Refresh,
		User:         creds.User,
		CreatedAt:    now,
		ExpiresAt:    expires,
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.InfoContext(ctx, "Session started", log.FieldUserID, s.User.ID)
	return s, nil
}

// Middleware resolves the cookie into a session id on the request context.
// Requests without a valid session pass through anonymously.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(m.cookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := m.store.Get(r.Context(), c.Value); err != nil {
			if !errors.Is(err, ErrNotFound) {
				m.logger.ErrorContext(r.Context(), "Session lookup failed", log.FieldError, err)
			}
			m.clearCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), c.Value)))
	})
}

// RequireAuth sends anonymous requests to loginPath. htmx requests get an
// HX-Redirect header so the whole page navigates.
func (m *Manager) RequireAuth(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := m.Current(r.Context()); err != nil {
				RedirectToLogin(w, r, loginPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedirectToLogin redirects both plain and htmx requests.
func RedirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// WithID stores a session id on ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session id carried by ctx.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Current loads the caller's session from the store. It always reads the
// store, so an invalidation by a concurrent request is seen immediately.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return nil, ErrNotFound
	}
	return m.store.Get(ctx, id)
}

// AccessToken implements api.TokenSource.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	s, err := m.Current(ctx)
	if err != nil {
		return "", false
	}
	return s.AccessToken, s.AccessToken != ""
}

// Invalidate deletes the caller's session. It is wired as the API client's
// 401 hook.
func (m *Manager) Invalidate(ctx context.Context) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return
	}
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.ErrorContext(ctx, "Failed to invalidate session", log.FieldError, err)
		return
	}
	m.logger.WarnContext(ctx, "Session invalidated after backend rejected the token",
		log.FieldErrorType, log.ErrorTypeAuth)
}

// Destroy removes the caller's session and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter) error {
	m.clearCookie(w)
	id, ok := IDFromContext(ctx)
	if !ok {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ClearCookie expires the browser cookie without touching the store.
func (m *Manager) ClearCookie(w http.ResponseWriter) { m.clearCookie(w) }

// SelectAccount remembers the account picked on the accounts page so other
// views default to it.
func (m *Manager) SelectAccount(ctx context.Context, accountNumber string) error {
	s, err := m.Current(ctx)
	if err != nil {
		return err
	}
	if s.SelectedAccount == accountNumber {
		return nil
	}
	s.SelectedAccount = accountNumber
	return m.store.Save(ctx, s)
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
