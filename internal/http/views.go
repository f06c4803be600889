package http

import (
	"context"
	"errors"
	"net/http"

	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/session"
)

// Flash is a one-off notice rendered above the page content.
type Flash struct {
	Kind    string
	Message string
}

func successFlash(msg string) *Flash { return &Flash{Kind: "success", Message: msg} }
func errorFlash(msg string) *Flash   { return &Flash{Kind: "error", Message: msg} }
func infoFlash(msg string) *Flash    { return &Flash{Kind: "info", Message: msg} }

// PageData is embedded by every page view.
type PageData struct {
	Title  string
	Active string
	User   *core.User
	Flash  *Flash
}

// Dashboard reports whether the page uses the signed-in layout.
func (p PageData) Dashboard() bool { return p.Active != "" }

// page builds the common view fields. Active names the dashboard nav entry;
// empty for marketing pages.
func (s *Server) page(r *http.Request, title, active string) PageData {
	p := PageData{Title: title, Active: active}
	if sess, err := s.sessions.Current(r.Context()); err == nil {
		u := sess.User
		p.User = &u
	}
	return p
}

// currentSession returns the caller's session. RequireAuth guarantees one on
// dashboard routes; a concurrent logout can still remove it.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Current(r.Context())
	if err != nil {
		s.sessions.ClearCookie(w)
		session.RedirectToLogin(w, r, loginPath)
		return nil, false
	}
	return sess, true
}

// handleUnauthenticated ends the session after the backend rejected its
// token and sends the user to the login page. It reports whether err was
// such a rejection.
func (s *Server) handleUnauthenticated(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, api.ErrUnauthenticated) {
		return false
	}
	if derr := s.sessions.Destroy(r.Context(), w); derr != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to remove rejected session", log.FieldError, derr)
	}
	if id, ok := session.IDFromContext(r.Context()); ok {
		s.forgetSession(id)
	}
	session.RedirectToLogin(w, r, loginPath)
	return true
}

// forgetSession drops per-session caches.
func (s *Server) forgetSession(id string) {
	if s.accounts != nil {
		s.accounts.Forget(id)
	}
	if s.drafts != nil {
		s.drafts.Discard(id)
	}
}

// logPanelError logs a failed backend call scoped to one panel.
func (s *Server) logPanelError(ctx context.Context, component, op string, err error) {
	errType := log.ErrorTypeUpstream
	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		errType = log.ErrorTypeNetwork
	}
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogError(ctx, "Backend call failed", err, component, op, log.NewFields().WithErrorType(errType))
}

func (s *Server) record(ctx context.Context, sess *session.Session, kind core.ActivityKind, detail string) {
	if s.activity == nil || sess == nil {
		return
	}
	s.activity.Record(ctx, sess.User.Email, kind, detail)
}

// redirect navigates plain and htmx requests alike.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(location).Write(w)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
