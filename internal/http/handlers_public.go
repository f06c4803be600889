package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"evergreen/internal/accounts"
	"evergreen/internal/log"
	"evergreen/internal/validation"
)

type homeView struct {
	PageData
	Products []accounts.Product
	FAQs     []FAQ
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render.Page(w, r, "home", http.StatusOK, homeView{
		PageData: s.page(r, bankName, ""),
		Products: accounts.Products,
		FAQs:     faqs,
	})
}

type aboutView struct {
	PageData
	Milestones     []Milestone
	DataProtection []FAQ
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render.Page(w, r, "about", http.StatusOK, aboutView{
		PageData:       s.page(r, "About us", ""),
		Milestones:     milestones,
		DataProtection: dataProtection,
	})
}

type faqView struct {
	PageData
	FAQs []FAQ
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	s.render.Page(w, r, "faq", http.StatusOK, faqView{
		PageData: s.page(r, "Frequently asked questions", ""),
		FAQs:     faqs,
	})
}

// ContactForm is the message posted from the contact page.
type ContactForm struct {
	FullName string `form:"full_name" validate:"required,max=120"`
	Email    string `form:"email" validate:"required,email"`
	Message  string `form:"message" validate:"required,max=2000"`
}

var contactMessages = validation.Messages{
	"full_name.required": "Please enter your name",
	"message.required":   "Please enter a message",
}

const contactSuccessMessage = "Message successfully sent! We'll get back to you soon."

type contactView struct {
	PageData
	Channels []ContactChannel
	Form     ContactForm
	Errors   validation.FieldErrors
}

func (s *Server) handleContactForm(w http.ResponseWriter, r *http.Request) {
	s.render.Page(w, r, "contact", http.StatusOK, contactView{
		PageData: s.page(r, "Contact us", ""),
		Channels: contactChannels,
	})
}

func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	view := contactView{PageData: s.page(r, "Contact us", ""), Channels: contactChannels}
	if err := parseForm(r); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	_ = bindForm(r.PostForm, &view.Form)

	if errs := validation.Struct(view.Form, contactMessages); errs != nil {
		view.Errors = errs
		s.renderContact(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Contact message received",
		"email", view.Form.Email,
		"length", len(view.Form.Message))

	view.Form = ContactForm{}
	view.Flash = successFlash(contactSuccessMessage)
	s.renderContact(w, r, http.StatusOK, view)
}

func (s *Server) renderContact(w http.ResponseWriter, r *http.Request, status int, view contactView) {
	if isPartialRequest(r) {
		s.render.Fragment(w, r, "contact", "contact_form", status, view)
		return
	}
	s.render.Page(w, r, "contact", status, view)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render.Page(w, r, "not_found", http.StatusNotFound, s.page(r, "Page not found", ""))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	msg := "Too many attempts. Please wait a minute and try again."
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, msg).Write(w)
		return
	}
	http.Error(w, msg, http.StatusTooManyRequests)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and session storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.render.Has("home") && s.render.Has("dashboard") {
		checks["templates"] = "ok"
	} else {
		checks["templates"] = "failed: pages missing"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["session_store"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["session_store"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.Metrics()
	rl := s.rateLimiter.Metrics()
	sec := s.detector.Metrics()

	counters := []struct {
		name, help, kind string
		value            int64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerFailures},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rl.TotalHits},
		{"rate_limit_clients", "Clients tracked by the rate limiter", "gauge", rl.ClientCount},
		{"suspicious_requests_total", "Requests flagged as probes", "counter", sec.SuspiciousRequests},
		{"blocked_requests_total", "Requests refused by the detector", "counter", sec.BlockedRequests},
		{"uptime_seconds", "Process uptime in seconds", "gauge", int64(time.Since(s.started).Seconds())},
	}
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n", c.name, c.help, c.name, c.kind, c.name, c.value)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
