package http

import (
	"errors"
	"net/http"

	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/session"
	"evergreen/internal/validation"
)

// RegisterForm is the sign-up form.
type RegisterForm struct {
	FirstName       string `form:"first_name" validate:"required,max=50"`
	LastName        string `form:"last_name" validate:"required,max=50"`
	Phone           string `form:"phone" validate:"required,max=20"`
	Email           string `form:"email" validate:"required,email"`
	Address         string `form:"address" validate:"required"`
	Password        string `form:"password,raw" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password,raw" validate:"required,eqfield=Password"`
	Terms           bool   `form:"terms" validate:"required"`
}

var registerMessages = validation.Messages{
	"password.min":              "Password must be at least 8 characters",
	"confirm_password.eqfield":  "Passwords do not match",
	"confirm_password.required": "Please confirm your password",
	"terms":                     "Please accept the terms and conditions",
}

// backendRegisterFields maps backend validation keys onto form inputs.
var backendRegisterFields = map[string]string{
	"email":        "email",
	"password":     "password",
	"phone_number": "phone",
	"first_name":   "first_name",
	"last_name":    "last_name",
	"address":      "address",
}

const (
	registerFailedMessage = "Registration failed. Please try again."
	registeredMessage     = "Account created. Please sign in."
	loginFailedMessage    = "Login failed. Check your email and password."
)

type registerView struct {
	PageData
	Form   RegisterForm
	Errors validation.FieldErrors
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	s.render.Page(w, r, "register", http.StatusOK, registerView{PageData: s.page(r, "Create your account", "")})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	view := registerView{PageData: s.page(r, "Create your account", "")}
	if err := parseForm(r); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	_ = bindForm(r.PostForm, &view.Form)

	if errs := validation.Struct(view.Form, registerMessages); errs != nil {
		view.Errors = errs
		s.renderRegister(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	f := view.Form
	err := s.backend.Register(r.Context(), api.RegisterRequest{
		Email:       f.Email,
		Password:    f.Password,
		PhoneNumber: f.Phone,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		Address:     f.Address,
	})
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Registration rejected",
			log.FieldOperation, log.OpRegister,
			log.FieldError, err)
		view.Errors = validation.FieldErrors{}
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			for k, msg := range apiErr.Fields {
				if field, ok := backendRegisterFields[k]; ok {
					view.Errors.Add(field, msg)
				}
			}
		}
		view.Form.Password, view.Form.ConfirmPassword = "", ""
		view.Flash = errorFlash(api.UserMessage(err, registerFailedMessage))
		s.renderRegister(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Customer registered",
		log.FieldOperation, log.OpRegister)
	redirect(w, r, loginPath+"?registered=1")
}

func (s *Server) renderRegister(w http.ResponseWriter, r *http.Request, status int, view registerView) {
	if isPartialRequest(r) {
		s.render.Fragment(w, r, "register", "register_form", status, view)
		return
	}
	s.render.Page(w, r, "register", status, view)
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password,raw" validate:"required"`
}

type loginView struct {
	PageData
	Form   LoginForm
	Errors validation.FieldErrors
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	view := loginView{PageData: s.page(r, "Sign in", "")}
	switch {
	case r.URL.Query().Get("registered") != "":
		view.Flash = successFlash(registeredMessage)
	case r.URL.Query().Get("expired") != "":
		view.Flash = infoFlash("Your session has expired. Please log in again.")
	}
	s.render.Page(w, r, "login", http.StatusOK, view)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	view := loginView{PageData: s.page(r, "Sign in", "")}
	if err := parseForm(r); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	_ = bindForm(r.PostForm, &view.Form)

	if errs := validation.Struct(view.Form, nil); errs != nil {
		view.Errors = errs
		s.renderLogin(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	resp, err := s.backend.Login(r.Context(), view.Form.Email, view.Form.Password)
	if err != nil {
		logger.WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldError, err)
		view.Form.Password = ""
		msg := loginFailedMessage
		var netErr *api.NetworkError
		if errors.As(err, &netErr) {
			msg = api.NetworkErrorMessage
		}
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Status != http.StatusUnauthorized && apiErr.Message != "" {
			msg = apiErr.Message
		}
		view.Flash = errorFlash(msg)
		s.renderLogin(w, r, http.StatusUnauthorized, view)
		return
	}

	sess, err := s.sessions.Start(r.Context(), w, session.Credentials{
		Access:  resp.Access,
		Refresh: resp.Refresh,
		User:    resp.User,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to start session",
			log.FieldOperation, log.OpLogin,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		view.Form.Password = ""
		view.Flash = errorFlash("Something went wrong. Please try again.")
		s.renderLogin(w, r, http.StatusInternalServerError, view)
		return
	}

	s.record(r.Context(), sess, core.ActivityLogin, "")
	redirect(w, r, dashboardPath)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, view loginView) {
	if isPartialRequest(r) {
		s.render.Fragment(w, r, "login", "login_form", status, view)
		return
	}
	s.render.Page(w, r, "login", status, view)
}

// handleLogout ends the session locally whatever the backend answers.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		s.sessions.ClearCookie(w)
		redirect(w, r, loginPath)
		return
	}

	if sess.RefreshToken != "" {
		if err := s.backend.Logout(ctx, sess.RefreshToken); err != nil {
			log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Backend logout failed",
				log.FieldOperation, log.OpLogout,
				log.FieldError, err)
		}
	}
	s.record(ctx, sess, core.ActivityLogout, "")
	s.forgetSession(sess.ID)
	if err := s.sessions.Destroy(ctx, w); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to remove session", log.FieldError, err)
	}
	redirect(w, r, loginPath)
}

func (s *Server) signedIn(r *http.Request) bool {
	_, err := s.sessions.Current(r.Context())
	return err == nil
}
