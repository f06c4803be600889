package http

import (
	"errors"
	"net/http"

	"evergreen/internal/accounts"
	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/validation"
	"evergreen/internal/viewstate"
)

const accountsLoadFailedMessage = "Failed to load accounts"

type accountsView struct {
	PageData
	Accounts   viewstate.State[accounts.Result]
	Selected   *core.Account
	Products   []accounts.Product
	Currencies []string
	Form       accounts.OpenRequest
	Errors     validation.FieldErrors
	// OpenError is shown inside the "open account" panel.
	OpenError string
}

func (s *Server) newAccountsView(r *http.Request) accountsView {
	return accountsView{
		PageData:   s.page(r, "Accounts", "accounts"),
		Products:   accounts.Products,
		Currencies: core.Currencies,
		Form:       accounts.OpenRequest{AccountType: string(core.AccountSavings), Currency: core.DefaultCurrency},
	}
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	view := s.newAccountsView(r)

	res, err := s.accounts.ListAccounts(r.Context(), sess.ID)
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		s.logPanelError(r.Context(), log.ComponentAccounts, log.OpList, err)
		view.Accounts = viewstate.Error[accounts.Result](api.UserMessage(err, accountsLoadFailedMessage))
	} else {
		view.Accounts = viewstate.Ready(res)
		view.Selected = res.Select(sess.SelectedAccount)
	}

	if isPartialRequest(r) {
		s.render.Fragment(w, r, "accounts", "account_list", http.StatusOK, view)
		return
	}
	s.render.Page(w, r, "accounts", http.StatusOK, view)
}

// handleOpenAccount opens an account and re-renders the list. Validation
// failures never reach the backend.
func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	view := s.newAccountsView(r)
	if err := parseForm(r); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	_ = bindForm(r.PostForm, &view.Form)

	opened, err := s.accounts.OpenAccount(ctx, sess.ID, view.Form)
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		var fieldErrs validation.FieldErrors
		status := http.StatusUnprocessableEntity
		if errors.As(err, &fieldErrs) {
			view.Errors = fieldErrs
		} else {
			s.logPanelError(ctx, log.ComponentAccounts, log.OpCreate, err)
			view.OpenError = api.UserMessage(err, "Failed to create account")
			status = http.StatusBadGateway
		}
		if cached, cerr := s.accounts.Cached(ctx, sess.ID); cerr == nil {
			view.Accounts = viewstate.Ready(cached)
			view.Selected = cached.Select(sess.SelectedAccount)
		}
		s.render.Fragment(w, r, "accounts", "accounts_panel", status, view)
		return
	}

	s.record(ctx, sess, core.ActivityAccountOpened, opened.AccountNumber)
	view.Form = accounts.OpenRequest{AccountType: string(core.AccountSavings), Currency: core.DefaultCurrency}
	view.Flash = successFlash(opened.SuccessMessage())
	if opened.RefreshErr != nil {
		if s.handleUnauthenticated(w, r, opened.RefreshErr) {
			return
		}
		view.Accounts = viewstate.Error[accounts.Result](api.UserMessage(opened.RefreshErr, accountsLoadFailedMessage))
	} else {
		view.Accounts = viewstate.Ready(opened.List)
		view.Selected = opened.List.Select(sess.SelectedAccount)
	}

	NewHTMXResponse().
		TriggerAccountsChanged(opened.AccountNumber).
		TriggerSuccessNotification(opened.SuccessMessage()).
		Headers(w)
	s.render.Fragment(w, r, "accounts", "accounts_panel", http.StatusOK, view)
}

// handleSelectAccount stores the account other views default to.
func (s *Server) handleSelectAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := parseForm(r); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	number := sanitizeInput(r.PostForm.Get("account"))

	res, err := s.accounts.Cached(ctx, sess.ID)
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		s.logPanelError(ctx, log.ComponentAccounts, log.OpList, err)
		ErrorResponse(http.StatusBadGateway, api.UserMessage(err, accountsLoadFailedMessage)).Write(w)
		return
	}
	if _, found := res.Find(number); !found {
		NotFoundError("Account not found").Write(w)
		return
	}
	if err := s.sessions.SelectAccount(ctx, number); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to store selected account",
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Something went wrong. Please try again.").Write(w)
		return
	}

	next := r.PostForm.Get("next")
	if next != dashboardPath+"/transactions" {
		next = dashboardPath
	}
	redirect(w, r, next)
}
