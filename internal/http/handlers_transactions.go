package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"evergreen/internal/accounts"
	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/session"
	"evergreen/internal/transactions"
	"evergreen/internal/validation"
	"evergreen/internal/viewstate"
)

const transactionsPath = dashboardPath + "/transactions"

type transactionsView struct {
	PageData
	Accounts     viewstate.State[accounts.Result]
	Selected     *core.Account
	Filters      transactions.Filters
	FilterErrors map[string]string
	History      viewstate.State[*transactions.Page]
	Cursor       string
	Types        []core.TransactionType
	Statuses     []core.TransactionStatus
}

// PageURL links to the page at cursor under the current filters.
func (v transactionsView) PageURL(cursor string) string {
	q := v.Filters.Query(cursor)
	if v.Selected != nil {
		q.Set("account", v.Selected.AccountNumber)
	}
	return transactionsPath + "?" + q.Encode()
}

// ExportURL links to the CSV export of the current view.
func (v transactionsView) ExportURL() string {
	q := v.Filters.Query(v.Cursor)
	if v.Selected != nil {
		q.Set("account", v.Selected.AccountNumber)
	}
	return transactionsPath + "/export?" + q.Encode()
}

// ClearURL links to the unfiltered first page.
func (v transactionsView) ClearURL() string {
	q := url.Values{}
	if v.Selected != nil {
		q.Set("account", v.Selected.AccountNumber)
	}
	return transactionsPath + "?" + q.Encode()
}

// resolveAccount loads the account list and picks the requested account, the
// session's selection, or the default.
func (s *Server) resolveAccount(r *http.Request, sess *session.Session) (accounts.Result, *core.Account, error) {
	res, err := s.accounts.Cached(r.Context(), sess.ID)
	if err != nil {
		return res, nil, err
	}
	requested := r.URL.Query().Get("account")
	if requested == "" {
		requested = sess.SelectedAccount
	}
	return res, res.Select(requested), nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	view := transactionsView{
		PageData: s.page(r, "Transactions", "transactions"),
		Types:    core.TransactionTypes,
		Statuses: core.TransactionStatuses,
	}

	res, selected, err := s.resolveAccount(r, sess)
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		s.logPanelError(ctx, log.ComponentAccounts, log.OpList, err)
		view.Accounts = viewstate.Error[accounts.Result](api.UserMessage(err, accountsLoadFailedMessage))
		s.renderTransactions(w, r, http.StatusOK, view)
		return
	}
	view.Accounts = viewstate.Ready(res)
	view.Selected = selected
	if selected == nil {
		s.renderTransactions(w, r, http.StatusOK, view)
		return
	}

	query := r.URL.Query()
	view.Cursor = query.Get("cursor")
	filters, ferr := transactions.ParseFilters(query)
	view.Filters = filters
	if ferr != nil {
		var fe *transactions.FilterError
		if errors.As(ferr, &fe) {
			view.FilterErrors = fe.Fields
		}
		s.renderTransactions(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	tok := s.tracker.Begin(sess.ID + ":transactions")
	defer s.tracker.Finish(tok)

	page, err := s.transactions.FetchHistory(ctx, selected.AccountNumber, filters, view.Cursor)

	if !s.tracker.Current(tok) || (page != nil && page.Account != selected.AccountNumber) {
		log.FromContext(ctx).WithComponent(log.ComponentTransactions).InfoContext(ctx, "Dropping superseded transaction response",
			log.FieldErrorType, log.ErrorTypeStale,
			log.FieldAccountNumber, selected.AccountNumber,
			log.FieldGeneration, tok.Generation())
		NewHTMXResponse().NoSwap().Status(http.StatusNoContent).Write(w)
		return
	}

	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		var fe *transactions.FilterError
		if errors.As(err, &fe) {
			view.FilterErrors = fe.Fields
			s.renderTransactions(w, r, http.StatusUnprocessableEntity, view)
			return
		}
		s.logPanelError(ctx, log.ComponentTransactions, log.OpList, err)
		view.History = viewstate.Error[*transactions.Page](api.UserMessage(err, "Failed to load transactions"))
		s.renderTransactions(w, r, http.StatusOK, view)
		return
	}

	view.History = viewstate.Ready(page)
	s.renderTransactions(w, r, http.StatusOK, view)
}

func (s *Server) renderTransactions(w http.ResponseWriter, r *http.Request, status int, view transactionsView) {
	if isPartialRequest(r) {
		s.render.Fragment(w, r, "transactions", "transactions_panel", status, view)
		return
	}
	s.render.Page(w, r, "transactions", status, view)
}

// handleExportTransactions downloads the page at cursor as CSV.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	_, selected, err := s.resolveAccount(r, sess)
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		s.logPanelError(ctx, log.ComponentAccounts, log.OpList, err)
		http.Error(w, api.UserMessage(err, accountsLoadFailedMessage), http.StatusBadGateway)
		return
	}
	if selected == nil {
		http.Error(w, "No account to export", http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	filters, ferr := transactions.ParseFilters(query)
	if ferr != nil {
		http.Error(w, ferr.Error(), http.StatusUnprocessableEntity)
		return
	}
	page, err := s.transactions.FetchHistory(ctx, selected.AccountNumber, filters, query.Get("cursor"))
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		s.logPanelError(ctx, log.ComponentTransactions, log.OpExport, err)
		http.Error(w, api.UserMessage(err, "Failed to export transactions"), http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := transactions.ExportCSV(&buf, page.Transactions, selected.AccountNumber); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to write statement",
			log.FieldOperation, log.OpExport,
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	s.record(ctx, sess, core.ActivityStatementExport, selected.AccountNumber)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", transactions.ExportFilename(selected.AccountNumber, s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

var statsPeriods = []string{"week", "month", "year"}

type statsView struct {
	Account string
	Period  string
	Periods []string
	Stats   viewstate.State[map[string]any]
}

// handleTransactionStats renders the backend's aggregate figures.
func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	_, selected, err := s.resolveAccount(r, sess)
	if s.handleUnauthenticated(w, r, err) {
		return
	}
	view := statsView{Period: r.URL.Query().Get("period"), Periods: statsPeriods}
	if !validation.Var(view.Period, "oneof=week month year") {
		view.Period = "month"
	}
	switch {
	case err != nil:
		s.logPanelError(ctx, log.ComponentAccounts, log.OpList, err)
		view.Stats = viewstate.Error[map[string]any](api.UserMessage(err, accountsLoadFailedMessage))
	case selected == nil:
		view.Stats = viewstate.Error[map[string]any]("Open an account to see statistics.")
	default:
		view.Account = selected.AccountNumber
		stats, err := s.transactions.Stats(ctx, selected.AccountNumber, view.Period)
		if err != nil {
			if s.handleUnauthenticated(w, r, err) {
				return
			}
			s.logPanelError(ctx, log.ComponentTransactions, log.OpRead, err)
			view.Stats = viewstate.Error[map[string]any](api.UserMessage(err, "Failed to load statistics"))
		} else {
			view.Stats = viewstate.Ready(stats)
		}
	}
	s.render.Fragment(w, r, "transactions", "stats", http.StatusOK, view)
}
