package http

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"evergreen/internal/accounts"
	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/transactions"
	"evergreen/internal/viewstate"
)

const recentActivityLimit = 8

type dashboardView struct {
	PageData
	Accounts viewstate.State[accounts.Result]
	Selected *core.Account
	Summary  viewstate.State[transactions.Summary]
	KYC      viewstate.State[*core.KYCRecord]
	// KYCMissing means the user has not submitted onboarding yet.
	KYCMissing bool
	Activity   viewstate.State[[]core.Activity]
}

// handleDashboard loads every overview panel concurrently. A failed panel
// renders its own error; the others are unaffected.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	view := dashboardView{PageData: s.page(r, "Dashboard", "dashboard")}

	var (
		g       errgroup.Group
		acctErr error
		kycErr  error
		txnErr  error
		actErr  error
		acctRes accounts.Result
		summary transactions.Summary
		record  *core.KYCRecord
		recent  []core.Activity
	)

	g.Go(func() error {
		acctRes, acctErr = s.accounts.ListAccounts(ctx, sess.ID)
		if acctErr != nil {
			return nil
		}
		selected := acctRes.Select(sess.SelectedAccount)
		if selected == nil {
			return nil
		}
		view.Selected = selected
		var page *transactions.Page
		page, txnErr = s.transactions.FetchHistory(ctx, selected.AccountNumber, transactions.Filters{}, "")
		if txnErr == nil {
			summary = transactions.MonthSummary(page.Transactions, selected.AccountNumber, s.now())
		}
		return nil
	})
	g.Go(func() error {
		record, kycErr = s.backend.GetKYC(ctx)
		return nil
	})
	if s.activity != nil {
		g.Go(func() error {
			recent, actErr = s.activity.Recent(ctx, sess.User.Email, recentActivityLimit)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range []error{acctErr, txnErr, kycErr} {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
	}

	if acctErr != nil {
		s.logPanelError(ctx, log.ComponentAccounts, log.OpList, acctErr)
		view.Accounts = viewstate.Error[accounts.Result](api.UserMessage(acctErr, "Failed to load accounts"))
	} else {
		view.Accounts = viewstate.Ready(acctRes)
	}

	switch {
	case view.Selected == nil:
	case txnErr != nil:
		s.logPanelError(ctx, log.ComponentTransactions, log.OpList, txnErr)
		view.Summary = viewstate.Error[transactions.Summary](api.UserMessage(txnErr, "Failed to load transactions"))
	default:
		view.Summary = viewstate.Ready(summary)
	}

	switch {
	case errors.Is(kycErr, api.ErrNotFound):
		view.KYCMissing = true
		view.KYC = viewstate.Ready[*core.KYCRecord](nil)
	case kycErr != nil:
		s.logPanelError(ctx, log.ComponentKYC, log.OpRead, kycErr)
		view.KYC = viewstate.Error[*core.KYCRecord](api.UserMessage(kycErr, "Failed to load verification status"))
	default:
		view.KYC = viewstate.Ready(record)
	}

	if actErr != nil {
		log.FromContext(ctx).WithComponent(log.ComponentActivity).WarnContext(ctx, "Failed to load recent activity",
			log.FieldError, actErr)
		view.Activity = viewstate.Error[[]core.Activity]("Recent activity is unavailable right now.")
	} else if s.activity != nil {
		view.Activity = viewstate.Ready(recent)
	}

	s.render.Page(w, r, "dashboard", http.StatusOK, view)
}
