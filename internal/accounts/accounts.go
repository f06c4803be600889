// Package accounts is the view model behind the accounts page: listing,
// default selection and opening new accounts.
package accounts

import (
	"context"
	"fmt"

	"evergreen/internal/cache"
	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/validation"
)

// Backend is the slice of the API client this package uses.
type Backend interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	OpenAccount(ctx context.Context, accountType core.AccountType, currency string) (*core.Account, error)
}

// Result is one load of the account list.
type Result struct {
	Accounts []core.Account
	// Default is the primary account, else the first one. Nil when Empty.
	Default *core.Account
	// Empty means the load succeeded and the user has no accounts yet.
	Empty bool
}

// Find returns the account with the given number.
func (r Result) Find(number string) (*core.Account, bool) {
	for i := range r.Accounts {
		if r.Accounts[i].AccountNumber == number {
			return &r.Accounts[i], true
		}
	}
	return nil, false
}

// Select returns the requested account when it exists, else the default.
func (r Result) Select(requested string) *core.Account {
	if requested != "" {
		if a, ok := r.Find(requested); ok {
			return a
		}
	}
	return r.Default
}

// OpenRequest is the form posted from the "open account" panel.
type OpenRequest struct {
	AccountType string `form:"account_type" validate:"required,oneof=SAVINGS FIXED_DEPOSIT BUSINESS"`
	Currency    string `form:"currency" validate:"required,oneof=KES USD EUR GBP"`
}

var openMessages = validation.Messages{
	"account_type": "Choose a valid account type",
}

type Service struct {
	backend Backend
	cache   cache.Cache[Result]
	logger  *log.Logger
}

// NewService wires the view model. listCache holds per-session account lists
// keyed by session id and may be nil.
func NewService(backend Backend, listCache cache.Cache[Result], logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		backend: backend,
		cache:   listCache,
		logger:  logger.WithComponent(log.ComponentAccounts),
	}
}

// ListAccounts fetches the accounts and picks the default. Every call goes to
// the backend; the result is cached under cacheKey for Cached.
func (s *Service) ListAccounts(ctx context.Context, cacheKey string) (Result, error) {
	list, err := s.backend.ListAccounts(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Build(list)
	if s.cache != nil && cacheKey != "" {
		s.cache.Set(cacheKey, res)
	}
	return res, nil
}

// Cached returns the last list loaded for cacheKey, falling back to a fetch.
// It serves account switching on other pages.
func (s *Service) Cached(ctx context.Context, cacheKey string) (Result, error) {
	if s.cache != nil && cacheKey != "" {
		if res, ok := s.cache.Get(cacheKey); ok {
			return res, nil
		}
	}
	return s.ListAccounts(ctx, cacheKey)
}

// Forget drops the cached list, e.g. on logout.
func (s *Service) Forget(cacheKey string) {
	if s.cache != nil {
		s.cache.Delete(cacheKey)
	}
}

// Build derives the default account from a freshly fetched list.
func Build(list []core.Account) Result {
	res := Result{Accounts: list}
	if len(list) == 0 {
		res.Empty = true
		return res
	}
	res.Default = &res.Accounts[0]
	for i := range res.Accounts {
		if res.Accounts[i].IsPrimary {
			res.Default = &res.Accounts[i]
			break
		}
	}
	return res
}

// Opened is the outcome of a successful OpenAccount.
type Opened struct {
	AccountNumber string
	// List is the re-fetched account list. RefreshErr is set instead when
	// that re-fetch failed; the account was still opened.
	List       Result
	RefreshErr error
}

// OpenAccount validates the request, opens the account and re-fetches the
// list. The new account only appears once the backend lists it.
func (s *Service) OpenAccount(ctx context.Context, cacheKey string, req OpenRequest) (*Opened, error) {
	if req.Currency == "" {
		req.Currency = core.DefaultCurrency
	}
	if errs := validation.Struct(req, openMessages); errs != nil {
		return nil, errs
	}

	acct, err := s.backend.OpenAccount(ctx, core.AccountType(req.AccountType), req.Currency)
	if err != nil {
		return nil, err
	}
	log.NewStructuredLogger(s.logger).LogAccountOpened(ctx, acct.AccountNumber, req.AccountType, req.Currency)

	s.Forget(cacheKey)
	out := &Opened{AccountNumber: acct.AccountNumber}
	out.List, out.RefreshErr = s.ListAccounts(ctx, cacheKey)
	if out.RefreshErr != nil {
		s.logger.WarnContext(ctx, "Account list refresh after opening failed", log.FieldError, out.RefreshErr)
	}
	return out, nil
}

// SuccessMessage is shown after an account was opened.
func (o *Opened) SuccessMessage() string {
	return fmt.Sprintf("Account created successfully! Account Number: %s", o.AccountNumber)
}
