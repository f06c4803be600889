// Package transactions loads transaction history pages and derives the
// page-local figures shown next to them.
package transactions

import (
	"context"
	"net/url"
	"strings"

	"evergreen/internal/core"
	"evergreen/internal/log"
)

// Backend is the slice of the API client this package uses.
type Backend interface {
	TransactionHistory(ctx context.Context, accountNumber string, query url.Values) (*core.TransactionPage, error)
	TransactionStats(ctx context.Context, accountNumber, period string) (map[string]any, error)
}

// Page is one loaded page of history for one account.
type Page struct {
	Account      string
	Filters      Filters
	Transactions []core.Transaction
	NextCursor   string
	PrevCursor   string
	HasMore      bool
	Stats        Statistics
}

// HasNext reports whether forward navigation is possible.
func (p *Page) HasNext() bool { return p.HasMore && p.NextCursor != "" }

// HasPrevious reports whether backward navigation is possible.
func (p *Page) HasPrevious() bool { return p.PrevCursor != "" }

type Service struct {
	backend Backend
	logger  *log.Logger
}

func NewService(backend Backend, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{backend: backend, logger: logger.WithComponent(log.ComponentTransactions)}
}

// FetchHistory loads the page at cursor (empty for the first page). Filters
// are validated before any request is made.
func (s *Service) FetchHistory(ctx context.Context, accountNumber string, filters Filters, cursor string) (*Page, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	raw, err := s.backend.TransactionHistory(ctx, accountNumber, filters.Query(cursor))
	if err != nil {
		return nil, err
	}
	page := &Page{
		Account:      accountNumber,
		Filters:      filters,
		Transactions: raw.Results,
		NextCursor:   CursorToken(raw.Next),
		PrevCursor:   CursorToken(raw.Previous),
		HasMore:      raw.HasMore,
	}
	if page.Transactions == nil {
		page.Transactions = []core.Transaction{}
	}
	page.Stats = ComputeStatistics(page.Transactions, accountNumber)

	s.logger.DebugContext(ctx, "Transaction page loaded",
		log.FieldAccountNumber, accountNumber,
		"count", len(page.Transactions),
		"has_more", page.HasMore)
	return page, nil
}

// Stats loads the backend's aggregate statistics for a period.
func (s *Service) Stats(ctx context.Context, accountNumber, period string) (map[string]any, error) {
	return s.backend.TransactionStats(ctx, accountNumber, period)
}

// CursorToken returns the opaque cursor of a next/previous link. The backend
// may send either a bare token or a full URL carrying a cursor parameter.
func CursorToken(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "?") && !strings.Contains(link, "://") {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if c := u.Query().Get("cursor"); c != "" {
		return c
	}
	return ""
}
