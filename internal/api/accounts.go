package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"evergreen/internal/core"
)

// ListAccounts returns every account owned by the caller.
func (c *Client) ListAccounts(ctx context.Context) ([]core.Account, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:     "list_accounts",
		method: http.MethodGet,
		path:   "accounts/create/account/",
		expect: []int{http.StatusOK},
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeList[core.Account](raw)
}

type openAccountRequest struct {
	AccountType core.AccountType `json:"account_type"`
	Currency    string           `json:"currency"`
}

// OpenAccount opens an account. Only 201 counts as success; the created
// account, including its number, is decoded from that same response.
func (c *Client) OpenAccount(ctx context.Context, accountType core.AccountType, currency string) (*core.Account, error) {
	body, err := jsonBody(openAccountRequest{AccountType: accountType, Currency: currency})
	if err != nil {
		return nil, fmt.Errorf("api open_account: encode: %w", err)
	}
	var out struct {
		core.Account
		Data *core.Account `json:"data"`
	}
	err = c.do(ctx, request{
		op:     "open_account",
		method: http.MethodPost,
		path:   "accounts/create/account/",
		body:   body,
		expect: []int{http.StatusCreated},
	}, &out)
	if err != nil {
		return nil, err
	}
	acct := out.Account
	if out.Data != nil {
		acct = *out.Data
	}
	return &acct, nil
}

// TransactionHistory fetches one page of history. query carries filters and
// the cursor already serialised.
func (c *Client) TransactionHistory(ctx context.Context, accountNumber string, query url.Values) (*core.TransactionPage, error) {
	var page core.TransactionPage
	err := c.do(ctx, request{
		op:     "transaction_history",
		method: http.MethodGet,
		path:   "transactions/history/" + url.PathEscape(accountNumber),
		query:  query,
		expect: []int{http.StatusOK},
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// TransactionStats returns the backend's stats object for a period. Its shape
// is not fixed, so it is handed back as a generic map.
func (c *Client) TransactionStats(ctx context.Context, accountNumber, period string) (map[string]any, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	out := map[string]any{}
	err := c.do(ctx, request{
		op:     "transaction_stats",
		method: http.MethodGet,
		path:   "transactions/stats/" + url.PathEscape(accountNumber),
		query:  q,
		expect: []int{http.StatusOK},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeList accepts either a bare array or a {"results": [...]} envelope.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var env struct {
		Results []T `json:"results"`
		Data    []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("api: decode list: %w", err)
	}
	if env.Results != nil {
		return env.Results, nil
	}
	return env.Data, nil
}
