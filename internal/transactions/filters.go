package transactions

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"evergreen/internal/core"
)

// DateLayout is the wire and form format of start_date / end_date.
const DateLayout = "2006-01-02"

// Filters narrows a history query. Zero fields are not sent; the backend ANDs
// the ones that are.
type Filters struct {
	TransactionType core.TransactionType
	Status          core.TransactionStatus
	StartDate       *time.Time
	EndDate         *time.Time
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal
	Search          string
}

// FilterError maps form field names to messages.
type FilterError struct {
	Fields map[string]string
}

func (e *FilterError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid filters: " + strings.Join(parts, "; ")
}

func (e *FilterError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *FilterError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ParseFilters reads filter form values. The returned Filters holds every
// field that parsed, even when err is non-nil, so the form can be re-rendered.
func ParseFilters(values url.Values) (Filters, error) {
	var f Filters
	ferr := &FilterError{}

	f.TransactionType = core.TransactionType(strings.TrimSpace(values.Get("transaction_type")))
	f.Status = core.TransactionStatus(strings.TrimSpace(values.Get("status")))
	f.Search = strings.TrimSpace(values.Get("search"))

	if t, ok := parseDate(values.Get("start_date"), "start_date", ferr); ok {
		f.StartDate = t
	}
	if t, ok := parseDate(values.Get("end_date"), "end_date", ferr); ok {
		f.EndDate = t
	}
	if d, ok := parseAmount(values.Get("min_amount"), "min_amount", ferr); ok {
		f.MinAmount = d
	}
	if d, ok := parseAmount(values.Get("max_amount"), "max_amount", ferr); ok {
		f.MaxAmount = d
	}

	if err := f.Validate(); err != nil {
		for k, v := range err.(*FilterError).Fields {
			ferr.add(k, v)
		}
	}
	return f, ferr.orNil()
}

func parseDate(raw, field string, ferr *FilterError) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		ferr.add(field, "Use the YYYY-MM-DD format")
		return nil, false
	}
	return &t, true
}

func parseAmount(raw, field string, ferr *FilterError) (*decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		ferr.add(field, "Enter a valid non-negative amount")
		return nil, false
	}
	return &d, true
}

// Validate checks the typed filters before they are serialised.
func (f Filters) Validate() error {
	ferr := &FilterError{}
	if f.TransactionType != "" && !f.TransactionType.Valid() {
		ferr.add("transaction_type", "Unknown transaction type")
	}
	if f.Status != "" && !f.Status.Valid() {
		ferr.add("status", "Unknown status")
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		ferr.add("end_date", "End date must not be before start date")
	}
	if f.MinAmount != nil && f.MinAmount.IsNegative() {
		ferr.add("min_amount", "Enter a valid non-negative amount")
	}
	if f.MaxAmount != nil && f.MaxAmount.IsNegative() {
		ferr.add("max_amount", "Enter a valid non-negative amount")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		ferr.add("max_amount", "Maximum must not be below minimum")
	}
	return ferr.orNil()
}

// Query serialises the set filters plus the cursor.
func (f Filters) Query(cursor string) url.Values {
	q := url.Values{}
	if f.TransactionType != "" {
		q.Set("transaction_type", string(f.TransactionType))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.StartDate != nil {
		q.Set("start_date", f.StartDate.Format(DateLayout))
	}
	if f.EndDate != nil {
		q.Set("end_date", f.EndDate.Format(DateLayout))
	}
	if f.MinAmount != nil {
		q.Set("min_amount", f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		q.Set("max_amount", f.MaxAmount.String())
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return q
}

// Clear drops every filter.
func (f Filters) Clear() Filters { return Filters{} }

func (f Filters) IsZero() bool {
	return f.TransactionType == "" && f.Status == "" && f.StartDate == nil &&
		f.EndDate == nil && f.MinAmount == nil && f.MaxAmount == nil && f.Search == ""
}

// Active counts the filters in use, for the filter toggle badge.
func (f Filters) Active() int {
	return len(f.Query(""))
}

// FormValue returns a filter in form representation, for re-rendering inputs.
func (f Filters) FormValue(field string) string {
	return f.Query("").Get(field)
}
