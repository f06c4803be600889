package transactions

import (
	"time"

	"github.com/shopspring/decimal"

	"evergreen/internal/core"
)

// Statistics summarise one loaded page. They are not account lifetime totals.
type Statistics struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
	Pending  int
	Total    int
	Credits  int
	Debits   int
	Unknown  int
}

// ComputeStatistics sums completed credits as income and completed debits
// (amount plus fee) as expenses. Unknown-direction rows count toward Total only.
func ComputeStatistics(txns []core.Transaction, selected string) Statistics {
	st := Statistics{Total: len(txns)}
	for _, t := range txns {
		if t.Status == core.StatusPending {
			st.Pending++
		}
		dir := core.Classify(t, selected)
		switch dir {
		case core.DirectionCredit:
			st.Credits++
		case core.DirectionDebit:
			st.Debits++
		default:
			st.Unknown++
		}
		if t.Status != core.StatusCompleted {
			continue
		}
		switch dir {
		case core.DirectionCredit:
			st.Income = st.Income.Add(t.Amount)
		case core.DirectionDebit:
			st.Expenses = st.Expenses.Add(t.Amount).Add(t.Fee)
		}
	}
	st.Net = st.Income.Sub(st.Expenses)
	return st
}

// RecentLimit is how many transactions the overview lists.
const RecentLimit = 5

// Summary is the dashboard overview of the current month.
type Summary struct {
	Month    string
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Recent   []core.Transaction
}

// MonthSummary applies the ComputeStatistics rules to the transactions
// created in now's calendar month and keeps the first RecentLimit rows.
func MonthSummary(txns []core.Transaction, selected string, now time.Time) Summary {
	year, month, _ := now.Date()
	var current []core.Transaction
	for _, t := range txns {
		ty, tm, _ := t.CreatedAt.In(now.Location()).Date()
		if ty == year && tm == month {
			current = append(current, t)
		}
	}
	st := ComputeStatistics(current, selected)

	recent := txns
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	return Summary{
		Month:    now.Format("January 2006"),
		Income:   st.Income,
		Expenses: st.Expenses,
		Recent:   recent,
	}
}
