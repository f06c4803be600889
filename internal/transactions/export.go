package transactions

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"evergreen/internal/core"
)

var csvHeader = []string{"Date", "Reference", "Type", "Description", "Amount", "Fee", "Status", "Balance"}

// ExportFilename names the statement download for an account on a given day.
func ExportFilename(accountNumber string, now time.Time) string {
	return fmt.Sprintf("transactions_%s_%s.csv", accountNumber, now.Format(DateLayout))
}

// ExportCSV writes txns as a statement. Debits are negative.
func ExportCSV(w io.Writer, txns []core.Transaction, selected string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txns {
		dir := core.Classify(t, selected)
		amount := t.Amount
		if dir == core.DirectionDebit {
			amount = amount.Neg()
		}
		balance := ""
		if t.BalanceAfter != nil {
			balance = t.BalanceAfter.StringFixed(2)
		}
		row := []string{
			t.CreatedAt.Format("2006-01-02 15:04"),
			t.Reference,
			directionLabel(dir),
			Describe(t, selected),
			amount.StringFixed(2),
			t.Fee.StringFixed(2),
			string(t.Status),
			balance,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.Reference, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func directionLabel(d core.Direction) string {
	switch d {
	case core.DirectionCredit:
		return "Credit"
	case core.DirectionDebit:
		return "Debit"
	default:
		return "Unknown"
	}
}

// Describe returns the row description, falling back to the counterparty or
// the transaction type when the backend sent none.
func Describe(t core.Transaction, selected string) string {
	if t.Description != "" {
		return t.Description
	}
	switch core.Classify(t, selected) {
	case core.DirectionCredit:
		return "Received from " + orExternal(t.SourceNumber())
	case core.DirectionDebit:
		return "Sent to " + orExternal(t.DestinationNumber())
	}
	if t.Type != "" {
		return string(t.Type)
	}
	return "Transaction"
}

func orExternal(number string) string {
	if number == "" {
		return "External"
	}
	return number
}
