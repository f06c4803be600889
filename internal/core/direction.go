package core

// Direction is the side of a transaction relative to the selected account.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionCredit
	DirectionDebit
)

func (d Direction) String() string {
	switch d {
	case DirectionCredit:
		return "credit"
	case DirectionDebit:
		return "debit"
	default:
		return "unknown"
	}
}

// Classify derives the direction of t for the selected account. The
// destination is checked first, so a self-transfer counts as a credit.
// Every view that needs a direction must go through this function.
func Classify(t Transaction, selected string) Direction {
	if selected == "" {
		return DirectionUnknown
	}
	if t.DestinationNumber() == selected {
		return DirectionCredit
	}
	if t.SourceNumber() == selected {
		return DirectionDebit
	}
	return DirectionUnknown
}
