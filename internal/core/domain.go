package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	AccountType       string
	AccountStatus     string
	TransactionType   string
	TransactionStatus string
)

const (
	AccountSavings      AccountType = "SAVINGS"
	AccountFixedDeposit AccountType = "FIXED_DEPOSIT"
	AccountBusiness     AccountType = "BUSINESS"
)

const (
	AccountActive          AccountStatus = "ACTIVE"
	AccountPendingApproval AccountStatus = "PENDING_APPROVAL"
	AccountSuspended       AccountStatus = "SUSPENDED"
	AccountClosed          AccountStatus = "CLOSED"
)

const (
	TxTransfer   TransactionType = "TRANSFER"
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxPayment    TransactionType = "PAYMENT"
	TxRefund     TransactionType = "REFUND"
)

const (
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusPending   TransactionStatus = "PENDING"
	StatusFailed    TransactionStatus = "FAILED"
	StatusReversed  TransactionStatus = "REVERSED"
)

// Currencies an account can be opened in. The first entry is the default.
var Currencies = []string{"KES", "USD", "EUR", "GBP"}

const DefaultCurrency = "KES"

var (
	TransactionTypes    = []TransactionType{TxTransfer, TxDeposit, TxWithdrawal, TxPayment, TxRefund}
	TransactionStatuses = []TransactionStatus{StatusCompleted, StatusPending, StatusFailed, StatusReversed}
	AccountTypes        = []AccountType{AccountSavings, AccountFixedDeposit, AccountBusiness}
)

var (
	ErrUnknownAccountType       = errors.New("unknown account type")
	ErrUnknownCurrency          = errors.New("unknown currency")
	ErrUnknownTransactionType   = errors.New("unknown transaction type")
	ErrUnknownTransactionStatus = errors.New("unknown transaction status")
)

func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Label renders the enum the way the dashboard shows it: "FIXED_DEPOSIT" -> "Fixed Deposit".
func (t AccountType) Label() string { return humanize(string(t)) }

func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (t TransactionType) Label() string { return humanize(string(t)) }

func (s TransactionStatus) Valid() bool {
	for _, v := range TransactionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s TransactionStatus) Label() string { return humanize(string(s)) }

func (s AccountStatus) Label() string { return humanize(string(s)) }

// ValidCurrency reports whether code is one of Currencies.
func ValidCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}

// User is the profile part of the login response.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Account struct {
	ID               int64           `json:"id"`
	AccountNumber    string          `json:"account_number"`
	AccountType      AccountType     `json:"account_type"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Status           AccountStatus   `json:"status"`
	IsPrimary        bool            `json:"is_primary"`
	AllowDebit       bool            `json:"allow_debit"`
	AllowCredit      bool            `json:"allow_credit"`
	OpenedAt         time.Time       `json:"opened_at"`
}

// AccountRef is the nested {account_number} object on a transaction.
type AccountRef struct {
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"account_holder_name,omitempty"`
}

type Transaction struct {
	ID                 int64             `json:"id"`
	Reference          string            `json:"transaction_ref"`
	Type               TransactionType   `json:"transaction_type"`
	Amount             decimal.Decimal   `json:"amount"`
	Fee                decimal.Decimal   `json:"fee"`
	Currency           string            `json:"currency"`
	Status             TransactionStatus `json:"trans_status"`
	SourceAccount      *AccountRef       `json:"source_account"`
	DestinationAccount *AccountRef       `json:"destination_account"`
	Description        string            `json:"description"`
	BalanceAfter       *decimal.Decimal  `json:"balance_after,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// SourceNumber returns the source account number or "".
func (t Transaction) SourceNumber() string {
	if t.SourceAccount == nil {
		return ""
	}
	return t.SourceAccount.AccountNumber
}

// DestinationNumber returns the destination account number or "".
func (t Transaction) DestinationNumber() string {
	if t.DestinationAccount == nil {
		return ""
	}
	return t.DestinationAccount.AccountNumber
}

// TransactionPage is one cursor-paginated page of history.
type TransactionPage struct {
	Results  []Transaction `json:"results"`
	Next     string        `json:"next"`
	Previous string        `json:"previous"`
	HasMore  bool          `json:"has_more"`
}

func humanize(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
