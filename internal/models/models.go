package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// API clients expect balances and amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// AccountType identifies the kind of account a user holds.
type AccountType string

const (
	Checking AccountType = "CHECKING"
	Savings  AccountType = "SAVINGS"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == Checking || t == Savings
}

// TransactionType identifies the kind of balance-affecting operation
// a transaction records.
type TransactionType string

const (
	Deposit  TransactionType = "DEPOSIT"
	Withdraw TransactionType = "WITHDRAW"
	Transfer TransactionType = "TRANSFER"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Deposit || t == Withdraw || t == Transfer
}

// User represents an account holder. Users are created at signup and
// immutable afterwards.
type User struct {
	ID           int64     `json:"userId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PIN          int       `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Account is a typed balance owned by exactly one user. The balance is
// never negative after a committed operation.
type Account struct {
	ID          int64           `json:"accountId"`
	UserID      int64           `json:"userId"`
	AccountType AccountType     `json:"accountType"`
	Balance     decimal.Decimal `json:"balance"`
}

// Transaction is an immutable record of a completed money movement.
// For deposits and withdrawals the source and destination tags are equal.
type Transaction struct {
	ID                 int64           `json:"id"`
	AccountID          int64           `json:"accountId"`
	Type               TransactionType `json:"type"`
	SourceAccount      AccountType     `json:"sourceAccount"`
	DestinationAccount AccountType     `json:"destinationAccount"`
	Amount             decimal.Decimal `json:"amount"`
	Timestamp          time.Time       `json:"timestamp"`
}

// Session represents a server-issued login session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
