// Package bank holds the balance-mutation, transaction-recording and
// account-query logic, between the HTTP handlers and the storage layer.
package bank

import "errors"

// Domain errors. The HTTP layer maps these onto status codes; anything
// else surfaces as an internal server error.
var (
	// ErrInvalidAmount means the amount was missing, non-numeric or not
	// strictly positive. Checked before any account lookup.
	ErrInvalidAmount = errors.New("amount must be a positive number")

	// ErrMissingDestination means a transfer request omitted the
	// destination account ID.
	ErrMissingDestination = errors.New("destination account ID is required")

	// ErrSameAccount means a transfer named the same account on both sides.
	ErrSameAccount = errors.New("source and destination accounts are the same")

	// ErrAccountNotFound means the account does not exist or belongs to a
	// different user.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds means a debit would push the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrInvalidTransaction means a recorded transaction has an unknown
	// type or a non-positive amount.
	ErrInvalidTransaction = errors.New("invalid transaction")
)
