package bank

import (
	"database/sql"
	"errors"
	"time"

	"bank-app/internal/models"
	"bank-app/internal/storage"

	"github.com/shopspring/decimal"
)

// Service validates balance-mutation and query requests and delegates the
// storage work to the database layer, which commits each mutation and its
// transaction record as one atomic unit.
type Service struct {
	store *storage.DB
}

// NewService creates a new Service backed by the given store.
func NewService(store *storage.DB) *Service {
	return &Service{store: store}
}

// Deposit credits amount to the user's account and returns the updated
// account. The amount is validated before any lookup.
func (s *Service) Deposit(userID, accountID int64, amount decimal.Decimal) (*models.Account, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	account, err := s.store.Deposit(userID, accountID, amount)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return account, nil
}

// Withdraw debits amount from the user's account. An amount equal to the
// balance is allowed; the balance may reach exactly zero but never less.
func (s *Service) Withdraw(userID, accountID int64, amount decimal.Decimal) (*models.Account, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	account, err := s.store.Withdraw(userID, accountID, amount)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return account, nil
}

// Transfer moves amount between two accounts of the same user. Either both
// balance changes commit or neither does. Both accounts must belong to the
// user; transfers to other users' accounts are rejected as not found.
func (s *Service) Transfer(userID, sourceID, destinationID int64, amount decimal.Decimal) (*models.Account, *models.Account, error) {
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if destinationID == 0 {
		return nil, nil, ErrMissingDestination
	}
	if sourceID == destinationID {
		return nil, nil, ErrSameAccount
	}
	source, destination, err := s.store.Transfer(userID, sourceID, destinationID, amount)
	if err != nil {
		return nil, nil, mapStoreErr(err)
	}
	return source, destination, nil
}

// Record appends a transaction row without touching any balance. The
// owning account is resolved by the source account type; for deposits and
// withdrawals the destination tag always equals the source tag. A zero
// timestamp defaults to now.
func (s *Service) Record(userID int64, txType models.TransactionType, source, destination models.AccountType, amount decimal.Decimal, timestamp time.Time) (*models.Transaction, error) {
	if !txType.Valid() || !amount.IsPositive() {
		return nil, ErrInvalidTransaction
	}
	if !source.Valid() {
		return nil, ErrInvalidTransaction
	}
	if txType == models.Deposit || txType == models.Withdraw {
		destination = source
	} else if !destination.Valid() {
		return nil, ErrInvalidTransaction
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	account, err := s.store.GetAccountByType(userID, source)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	return s.store.InsertTransaction(account.ID, txType, source, destination, amount, timestamp)
}

// Account returns a single account owned by the user.
func (s *Service) Account(userID, accountID int64) (*models.Account, error) {
	account, err := s.store.GetAccount(userID, accountID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return account, nil
}

// Accounts returns all accounts owned by the user.
func (s *Service) Accounts(userID int64) ([]models.Account, error) {
	return s.store.ListAccounts(userID)
}

// History returns every transaction across the user's accounts, most
// recent first.
func (s *Service) History(userID int64) ([]models.Transaction, error) {
	return s.store.ListTransactions(userID)
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrAccountNotFound
	case errors.Is(err, storage.ErrInsufficientFunds):
		return ErrInsufficientFunds
	default:
		return err
	}
}
