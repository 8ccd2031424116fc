package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"bank-app/internal/models"

	"github.com/shopspring/decimal"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	// ErrInsufficientFunds is returned when a debit would push a balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrDuplicateEmail is returned when a signup reuses an existing email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			pin INTEGER NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			account_type TEXT NOT NULL,
			balance TEXT NOT NULL DEFAULT '0',
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			source_account TEXT NOT NULL,
			destination_account TEXT NOT NULL,
			amount TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser creates a new user with the given profile and password hash.
func (db *DB) CreateUser(firstName, lastName, email string, pin int, passwordHash string) (*models.User, error) {
	result, err := db.conn.Exec(
		"INSERT INTO users (first_name, last_name, email, pin, password_hash) VALUES (?, ?, ?, ?, ?)",
		firstName, lastName, email, pin, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, first_name, last_name, email, pin, password_hash, created_at FROM users WHERE id = ?",
		id,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PIN, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, first_name, last_name, email, pin, password_hash, created_at FROM users WHERE email = ?",
		email,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PIN, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateAccount opens an account of the given type for a user.
func (db *DB) CreateAccount(userID int64, accountType models.AccountType, balance decimal.Decimal) (*models.Account, error) {
	result, err := db.conn.Exec(
		"INSERT INTO accounts (user_id, account_type, balance) VALUES (?, ?, ?)",
		userID, accountType, balance,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Account{ID: id, UserID: userID, AccountType: accountType, Balance: balance}, nil
}

// GetAccount retrieves a single account scoped to its owner. Returns
// sql.ErrNoRows when the account is absent or owned by a different user.
func (db *DB) GetAccount(userID, accountID int64) (*models.Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, user_id, account_type, balance FROM accounts WHERE id = ? AND user_id = ?",
		accountID, userID,
	)

	var a models.Account
	if err := row.Scan(&a.ID, &a.UserID, &a.AccountType, &a.Balance); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByType retrieves the user's account of the given type.
func (db *DB) GetAccountByType(userID int64, accountType models.AccountType) (*models.Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, user_id, account_type, balance FROM accounts WHERE user_id = ? AND account_type = ?",
		userID, accountType,
	)

	var a models.Account
	if err := row.Scan(&a.ID, &a.UserID, &a.AccountType, &a.Balance); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts retrieves all accounts owned by a user.
func (db *DB) ListAccounts(userID int64) ([]models.Account, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, account_type, balance FROM accounts WHERE user_id = ? ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.AccountType, &a.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func getAccountTx(tx *sql.Tx, userID, accountID int64) (*models.Account, error) {
	row := tx.QueryRow(
		"SELECT id, user_id, account_type, balance FROM accounts WHERE id = ? AND user_id = ?",
		accountID, userID,
	)

	var a models.Account
	if err := row.Scan(&a.ID, &a.UserID, &a.AccountType, &a.Balance); err != nil {
		return nil, err
	}
	return &a, nil
}

func setBalanceTx(tx *sql.Tx, accountID int64, balance decimal.Decimal) error {
	_, err := tx.Exec("UPDATE accounts SET balance = ? WHERE id = ?", balance, accountID)
	return err
}

func insertTransactionTx(tx *sql.Tx, accountID int64, txType models.TransactionType, source, destination models.AccountType, amount decimal.Decimal, timestamp time.Time) error {
	_, err := tx.Exec(
		"INSERT INTO transactions (account_id, type, source_account, destination_account, amount, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		accountID, txType, source, destination, amount, timestamp,
	)
	return err
}

// Deposit credits an account and appends the matching DEPOSIT transaction
// row inside a single database transaction.
func (db *DB) Deposit(userID, accountID int64, amount decimal.Decimal) (*models.Account, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := getAccountTx(tx, userID, accountID)
	if err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Add(amount)
	if err := setBalanceTx(tx, account.ID, account.Balance); err != nil {
		return nil, err
	}
	if err := insertTransactionTx(tx, account.ID, models.Deposit, account.AccountType, account.AccountType, amount, time.Now()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

// Withdraw debits an account and appends the matching WITHDRAW transaction
// row inside a single database transaction. Returns ErrInsufficientFunds
// without touching the balance when the amount exceeds it.
func (db *DB) Withdraw(userID, accountID int64, amount decimal.Decimal) (*models.Account, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := getAccountTx(tx, userID, accountID)
	if err != nil {
		return nil, err
	}

	if account.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(amount)
	if err := setBalanceTx(tx, account.ID, account.Balance); err != nil {
		return nil, err
	}
	if err := insertTransactionTx(tx, account.ID, models.Withdraw, account.AccountType, account.AccountType, amount, time.Now()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

// Transfer moves money between two accounts of the same user. The debit,
// the credit and the TRANSFER transaction row commit together or not at
// all; a failure at any step leaves both balances unchanged.
func (db *DB) Transfer(userID, sourceID, destinationID int64, amount decimal.Decimal) (*models.Account, *models.Account, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	source, err := getAccountTx(tx, userID, sourceID)
	if err != nil {
		return nil, nil, err
	}
	destination, err := getAccountTx(tx, userID, destinationID)
	if err != nil {
		return nil, nil, err
	}

	if source.Balance.LessThan(amount) {
		return nil, nil, ErrInsufficientFunds
	}

	source.Balance = source.Balance.Sub(amount)
	destination.Balance = destination.Balance.Add(amount)

	if err := setBalanceTx(tx, source.ID, source.Balance); err != nil {
		return nil, nil, err
	}
	if err := setBalanceTx(tx, destination.ID, destination.Balance); err != nil {
		return nil, nil, err
	}
	if err := insertTransactionTx(tx, source.ID, models.Transfer, source.AccountType, destination.AccountType, amount, time.Now()); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return source, destination, nil
}

// InsertTransaction appends a transaction row without touching balances.
func (db *DB) InsertTransaction(accountID int64, txType models.TransactionType, source, destination models.AccountType, amount decimal.Decimal, timestamp time.Time) (*models.Transaction, error) {
	result, err := db.conn.Exec(
		"INSERT INTO transactions (account_id, type, source_account, destination_account, amount, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		accountID, txType, source, destination, amount, timestamp,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Transaction{
		ID:                 id,
		AccountID:          accountID,
		Type:               txType,
		SourceAccount:      source,
		DestinationAccount: destination,
		Amount:             amount,
		Timestamp:          timestamp,
	}, nil
}

// ListTransactions retrieves all transactions across a user's accounts,
// most recent first.
func (db *DB) ListTransactions(userID int64) ([]models.Transaction, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.account_id, t.type, t.source_account, t.destination_account, t.amount, t.timestamp
		FROM transactions t
		JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = ?
		ORDER BY t.timestamp DESC, t.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.SourceAccount, &t.DestinationAccount, &t.Amount, &t.Timestamp); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(token string, userID int64, expiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt, now,
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the associated user.
func (db *DB) ValidateSession(token string) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (db *DB) ValidateSessionWithInfo(token string) (*SessionInfo, error) {
	row := db.conn.QueryRow(`
		SELECT u.id, u.first_name, u.last_name, u.email, u.pin, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP
	`, token)

	var u models.User
	var lastActivity, expiresAt time.Time
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PIN, &u.PasswordHash, &u.CreatedAt, &lastActivity, &expiresAt); err != nil {
		return nil, err
	}
	return &SessionInfo{
		User:         &u,
		LastActivity: lastActivity,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(token string, newExpiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.Exec(
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		now, newExpiresAt, token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP")
	return err
}
