package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"bank-app/internal/auth"
	"bank-app/internal/bank"
	"bank-app/internal/models"
	"bank-app/internal/storage"

	"github.com/shopspring/decimal"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// SessionDuration is how long sessions last.
	SessionDuration = 24 * time.Hour
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	svc          *bank.Service
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, svc *bank.Service, secureCookie bool) *Handlers {
	return &Handlers{db: db, svc: svc, secureCookie: secureCookie}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeBankError maps a domain error onto a status code and error body.
// invalidAmountMsg customizes the amount-validation message per endpoint.
func writeBankError(w http.ResponseWriter, err error, invalidAmountMsg string) {
	switch {
	case errors.Is(err, bank.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, invalidAmountMsg)
	case errors.Is(err, bank.ErrMissingDestination):
		writeError(w, http.StatusBadRequest, "Destination account ID is required")
	case errors.Is(err, bank.ErrSameAccount):
		writeError(w, http.StatusBadRequest, "Source and destination accounts must differ")
	case errors.Is(err, bank.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Account not found.")
	case errors.Is(err, bank.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "Insufficient balance.")
	case errors.Is(err, bank.ErrInvalidTransaction):
		writeError(w, http.StatusBadRequest, "Invalid transaction")
	default:
		log.Printf("Unexpected error: %v", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

// AuthMiddleware wraps handlers to require a valid session. It also
// implements rolling sessions: if a session is past the halfway point of
// its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		// Rolling session: renew if past halfway point
		now := time.Now()
		timeUntilExpiry := sessionInfo.ExpiresAt.Sub(now)
		halfSessionDuration := SessionDuration / 2

		if timeUntilExpiry < halfSessionDuration {
			newExpiresAt := now.Add(SessionDuration)
			if err := h.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), UserContextKey, sessionInfo.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// pathUser parses the {userId} path segment and checks it against the
// authenticated user. Client-supplied identifiers are never trusted for
// authorization; a mismatch reads the same as a missing account.
func (h *Handlers) pathUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid userId")
		return 0, false
	}
	user := GetUserFromContext(r)
	if user == nil || user.ID != userID {
		writeError(w, http.StatusNotFound, "Account not found or user ID mismatch.")
		return 0, false
	}
	return userID, true
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SignupRequest is the payload for creating a user with initial accounts.
type SignupRequest struct {
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	Email           string          `json:"email"`
	Password        string          `json:"password"`
	PIN             json.Number     `json:"pin"`
	AccountType     string          `json:"accountType"`
	CheckingBalance decimal.Decimal `json:"checkingBalance"`
	SavingsBalance  decimal.Decimal `json:"savingsBalance"`
}

// Signup creates a user and the selected checking/savings accounts.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid signup request")
		return
	}

	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		writeError(w, http.StatusBadRequest, "First name, email and password are required")
		return
	}
	pin, err := strconv.Atoi(req.PIN.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid PIN")
		return
	}

	wantChecking := req.AccountType == "checking" || req.AccountType == "both"
	wantSavings := req.AccountType == "savings" || req.AccountType == "both"
	if !wantChecking && !wantSavings {
		writeError(w, http.StatusBadRequest, "Account type must be checking, savings or both")
		return
	}
	if req.CheckingBalance.IsNegative() || req.SavingsBalance.IsNegative() {
		writeError(w, http.StatusBadRequest, "Initial balance cannot be negative")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	user, err := h.db.CreateUser(req.FirstName, req.LastName, req.Email, pin, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		log.Printf("Failed to create user: %v", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if wantChecking {
		if _, err := h.db.CreateAccount(user.ID, models.Checking, req.CheckingBalance); err != nil {
			log.Printf("Failed to create checking account: %v", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
			return
		}
	}
	if wantSavings {
		if _, err := h.db.CreateAccount(user.ID, models.Savings, req.SavingsBalance); err != nil {
			log.Printf("Failed to create savings account: %v", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

// Login verifies credentials and issues a session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string      `json:"email"`
		Password string      `json:"password"`
		PIN      json.Number `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid login request")
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}

	pin, err := strconv.Atoi(req.PIN.String())
	if err != nil || pin != user.PIN {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}
	if req.Password != "" && !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		log.Printf("Failed to generate session token: %v", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	expiresAt := time.Now().Add(SessionDuration)
	if err := h.db.CreateSession(token, user.ID, expiresAt); err != nil {
		log.Printf("Failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"message":       "Login Successful",
		"userId":        user.ID,
	})
}

// Logout deletes the session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// ListAccounts returns all accounts owned by the user.
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	accounts, err := h.svc.Accounts(userID)
	if err != nil {
		log.Printf("ListAccounts error: %v", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if len(accounts) == 0 {
		writeError(w, http.StatusNotFound, "Account not found or user ID mismatch.")
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount returns a single account.
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	accountID, err := strconv.ParseInt(r.PathValue("accountId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid userId or accountId")
		return
	}

	account, err := h.svc.Account(userID, accountID)
	if err != nil {
		writeBankError(w, err, "Invalid request")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit credits the account named in the path.
func (h *Handlers) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	accountID, err := strconv.ParseInt(r.PathValue("accountId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid userId or accountId")
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deposit amount")
		return
	}

	account, err := h.svc.Deposit(userID, accountID, req.Amount)
	if err != nil {
		writeBankError(w, err, "Invalid deposit amount")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Deposit successful",
		"updatedAccount": account,
	})
}

// Withdraw debits the account named in the path.
func (h *Handlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	accountID, err := strconv.ParseInt(r.PathValue("accountId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid userId or accountId")
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid withdraw amount")
		return
	}

	account, err := h.svc.Withdraw(userID, accountID, req.Amount)
	if err != nil {
		writeBankError(w, err, "Invalid withdraw amount")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Withdraw successful",
		"updatedAccount": account,
	})
}

// TransferRequest is the payload for moving money between two accounts.
type TransferRequest struct {
	SourceAccountID      int64           `json:"sourceAccountId"`
	DestinationAccountID int64           `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
}

// Transfer debits the source account and credits the destination account
// atomically.
func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transfer amount")
		return
	}

	source, destination, err := h.svc.Transfer(userID, req.SourceAccountID, req.DestinationAccountID, req.Amount)
	if err != nil {
		if errors.Is(err, bank.ErrInsufficientFunds) {
			writeError(w, http.StatusBadRequest, "Insufficient balance in source account")
			return
		}
		writeBankError(w, err, "Invalid transfer amount")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":                   "Transfer successful",
		"updatedSourceAccount":      source,
		"updatedDestinationAccount": destination,
	})
}

// History returns the user's transactions, most recent first.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	transactions, err := h.svc.History(userID)
	if err != nil {
		log.Printf("History error: %v", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}

	writeJSON(w, http.StatusOK, transactions)
}

// RecordRequest is the payload for appending a transaction record.
type RecordRequest struct {
	Type               models.TransactionType `json:"type"`
	SourceAccount      models.AccountType     `json:"sourceAccount"`
	DestinationAccount models.AccountType     `json:"destinationAccount"`
	Amount             decimal.Decimal        `json:"amount"`
	Timestamp          time.Time              `json:"timestamp"`
}

// RecordTransaction appends a transaction row without changing balances.
// The mutation endpoints record their own rows; this remains for clients
// that log movements explicitly.
func (h *Handlers) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid transaction type")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid transaction amount")
		return
	}

	transaction, err := h.svc.Record(userID, req.Type, req.SourceAccount, req.DestinationAccount, req.Amount, req.Timestamp)
	if err != nil {
		writeBankError(w, err, "Invalid transaction amount")
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}
