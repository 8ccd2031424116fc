package handlers

import "net/http"

// Routes builds the API router. Everything under /api/accounts requires a
// valid session.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthz", h.Health)
	mux.HandleFunc("POST /api/users", h.Signup)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("GET /api/logout", h.Logout)

	protected := func(fn http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(fn)
	}

	mux.Handle("GET /api/accounts/{userId}", protected(h.ListAccounts))
	mux.Handle("GET /api/accounts/{userId}/history", protected(h.History))
	mux.Handle("POST /api/accounts/{userId}/history", protected(h.RecordTransaction))
	mux.Handle("PUT /api/accounts/{userId}/transfer", protected(h.Transfer))
	mux.Handle("GET /api/accounts/{userId}/{accountId}", protected(h.GetAccount))
	mux.Handle("PUT /api/accounts/{userId}/{accountId}/deposit", protected(h.Deposit))
	mux.Handle("PUT /api/accounts/{userId}/{accountId}/withdraw", protected(h.Withdraw))

	return mux
}
