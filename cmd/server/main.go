package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"bank-app/internal/bank"
	"bank-app/internal/handlers"
	"bank-app/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; env vars may come from the shell.
	_ = godotenv.Load()

	port := flag.String("port", "8080", "Port to listen on")
	dbPath := flag.String("db", "bank.db", "Path to database file")
	secureCookie := flag.Bool("secure-cookie", false, "Set the Secure flag on session cookies")
	flag.Parse()

	// Env vars override flag defaults, matching deployment configs.
	if p := os.Getenv("PORT"); p != "" && *port == "8080" {
		*port = p
	}
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == "bank.db" {
		*dbPath = path
	}
	if os.Getenv("SECURE_COOKIE") == "true" {
		*secureCookie = true
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.CleanExpiredSessions(); err != nil {
		log.Printf("Failed to clean expired sessions: %v", err)
	}

	svc := bank.NewService(db)
	h := handlers.NewHandlers(db, svc, *secureCookie)
	mux := setupRouter(h)

	addr := ":" + *port
	log.Printf("Server listening on %s (db: %s)", addr, *dbPath)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func setupRouter(h *handlers.Handlers) *http.ServeMux {
	return h.Routes()
}
