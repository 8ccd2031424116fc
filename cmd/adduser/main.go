package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bank-app/internal/auth"
	"bank-app/internal/models"
	"bank-app/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address")
	firstName := fs.String("first", "", "First name")
	lastName := fs.String("last", "", "Last name")
	pin := fs.Int("pin", 0, "Login PIN")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	checking := fs.String("checking", "", "Initial checking balance (omit to skip the account)")
	savings := fs.String("savings", "", "Initial savings balance (omit to skip the account)")
	dbPath := fs.String("db", "bank.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *firstName == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> -first <name> -pin <pin> [-checking <balance>] [-savings <balance>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email, first")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	checkingBalance, err := parseBalance(*checking)
	if err != nil {
		return fmt.Errorf("invalid checking balance: %w", err)
	}
	savingsBalance, err := parseBalance(*savings)
	if err != nil {
		return fmt.Errorf("invalid savings balance: %w", err)
	}

	// Allow overriding db path via env var if not explicitly set via flag (flag default is used)
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == "bank.db" {
		*dbPath = path
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Check if user already exists
	existingUser, err := db.GetUserByEmail(*email)
	if err == nil && existingUser != nil {
		return fmt.Errorf("user %s already exists", *email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := db.CreateUser(*firstName, *lastName, *email, *pin, hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if checkingBalance != nil {
		if _, err := db.CreateAccount(user.ID, models.Checking, *checkingBalance); err != nil {
			return fmt.Errorf("failed to create checking account: %w", err)
		}
	}
	if savingsBalance != nil {
		if _, err := db.CreateAccount(user.ID, models.Savings, *savingsBalance); err != nil {
			return fmt.Errorf("failed to create savings account: %w", err)
		}
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Email, user.ID)
	return nil
}

func parseBalance(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	balance, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("balance cannot be negative")
	}
	return &balance, nil
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
