package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"bank-app/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_success.db")

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{
		"-email", "ada@example.com", "-first", "Ada", "-last", "Lovelace",
		"-pin", "1234", "-password", "secret",
		"-checking", "100.00", "-savings", "0",
		"-db", dbPath,
	}
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "created successfully")

	db, err := storage.NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	user, err := db.GetUserByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, 1234, user.PIN)
	assert.NotEqual(t, "secret", user.PasswordHash)

	accounts, err := db.ListAccounts(user.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestRun_PasswordFromStdin(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stdin.db")

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := bytes.NewBufferString("piped-password\n")

	args := []string{"-email", "ada@example.com", "-first", "Ada", "-pin", "1234", "-db", dbPath}
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "created successfully")
}

func TestRun_MissingFlags(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	err := run([]string{"-email", "ada@example.com"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags")
}

func TestRun_DuplicateUser(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_dup.db")

	stdout := new(bytes.Buffer)
	args := []string{"-email", "ada@example.com", "-first", "Ada", "-pin", "1234", "-password", "secret", "-db", dbPath}

	err := run(args, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.NoError(t, err)

	err = run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_NegativeBalance(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_neg.db")

	args := []string{
		"-email", "ada@example.com", "-first", "Ada", "-pin", "1234",
		"-password", "secret", "-checking", "-5", "-db", dbPath,
	}
	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking balance")
}
