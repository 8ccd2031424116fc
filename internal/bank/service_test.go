package bank

import (
	"testing"
	"time"

	"bank-app/internal/models"
	"bank-app/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ServiceTestSuite exercises the balance mutation service, the
// transaction recorder and the query operations against a real in-memory
// store.
type ServiceTestSuite struct {
	suite.Suite
	db       *storage.DB
	svc      *Service
	user     *models.User
	checking *models.Account
	savings  *models.Account
}

// SetupTest runs before each test
func (suite *ServiceTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.svc = NewService(db)

	user, err := db.CreateUser("Grace", "Hopper", "grace@example.com", 1234, "hash")
	require.NoError(suite.T(), err)
	suite.user = user

	checking, err := db.CreateAccount(user.ID, models.Checking, dec("100.00"))
	require.NoError(suite.T(), err)
	suite.checking = checking

	savings, err := db.CreateAccount(user.ID, models.Savings, dec("30.00"))
	require.NoError(suite.T(), err)
	suite.savings = savings
}

// TearDownTest runs after each test
func (suite *ServiceTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServiceTestSuite) TestDepositRejectsNonPositiveAmountBeforeLookup() {
	for _, amount := range []string{"0", "-5"} {
		// A bogus account ID proves validation happens before any lookup.
		_, err := suite.svc.Deposit(suite.user.ID, 9999, dec(amount))
		assert.ErrorIs(suite.T(), err, ErrInvalidAmount, "amount %s", amount)
	}

	// Repeating a failed validation never mutates any balance.
	account, err := suite.svc.Account(suite.user.ID, suite.checking.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), account.Balance.Equal(dec("100.00")))
}

func (suite *ServiceTestSuite) TestDeposit() {
	account, err := suite.svc.Deposit(suite.user.ID, suite.checking.ID, dec("50.00"))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), account.Balance.Equal(dec("150.00")), "expected 150.00, got %s", account.Balance)

	history, err := suite.svc.History(suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), history, 1)
	assert.Equal(suite.T(), models.Deposit, history[0].Type)
	assert.True(suite.T(), history[0].Amount.Equal(dec("50.00")))
}

func (suite *ServiceTestSuite) TestDepositUnknownAccount() {
	_, err := suite.svc.Deposit(suite.user.ID, 9999, dec("50.00"))
	assert.ErrorIs(suite.T(), err, ErrAccountNotFound)
}

func (suite *ServiceTestSuite) TestWithdrawInsufficientFunds() {
	// savings starts at 30.00
	_, err := suite.svc.Withdraw(suite.user.ID, suite.savings.ID, dec("50.00"))
	assert.ErrorIs(suite.T(), err, ErrInsufficientFunds)

	account, err := suite.svc.Account(suite.user.ID, suite.savings.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), account.Balance.Equal(dec("30.00")), "balance must remain 30.00")

	history, err := suite.svc.History(suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), history, "failed withdraw must not be recorded")
}

func (suite *ServiceTestSuite) TestWithdrawWholeBalance() {
	account, err := suite.svc.Withdraw(suite.user.ID, suite.checking.ID, dec("100.00"))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), account.Balance.IsZero())
}

func (suite *ServiceTestSuite) TestTransfer() {
	source, destination, err := suite.svc.Transfer(suite.user.ID, suite.checking.ID, suite.savings.ID, dec("100.00"))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), source.Balance.IsZero(), "source should be drained to 0.00")
	assert.True(suite.T(), destination.Balance.Equal(dec("130.00")))

	history, err := suite.svc.History(suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), history, 1)
	assert.Equal(suite.T(), models.Transfer, history[0].Type)
	assert.Equal(suite.T(), models.Checking, history[0].SourceAccount)
	assert.Equal(suite.T(), models.Savings, history[0].DestinationAccount)
}

func (suite *ServiceTestSuite) TestTransferMissingDestination() {
	_, _, err := suite.svc.Transfer(suite.user.ID, suite.checking.ID, 0, dec("10.00"))
	assert.ErrorIs(suite.T(), err, ErrMissingDestination)

	account, err := suite.svc.Account(suite.user.ID, suite.checking.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), account.Balance.Equal(dec("100.00")), "no balance may change")
}

func (suite *ServiceTestSuite) TestTransferSameAccount() {
	_, _, err := suite.svc.Transfer(suite.user.ID, suite.checking.ID, suite.checking.ID, dec("10.00"))
	assert.ErrorIs(suite.T(), err, ErrSameAccount)
}

func (suite *ServiceTestSuite) TestTransferValidationOrder() {
	// Amount validation wins even when the destination is also missing.
	_, _, err := suite.svc.Transfer(suite.user.ID, suite.checking.ID, 0, dec("-1"))
	assert.ErrorIs(suite.T(), err, ErrInvalidAmount)
}

func (suite *ServiceTestSuite) TestRecord() {
	ts := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	transaction, err := suite.svc.Record(suite.user.ID, models.Deposit, models.Checking, "", dec("25.00"), ts)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.checking.ID, transaction.AccountID)
	assert.Equal(suite.T(), models.Checking, transaction.DestinationAccount,
		"deposit destination tag must equal the source tag")
	assert.True(suite.T(), transaction.Timestamp.Equal(ts))

	// Recording never touches balances.
	account, err := suite.svc.Account(suite.user.ID, suite.checking.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), account.Balance.Equal(dec("100.00")))
}

func (suite *ServiceTestSuite) TestRecordInvalid() {
	_, err := suite.svc.Record(suite.user.ID, "REFUND", models.Checking, models.Checking, dec("25.00"), time.Time{})
	assert.ErrorIs(suite.T(), err, ErrInvalidTransaction)

	_, err = suite.svc.Record(suite.user.ID, models.Deposit, models.Checking, "", dec("0"), time.Time{})
	assert.ErrorIs(suite.T(), err, ErrInvalidTransaction)

	_, err = suite.svc.Record(suite.user.ID, models.Transfer, models.Checking, "OFFSHORE", dec("25.00"), time.Time{})
	assert.ErrorIs(suite.T(), err, ErrInvalidTransaction)
}

func (suite *ServiceTestSuite) TestRecordDefaultsTimestamp() {
	transaction, err := suite.svc.Record(suite.user.ID, models.Withdraw, models.Savings, "", dec("5.00"), time.Time{})
	require.NoError(suite.T(), err)
	assert.WithinDuration(suite.T(), time.Now(), transaction.Timestamp, 5*time.Second)
}

func (suite *ServiceTestSuite) TestAccountsAndHistory() {
	accounts, err := suite.svc.Accounts(suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), accounts, 2)

	_, err = suite.svc.Deposit(suite.user.ID, suite.checking.ID, dec("1.00"))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Withdraw(suite.user.ID, suite.savings.ID, dec("2.00"))
	require.NoError(suite.T(), err)

	history, err := suite.svc.History(suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), history, 2, "history spans all of the user's accounts")
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
