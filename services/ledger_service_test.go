// services/ledger_service_test.go
package services

import (
	"testing"

	"family-reward-system/models"

	"github.com/stretchr/testify/require"
)

func TestCreditCreatesBalanceAndTransaction(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	user := seedUser(t, db, "Ana Silva", "ana@example.com")
	group := seedGroup(t, db, user.ID)

	balance, err := ledger.Credit(user.ID, group.ID, 100, "Challenge completed: dishes")
	require.NoError(t, err)
	require.Equal(t, 100, balance.Balance)

	transactions, err := ledger.ListTransactions(TransactionFilter{UserID: user.ID, GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	require.Equal(t, 100, transactions[0].Amount)
	require.Equal(t, "Challenge completed: dishes", transactions[0].Description)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	_, err := ledger.Credit("u", "g", 0, "nothing")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ledger.Credit("u", "g", -5, "nothing")
	require.ErrorIs(t, err, ErrValidation)
}

func TestDebitReducesBalanceAndRecordsNegativeAmount(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	user := seedUser(t, db, "Ana Silva", "ana@example.com")
	group := seedGroup(t, db, user.ID)

	_, err := ledger.Credit(user.ID, group.ID, 100, "earned")
	require.NoError(t, err)

	balance, err := ledger.Debit(user.ID, group.ID, 40, "Reward redeemed: movie night")
	require.NoError(t, err)
	require.Equal(t, 60, balance.Balance)

	transactions, err := ledger.ListTransactions(TransactionFilter{UserID: user.ID, GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	sum := 0
	for _, tx := range transactions {
		sum += tx.Amount
	}
	require.Equal(t, balance.Balance, sum, "balance must equal the sum of ledger rows")
}

func TestDebitInsufficientBalanceLeavesBalanceUntouched(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	user := seedUser(t, db, "Ana Silva", "ana@example.com")
	group := seedGroup(t, db, user.ID)

	_, err := ledger.Credit(user.ID, group.ID, 30, "earned")
	require.NoError(t, err)

	_, err = ledger.Debit(user.ID, group.ID, 31, "too much")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err := ledger.GetBalance(user.ID, group.ID)
	require.NoError(t, err)
	require.Equal(t, 30, balance.Balance)

	transactions, err := ledger.ListTransactions(TransactionFilter{UserID: user.ID, GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, transactions, 1, "failed debit must not append a ledger row")
}

func TestDebitMissingBalanceIsInsufficient(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	_, err := ledger.Debit("no-such-user", "no-such-group", 10, "anything")
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestDebitAtExactBalanceReachesZero(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	user := seedUser(t, db, "Ana Silva", "ana@example.com")
	group := seedGroup(t, db, user.ID)

	_, err := ledger.Credit(user.ID, group.ID, 50, "earned")
	require.NoError(t, err)

	balance, err := ledger.Debit(user.ID, group.ID, 50, "spent everything")
	require.NoError(t, err)
	require.Equal(t, 0, balance.Balance)
}

func TestGetBalanceUnknownPair(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	_, err := ledger.GetBalance("nobody", "nowhere")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBalancesAreScopedPerGroup(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	user := seedUser(t, db, "Ana Silva", "ana@example.com")
	groupA := seedGroup(t, db, user.ID)
	groupB := seedGroup(t, db, user.ID)

	_, err := ledger.Credit(user.ID, groupA.ID, 100, "earned in A")
	require.NoError(t, err)
	_, err = ledger.Credit(user.ID, groupB.ID, 5, "earned in B")
	require.NoError(t, err)

	_, err = ledger.Debit(user.ID, groupB.ID, 50, "cross-group spend")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	balanceA, err := ledger.GetBalance(user.ID, groupA.ID)
	require.NoError(t, err)
	require.Equal(t, 100, balanceA.Balance)
}

func TestListTransactionsRequiresFilter(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	_, err := ledger.ListTransactions(TransactionFilter{})
	require.ErrorIs(t, err, ErrValidation)
}

func TestListTransactionsNewestFirstWithLimit(t *testing.T) {
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)

	user := seedUser(t, db, "Ana Silva", "ana@example.com")
	group := seedGroup(t, db, user.ID)

	for i := 1; i <= 5; i++ {
		_, err := ledger.Credit(user.ID, group.ID, i, "earned")
		require.NoError(t, err)
	}

	transactions, err := ledger.ListTransactions(TransactionFilter{UserID: user.ID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, transactions, 3)
	for i := 1; i < len(transactions); i++ {
		require.False(t, transactions[i].Timestamp.After(transactions[i-1].Timestamp))
	}

	var count int64
	require.NoError(t, db.Model(&models.CoinTransaction{}).Count(&count).Error)
	require.EqualValues(t, 5, count)
}
