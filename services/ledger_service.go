// services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"family-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CoinLedgerService owns per-(user, group) balances and the append-only
// transaction log. Every balance change writes a CoinTransaction row in the
// same database transaction, so the sum of a pair's rows always equals the
// stored balance.
type CoinLedgerService struct {
	DB *gorm.DB
}

func NewCoinLedgerService(db *gorm.DB) *CoinLedgerService {
	return &CoinLedgerService{DB: db}
}

// TransactionFilter narrows ListTransactions. Empty fields are ignored;
// at least one of UserID/GroupID must be set.
type TransactionFilter struct {
	UserID  string
	GroupID string
	Limit   int
	Offset  int
}

// lockBalanceRows applies a row-level lock inside a transaction so two
// concurrent debits against the same pair serialize. SQLite (tests) is
// single-writer and rejects FOR UPDATE, so the clause is Postgres-only.
func lockBalanceRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Credit adds amount coins to the pair's balance, creating the balance row
// at zero if it does not exist yet. Amount must be > 0.
func (s *CoinLedgerService) Credit(userID, groupID string, amount int, description string) (*models.CoinBalance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}

	var updated models.CoinBalance
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		balance, err := s.creditTx(tx, userID, groupID, amount, description)
		if err != nil {
			return err
		}
		updated = *balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// creditTx runs the credit inside an existing transaction. Used directly by
// the challenge validation flow so claim flip and payout commit together.
func (s *CoinLedgerService) creditTx(tx *gorm.DB, userID, groupID string, amount int, description string) (*models.CoinBalance, error) {
	var balance models.CoinBalance
	err := lockBalanceRows(tx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.CoinBalance{
			ID:      uuid.NewString(),
			UserID:  userID,
			GroupID: groupID,
			Balance: 0,
		}
		if err := tx.Create(&balance).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	balance.Balance += amount
	if err := tx.Save(&balance).Error; err != nil {
		return nil, err
	}

	if err := tx.Create(&models.CoinTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		GroupID:     groupID,
		Amount:      amount,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}).Error; err != nil {
		return nil, err
	}

	return &balance, nil
}

// Debit removes amount coins from the pair's balance. Fails with
// ErrInsufficientBalance when the row is missing or holds fewer coins than
// requested; the balance is left untouched on any failure.
func (s *CoinLedgerService) Debit(userID, groupID string, amount int, description string) (*models.CoinBalance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}

	var updated models.CoinBalance
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		balance, err := s.debitTx(tx, userID, groupID, amount, description)
		if err != nil {
			return err
		}
		updated = *balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *CoinLedgerService) debitTx(tx *gorm.DB, userID, groupID string, amount int, description string) (*models.CoinBalance, error) {
	var balance models.CoinBalance
	err := lockBalanceRows(tx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, err
	}

	if balance.Balance < amount {
		log.Printf("[Ledger] Debit rejected: user=%s group=%s have=%d want=%d", userID, groupID, balance.Balance, amount)
		return nil, ErrInsufficientBalance
	}

	balance.Balance -= amount
	if err := tx.Save(&balance).Error; err != nil {
		return nil, err
	}

	if err := tx.Create(&models.CoinTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		GroupID:     groupID,
		Amount:      -amount,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}).Error; err != nil {
		return nil, err
	}

	return &balance, nil
}

// GetBalance returns the pair's balance row, ErrNotFound if the pair was
// never credited.
func (s *CoinLedgerService) GetBalance(userID, groupID string) (*models.CoinBalance, error) {
	var balance models.CoinBalance
	err := s.DB.Where("user_id = ? AND group_id = ?", userID, groupID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// ListTransactions returns ledger rows matching the filter, newest first.
// Limit/Offset make the listing restartable.
func (s *CoinLedgerService) ListTransactions(filter TransactionFilter) ([]models.CoinTransaction, error) {
	if filter.UserID == "" && filter.GroupID == "" {
		return nil, fmt.Errorf("%w: transaction filter requires a user or group", ErrValidation)
	}

	query := s.DB.Model(&models.CoinTransaction{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.GroupID != "" {
		query = query.Where("group_id = ?", filter.GroupID)
	}

	query = query.Order("timestamp DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var transactions []models.CoinTransaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
