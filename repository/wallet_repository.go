package repository

import (
	"context"
	"errors"
	"fmt"

	"settlement-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInsufficientBalance is returned when a conditional debit finds the
// balance below the requested amount. No ledger entry is written in that case.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// WalletRepository is the ledger store: a materialized balance plus an
// append-only journal. Debits are conditional single-statement updates so two
// concurrent checkouts can never both pass a balance check.
type WalletRepository interface {
	Balance(ctx context.Context, accountID uuid.UUID) (int, error)
	// DebitForOrder atomically checks and debits the balance, journaling the
	// debit keyed by relatedID (the checkout session).
	DebitForOrder(ctx context.Context, accountID uuid.UUID, amount int, relatedID uuid.UUID) (*models.WalletLedgerEntry, error)
	// Credit appends a credit entry and increments the balance. The
	// (reason, relatedID) pair is unique; a duplicate returns the existing
	// entry without moving money again.
	Credit(ctx context.Context, accountID uuid.UUID, amount int, reason string, relatedID uuid.UUID) (*models.WalletLedgerEntry, error)
	// CompensateDebit reverses a previously applied debit, keyed by the
	// original journal entry id. Safe to call more than once.
	CompensateDebit(ctx context.Context, debitEntryID uuid.UUID) (*models.WalletLedgerEntry, error)
	FindEntry(ctx context.Context, id uuid.UUID) (*models.WalletLedgerEntry, error)
	// FindDebitBySession looks up the order debit journaled for a checkout
	// session. At most one exists per session.
	FindDebitBySession(ctx context.Context, sessionID uuid.UUID) (*models.WalletLedgerEntry, error)
}

type GormWalletRepository struct {
	db *gorm.DB
}

func NewGormWalletRepository(db *gorm.DB) WalletRepository {
	return &GormWalletRepository{db: db}
}

func (r *GormWalletRepository) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).First(&wallet, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (r *GormWalletRepository) DebitForOrder(ctx context.Context, accountID uuid.UUID, amount int, relatedID uuid.UUID) (*models.WalletLedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	entry := &models.WalletLedgerEntry{
		AccountID: accountID,
		Delta:     -amount,
		Reason:    models.ReasonDebitOrder,
		RelatedID: relatedID,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Wallet{}).
			Where("account_id = ? AND balance >= ?", accountID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *GormWalletRepository) Credit(ctx context.Context, accountID uuid.UUID, amount int, reason string, relatedID uuid.UUID) (*models.WalletLedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	entry := &models.WalletLedgerEntry{
		AccountID: accountID,
		Delta:     amount,
		Reason:    reason,
		RelatedID: relatedID,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Wallet{}).
			Where("account_id = ?", accountID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Create(&models.Wallet{AccountID: accountID, Balance: amount}).Error
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Already credited for this (reason, relatedID); return the
		// existing entry instead of moving money twice.
		var existing models.WalletLedgerEntry
		if ferr := r.db.WithContext(ctx).
			Where("reason = ? AND related_id = ?", reason, relatedID).
			First(&existing).Error; ferr != nil {
			return nil, ferr
		}
		return &existing, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *GormWalletRepository) CompensateDebit(ctx context.Context, debitEntryID uuid.UUID) (*models.WalletLedgerEntry, error) {
	debit, err := r.FindEntry(ctx, debitEntryID)
	if err != nil {
		return nil, err
	}
	if debit.Reason != models.ReasonDebitOrder || debit.Delta >= 0 {
		return nil, fmt.Errorf("ledger entry %s is not an order debit", debitEntryID)
	}
	return r.Credit(ctx, debit.AccountID, -debit.Delta, models.ReasonCreditCompensation, debit.ID)
}

func (r *GormWalletRepository) FindEntry(ctx context.Context, id uuid.UUID) (*models.WalletLedgerEntry, error) {
	var entry models.WalletLedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *GormWalletRepository) FindDebitBySession(ctx context.Context, sessionID uuid.UUID) (*models.WalletLedgerEntry, error) {
	var entry models.WalletLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("reason = ? AND related_id = ?", models.ReasonDebitOrder, sessionID).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
