package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry reasons.
const (
	ReasonDebitOrder         = "debit_order"
	ReasonCreditRefund       = "credit_refund"
	ReasonCreditCompensation = "credit_compensation"
)

// Wallet holds the materialized balance for an account. All balance changes go
// through a single conditional UPDATE; the journal below is the audit trail.
type Wallet struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey" json:"account_id"`
	Balance   int       `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WalletLedgerEntry is append-only. The (reason, related_id) pair is unique,
// which is what makes compensation and refunds single-shot: a second credit
// for the same debit or order hits the constraint instead of moving money.
type WalletLedgerEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	Delta     int       `gorm:"not null" json:"delta"` // signed
	Reason    string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_ledger_reason_related" json:"reason"`
	RelatedID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_reason_related" json:"related_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
