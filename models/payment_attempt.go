package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment attempt statuses. Verified and failed are immutable.
const (
	AttemptPending  = "pending"
	AttemptVerified = "verified"
	AttemptFailed   = "failed"
)

// Settlement providers.
const (
	ProviderStripe = "stripe"
	ProviderUPI    = "upi"
	ProviderWallet = "wallet"
	ProviderCOD    = "cod"
)

// PaymentAttempt tracks one external settlement try. The provider reference is
// the opaque external id (Stripe PaymentIntent id, UPI payment reference); it
// is unique so no two orders can ever claim the same settlement.
type PaymentAttempt struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	Provider   string    `gorm:"type:varchar(20);not null" json:"provider"`

	// OrderReference is our side of the handle (e.g. the UPI collect request
	// id the signature is computed over). ProviderReference arrives from the
	// provider and may be unset while pending.
	OrderReference    string  `gorm:"type:varchar(100)" json:"order_reference"`
	ProviderReference *string `gorm:"type:varchar(200);uniqueIndex" json:"provider_reference,omitempty"`

	Amount     int    `gorm:"not null" json:"amount"`
	Currency   string `gorm:"type:varchar(10);not null" json:"currency"`
	Status     string `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	RetryCount int    `gorm:"not null;default:0" json:"retry_count"`

	// SessionSnapshot is the checkout session as it stood when the attempt was
	// opened. The Redis session expires with its TTL; the snapshot lets a
	// webhook or the reconciliation sweep finish settling after that.
	SessionSnapshot []byte `gorm:"type:jsonb" json:"-"`

	VerifiedAt *time.Time     `json:"verified_at,omitempty"`
	FailedAt   *time.Time     `json:"failed_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
