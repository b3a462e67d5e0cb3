package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutSession is the server-held record of an in-progress purchase. It is
// stored in Redis with a TTL so abandoned checkouts clean themselves up, and
// deleted once a finalize succeeds.
type CheckoutSession struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`

	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	UnitPrice       int       `json:"unit_price"`
	DiscountedPrice int       `json:"discounted_price"`
	Quantity        int       `json:"quantity"`
	DeliveryFee     int       `json:"delivery_fee"`
	Amount          int       `json:"amount"` // price*qty + delivery fee
	Address         Address   `json:"address"`

	PaymentMethod string `json:"payment_method"`

	// Set by the orchestrator once resources are acquired.
	WalletJournalID *uuid.UUID `json:"wallet_journal_id,omitempty"`
	WalletPortion   int        `json:"wallet_portion"`
	CardPortion     int        `json:"card_portion"`
	AttemptID       *uuid.UUID `json:"attempt_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
