package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses. The fulfillment chain is forward-only; the return chain is
// strictly sequential and only reachable from delivered within the return window.
const (
	StatusPlaced         = "placed"
	StatusConfirmed      = "confirmed"
	StatusShipped        = "shipped"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
	StatusRejected       = "rejected"
	StatusReturnRequest  = "return_request"
	StatusReturnAccepted = "return_accepted"
	StatusReturnPickedUp = "return_picked_up"
	StatusRefunded       = "refunded"
)

// Payment statuses on the order. COD stays pending until cash is collected
// at delivery.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Payment methods.
const (
	MethodCOD    = "cod"
	MethodWallet = "wallet"
	MethodCard   = "card"
	MethodUPI    = "upi"
	MethodHybrid = "wallet_card"
)

// Address is the delivery address snapshot taken at checkout time.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

type Order struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber     string    `gorm:"uniqueIndex;not null" json:"order_number"`
	CustomerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ProductName     string    `gorm:"not null" json:"product_name"`
	UnitPrice       int       `gorm:"not null" json:"unit_price"`
	DiscountedPrice int       `json:"discounted_price"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	DeliveryFee     int       `json:"delivery_fee"`
	TotalPrice      int       `gorm:"not null" json:"total_price"`
	Address         Address   `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	PaymentMethod   string    `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus   string    `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	OrderStatus     string    `gorm:"type:varchar(20);not null;default:'placed'" json:"order_status"`

	// Settlement provenance: which attempt and/or wallet debit paid for it.
	PaymentAttemptID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"payment_attempt_id,omitempty"`
	WalletJournalID  *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"wallet_journal_id,omitempty"`
	WalletPortion    int        `json:"wallet_portion"`

	Review         *string `gorm:"type:text" json:"review,omitempty"`
	DeliveryRating *int    `json:"delivery_rating,omitempty"`

	OrderedAt         time.Time  `gorm:"not null" json:"ordered_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	OutForDeliveryAt  *time.Time `json:"out_for_delivery_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	RejectedAt        *time.Time `json:"rejected_at,omitempty"`
	ReturnRequestedAt *time.Time `json:"return_requested_at,omitempty"`
	ReturnAcceptedAt  *time.Time `json:"return_accepted_at,omitempty"`
	ReturnPickedUpAt  *time.Time `json:"return_picked_up_at,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// transitions is the full edge set of the order state machine. Anything not
// listed here is rejected as out of sequence.
var transitions = map[string][]string{
	StatusPlaced:         {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed:      {StatusShipped, StatusCancelled, StatusRejected},
	StatusShipped:        {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {StatusReturnRequest},
	StatusReturnRequest:  {StatusReturnAccepted},
	StatusReturnAccepted: {StatusReturnPickedUp},
	StatusReturnPickedUp: {StatusRefunded},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transition is possible.
func IsTerminalStatus(status string) bool {
	return status == StatusCancelled || status == StatusRejected || status == StatusRefunded
}

// Cancellable reports whether a customer may still cancel from this status.
func Cancellable(status string) bool {
	switch status {
	case StatusPlaced, StatusConfirmed, StatusShipped, StatusOutForDelivery:
		return true
	}
	return false
}

// TimestampColumn maps a target status to the column stamped on transition.
func TimestampColumn(status string) string {
	switch status {
	case StatusConfirmed:
		return "confirmed_at"
	case StatusShipped:
		return "shipped_at"
	case StatusOutForDelivery:
		return "out_for_delivery_at"
	case StatusDelivered:
		return "delivered_at"
	case StatusCancelled:
		return "cancelled_at"
	case StatusRejected:
		return "rejected_at"
	case StatusReturnRequest:
		return "return_requested_at"
	case StatusReturnAccepted:
		return "return_accepted_at"
	case StatusReturnPickedUp:
		return "return_picked_up_at"
	case StatusRefunded:
		return "refunded_at"
	}
	return ""
}

// ValidMethod reports whether m is a supported payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCOD, MethodWallet, MethodCard, MethodUPI, MethodHybrid:
		return true
	}
	return false
}
