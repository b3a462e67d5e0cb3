package models

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord is the lock-plus-cache behind finalize. The key is
// (session id, provider reference or method tag); the row is inserted before
// any order write and only the inserting caller proceeds. OrderID or Failure
// is filled in once the outcome is known.
type IdempotencyRecord struct {
	Key       string     `gorm:"type:varchar(300);primaryKey" json:"key"`
	OrderID   *uuid.UUID `gorm:"type:uuid" json:"order_id,omitempty"`
	Failure   string     `gorm:"type:varchar(200)" json:"failure,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
