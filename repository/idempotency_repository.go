package repository

import (
	"context"

	"settlement-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyRepository backs the finalize guard. Insert is a single
// insert-if-absent statement, never a check followed by an insert, so exactly
// one caller per key can ever see first=true.
type IdempotencyRepository interface {
	// Insert attempts to claim the key. Returns true when this caller is the
	// first writer, false when the key already existed.
	Insert(ctx context.Context, key string) (bool, error)
	Find(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	SetOrderOutcome(ctx context.Context, key string, orderID uuid.UUID) error
	SetFailureOutcome(ctx context.Context, key, failure string) error
	// Delete releases a claimed key whose outcome turned out to be
	// non-terminal (e.g. settlement still pending), so a later retry can
	// claim it again.
	Delete(ctx context.Context, key string) error
}

type GormIdempotencyRepository struct {
	db *gorm.DB
}

func NewGormIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

func (r *GormIdempotencyRepository) Insert(ctx context.Context, key string) (bool, error) {
	record := &models.IdempotencyRecord{Key: key}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormIdempotencyRepository) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	if err := r.db.WithContext(ctx).First(&record, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormIdempotencyRepository) SetOrderOutcome(ctx context.Context, key string, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ?", key).
		Update("order_id", orderID).Error
}

func (r *GormIdempotencyRepository) SetFailureOutcome(ctx context.Context, key, failure string) error {
	return r.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ?", key).
		Update("failure", failure).Error
}

func (r *GormIdempotencyRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("key = ?", key).
		Delete(&models.IdempotencyRecord{}).Error
}
