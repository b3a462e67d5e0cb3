package repository

import (
	"context"
	"errors"
	"time"

	"settlement-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAttemptFinalized is returned when marking an attempt that already reached
// a terminal status. Verified and failed attempts are immutable.
var ErrAttemptFinalized = errors.New("payment attempt already verified or failed")

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error)
	FindByProviderReference(ctx context.Context, ref string) (*models.PaymentAttempt, error)
	// FindBySessionID returns the newest attempt opened for a session.
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.PaymentAttempt, error)
	// SetProviderReference records the provider-side id once it is known
	// (UPI references arrive at finalize time, not at begin).
	SetProviderReference(ctx context.Context, id uuid.UUID, ref string) error
	// MarkVerified / MarkFailed only move pending attempts; a terminal
	// attempt returns ErrAttemptFinalized.
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	// FindStalePending lists pending attempts created before the cutoff, for
	// the reconciliation sweep.
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error)
	// FindVerifiedUnsettled lists verified attempts that no order references
	// yet: money moved but the order write failed and must be retried.
	FindVerifiedUnsettled(ctx context.Context, limit int) ([]models.PaymentAttempt, error)
}

type GormAttemptRepository struct {
	db *gorm.DB
}

func NewGormAttemptRepository(db *gorm.DB) AttemptRepository {
	return &GormAttemptRepository{db: db}
}

func (r *GormAttemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *GormAttemptRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *GormAttemptRepository) FindByProviderReference(ctx context.Context, ref string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).First(&attempt, "provider_reference = ?", ref).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *GormAttemptRepository) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *GormAttemptRepository) SetProviderReference(ctx context.Context, id uuid.UUID, ref string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptPending).
		Update("provider_reference", ref).Error
}

func (r *GormAttemptRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.markTerminal(ctx, id, models.AttemptVerified, "verified_at", at)
}

func (r *GormAttemptRepository) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.markTerminal(ctx, id, models.AttemptFailed, "failed_at", at)
}

func (r *GormAttemptRepository) markTerminal(ctx context.Context, id uuid.UUID, status, tsCol string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptPending).
		Updates(map[string]interface{}{"status": status, tsCol: at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAttemptFinalized
	}
	return nil
}

func (r *GormAttemptRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (r *GormAttemptRepository) FindVerifiedUnsettled(ctx context.Context, limit int) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.AttemptVerified).
		Where("id NOT IN (SELECT payment_attempt_id FROM orders WHERE payment_attempt_id IS NOT NULL)").
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *GormAttemptRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.AttemptPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
