package services

import (
	"context"
	"errors"
	"time"

	"settlement-service/models"
	"settlement-service/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reconciler is the background sweep that resolves payment attempts the
// request path left behind: pending attempts past the provider timeout, and
// verified attempts whose order write failed. Retries back off exponentially
// up to a bounded count; after that the attempt is failed and any wallet money
// is compensated.
type Reconciler struct {
	attempts   repository.AttemptRepository
	sessions   repository.SessionStore
	wallets    repository.WalletRepository
	checkout   *CheckoutService
	verifier   SettlementVerifier
	interval   time.Duration
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
}

func NewReconciler(
	attempts repository.AttemptRepository,
	sessions repository.SessionStore,
	wallets repository.WalletRepository,
	checkout *CheckoutService,
	verifier SettlementVerifier,
	interval, timeout time.Duration,
	maxRetries int,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		attempts:   attempts,
		sessions:   sessions,
		wallets:    wallets,
		checkout:   checkout,
		verifier:   verifier,
		interval:   interval,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Run sweeps until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Reconciliation sweep started",
		zap.Duration("interval", r.interval),
		zap.Duration("pending_timeout", r.timeout),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciliation sweep stopped")
			return
		case <-ticker.C:
			r.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass over stale and unsettled attempts.
func (r *Reconciler) SweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-r.timeout)
	stale, err := r.attempts.FindStalePending(ctx, cutoff, 100)
	if err != nil {
		r.logger.Error("Failed to list stale attempts", zap.Error(err))
	} else {
		for i := range stale {
			r.resolvePending(ctx, &stale[i])
		}
	}

	unsettled, err := r.attempts.FindVerifiedUnsettled(ctx, 100)
	if err != nil {
		r.logger.Error("Failed to list unsettled attempts", zap.Error(err))
		return
	}
	for i := range unsettled {
		r.settleVerified(ctx, &unsettled[i])
	}
}

// resolvePending re-verifies a stale pending attempt, honoring exponential
// backoff between retries.
func (r *Reconciler) resolvePending(ctx context.Context, attempt *models.PaymentAttempt) {
	backoff := r.timeout * (1 << uint(attempt.RetryCount))
	if time.Since(attempt.CreatedAt) < backoff {
		return
	}

	if attempt.RetryCount >= r.maxRetries {
		r.failAndCompensate(ctx, attempt)
		return
	}

	// UPI attempts carry no provider-queryable state; without a client
	// signature they can only age out.
	if attempt.Provider == models.ProviderUPI {
		if err := r.attempts.IncrementRetry(ctx, attempt.ID); err != nil {
			r.logger.Error("Failed to bump retry count", zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
		}
		return
	}

	result, err := r.verifier.Verify(ctx, attempt, ClientProof{})
	if err != nil {
		r.logger.Warn("Sweep verification failed",
			zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
		result = StillPending
	}

	switch result {
	case Verified:
		if attempt.ProviderReference == nil {
			return
		}
		if _, svcErr := r.checkout.FinalizeByProviderReference(ctx, *attempt.ProviderReference); svcErr != nil {
			r.logger.Warn("Sweep finalize failed",
				zap.String("attempt_id", attempt.ID.String()),
				zap.String("reason", svcErr.Message),
			)
		}
	case VerificationFailed:
		r.failAndCompensate(ctx, attempt)
	case StillPending:
		if err := r.attempts.IncrementRetry(ctx, attempt.ID); err != nil {
			r.logger.Error("Failed to bump retry count", zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
		}
	}
}

// settleVerified retries order creation for settled money with no order.
func (r *Reconciler) settleVerified(ctx context.Context, attempt *models.PaymentAttempt) {
	if attempt.ProviderReference == nil {
		return
	}
	if _, svcErr := r.checkout.FinalizeByProviderReference(ctx, *attempt.ProviderReference); svcErr != nil {
		r.logger.Warn("Sweep could not settle verified attempt",
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("reason", svcErr.Message),
		)
	}
}

// failAndCompensate marks the attempt failed, refunds any wallet leg of the
// same session, and expires the checkout session so the customer can retry
// fresh. The wallet leg is found through the ledger, not the Redis session:
// the session TTL is far shorter than the retry horizon.
func (r *Reconciler) failAndCompensate(ctx context.Context, attempt *models.PaymentAttempt) {
	now := time.Now().UTC()
	if err := r.attempts.MarkFailed(ctx, attempt.ID, now); err != nil {
		if !errors.Is(err, repository.ErrAttemptFinalized) {
			r.logger.Error("Failed to mark attempt failed", zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
		}
		return
	}

	debit, err := r.wallets.FindDebitBySession(ctx, attempt.SessionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.Error("Failed to look up wallet debit",
			zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
		return
	}
	if err == nil {
		if _, cerr := r.wallets.CompensateDebit(ctx, debit.ID); cerr != nil {
			r.logger.Error("Failed to compensate wallet debit",
				zap.String("attempt_id", attempt.ID.String()),
				zap.String("journal_id", debit.ID.String()),
				zap.Error(cerr),
			)
			return
		}
	}
	if derr := r.sessions.Delete(ctx, attempt.SessionID); derr != nil {
		r.logger.Warn("Failed to expire checkout session", zap.String("session_id", attempt.SessionID.String()), zap.Error(derr))
	}

	r.logger.Info("Stale payment attempt failed and compensated",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("provider", attempt.Provider),
		zap.Int("retries", attempt.RetryCount),
	)
}
