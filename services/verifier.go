package services

import (
	"context"

	"settlement-service/models"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// VerificationResult is the verifier's three-valued answer.
type VerificationResult string

const (
	Verified           VerificationResult = "verified"
	VerificationFailed VerificationResult = "failed"
	StillPending       VerificationResult = "still_pending"
)

// ClientProof is what the client relays at finalize time. Only UPI uses it;
// for every other provider the proof comes from the provider itself.
type ClientProof struct {
	PaymentReference string
	Signature        string
}

// SettlementVerifier answers whether a payment attempt actually succeeded. It
// never mutates order or ledger state; client-asserted success is never
// trusted.
type SettlementVerifier interface {
	Verify(ctx context.Context, attempt *models.PaymentAttempt, proof ClientProof) (VerificationResult, error)
}

type ProviderVerifier struct {
	stripe StripeAPI
	upi    *UPIService
	logger *zap.Logger
}

func NewProviderVerifier(stripeAPI StripeAPI, upi *UPIService, logger *zap.Logger) *ProviderVerifier {
	return &ProviderVerifier{stripe: stripeAPI, upi: upi, logger: logger}
}

func (v *ProviderVerifier) Verify(ctx context.Context, attempt *models.PaymentAttempt, proof ClientProof) (VerificationResult, error) {
	switch attempt.Provider {
	case models.ProviderStripe:
		return v.verifyCard(attempt)
	case models.ProviderUPI:
		return v.verifyUPI(attempt, proof), nil
	case models.ProviderWallet, models.ProviderCOD:
		// The ledger debit (or delivery-time collection) is the proof; no
		// external call needed.
		return Verified, nil
	}
	v.logger.Warn("Unknown settlement provider", zap.String("provider", attempt.Provider))
	return VerificationFailed, nil
}

func (v *ProviderVerifier) verifyCard(attempt *models.PaymentAttempt) (VerificationResult, error) {
	if attempt.ProviderReference == nil {
		return VerificationFailed, nil
	}

	pi, err := v.stripe.GetPaymentIntent(*attempt.ProviderReference)
	if err != nil {
		return StillPending, err
	}
	if pi.Amount < int64(attempt.Amount) {
		v.logger.Warn("Payment intent amount below attempt amount",
			zap.String("payment_intent_id", pi.ID),
			zap.Int64("intent_amount", pi.Amount),
			zap.Int("attempt_amount", attempt.Amount),
		)
		return VerificationFailed, nil
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return Verified, nil
	case stripe.PaymentIntentStatusCanceled:
		return VerificationFailed, nil
	default:
		return StillPending, nil
	}
}

func (v *ProviderVerifier) verifyUPI(attempt *models.PaymentAttempt, proof ClientProof) VerificationResult {
	// A missing or wrong signature is a failure, never "try again later".
	if proof.PaymentReference == "" || proof.Signature == "" {
		return VerificationFailed
	}
	if !v.upi.VerifySignature(attempt.OrderReference, proof.PaymentReference, proof.Signature) {
		return VerificationFailed
	}
	return Verified
}
