package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// UPIService issues collect references and verifies settlement signatures.
// A payment is only accepted when the signature the client relays matches the
// HMAC we compute ourselves over (orderReference, paymentReference) with the
// server-held secret.
type UPIService struct {
	secret []byte
}

func NewUPIService(secret string) *UPIService {
	return &UPIService{secret: []byte(secret)}
}

// NewCollectReference returns a fresh order reference for a collect request.
func (u *UPIService) NewCollectReference() string {
	return "upi_order_" + uuid.NewString()
}

// Signature computes the hex HMAC-SHA256 over orderRef|paymentRef.
func (u *UPIService) Signature(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, u.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature and compares in constant time.
func (u *UPIService) VerifySignature(orderRef, paymentRef, signature string) bool {
	expected := u.Signature(orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(signature))
}
