package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"settlement-service/models"
	"settlement-service/repository"
	"settlement-service/services"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"gorm.io/gorm"
)

// ---- in-memory session store ----

type memSessionStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]models.CheckoutSession
	saveErr   error
	deleteErr error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]models.CheckoutSession)}
}

func (m *memSessionStore) Save(_ context.Context, s *models.CheckoutSession, _ time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessionStore) Find(_ context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := s
	return &copied, nil
}

func (m *memSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessionStore) has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// ---- in-memory attempt repository ----

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]models.PaymentAttempt
	// settled reports whether an order already references the attempt.
	settled func(attemptID uuid.UUID) bool
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{attempts: make(map[uuid.UUID]models.PaymentAttempt)}
}

func (m *memAttemptRepo) Create(_ context.Context, a *models.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.attempts[a.ID] = *a
	return nil
}

func (m *memAttemptRepo) FindByID(_ context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := a
	return &copied, nil
}

func (m *memAttemptRepo) FindByProviderReference(_ context.Context, ref string) (*models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ProviderReference != nil && *a.ProviderReference == ref {
			copied := a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memAttemptRepo) FindBySessionID(_ context.Context, sessionID uuid.UUID) (*models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *models.PaymentAttempt
	for _, a := range m.attempts {
		if a.SessionID != sessionID {
			continue
		}
		if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
			copied := a
			newest = &copied
		}
	}
	if newest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return newest, nil
}

func (m *memAttemptRepo) SetProviderReference(_ context.Context, id uuid.UUID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ID != id && a.ProviderReference != nil && *a.ProviderReference == ref {
			return gorm.ErrDuplicatedKey
		}
	}
	a, ok := m.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.ProviderReference = &ref
	m.attempts[id] = a
	return nil
}

func (m *memAttemptRepo) markTerminal(id uuid.UUID, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if a.Status != models.AttemptPending {
		return repository.ErrAttemptFinalized
	}
	a.Status = status
	if status == models.AttemptVerified {
		a.VerifiedAt = &at
	} else {
		a.FailedAt = &at
	}
	m.attempts[id] = a
	return nil
}

func (m *memAttemptRepo) MarkVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	return m.markTerminal(id, models.AttemptVerified, at)
}

func (m *memAttemptRepo) MarkFailed(_ context.Context, id uuid.UUID, at time.Time) error {
	return m.markTerminal(id, models.AttemptFailed, at)
}

func (m *memAttemptRepo) IncrementRetry(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.attempts[id]
	a.RetryCount++
	m.attempts[id] = a
	return nil
}

func (m *memAttemptRepo) FindStalePending(_ context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentAttempt
	for _, a := range m.attempts {
		if a.Status == models.AttemptPending && a.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAttemptRepo) FindVerifiedUnsettled(_ context.Context, limit int) ([]models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentAttempt
	for _, a := range m.attempts {
		if a.Status != models.AttemptVerified || len(out) >= limit {
			continue
		}
		if m.settled != nil && m.settled(a.ID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memAttemptRepo) get(id uuid.UUID) models.PaymentAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[id]
}

func (m *memAttemptRepo) put(a models.PaymentAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.ID] = a
}

// ---- in-memory wallet repository ----

type memWalletRepo struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int
	entries  map[uuid.UUID]models.WalletLedgerEntry
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{
		balances: make(map[uuid.UUID]int),
		entries:  make(map[uuid.UUID]models.WalletLedgerEntry),
	}
}

func (m *memWalletRepo) Balance(_ context.Context, accountID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID], nil
}

func (m *memWalletRepo) DebitForOrder(_ context.Context, accountID uuid.UUID, amount int, relatedID uuid.UUID) (*models.WalletLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[accountID] < amount {
		return nil, repository.ErrInsufficientBalance
	}
	m.balances[accountID] -= amount
	entry := models.WalletLedgerEntry{
		ID:        uuid.New(),
		AccountID: accountID,
		Delta:     -amount,
		Reason:    models.ReasonDebitOrder,
		RelatedID: relatedID,
	}
	m.entries[entry.ID] = entry
	return &entry, nil
}

func (m *memWalletRepo) Credit(_ context.Context, accountID uuid.UUID, amount int, reason string, relatedID uuid.UUID) (*models.WalletLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Reason == reason && e.RelatedID == relatedID {
			copied := e
			return &copied, nil
		}
	}
	m.balances[accountID] += amount
	entry := models.WalletLedgerEntry{
		ID:        uuid.New(),
		AccountID: accountID,
		Delta:     amount,
		Reason:    reason,
		RelatedID: relatedID,
	}
	m.entries[entry.ID] = entry
	return &entry, nil
}

func (m *memWalletRepo) CompensateDebit(ctx context.Context, debitEntryID uuid.UUID) (*models.WalletLedgerEntry, error) {
	m.mu.Lock()
	debit, ok := m.entries[debitEntryID]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.Credit(ctx, debit.AccountID, -debit.Delta, models.ReasonCreditCompensation, debitEntryID)
}

func (m *memWalletRepo) FindEntry(_ context.Context, id uuid.UUID) (*models.WalletLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := e
	return &copied, nil
}

func (m *memWalletRepo) FindDebitBySession(_ context.Context, sessionID uuid.UUID) (*models.WalletLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Reason == models.ReasonDebitOrder && e.RelatedID == sessionID {
			copied := e
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memWalletRepo) balance(accountID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID]
}

func (m *memWalletRepo) entryCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Reason == reason {
			n++
		}
	}
	return n
}

// ---- in-memory order repository ----

type memOrderRepo struct {
	mu sync.Mutex
	// failCreates makes the next N Create calls fail.
	failCreates int
	orders      map[uuid.UUID]models.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]models.Order)}
}

func (m *memOrderRepo) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreates > 0 {
		m.failCreates--
		return errors.New("insert failed")
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := o
	return &copied, nil
}

func (m *memOrderRepo) FindByIDAndCustomerID(_ context.Context, id, customerID uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.CustomerID != customerID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := o
	return &copied, nil
}

func (m *memOrderRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) FindAll(_ context.Context, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.OrderStatus != from {
		return repository.ErrStaleTransition
	}
	o.OrderStatus = to
	switch to {
	case models.StatusDelivered:
		o.DeliveredAt = &at
	case models.StatusCancelled:
		o.CancelledAt = &at
	case models.StatusReturnRequest:
		o.ReturnRequestedAt = &at
	case models.StatusRefunded:
		o.RefundedAt = &at
	}
	m.orders[id] = o
	return nil
}

func (m *memOrderRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.PaymentStatus = status
	m.orders[id] = o
	return nil
}

func (m *memOrderRepo) SetReview(_ context.Context, id uuid.UUID, review *string, rating *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Review = review
	if rating != nil {
		o.DeliveryRating = rating
	}
	m.orders[id] = o
	return nil
}

func (m *memOrderRepo) hasAttempt(attemptID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentAttemptID != nil && *o.PaymentAttemptID == attemptID {
			return true
		}
	}
	return false
}

func (m *memOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memOrderRepo) put(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *memOrderRepo) get(id uuid.UUID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

// ---- in-memory idempotency repository ----

type memIdemRepo struct {
	mu      sync.Mutex
	records map[string]models.IdempotencyRecord
}

func newMemIdemRepo() *memIdemRepo {
	return &memIdemRepo{records: make(map[string]models.IdempotencyRecord)}
}

func (m *memIdemRepo) Insert(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	m.records[key] = models.IdempotencyRecord{Key: key}
	return true, nil
}

func (m *memIdemRepo) Find(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := r
	return &copied, nil
}

func (m *memIdemRepo) SetOrderOutcome(_ context.Context, key string, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[key]
	r.Key = key
	r.OrderID = &orderID
	m.records[key] = r
	return nil
}

func (m *memIdemRepo) SetFailureOutcome(_ context.Context, key, failure string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[key]
	r.Key = key
	r.Failure = failure
	m.records[key] = r
	return nil
}

func (m *memIdemRepo) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// ---- stripe / catalog / address / verifier / publisher stubs ----

type mockStripe struct {
	mu            sync.Mutex
	createErr     error
	intentStatus  stripe.PaymentIntentStatus
	intentErr     error
	refundErr     error
	created       []string
	refunds       []string
	refundAmounts []int64
}

func (m *mockStripe) CreatePaymentIntent(amount int64, currency string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "pi_" + uuid.NewString()[:8]
	m.created = append(m.created, id)
	return id, nil
}

func (m *mockStripe) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	status := m.intentStatus
	if status == "" {
		status = stripe.PaymentIntentStatusSucceeded
	}
	return &stripe.PaymentIntent{ID: id, Status: status, Amount: 1 << 30}, nil
}

func (m *mockStripe) RefundPayment(paymentIntentID string, amount int64, idempotencyKey string) (string, error) {
	if m.refundErr != nil {
		return "", m.refundErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds = append(m.refunds, paymentIntentID)
	m.refundAmounts = append(m.refundAmounts, amount)
	return "re_" + uuid.NewString()[:8], nil
}

type mockCatalog struct {
	product *services.Product
	err     error
}

func (m *mockCatalog) FetchProduct(_ context.Context, _ uuid.UUID) (*services.Product, error) {
	return m.product, m.err
}

type mockAddressAPI struct {
	address *models.Address
	err     error
}

func (m *mockAddressAPI) FetchAddress(_ context.Context, _, _ uuid.UUID) (*models.Address, error) {
	return m.address, m.err
}

type stubVerifier struct {
	result services.VerificationResult
	err    error
}

func (v *stubVerifier) Verify(_ context.Context, _ *models.PaymentAttempt, _ services.ClientProof) (services.VerificationResult, error) {
	return v.result, v.err
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *capturePublisher) PublishOrderEvent(_ context.Context, event models.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) byType(t string) []models.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.OrderEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
