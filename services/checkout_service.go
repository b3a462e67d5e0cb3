package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"settlement-service/models"
	"settlement-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckoutConfig holds the orchestrator's tunables.
type CheckoutConfig struct {
	SessionTTL            time.Duration
	FreeDeliveryThreshold int
	DeliveryFee           int
	Currency              string
	// OutcomeWait bounds how long a duplicate finalize waits for the first
	// writer's outcome before telling the caller to retry.
	OutcomeWait time.Duration
}

// CheckoutService is the payment orchestrator: it drives one of the payment
// strategies for a checkout attempt and owns the idempotent finalize that
// turns a settled payment into exactly one order.
type CheckoutService struct {
	sessions  repository.SessionStore
	attempts  repository.AttemptRepository
	wallets   repository.WalletRepository
	orders    repository.OrderRepository
	idem      repository.IdempotencyRepository
	verifier  SettlementVerifier
	stripe    StripeAPI
	upi       *UPIService
	catalog   CatalogAPI
	addresses AddressAPI
	events    EventPublisher
	cfg       CheckoutConfig
	logger    *zap.Logger
}

func NewCheckoutService(
	sessions repository.SessionStore,
	attempts repository.AttemptRepository,
	wallets repository.WalletRepository,
	orders repository.OrderRepository,
	idem repository.IdempotencyRepository,
	verifier SettlementVerifier,
	stripeAPI StripeAPI,
	upi *UPIService,
	catalog CatalogAPI,
	addresses AddressAPI,
	events EventPublisher,
	cfg CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	if cfg.OutcomeWait == 0 {
		cfg.OutcomeWait = 3 * time.Second
	}
	return &CheckoutService{
		sessions:  sessions,
		attempts:  attempts,
		wallets:   wallets,
		orders:    orders,
		idem:      idem,
		verifier:  verifier,
		stripe:    stripeAPI,
		upi:       upi,
		catalog:   catalog,
		addresses: addresses,
		events:    events,
		cfg:       cfg,
		logger:    logger,
	}
}

type BeginCheckoutRequest struct {
	ProductID     uuid.UUID `json:"product_id" binding:"required"`
	Quantity      int       `json:"quantity" binding:"required,min=1,max=10"`
	AddressID     uuid.UUID `json:"address_id" binding:"required"`
	PaymentMethod string    `json:"payment_method" binding:"required"`
}

type AttemptInfo struct {
	AttemptID         uuid.UUID `json:"attempt_id"`
	Provider          string    `json:"provider"`
	ProviderReference string    `json:"provider_reference,omitempty"`
	OrderReference    string    `json:"order_reference,omitempty"`
	Amount            int       `json:"amount"`
}

type CheckoutResponse struct {
	SessionID        uuid.UUID    `json:"session_id"`
	Amount           int          `json:"amount"`
	DeliveryFee      int          `json:"delivery_fee"`
	ReadyToFinalize  bool         `json:"ready_to_finalize"`
	PaymentReference string       `json:"payment_reference,omitempty"`
	WalletPortion    int          `json:"wallet_portion,omitempty"`
	CardPortion      int          `json:"card_portion,omitempty"`
	Attempt          *AttemptInfo `json:"attempt,omitempty"`
}

type FinalizeRequest struct {
	SessionID         uuid.UUID `json:"session_id" binding:"required"`
	ProviderReference string    `json:"provider_reference"`
	Signature         string    `json:"signature"`
}

// BeginCheckout snapshots product and address, prices the session, and
// acquires whatever external resource the chosen strategy needs before any
// order exists: a wallet debit, a card handle, or a UPI collect reference.
func (s *CheckoutService) BeginCheckout(ctx context.Context, customerID uuid.UUID, req *BeginCheckoutRequest) (*CheckoutResponse, *ServiceError) {
	if req.Quantity < 1 || req.Quantity > 10 {
		return nil, &ServiceError{StatusCode: 400, Message: "Quantity must be between 1 and 10"}
	}
	if !models.ValidMethod(req.PaymentMethod) {
		return nil, &ServiceError{StatusCode: 400, Message: "Unsupported payment method"}
	}

	product, err := s.catalog.FetchProduct(ctx, req.ProductID)
	if err != nil {
		s.logger.Error("Failed to fetch product", zap.String("product_id", req.ProductID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "Product lookup failed"}
	}
	if product.Stock < req.Quantity {
		return nil, &ServiceError{StatusCode: 400, Message: "Insufficient stock"}
	}

	address, err := s.addresses.FetchAddress(ctx, customerID, req.AddressID)
	if err != nil {
		s.logger.Error("Failed to fetch address", zap.String("address_id", req.AddressID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "Address lookup failed"}
	}

	unit := product.Price
	if product.DiscountedPrice > 0 && product.DiscountedPrice < product.Price {
		unit = product.DiscountedPrice
	}
	itemTotal := unit * req.Quantity
	fee := s.cfg.DeliveryFee
	if itemTotal > s.cfg.FreeDeliveryThreshold {
		fee = 0
	}

	session := &models.CheckoutSession{
		ID:              uuid.New(),
		CustomerID:      customerID,
		ProductID:       product.ID,
		ProductName:     product.Name,
		UnitPrice:       product.Price,
		DiscountedPrice: product.DiscountedPrice,
		Quantity:        req.Quantity,
		DeliveryFee:     fee,
		Amount:          itemTotal + fee,
		Address:         *address,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       time.Now().UTC(),
	}

	resp, svcErr := s.acquirePayment(ctx, session)
	if svcErr != nil {
		return nil, svcErr
	}

	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		s.logger.Error("Failed to save checkout session", zap.String("session_id", session.ID.String()), zap.Error(err))
		s.rollbackAcquisition(ctx, session)
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to start checkout"}
	}

	return resp, nil
}

// acquirePayment runs the begin-side of the chosen strategy. Wallet debits are
// compensable; card handles cost nothing until verified.
func (s *CheckoutService) acquirePayment(ctx context.Context, session *models.CheckoutSession) (*CheckoutResponse, *ServiceError) {
	resp := &CheckoutResponse{
		SessionID:   session.ID,
		Amount:      session.Amount,
		DeliveryFee: session.DeliveryFee,
	}

	switch session.PaymentMethod {
	case models.MethodCOD:
		resp.ReadyToFinalize = true
		return resp, nil

	case models.MethodWallet:
		entry, err := s.wallets.DebitForOrder(ctx, session.CustomerID, session.Amount, session.ID)
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, &ServiceError{StatusCode: 402, Message: "Insufficient wallet balance"}
		}
		if err != nil {
			s.logger.Error("Wallet debit failed", zap.String("session_id", session.ID.String()), zap.Error(err))
			return nil, &ServiceError{StatusCode: 500, Message: "Wallet debit failed"}
		}
		session.WalletJournalID = &entry.ID
		session.WalletPortion = session.Amount
		resp.ReadyToFinalize = true
		resp.PaymentReference = entry.ID.String()
		resp.WalletPortion = session.Amount
		return resp, nil

	case models.MethodCard:
		attempt, svcErr := s.openCardHandle(ctx, session, session.Amount)
		if svcErr != nil {
			return nil, svcErr
		}
		resp.Attempt = attempt
		return resp, nil

	case models.MethodUPI:
		attempt := &models.PaymentAttempt{
			ID:             uuid.New(),
			SessionID:      session.ID,
			CustomerID:     session.CustomerID,
			Provider:       models.ProviderUPI,
			OrderReference: s.upi.NewCollectReference(),
			Amount:         session.Amount,
			Currency:       s.cfg.Currency,
			Status:         models.AttemptPending,
		}
		session.AttemptID = &attempt.ID
		attempt.SessionSnapshot = snapshotSession(session)
		if err := s.attempts.Create(ctx, attempt); err != nil {
			s.logger.Error("Failed to create UPI attempt", zap.String("session_id", session.ID.String()), zap.Error(err))
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to start UPI payment"}
		}
		resp.Attempt = &AttemptInfo{
			AttemptID:      attempt.ID,
			Provider:       attempt.Provider,
			OrderReference: attempt.OrderReference,
			Amount:         attempt.Amount,
		}
		return resp, nil

	case models.MethodHybrid:
		balance, err := s.wallets.Balance(ctx, session.CustomerID)
		if err != nil {
			return nil, &ServiceError{StatusCode: 500, Message: "Wallet lookup failed"}
		}
		walletPortion := balance
		if walletPortion > session.Amount {
			walletPortion = session.Amount
		}

		if walletPortion > 0 {
			entry, err := s.wallets.DebitForOrder(ctx, session.CustomerID, walletPortion, session.ID)
			if errors.Is(err, repository.ErrInsufficientBalance) {
				// Balance shrank between the read and the debit.
				return nil, &ServiceError{StatusCode: 409, Message: "Wallet balance changed, please retry checkout"}
			}
			if err != nil {
				return nil, &ServiceError{StatusCode: 500, Message: "Wallet debit failed"}
			}
			session.WalletJournalID = &entry.ID
			session.WalletPortion = walletPortion
			resp.PaymentReference = entry.ID.String()
		}
		resp.WalletPortion = walletPortion

		cardPortion := session.Amount - walletPortion
		session.CardPortion = cardPortion
		resp.CardPortion = cardPortion
		if cardPortion == 0 {
			// Wallet covered everything; behaves like a pure wallet checkout.
			resp.ReadyToFinalize = true
			return resp, nil
		}

		attempt, svcErr := s.openCardHandle(ctx, session, cardPortion)
		if svcErr != nil {
			s.rollbackAcquisition(ctx, session)
			return nil, svcErr
		}
		resp.Attempt = attempt
		return resp, nil
	}

	return nil, &ServiceError{StatusCode: 400, Message: "Unsupported payment method"}
}

func (s *CheckoutService) openCardHandle(ctx context.Context, session *models.CheckoutSession, amount int) (*AttemptInfo, *ServiceError) {
	piID, err := s.stripe.CreatePaymentIntent(int64(amount), s.cfg.Currency)
	if err != nil {
		s.logger.Error("Failed to create payment intent", zap.String("session_id", session.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "Card provider unavailable, please retry"}
	}

	attempt := &models.PaymentAttempt{
		ID:                uuid.New(),
		SessionID:         session.ID,
		CustomerID:        session.CustomerID,
		Provider:          models.ProviderStripe,
		ProviderReference: &piID,
		Amount:            amount,
		Currency:          s.cfg.Currency,
		Status:            models.AttemptPending,
	}
	session.AttemptID = &attempt.ID
	attempt.SessionSnapshot = snapshotSession(session)
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.logger.Error("Failed to create card attempt", zap.String("session_id", session.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to start card payment"}
	}

	return &AttemptInfo{
		AttemptID:         attempt.ID,
		Provider:          attempt.Provider,
		ProviderReference: piID,
		Amount:            amount,
	}, nil
}

// rollbackAcquisition compensates any wallet debit taken during begin-checkout
// when a later step of the same begin fails.
func (s *CheckoutService) rollbackAcquisition(ctx context.Context, session *models.CheckoutSession) {
	if session.WalletJournalID == nil {
		return
	}
	if _, err := s.wallets.CompensateDebit(ctx, *session.WalletJournalID); err != nil {
		s.logger.Error("Failed to compensate wallet debit",
			zap.String("session_id", session.ID.String()),
			zap.String("journal_id", session.WalletJournalID.String()),
			zap.Error(err),
		)
	}
}

// Finalize settles a checkout session into an order. It is safe to call any
// number of times with the same (session, provider reference): the guard
// admits one writer and every other caller receives the first writer's
// outcome. Callers pass uuid.Nil as actorID when invoked from a trusted
// internal path (webhook, reconciliation sweep).
func (s *CheckoutService) Finalize(ctx context.Context, actorID uuid.UUID, req *FinalizeRequest) (*models.Order, *ServiceError) {
	session, err := s.sessions.Find(ctx, req.SessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		// The Redis session may have hit its TTL while the settlement was
		// still in flight; the attempt carries a durable snapshot.
		session, err = s.sessionFromSnapshot(ctx, req.SessionID)
	}
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, &ServiceError{StatusCode: 404, Message: "Checkout session not found or expired"}
	}
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load checkout session"}
	}
	if actorID != uuid.Nil && session.CustomerID != actorID {
		return nil, &ServiceError{StatusCode: 403, Message: "Session belongs to another customer"}
	}

	attempt, refTag, svcErr := s.resolveReference(ctx, session, req)
	if svcErr != nil {
		return nil, svcErr
	}

	key := session.ID.String() + "|" + refTag
	first, err := s.idem.Insert(ctx, key)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to record finalize attempt"}
	}
	if !first {
		return s.awaitOutcome(ctx, key)
	}

	return s.settle(ctx, session, attempt, req, key)
}

func snapshotSession(session *models.CheckoutSession) []byte {
	snap, err := json.Marshal(session)
	if err != nil {
		return nil
	}
	return snap
}

// sessionFromSnapshot rebuilds an expired session from the attempt it opened.
// COD and pure-wallet checkouts open no attempt and cannot be rebuilt.
func (s *CheckoutService) sessionFromSnapshot(ctx context.Context, sessionID uuid.UUID) (*models.CheckoutSession, error) {
	attempt, err := s.attempts.FindBySessionID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(attempt.SessionSnapshot) == 0 {
		return nil, repository.ErrSessionNotFound
	}
	var session models.CheckoutSession
	if err := json.Unmarshal(attempt.SessionSnapshot, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// resolveReference maps the finalize request onto the settlement reference
// that forms the idempotency key, loading the pending attempt when there is
// one.
func (s *CheckoutService) resolveReference(ctx context.Context, session *models.CheckoutSession, req *FinalizeRequest) (*models.PaymentAttempt, string, *ServiceError) {
	switch {
	case session.PaymentMethod == models.MethodCOD:
		return nil, "COD", nil

	case session.PaymentMethod == models.MethodWallet,
		session.PaymentMethod == models.MethodHybrid && session.AttemptID == nil:
		if session.WalletJournalID == nil {
			return nil, "", &ServiceError{StatusCode: 409, Message: "Checkout has no wallet debit to settle"}
		}
		ref := session.WalletJournalID.String()
		if req.ProviderReference != "" && req.ProviderReference != ref {
			return nil, "", &ServiceError{StatusCode: 400, Message: "Payment reference does not match this checkout"}
		}
		return nil, ref, nil

	case session.AttemptID != nil:
		attempt, err := s.attempts.FindByID(ctx, *session.AttemptID)
		if err != nil {
			return nil, "", &ServiceError{StatusCode: 500, Message: "Failed to load payment attempt"}
		}

		if attempt.Provider == models.ProviderUPI {
			if req.ProviderReference == "" {
				return nil, "", &ServiceError{StatusCode: 400, Message: "Missing UPI payment reference"}
			}
			return attempt, req.ProviderReference, nil
		}

		if attempt.ProviderReference == nil {
			return nil, "", &ServiceError{StatusCode: 409, Message: "Payment attempt has no provider reference"}
		}
		if req.ProviderReference != "" && req.ProviderReference != *attempt.ProviderReference {
			return nil, "", &ServiceError{StatusCode: 400, Message: "Payment reference does not match this checkout"}
		}
		return attempt, *attempt.ProviderReference, nil
	}

	return nil, "", &ServiceError{StatusCode: 409, Message: "Checkout session is not finalizable"}
}

// settle is the first-writer path: verify settlement, create the order, record
// the outcome. Any failure other than duplicate detection compensates wallet
// money before surfacing.
func (s *CheckoutService) settle(ctx context.Context, session *models.CheckoutSession, attempt *models.PaymentAttempt, req *FinalizeRequest, key string) (*models.Order, *ServiceError) {
	now := time.Now().UTC()

	if attempt != nil && attempt.Status == models.AttemptVerified {
		// Already proven in a previous finalize whose order write failed;
		// go straight to order creation.
	} else if attempt != nil {
		if attempt.Provider == models.ProviderUPI && attempt.ProviderReference == nil {
			if err := s.attempts.SetProviderReference(ctx, attempt.ID, req.ProviderReference); err != nil {
				s.releaseKey(ctx, key)
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return nil, &ServiceError{StatusCode: 409, Message: "Payment reference already used"}
				}
				return nil, &ServiceError{StatusCode: 500, Message: "Failed to record payment reference"}
			}
			attempt.ProviderReference = &req.ProviderReference
		}

		result, err := s.verifier.Verify(ctx, attempt, ClientProof{
			PaymentReference: req.ProviderReference,
			Signature:        req.Signature,
		})
		if err != nil {
			s.logger.Warn("Settlement verification unavailable",
				zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
			s.releaseKey(ctx, key)
			return nil, &ServiceError{StatusCode: 502, Message: "Payment verification unavailable, please retry"}
		}

		switch result {
		case StillPending:
			s.releaseKey(ctx, key)
			return nil, &ServiceError{StatusCode: 409, Message: "Payment not confirmed, please retry"}

		case VerificationFailed:
			if err := s.attempts.MarkFailed(ctx, attempt.ID, now); err != nil && !errors.Is(err, repository.ErrAttemptFinalized) {
				s.logger.Error("Failed to mark attempt failed", zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
			}
			s.rollbackAcquisition(ctx, session)
			// The session is spent: a fresh checkout is required after a
			// failed settlement.
			if err := s.sessions.Delete(ctx, session.ID); err != nil {
				s.logger.Warn("Failed to delete checkout session", zap.String("session_id", session.ID.String()), zap.Error(err))
			}
			if err := s.idem.SetFailureOutcome(ctx, key, "Payment could not be verified"); err != nil {
				s.logger.Error("Failed to record failure outcome", zap.String("key", key), zap.Error(err))
			}
			return nil, &ServiceError{StatusCode: 402, Message: "Payment could not be verified"}
		}

		if err := s.attempts.MarkVerified(ctx, attempt.ID, now); err != nil && !errors.Is(err, repository.ErrAttemptFinalized) {
			s.releaseKey(ctx, key)
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to record verification"}
		}
	}

	order := s.buildOrder(session, attempt, now)
	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("Failed to persist order",
			zap.String("session_id", session.ID.String()), zap.Error(err))

		if attempt != nil && attempt.Provider != models.ProviderCOD {
			// Money is already settled externally: keep it, release the key
			// and let the reconciliation sweep retry order creation.
			s.releaseKey(ctx, key)
			return nil, &ServiceError{StatusCode: 500, Message: "Order recording failed, it will be retried automatically"}
		}

		// Wallet money comes back before the error surfaces; the session is
		// no longer settleable afterwards.
		s.rollbackAcquisition(ctx, session)
		if derr := s.sessions.Delete(ctx, session.ID); derr != nil {
			s.logger.Warn("Failed to delete checkout session", zap.String("session_id", session.ID.String()), zap.Error(derr))
		}
		if serr := s.idem.SetFailureOutcome(ctx, key, "Order could not be created, any wallet debit was refunded"); serr != nil {
			s.logger.Error("Failed to record failure outcome", zap.String("key", key), zap.Error(serr))
		}
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create order, please retry checkout"}
	}

	if err := s.idem.SetOrderOutcome(ctx, key, order.ID); err != nil {
		s.logger.Error("Failed to cache finalize outcome", zap.String("key", key), zap.Error(err))
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("Failed to delete checkout session", zap.String("session_id", session.ID.String()), zap.Error(err))
	}

	s.events.PublishOrderEvent(ctx, models.OrderEvent{
		Type:       models.EventOrderPlaced,
		OrderID:    order.ID.String(),
		CustomerID: order.CustomerID.String(),
		Status:     order.OrderStatus,
		Amount:     order.TotalPrice,
		Timestamp:  now,
	})

	return order, nil
}

func (s *CheckoutService) buildOrder(session *models.CheckoutSession, attempt *models.PaymentAttempt, now time.Time) *models.Order {
	paymentStatus := models.PaymentPaid
	if session.PaymentMethod == models.MethodCOD {
		// COD is paid at delivery-time cash collection.
		paymentStatus = models.PaymentPending
	}

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(),
		CustomerID:      session.CustomerID,
		ProductID:       session.ProductID,
		ProductName:     session.ProductName,
		UnitPrice:       session.UnitPrice,
		DiscountedPrice: session.DiscountedPrice,
		Quantity:        session.Quantity,
		DeliveryFee:     session.DeliveryFee,
		TotalPrice:      session.Amount,
		Address:         session.Address,
		PaymentMethod:   session.PaymentMethod,
		PaymentStatus:   paymentStatus,
		OrderStatus:     models.StatusPlaced,
		WalletJournalID: session.WalletJournalID,
		WalletPortion:   session.WalletPortion,
		OrderedAt:       now,
	}
	if attempt != nil {
		order.PaymentAttemptID = &attempt.ID
	}
	return order
}

// awaitOutcome is the duplicate-finalize path: poll for the first writer's
// outcome so every caller with the same key observes the same order.
func (s *CheckoutService) awaitOutcome(ctx context.Context, key string) (*models.Order, *ServiceError) {
	deadline := time.Now().Add(s.cfg.OutcomeWait)
	for {
		record, err := s.idem.Find(ctx, key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The first writer released the key (settlement still pending).
			return nil, &ServiceError{StatusCode: 409, Message: "Payment not confirmed, please retry"}
		}
		if err != nil {
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to load finalize outcome"}
		}
		if record.OrderID != nil {
			order, err := s.orders.FindByID(ctx, *record.OrderID)
			if err != nil {
				return nil, &ServiceError{StatusCode: 500, Message: "Failed to load order"}
			}
			return order, nil
		}
		if record.Failure != "" {
			return nil, &ServiceError{StatusCode: 402, Message: record.Failure}
		}

		if time.Now().After(deadline) {
			return nil, &ServiceError{StatusCode: 409, Message: "Finalize already in progress, please retry"}
		}
		select {
		case <-ctx.Done():
			return nil, &ServiceError{StatusCode: 500, Message: "Request cancelled"}
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// FinalizeByProviderReference drives finalize from a provider callback or the
// reconciliation sweep, where only the external reference is known.
func (s *CheckoutService) FinalizeByProviderReference(ctx context.Context, providerRef string) (*models.Order, *ServiceError) {
	attempt, err := s.attempts.FindByProviderReference(ctx, providerRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ServiceError{StatusCode: 404, Message: "No payment attempt for reference"}
	}
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load payment attempt"}
	}

	return s.Finalize(ctx, uuid.Nil, &FinalizeRequest{
		SessionID:         attempt.SessionID,
		ProviderReference: providerRef,
	})
}

func (s *CheckoutService) releaseKey(ctx context.Context, key string) {
	if err := s.idem.Delete(ctx, key); err != nil {
		s.logger.Error("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ORD-%d-%s", time.Now().Unix(), id[:8])
}
