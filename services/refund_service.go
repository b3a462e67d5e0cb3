package services

import (
	"context"
	"errors"
	"time"

	"settlement-service/models"
	"settlement-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RefundService runs the time-boxed post-delivery return flow and owns refund
// issuance. Money moves before the Refunded status commits, never the other
// way round, and every refund is keyed by the order id so it can only happen
// once.
type RefundService struct {
	orders       repository.OrderRepository
	wallets      repository.WalletRepository
	attempts     repository.AttemptRepository
	stripe       StripeAPI
	events       EventPublisher
	returnWindow time.Duration
	logger       *zap.Logger
}

func NewRefundService(
	orders repository.OrderRepository,
	wallets repository.WalletRepository,
	attempts repository.AttemptRepository,
	stripeAPI StripeAPI,
	events EventPublisher,
	returnWindow time.Duration,
	logger *zap.Logger,
) *RefundService {
	return &RefundService{
		orders:       orders,
		wallets:      wallets,
		attempts:     attempts,
		stripe:       stripeAPI,
		events:       events,
		returnWindow: returnWindow,
		logger:       logger,
	}
}

// RequestReturn opens the return flow. Only delivered orders within the
// return window qualify.
func (s *RefundService) RequestReturn(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByIDAndCustomerID(ctx, orderID, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
	}
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}

	if order.OrderStatus != models.StatusDelivered || order.DeliveredAt == nil {
		return nil, &ServiceError{StatusCode: 409, Message: "Only delivered orders can be returned"}
	}
	if time.Now().After(order.DeliveredAt.Add(s.returnWindow)) {
		return nil, &ServiceError{StatusCode: 410, Message: "Return window expired"}
	}

	now := time.Now().UTC()
	if err := s.orders.TransitionStatus(ctx, order.ID, models.StatusDelivered, models.StatusReturnRequest, now); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return nil, &ServiceError{StatusCode: 409, Message: "Order status changed concurrently, please re-read"}
		}
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update order"}
	}
	order.OrderStatus = models.StatusReturnRequest
	order.ReturnRequestedAt = &now

	s.events.PublishOrderEvent(ctx, models.OrderEvent{
		Type:       models.EventStatusChanged,
		OrderID:    order.ID.String(),
		CustomerID: order.CustomerID.String(),
		Status:     order.OrderStatus,
		Timestamp:  now,
	})
	return order, nil
}

// CompleteRefund closes the return flow from ReturnPickedUp. The credit (or
// provider refund) is issued first; only then does the Refunded transition
// commit, so a Refunded order always has the money already moved.
func (s *RefundService) CompleteRefund(ctx context.Context, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
	}
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	if order.OrderStatus != models.StatusReturnPickedUp {
		return nil, &ServiceError{StatusCode: 409, Message: "Transition out of sequence"}
	}

	if svcErr := s.IssueRefund(ctx, order); svcErr != nil {
		return nil, svcErr
	}

	now := time.Now().UTC()
	if err := s.orders.TransitionStatus(ctx, order.ID, models.StatusReturnPickedUp, models.StatusRefunded, now); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			// Someone else already committed; the refund is keyed by order id
			// so nothing was paid twice.
			return nil, &ServiceError{StatusCode: 409, Message: "Order status changed concurrently, please re-read"}
		}
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update order"}
	}
	order.OrderStatus = models.StatusRefunded
	order.RefundedAt = &now

	s.events.PublishOrderEvent(ctx, models.OrderEvent{
		Type:       models.EventOrderRefunded,
		OrderID:    order.ID.String(),
		CustomerID: order.CustomerID.String(),
		Status:     order.OrderStatus,
		Amount:     order.TotalPrice,
		Timestamp:  now,
	})
	return order, nil
}

// IssueRefund moves the order's money back to the customer: the wallet leg as
// a ledger credit keyed by order id, the card leg through the provider with
// the order id as idempotency key. UPI and COD refunds are credited to the
// wallet.
func (s *RefundService) IssueRefund(ctx context.Context, order *models.Order) *ServiceError {
	walletAmount := order.TotalPrice
	cardAmount := 0

	if order.PaymentAttemptID != nil {
		attempt, err := s.attempts.FindByID(ctx, *order.PaymentAttemptID)
		if err != nil {
			s.logger.Error("Failed to load payment attempt for refund",
				zap.String("order_id", order.ID.String()), zap.Error(err))
			return &ServiceError{StatusCode: 500, Message: "Failed to issue refund"}
		}
		if attempt.Provider == models.ProviderStripe && attempt.ProviderReference != nil {
			cardAmount = attempt.Amount
			walletAmount = order.TotalPrice - cardAmount

			if _, err := s.stripe.RefundPayment(*attempt.ProviderReference, int64(cardAmount), order.ID.String()); err != nil {
				s.logger.Error("Provider refund failed",
					zap.String("order_id", order.ID.String()),
					zap.String("payment_intent_id", *attempt.ProviderReference),
					zap.Error(err),
				)
				return &ServiceError{StatusCode: 502, Message: "Refund could not be issued, it will be retried"}
			}
		}
	}

	if walletAmount > 0 {
		if _, err := s.wallets.Credit(ctx, order.CustomerID, walletAmount, models.ReasonCreditRefund, order.ID); err != nil {
			s.logger.Error("Wallet refund credit failed",
				zap.String("order_id", order.ID.String()), zap.Error(err))
			return &ServiceError{StatusCode: 500, Message: "Refund could not be issued, it will be retried"}
		}
	}

	return nil
}

// HandleRefundCompleted consumes the provider's asynchronous refund
// confirmation. It only fans the event out; the refund itself was already
// accounted for when it was issued.
func (s *RefundService) HandleRefundCompleted(ctx context.Context, orderID uuid.UUID, providerRefundID string) *ServiceError {
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ServiceError{StatusCode: 404, Message: "Order not found"}
	}
	if err != nil {
		return &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}

	s.logger.Info("Provider refund completed",
		zap.String("order_id", order.ID.String()),
		zap.String("provider_refund_id", providerRefundID),
	)
	s.events.PublishOrderEvent(ctx, models.OrderEvent{
		Type:       models.EventRefundCompleted,
		OrderID:    order.ID.String(),
		CustomerID: order.CustomerID.String(),
		Amount:     order.TotalPrice,
		Timestamp:  time.Now().UTC(),
	})
	return nil
}
