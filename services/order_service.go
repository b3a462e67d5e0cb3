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

// Actor roles accepted on forward transitions.
const (
	RoleCustomer  = "customer"
	RoleSeller    = "seller"
	RoleDeliverer = "deliverer"
	RoleOps       = "ops"
)

// allowedTargets lists which statuses each role may drive an order into.
// Customers go through Cancel/RequestReturn instead.
var allowedTargets = map[string]map[string]bool{
	RoleSeller: {
		models.StatusConfirmed: true,
		models.StatusRejected:  true,
	},
	RoleDeliverer: {
		models.StatusShipped:        true,
		models.StatusOutForDelivery: true,
		models.StatusDelivered:      true,
	},
	RoleOps: {
		models.StatusConfirmed:      true,
		models.StatusRejected:       true,
		models.StatusShipped:        true,
		models.StatusOutForDelivery: true,
		models.StatusDelivered:      true,
		models.StatusReturnAccepted: true,
		models.StatusReturnPickedUp: true,
	},
}

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService is the only writer of order status. Every transition is a
// compare-and-set so concurrent customer, seller and deliverer actions on the
// same order are linearized.
type OrderService struct {
	orders  repository.OrderRepository
	refunds *RefundService
	events  EventPublisher
	logger  *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, refunds *RefundService, events EventPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{orders: orders, refunds: refunds, events: events, logger: logger}
}

// GetOrder retrieves a specific order for a customer.
func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByIDAndCustomerID(ctx, orderID, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
	}
	if err != nil {
		s.logger.Error("Failed to fetch order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	return order, nil
}

// GetCustomerOrders retrieves paginated orders for a customer.
func (s *OrderService) GetCustomerOrders(ctx context.Context, customerID uuid.UUID, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.orders.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.String("customer_id", customerID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}
	return s.paginated(orders, total, page, limit), nil
}

// GetAllOrders retrieves paginated orders across customers (ops only).
func (s *OrderService) GetAllOrders(ctx context.Context, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.orders.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch all orders", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}
	return s.paginated(orders, total, page, limit), nil
}

func (s *OrderService) paginated(orders []models.Order, total int64, page, limit int) *OrderResponse {
	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}
}

// Cancel is the customer-facing cancellation. Allowed until the order is
// delivered; a paid order is refunded after the cancel commits.
func (s *OrderService) Cancel(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, svcErr := s.GetOrder(ctx, customerID, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if !models.Cancellable(order.OrderStatus) {
		return nil, &ServiceError{StatusCode: 409, Message: "Order can no longer be cancelled"}
	}

	now := time.Now().UTC()
	if err := s.orders.TransitionStatus(ctx, order.ID, order.OrderStatus, models.StatusCancelled, now); err != nil {
		return nil, s.transitionError(err)
	}
	order.OrderStatus = models.StatusCancelled
	order.CancelledAt = &now

	if order.PaymentStatus == models.PaymentPaid {
		if svcErr := s.refunds.IssueRefund(ctx, order); svcErr != nil {
			// The cancel stands; the refund is keyed by order id and will be
			// retried without double-paying.
			s.logger.Error("Refund after cancel failed", zap.String("order_id", order.ID.String()))
			return nil, svcErr
		}
	}

	s.publishStatus(ctx, order, models.EventStatusChanged, now)
	return order, nil
}

// ApplyTransition drives a forward transition on behalf of a seller,
// deliverer or ops actor. Out-of-sequence targets are rejected before any
// write; a concurrent transition surfaces as a conflict.
func (s *OrderService) ApplyTransition(ctx context.Context, role string, orderID uuid.UUID, target string) (*models.Order, *ServiceError) {
	targets, ok := allowedTargets[role]
	if !ok || !targets[target] {
		return nil, &ServiceError{StatusCode: 403, Message: "Role may not apply this transition"}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
	}
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}

	if models.IsTerminalStatus(order.OrderStatus) {
		return nil, &ServiceError{StatusCode: 409, Message: "Order is in a terminal state"}
	}
	if !models.CanTransition(order.OrderStatus, target) {
		return nil, &ServiceError{StatusCode: 409, Message: "Transition out of sequence"}
	}

	now := time.Now().UTC()
	if err := s.orders.TransitionStatus(ctx, order.ID, order.OrderStatus, target, now); err != nil {
		return nil, s.transitionError(err)
	}
	order.OrderStatus = target

	// Cash is collected at the door: COD becomes paid on delivery.
	if target == models.StatusDelivered && order.PaymentMethod == models.MethodCOD && order.PaymentStatus == models.PaymentPending {
		if err := s.orders.UpdatePaymentStatus(ctx, order.ID, models.PaymentPaid); err != nil {
			s.logger.Error("Failed to mark COD order paid", zap.String("order_id", order.ID.String()), zap.Error(err))
		} else {
			order.PaymentStatus = models.PaymentPaid
		}
	}

	s.publishStatus(ctx, order, models.EventStatusChanged, now)
	return order, nil
}

// SetReview records the customer's review and delivery rating; only delivered
// (or later) orders accept one.
func (s *OrderService) SetReview(ctx context.Context, customerID, orderID uuid.UUID, review *string, rating *int) (*models.Order, *ServiceError) {
	order, svcErr := s.GetOrder(ctx, customerID, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if order.DeliveredAt == nil {
		return nil, &ServiceError{StatusCode: 409, Message: "Order has not been delivered"}
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, &ServiceError{StatusCode: 400, Message: "Rating must be between 1 and 5"}
	}

	if err := s.orders.SetReview(ctx, order.ID, review, rating); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to save review"}
	}
	order.Review = review
	if rating != nil {
		order.DeliveryRating = rating
	}
	return order, nil
}

func (s *OrderService) transitionError(err error) *ServiceError {
	if errors.Is(err, repository.ErrStaleTransition) {
		return &ServiceError{StatusCode: 409, Message: "Order status changed concurrently, please re-read"}
	}
	return &ServiceError{StatusCode: 500, Message: "Failed to update order"}
}

func (s *OrderService) publishStatus(ctx context.Context, order *models.Order, eventType string, at time.Time) {
	s.events.PublishOrderEvent(ctx, models.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID.String(),
		CustomerID: order.CustomerID.String(),
		Status:     order.OrderStatus,
		Timestamp:  at,
	})
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
