package controllers

import (
	"context"
	"net/http"

	"settlement-service/models"
	"settlement-service/services"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
)

// CheckoutAPI is the slice of the checkout service the HTTP layer needs.
type CheckoutAPI interface {
	BeginCheckout(ctx context.Context, customerID uuid.UUID, req *services.BeginCheckoutRequest) (*services.CheckoutResponse, *services.ServiceError)
	Finalize(ctx context.Context, actorID uuid.UUID, req *services.FinalizeRequest) (*models.Order, *services.ServiceError)
	FinalizeByProviderReference(ctx context.Context, providerRef string) (*models.Order, *services.ServiceError)
}

type OrderAPI interface {
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, *services.ServiceError)
	GetCustomerOrders(ctx context.Context, customerID uuid.UUID, page, limit int) (*services.OrderResponse, *services.ServiceError)
	GetAllOrders(ctx context.Context, page, limit int) (*services.OrderResponse, *services.ServiceError)
	Cancel(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, *services.ServiceError)
	ApplyTransition(ctx context.Context, role string, orderID uuid.UUID, target string) (*models.Order, *services.ServiceError)
	SetReview(ctx context.Context, customerID, orderID uuid.UUID, review *string, rating *int) (*models.Order, *services.ServiceError)
}

type RefundAPI interface {
	RequestReturn(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, *services.ServiceError)
	CompleteRefund(ctx context.Context, orderID uuid.UUID) (*models.Order, *services.ServiceError)
	HandleRefundCompleted(ctx context.Context, orderID uuid.UUID, providerRefundID string) *services.ServiceError
}

// WebhookParser verifies and decodes a provider callback request.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}
