package services_test

import (
	"context"
	"testing"
	"time"

	"settlement-service/models"
	"settlement-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type orderFixture struct {
	orders  *memOrderRepo
	wallets *memWalletRepo
	stripe  *mockStripe
	events  *capturePublisher
	svc     *services.OrderService
	refunds *services.RefundService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:  newMemOrderRepo(),
		wallets: newMemWalletRepo(),
		stripe:  &mockStripe{},
		events:  &capturePublisher{},
	}
	logger := zap.NewNop()
	f.refunds = services.NewRefundService(
		f.orders, f.wallets, newMemAttemptRepo(), f.stripe, f.events,
		8*24*time.Hour, logger,
	)
	f.svc = services.NewOrderService(f.orders, f.refunds, f.events, logger)
	return f
}

func (f *orderFixture) seedOrder(status, method, paymentStatus string) models.Order {
	order := models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-TEST",
		CustomerID:    uuid.New(),
		ProductID:     uuid.New(),
		ProductName:   "Trail Shoes",
		UnitPrice:     500,
		Quantity:      1,
		TotalPrice:    490,
		PaymentMethod: method,
		PaymentStatus: paymentStatus,
		OrderStatus:   status,
		OrderedAt:     time.Now().UTC(),
	}
	f.orders.put(order)
	return order
}

func TestApplyTransitionEnforcesRoleTargets(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusPlaced, models.MethodCOD, models.PaymentPending)

	_, svcErr := f.svc.ApplyTransition(context.Background(), services.RoleDeliverer, order.ID, models.StatusConfirmed)
	assert.Equal(t, 403, svcErr.StatusCode)

	_, svcErr = f.svc.ApplyTransition(context.Background(), services.RoleCustomer, order.ID, models.StatusConfirmed)
	assert.Equal(t, 403, svcErr.StatusCode)

	updated, svcErr := f.svc.ApplyTransition(context.Background(), services.RoleSeller, order.ID, models.StatusConfirmed)
	assert.Nil(t, svcErr)
	assert.Equal(t, models.StatusConfirmed, updated.OrderStatus)
}

func TestApplyTransitionRejectsOutOfSequence(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusPlaced, models.MethodCOD, models.PaymentPending)

	// Placed cannot jump straight to shipped.
	_, svcErr := f.svc.ApplyTransition(context.Background(), services.RoleOps, order.ID, models.StatusShipped)
	assert.Equal(t, 409, svcErr.StatusCode)

	// Nothing leaves a terminal status.
	cancelled := f.seedOrder(models.StatusCancelled, models.MethodCOD, models.PaymentPending)
	_, svcErr = f.svc.ApplyTransition(context.Background(), services.RoleOps, cancelled.ID, models.StatusConfirmed)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, "Order is in a terminal state", svcErr.Message)

	refunded := f.seedOrder(models.StatusRefunded, models.MethodWallet, models.PaymentPaid)
	_, svcErr = f.svc.ApplyTransition(context.Background(), services.RoleOps, refunded.ID, models.StatusReturnAccepted)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, "Order is in a terminal state", svcErr.Message)
}

func TestFulfillmentChainMarksCODPaidOnDelivery(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusPlaced, models.MethodCOD, models.PaymentPending)

	chain := []struct {
		role   string
		target string
	}{
		{services.RoleSeller, models.StatusConfirmed},
		{services.RoleDeliverer, models.StatusShipped},
		{services.RoleDeliverer, models.StatusOutForDelivery},
		{services.RoleDeliverer, models.StatusDelivered},
	}
	for _, step := range chain {
		updated, svcErr := f.svc.ApplyTransition(context.Background(), step.role, order.ID, step.target)
		assert.Nil(t, svcErr)
		assert.Equal(t, step.target, updated.OrderStatus)
	}

	stored := f.orders.get(order.ID)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.NotNil(t, stored.DeliveredAt)
	assert.Len(t, f.events.byType(models.EventStatusChanged), 4)
}

func TestCancelRefundsPaidOrder(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusConfirmed, models.MethodWallet, models.PaymentPaid)

	updated, svcErr := f.svc.Cancel(context.Background(), order.CustomerID, order.ID)
	assert.Nil(t, svcErr)
	assert.Equal(t, models.StatusCancelled, updated.OrderStatus)
	assert.Equal(t, 490, f.wallets.balance(order.CustomerID))
	assert.Equal(t, 1, f.wallets.entryCount(models.ReasonCreditRefund))
}

func TestCancelUnpaidCODMovesNoMoney(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusPlaced, models.MethodCOD, models.PaymentPending)

	updated, svcErr := f.svc.Cancel(context.Background(), order.CustomerID, order.ID)
	assert.Nil(t, svcErr)
	assert.Equal(t, models.StatusCancelled, updated.OrderStatus)
	assert.Equal(t, 0, f.wallets.entryCount(models.ReasonCreditRefund))
}

func TestCancelRejectedAfterDelivery(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusDelivered, models.MethodWallet, models.PaymentPaid)

	_, svcErr := f.svc.Cancel(context.Background(), order.CustomerID, order.ID)
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestCancelTwiceRefundsOnce(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusPlaced, models.MethodWallet, models.PaymentPaid)

	_, svcErr := f.svc.Cancel(context.Background(), order.CustomerID, order.ID)
	assert.Nil(t, svcErr)
	_, svcErr = f.svc.Cancel(context.Background(), order.CustomerID, order.ID)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, 490, f.wallets.balance(order.CustomerID))
	assert.Equal(t, 1, f.wallets.entryCount(models.ReasonCreditRefund))
}

func TestCancelHiddenFromOtherCustomers(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusPlaced, models.MethodCOD, models.PaymentPending)

	_, svcErr := f.svc.Cancel(context.Background(), uuid.New(), order.ID)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestSetReviewRequiresDelivery(t *testing.T) {
	f := newOrderFixture()
	order := f.seedOrder(models.StatusShipped, models.MethodCOD, models.PaymentPending)
	review := "good"
	rating := 5

	_, svcErr := f.svc.SetReview(context.Background(), order.CustomerID, order.ID, &review, &rating)
	assert.Equal(t, 409, svcErr.StatusCode)

	delivered := f.seedOrder(models.StatusDelivered, models.MethodCOD, models.PaymentPaid)
	now := time.Now().UTC()
	delivered.DeliveredAt = &now
	f.orders.put(delivered)

	bad := 6
	_, svcErr = f.svc.SetReview(context.Background(), delivered.CustomerID, delivered.ID, &review, &bad)
	assert.Equal(t, 400, svcErr.StatusCode)

	updated, svcErr := f.svc.SetReview(context.Background(), delivered.CustomerID, delivered.ID, &review, &rating)
	assert.Nil(t, svcErr)
	assert.Equal(t, 5, *updated.DeliveryRating)
}

func TestGetCustomerOrdersPaginationMeta(t *testing.T) {
	f := newOrderFixture()
	customer := uuid.New()
	for i := 0; i < 3; i++ {
		o := f.seedOrder(models.StatusPlaced, models.MethodCOD, models.PaymentPending)
		o.CustomerID = customer
		f.orders.put(o)
	}

	resp, svcErr := f.svc.GetCustomerOrders(context.Background(), customer, 1, 2)
	assert.Nil(t, svcErr)
	assert.Equal(t, int64(3), resp.Meta.TotalOrders)
	assert.Equal(t, int64(2), resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasMore)
}
