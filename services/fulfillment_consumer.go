package services

import (
	"context"
	"encoding/json"

	"settlement-service/models"
	aws_pkg "settlement-service/pkg/aws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// shipmentStatuses maps fulfillment-side status strings to order statuses.
var shipmentStatuses = map[string]string{
	"shipped":          models.StatusShipped,
	"out_for_delivery": models.StatusOutForDelivery,
	"delivered":        models.StatusDelivered,
}

// FulfillmentConsumer consumes shipment status pushes from the fulfillment
// service's SQS queue and drives the forward transitions.
type FulfillmentConsumer struct {
	sqsConsumer *aws_pkg.SQSConsumer
	orders      *OrderService
	logger      *zap.Logger
}

func NewFulfillmentConsumer(sqsConsumer *aws_pkg.SQSConsumer, orders *OrderService, logger *zap.Logger) *FulfillmentConsumer {
	return &FulfillmentConsumer{sqsConsumer: sqsConsumer, orders: orders, logger: logger}
}

// Start begins polling the fulfillment queue until the context is cancelled.
func (c *FulfillmentConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting fulfillment events consumer")

	err := c.sqsConsumer.StartPolling(ctx, func(ctx context.Context, body string) error {
		return c.HandleMessage(ctx, body)
	})
	if err != nil && err != context.Canceled {
		c.logger.Error("Fulfillment consumer stopped", zap.Error(err))
	}
}

// HandleMessage processes one raw queue message body.
func (c *FulfillmentConsumer) HandleMessage(ctx context.Context, body string) error {
	// Unwrap an SNS envelope when the queue is subscribed to a topic.
	var snsEnvelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &snsEnvelope); err == nil && snsEnvelope.Message != "" {
		body = snsEnvelope.Message
	}

	var evt models.ShipmentEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		c.logger.Warn("Invalid shipment event payload", zap.String("body", body), zap.Error(err))
		return nil // don't retry malformed messages
	}

	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		c.logger.Warn("Shipment event with bad order id", zap.String("order_id", evt.OrderID))
		return nil
	}
	target, ok := shipmentStatuses[evt.Status]
	if !ok {
		c.logger.Warn("Unknown shipment status", zap.String("status", evt.Status))
		return nil
	}

	if _, svcErr := c.orders.ApplyTransition(ctx, RoleDeliverer, orderID, target); svcErr != nil {
		// Out-of-sequence and stale pushes are expected under retries;
		// they are dropped rather than redelivered.
		c.logger.Info("Shipment transition rejected",
			zap.String("order_id", evt.OrderID),
			zap.String("target", target),
			zap.String("reason", svcErr.Message),
		)
	}
	return nil
}
