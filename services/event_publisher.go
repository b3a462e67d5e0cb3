package services

import (
	"context"
	"encoding/json"

	"settlement-service/kafka"
	"settlement-service/models"
	aws_pkg "settlement-service/pkg/aws"

	"go.uber.org/zap"
)

// EventPublisher fans out order events to the notification pipeline. Delivery
// is fire-and-forget: a publish failure never fails the transition it reports.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent)
}

type DualEventPublisher struct {
	producer    kafka.ProducerAPI
	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

func NewDualEventPublisher(producer kafka.ProducerAPI, snsClient aws_pkg.SNSPublisher, snsTopicArn string, logger *zap.Logger) *DualEventPublisher {
	return &DualEventPublisher{
		producer:    producer,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

func (p *DualEventPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) {
	if p.producer != nil {
		if err := p.producer.SendOrderEvent(event); err != nil {
			p.logger.Warn("Kafka publish failed",
				zap.String("event_type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}

	// SNS is best-effort alongside Kafka.
	if p.snsClient != nil && p.snsTopicArn != "" {
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		if err := p.snsClient.Publish(ctx, p.snsTopicArn, data); err != nil {
			p.logger.Warn("SNS publish failed",
				zap.String("event_type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}
}
