package kafka

import (
	"context"
	"encoding/json"
	"log"

	"settlement-service/models"

	"github.com/segmentio/kafka-go"
)

// ProducerAPI is the subset of the producer used by services; kept small so
// tests can fake it.
type ProducerAPI interface {
	SendOrderEvent(event models.OrderEvent) error
}

type OrderEventProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewOrderEventProducer(brokers []string, topic string) *OrderEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[SettlementService][KafkaProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &OrderEventProducer{writer: w, topic: topic}
}

func (p *OrderEventProducer) SendOrderEvent(event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
	}

	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("[SettlementService][KafkaProducer] failed to send order event: %v", err)
		return err
	}
	return nil
}

func (p *OrderEventProducer) Close() error {
	log.Printf("[SettlementService][KafkaProducer] closing writer topic=%s", p.topic)
	return p.writer.Close()
}
