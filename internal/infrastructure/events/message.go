// Package events publica los eventos de cambio de stock hacia Kafka o RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
)

// EventType tipo lógico del mensaje (header "event_type").
const EventType = "inventory.stock_changed"

// encode serializa el evento; la clave es el producto para conservar el orden por producto.
func encode(event ledger.StockChangedEvent) (key, body []byte, err error) {
	body, err = json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("encode stock event: %w", err)
	}
	return []byte(event.ProductID), body, nil
}

// kafkaHeaders implementa propagation.TextMapCarrier sobre los headers de un mensaje Kafka.
type kafkaHeaders struct {
	msg *kafka.Message
}

var _ propagation.TextMapCarrier = kafkaHeaders{}

func (c kafkaHeaders) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c kafkaHeaders) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c kafkaHeaders) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// amqpHeaders implementa propagation.TextMapCarrier sobre amqp.Table.
type amqpHeaders amqp.Table

var _ propagation.TextMapCarrier = amqpHeaders{}

func (c amqpHeaders) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c amqpHeaders) Set(key, value string) { c[key] = value }

func (c amqpHeaders) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// inject propaga el contexto de traza activo al carrier.
func inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}
