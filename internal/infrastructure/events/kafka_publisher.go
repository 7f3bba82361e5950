package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
)

var _ ledger.EventPublisher = (*KafkaPublisher)(nil)

// messageWriter es la parte de *kafka.Writer que usa el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica StockChangedEvent en un topic, particionado por producto.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher crea el writer. No abre conexión hasta el primer mensaje.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) PublishStockChanged(ctx context.Context, event ledger.StockChangedEvent) error {
	key, body, err := encode(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     key,
		Value:   body,
		Time:    event.CreatedAt,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(EventType)}},
	}
	inject(ctx, kafkaHeaders{msg: &msg})
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close vacía los mensajes pendientes y cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
