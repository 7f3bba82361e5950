package events

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
)

var _ ledger.EventPublisher = (*RabbitPublisher)(nil)

// RabbitPublisher publica StockChangedEvent en un exchange topic durable.
type RabbitPublisher struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// NewRabbitPublisher conecta, abre un canal y declara el exchange.
func NewRabbitPublisher(url, exchange, routingKey string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

func (p *RabbitPublisher) PublishStockChanged(ctx context.Context, event ledger.StockChangedEvent) error {
	msg, err := rabbitMessage(ctx, event)
	if err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close cierra canal y conexión.
func (p *RabbitPublisher) Close() error {
	return errors.Join(p.ch.Close(), p.conn.Close())
}

func rabbitMessage(ctx context.Context, event ledger.StockChangedEvent) (amqp.Publishing, error) {
	_, body, err := encode(event)
	if err != nil {
		return amqp.Publishing{}, err
	}
	headers := amqp.Table{"event_type": EventType}
	inject(ctx, amqpHeaders(headers))
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EntryID,
		Timestamp:    event.CreatedAt,
		Headers:      headers,
		Body:         body,
	}, nil
}
