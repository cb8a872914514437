package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher mirrors domain events to an external broker.
type Publisher interface {
	PublishEvent(ctx context.Context, event Event) error
	Close() error
}

type amqpPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger
}

// NewAMQPPublisher connects to RabbitMQ and declares a durable topic
// exchange for the event stream.
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &amqpPublisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishEvent sends the event as a persistent JSON message, routed by
// event type.
func (p *amqpPublisher) PublishEvent(ctx context.Context, event Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msgID := event.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, string(event.Type), false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msgID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err == nil {
		p.logger.Debug("event published",
			zap.String("exchange", p.exchange),
			zap.String("routing_key", string(event.Type)))
	}
	return err
}

func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}
