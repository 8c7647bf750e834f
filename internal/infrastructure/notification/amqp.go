// Package notification publishes booking events for the email subsystem.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	amqp "github.com/rabbitmq/amqp091-go"
)

const routingKeyBookingConfirmed = "booking.confirmed"

// AMQPSender implements NotificationSender over a RabbitMQ topic exchange.
// The email worker consumes these events; a publish failure is the caller's
// soft failure, never a booking failure.
type AMQPSender struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPSender(url, exchange string) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSender{conn: conn, ch: ch, exchange: exchange}, nil
}

func (s *AMQPSender) SendBookingConfirmation(ctx context.Context, n application.BookingConfirmation) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.ch.PublishWithContext(ctx, s.exchange, routingKeyBookingConfirmed, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (s *AMQPSender) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
