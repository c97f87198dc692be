// Package notifier publishes notification events to RabbitMQ on behalf of
// business controllers.  Errors are logged and returned so callers can
// ignore failures without interrupting the main request flow.
package notifier

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/aulanet/aulanet-backend/internal/queue"
)

// Publish sends one NotificationEvent to the notifications.push queue.
// The connection is short-lived on purpose: publishes are rare compared to
// the consumer's steady stream, and a fresh dial per publish keeps this
// path free of shared channel state.  Messages are marked persistent.
func Publish(ctx context.Context, event q.NotificationEvent) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("notifier: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("notifier: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.NotificationsQueue, true, false, false, false, nil); err != nil {
		log.Printf("notifier: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("notifier: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                   // default exchange
		q.NotificationsQueue, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		pub,
	); err != nil {
		log.Printf("notifier: publish failed: %v", err)
		return err
	}

	return nil
}
