package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends domain events.  Callers treat failures as best effort.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, ev PickupStatusChangedEvent) error
}

// NewPublisher returns an AMQP publisher for url, or a no-op publisher when
// url is empty.
func NewPublisher(url string, log *slog.Logger) Publisher {
	if url == "" {
		return NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{URL: url, Queue: StatusChangedQueue, log: log.With("component", "queue")}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, PickupStatusChangedEvent) error { return nil }

// AMQPPublisher publishes to a durable queue on the default exchange.  It
// dials per message; transitions are infrequent and this keeps no broker
// connection open while the application idles.
type AMQPPublisher struct {
	URL   string
	Queue string
	log   *slog.Logger
}

// PublishStatusChanged marshals ev and publishes it as a persistent message.
// Errors are logged and returned.
func (p *AMQPPublisher) PublishStatusChanged(ctx context.Context, ev PickupStatusChangedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("marshal event failed", "err", err)
		return err
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		p.log.Warn("rabbitmq dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		p.log.Warn("rabbitmq queue declare failed", "queue", p.Queue, "err", err)
		return err
	}

	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.ChangedAt.UTC(),
		Type:         StatusChangedQueue,
		Body:         body,
	}); err != nil {
		p.log.Warn("rabbitmq publish failed", "queue", p.Queue, "err", err)
		return err
	}
	p.log.Debug("event published", "queue", p.Queue, "pickup_id", ev.PickupID, "status", ev.NewStatus)
	return nil
}
