package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// Queues are named after the event topics.
var Queues = []string{
	event.TopicBookingConfirmed,
	event.TopicBookingExpired,
	event.TopicPaymentOrphaned,
	event.TopicShowAdded,
}

type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, evt event.BookingConfirmedEvent) error
	PublishBookingExpired(ctx context.Context, evt event.BookingExpiredEvent) error
	PublishPaymentOrphaned(ctx context.Context, evt event.PaymentOrphanedEvent) error
	PublishShowAdded(ctx context.Context, evt event.ShowAddedEvent) error
	Close() error
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type implPublisher struct {
	mu sync.Mutex // amqp channels are not safe for concurrent publishing
	ch channel
	l  logger.Logger
}

func NewPublisher(ch *amqp.Channel, l logger.Logger) Publisher {
	return newPublisher(ch, l)
}

func newPublisher(ch channel, l logger.Logger) *implPublisher {
	return &implPublisher{ch: ch, l: l}
}

func (p *implPublisher) PublishBookingConfirmed(ctx context.Context, evt event.BookingConfirmedEvent) error {
	if err := p.publish(ctx, event.TopicBookingConfirmed, evt.BookingID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.rabbitmq.PublishBookingConfirmed: %v", err)
		return err
	}
	return nil
}

func (p *implPublisher) PublishBookingExpired(ctx context.Context, evt event.BookingExpiredEvent) error {
	if err := p.publish(ctx, event.TopicBookingExpired, evt.BookingID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.rabbitmq.PublishBookingExpired: %v", err)
		return err
	}
	return nil
}

func (p *implPublisher) PublishPaymentOrphaned(ctx context.Context, evt event.PaymentOrphanedEvent) error {
	if err := p.publish(ctx, event.TopicPaymentOrphaned, evt.BookingID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.rabbitmq.PublishPaymentOrphaned: %v", err)
		return err
	}
	return nil
}

func (p *implPublisher) PublishShowAdded(ctx context.Context, evt event.ShowAddedEvent) error {
	if err := p.publish(ctx, event.TopicShowAdded, evt.MovieID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.rabbitmq.PublishShowAdded: %v", err)
		return err
	}
	return nil
}

func (p *implPublisher) publish(ctx context.Context, queue, messageID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, "", queue, false, false, msg)
}

func (p *implPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
