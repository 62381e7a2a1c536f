package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/notification"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	pkgrabbitmq "github.com/vogiaan1904/quickseat-booking/pkg/rabbitmq"
)

const prefetch = 50

// Consumer reads notification events from their queues and reconnects when
// the broker goes away.
type Consumer struct {
	url      string
	notifSvc notification.Service
	l        logger.Logger
	done     chan struct{}
}

func NewConsumer(url string, notifSvc notification.Service, l logger.Logger) *Consumer {
	return &Consumer{
		url:      url,
		notifSvc: notifSvc,
		l:        l,
		done:     make(chan struct{}),
	}
}

// Start runs the consume loop in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			conn, err := pkgrabbitmq.Dial(ctx, c.url, c.l)
			if err != nil {
				c.l.Infof(ctx, "delivery.rabbitmq.Consumer.Start: %v", err)
				return
			}

			err = c.consume(ctx, conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}

			c.l.Warnf(ctx, "delivery.rabbitmq.Consumer.Start: consume loop ended: %v; reconnecting", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
}

// Wait blocks until the consume loop has exited.
func (c *Consumer) Wait() {
	<-c.done
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.l.Warnf(ctx, "delivery.rabbitmq.Consumer.consume: set QoS: %v", err)
	}

	queues := []string{event.TopicBookingConfirmed, event.TopicPaymentOrphaned}
	if err := pkgrabbitmq.DeclareQueues(ch, queues...); err != nil {
		return err
	}

	deliveries := make(chan amqp.Delivery)
	stop := make(chan struct{})
	defer close(stop)
	for _, q := range queues {
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", q, err)
		}
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-stop:
					return
				}
			}
		}(msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.l.Infof(ctx, "RabbitMQ consumer is consuming queues: %v", queues)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return errors.New("connection closed")
			}
			return amqpErr
		case d := <-deliveries:
			if err := c.handle(ctx, d.RoutingKey, d.Body); err != nil {
				c.l.Errorf(ctx, "delivery.rabbitmq.Consumer.consume: %s: %v", d.RoutingKey, err)
				// Rejected without requeue to avoid a tight redelivery loop.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case event.TopicBookingConfirmed:
		var e event.BookingConfirmedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.notifSvc.SendBookingConfirmation(c.l.With(ctx, "booking_id", e.BookingID), e)

	case event.TopicPaymentOrphaned:
		var e event.PaymentOrphanedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.notifSvc.SendPaymentOrphanedAlert(c.l.With(ctx, "booking_id", e.BookingID), e)

	default:
		c.l.Warnf(ctx, "delivery.rabbitmq.Consumer.handle: unknown queue %s", queue)
		return nil
	}
}
