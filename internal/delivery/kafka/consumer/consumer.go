package consumer

import (
	"context"
	"sync"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/notification"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

type Consumer struct {
	consGr   sarama.ConsumerGroup
	notifSvc notification.Service
	l        logger.Logger
	wg       sync.WaitGroup
}

func NewConsumer(
	consGr sarama.ConsumerGroup,
	notifSvc notification.Service,
	l logger.Logger,
) *Consumer {
	return &Consumer{
		consGr:   consGr,
		notifSvc: notifSvc,
		l:        l,
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	switch msg.Topic {
	case event.TopicBookingConfirmed:
		return c.HandleBookingConfirmed(ctx, msg)
	case event.TopicPaymentOrphaned:
		return c.HandlePaymentOrphaned(ctx, msg)
	default:
		c.l.Warnf(ctx, "delivery.kafka.consumer.processMessage: unknown topic %s", msg.Topic)
		return nil
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	topics := []string{event.TopicBookingConfirmed, event.TopicPaymentOrphaned}
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consGr.Consume(ctx, topics, c); err != nil {
				c.l.Errorf(ctx, "delivery.kafka.consumer.Start: %v", err)
			}

			if ctx.Err() != nil {
				c.l.Infof(ctx, "delivery.kafka.consumer.Start: %v", ctx.Err())
				return
			}
		}
	}()

	go func() {
		defer c.wg.Done()
		for err := range c.consGr.Errors() {
			c.l.Errorf(ctx, "delivery.kafka.consumer.Start: %v", err)
		}
	}()

	c.l.Infof(ctx, "Consumer is consuming topics: %v", topics)
	return nil
}

func (c *Consumer) Close() error {
	if err := c.consGr.Close(); err != nil {
		return err
	}

	c.wg.Wait()
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session started")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session ended")
	return nil
}

func (c *Consumer) ConsumeClaim(ss sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			if err := c.processMessage(ss.Context(), message); err != nil {
				c.l.Errorf(ss.Context(), "delivery.kafka.consumer.ConsumeClaim: topic %s offset %d: %v",
					message.Topic, message.Offset, err)
			}

			// Mail is best effort; a failed send is not redelivered.
			ss.MarkMessage(message, "")

		case <-ss.Context().Done():
			return nil
		}
	}
}
