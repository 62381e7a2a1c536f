package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
)

func (c *Consumer) HandleBookingConfirmed(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e event.BookingConfirmedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandleBookingConfirmed: %v", err)
		return err
	}

	ctx = c.l.With(ctx, "booking_id", e.BookingID)
	if err := c.notifSvc.SendBookingConfirmation(ctx, e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandleBookingConfirmed: %v", err)
		return err
	}

	return nil
}

func (c *Consumer) HandlePaymentOrphaned(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e event.PaymentOrphanedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandlePaymentOrphaned: %v", err)
		return err
	}

	ctx = c.l.With(ctx, "booking_id", e.BookingID)
	if err := c.notifSvc.SendPaymentOrphanedAlert(ctx, e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandlePaymentOrphaned: %v", err)
		return err
	}

	return nil
}
