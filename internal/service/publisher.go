package service

import (
	"context"

	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// nopPublisher is used when notifications are disabled.
type nopPublisher struct {
	l logger.Logger
}

func NewNopPublisher(l logger.Logger) EventPublisher {
	return &nopPublisher{l: l}
}

func (p *nopPublisher) PublishBookingConfirmed(ctx context.Context, evt event.BookingConfirmedEvent) error {
	p.l.Debugf(ctx, "notifications disabled, dropping %s for booking %s", event.TopicBookingConfirmed, evt.BookingID)
	return nil
}

func (p *nopPublisher) PublishBookingExpired(ctx context.Context, evt event.BookingExpiredEvent) error {
	p.l.Debugf(ctx, "notifications disabled, dropping %s for booking %s", event.TopicBookingExpired, evt.BookingID)
	return nil
}

func (p *nopPublisher) PublishPaymentOrphaned(ctx context.Context, evt event.PaymentOrphanedEvent) error {
	p.l.Warnf(ctx, "notifications disabled, dropping %s for booking %s", event.TopicPaymentOrphaned, evt.BookingID)
	return nil
}

func (p *nopPublisher) PublishShowAdded(ctx context.Context, evt event.ShowAddedEvent) error {
	p.l.Debugf(ctx, "notifications disabled, dropping %s for movie %s", event.TopicShowAdded, evt.MovieID)
	return nil
}
