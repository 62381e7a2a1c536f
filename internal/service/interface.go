package service

import (
	"context"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
)

// Scheduler runs a deferred expiry check once after delay.
type Scheduler interface {
	ScheduleOnce(ctx context.Context, delay time.Duration, job models.ExpiryJob) error
}

type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, evt event.BookingConfirmedEvent) error
	PublishBookingExpired(ctx context.Context, evt event.BookingExpiredEvent) error
	PublishPaymentOrphaned(ctx context.Context, evt event.PaymentOrphanedEvent) error
	PublishShowAdded(ctx context.Context, evt event.ShowAddedEvent) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock {
	return systemClock{}
}
