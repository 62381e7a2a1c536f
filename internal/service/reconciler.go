package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/payment"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

const sweepBatchSize = 100

// Reconciler releases seats of bookings that were never paid. The deferred
// expiry job, the per-user sweep and the global sweep all share one path.
type Reconciler interface {
	HandleExpiry(ctx context.Context, job models.ExpiryJob) error
	SweepUser(ctx context.Context, userID string) error
	SweepAll(ctx context.Context) (int, error)
}

type reconciler struct {
	shows     repository.ShowRepository
	bookings  repository.BookingRepository
	gateway   payment.Gateway
	scheduler Scheduler
	pub       EventPublisher
	clock     Clock
	l         logger.Logger
	cfg       config.BookingConfig
}

func NewReconciler(
	shows repository.ShowRepository,
	bookings repository.BookingRepository,
	gateway payment.Gateway,
	scheduler Scheduler,
	pub EventPublisher,
	clock Clock,
	l logger.Logger,
	cfg config.BookingConfig,
) Reconciler {
	return &reconciler{
		shows:     shows,
		bookings:  bookings,
		gateway:   gateway,
		scheduler: scheduler,
		pub:       pub,
		clock:     clock,
		l:         l,
		cfg:       cfg,
	}
}

func (r *reconciler) HandleExpiry(ctx context.Context, job models.ExpiryJob) error {
	b, err := r.bookings.GetBooking(ctx, job.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted by an earlier run or a rollback. Seats held under this
			// booking id may still be left if that run died half way.
			if _, err := r.shows.ReleaseSeats(ctx, job.ShowID, job.Hold(), job.Seats); err != nil {
				return storageErr(err)
			}
			return nil
		}
		return storageErr(err)
	}

	if b.IsPaid {
		r.l.Debugf(ctx, "service.reconciler.HandleExpiry: booking %s is paid, nothing to do", b.ID)
		return nil
	}

	now := r.clock.Now()
	if !b.IsExpired(now, r.cfg.ExpiryWindow) {
		remaining := b.CreatedAt.Add(r.cfg.ExpiryWindow).Sub(now)
		r.l.Infof(ctx, "service.reconciler.HandleExpiry: booking %s fired %s early, rescheduling", b.ID, remaining)
		// The running job is acked once this returns, so the follow-up needs its own id.
		job.ID = ""
		return r.scheduler.ScheduleOnce(ctx, remaining, job)
	}

	return r.expire(ctx, b)
}

func (r *reconciler) SweepUser(ctx context.Context, userID string) error {
	bookings, err := r.bookings.ListUserBookings(ctx, userID)
	if err != nil {
		return storageErr(err)
	}

	now := r.clock.Now()
	var errs []error
	for _, b := range bookings {
		if !b.IsExpired(now, r.cfg.ExpiryWindow) {
			continue
		}
		if err := r.expire(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *reconciler) SweepAll(ctx context.Context) (int, error) {
	total := 0
	for {
		cutoff := r.clock.Now().Add(-r.cfg.ExpiryWindow)
		stale, err := r.bookings.ListPendingBefore(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return total, storageErr(err)
		}

		for _, b := range stale {
			if err := r.expire(ctx, b); err != nil {
				return total, fmt.Errorf("sweep booking %s: %w", b.ID, err)
			}
			total++
		}

		if len(stale) < sweepBatchSize {
			break
		}
	}

	if total > 0 {
		r.l.Infof(ctx, "service.reconciler.SweepAll: expired %d bookings", total)
	}

	return total, nil
}

// expire deletes b if it is still unpaid, then frees the seats held under
// its id. Delete goes first so a payment landing in between keeps its seats.
func (r *reconciler) expire(ctx context.Context, b *models.Booking) error {
	deleted := true
	err := r.bookings.DeleteUnpaid(ctx, b.ID)
	switch {
	case errors.Is(err, repository.ErrAlreadyPaid):
		r.l.Infof(ctx, "service.reconciler.expire: booking %s was paid before expiry", b.ID)
		return nil
	case errors.Is(err, repository.ErrNotFound):
		deleted = false
	case err != nil:
		return storageErr(err)
	}

	released, err := r.shows.ReleaseSeats(ctx, b.ShowID, b.Hold(), b.BookedSeats)
	if err != nil {
		return storageErr(err)
	}

	if !deleted {
		return nil
	}

	r.l.Infof(ctx, "service.reconciler.expire: booking %s expired, released %v", b.ID, released)

	sessionID := b.PaymentSessionID
	if sessionID == "" {
		sessionID = payment.SessionIDFromURL(b.PaymentLink)
	}
	if sessionID != "" {
		if err := r.gateway.ExpireSession(ctx, sessionID); err != nil {
			r.l.Warnf(ctx, "service.reconciler.expire: expire session %s of booking %s: %v", sessionID, b.ID, err)
		}
	}

	now := r.clock.Now()
	if err := r.pub.PublishBookingExpired(ctx, event.BookingExpiredEvent{
		BookingID:     b.ID,
		UserID:        b.UserID,
		ShowID:        b.ShowID,
		Seats:         b.BookedSeats,
		ReleasedSeats: released,
		ExpiredAt:     now,
		Timestamp:     now,
	}); err != nil {
		r.l.Warnf(ctx, "service.reconciler.expire: publish expiry of %s: %v", b.ID, err)
	}

	return nil
}
