package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrSeatConflict = errors.New("seat already held by another booking")
	ErrAlreadyPaid  = errors.New("booking already paid")
)

// ShowRepository stores shows and their seat occupancy.
type ShowRepository interface {
	CreateShow(ctx context.Context, show *models.Show) error
	GetShow(ctx context.Context, id string) (*models.Show, error)
	ListUpcomingShows(ctx context.Context, now time.Time) ([]*models.Show, error)
	ListShows(ctx context.Context) ([]*models.Show, error)
	CountUpcomingShows(ctx context.Context, now time.Time) (int64, error)

	OccupiedSeats(ctx context.Context, showID string) (map[string]models.SeatHold, error)
	// ClaimSeats holds every seat for the given hold or none of them.
	// It returns ErrSeatConflict if any seat is already held.
	ClaimSeats(ctx context.Context, showID string, hold models.SeatHold, seats []string) error
	// ReleaseSeats frees the seats still held by hold and returns the ones
	// it actually released. Seats held by someone else are left untouched.
	ReleaseSeats(ctx context.Context, showID string, hold models.SeatHold, seats []string) ([]string, error)
}

// BookingRepository is the booking ledger.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	SetPaymentSession(ctx context.Context, id, sessionID, link string) error
	// MarkPaid flips an unpaid booking to paid and clears its payment
	// session. It reports whether this call changed the booking.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error)
	// DeleteUnpaid removes the booking only while it is still unpaid.
	// It returns ErrAlreadyPaid or ErrNotFound otherwise.
	DeleteUnpaid(ctx context.Context, id string) error
	DeleteBooking(ctx context.Context, id string) error
	ListUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Booking, error)
	Stats(ctx context.Context) (paidBookings int64, revenue int64, err error)
}

// JobRepository is a delayed job queue with processing leases.
type JobRepository interface {
	Schedule(ctx context.Context, job models.ExpiryJob) error
	// ClaimDue moves up to limit jobs whose fire time has passed into the
	// processing set, leased until now+lease.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.ExpiryJob, error)
	Ack(ctx context.Context, job models.ExpiryJob) error
	Retry(ctx context.Context, job models.ExpiryJob, fireAt time.Time) error
	// RecoverExpiredLeases puts jobs whose lease ran out back in the queue.
	RecoverExpiredLeases(ctx context.Context, now time.Time) (int, error)
	Counts(ctx context.Context) (scheduled int64, processing int64, err error)
}
