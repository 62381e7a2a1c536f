package models

import "time"

type Booking struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	UserEmail        string     `json:"user_email,omitempty"`
	ShowID           string     `json:"show_id"`
	BookedSeats      []string   `json:"booked_seats"`
	Amount           int64      `json:"amount"`
	IsPaid           bool       `json:"is_paid"`
	PaymentSessionID string     `json:"payment_session_id,omitempty"`
	PaymentLink      string     `json:"payment_link,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

func (b *Booking) Hold() SeatHold {
	return SeatHold{BookingID: b.ID, UserID: b.UserID}
}

// IsExpired reports whether an unpaid booking has outlived its window.
func (b *Booking) IsExpired(now time.Time, window time.Duration) bool {
	return !b.IsPaid && !now.Before(b.CreatedAt.Add(window))
}

// ExpiryJob is the payload of the deferred release check scheduled at
// reservation time. It carries the seats so a retried job can still release
// them after the booking record is gone.
type ExpiryJob struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	ShowID    string    `json:"show_id"`
	UserID    string    `json:"user_id"`
	Seats     []string  `json:"seats"`
	FireAt    time.Time `json:"fire_at"`
	Attempt   int       `json:"attempt"`
}

func (j ExpiryJob) Hold() SeatHold {
	return SeatHold{BookingID: j.BookingID, UserID: j.UserID}
}

func NewExpiryJob(id string, b *Booking, fireAt time.Time) ExpiryJob {
	return ExpiryJob{
		ID:        id,
		BookingID: b.ID,
		ShowID:    b.ShowID,
		UserID:    b.UserID,
		Seats:     b.BookedSeats,
		FireAt:    fireAt,
	}
}

type DashboardStats struct {
	TotalBookings int64 `json:"total_bookings"`
	TotalRevenue  int64 `json:"total_revenue"`
	ActiveShows   int64 `json:"active_shows"`
}
