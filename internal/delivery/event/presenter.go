package event

import "time"

// Events published BY the booking service

type BookingConfirmedEvent struct {
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email,omitempty"`
	ShowID     string    `json:"show_id"`
	MovieTitle string    `json:"movie_title"`
	ShowTime   time.Time `json:"show_time"`
	Seats      []string  `json:"seats"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Source     string    `json:"source"` // webhook, poll
	PaidAt     time.Time `json:"paid_at"`
	Timestamp  time.Time `json:"timestamp"`
}

type BookingExpiredEvent struct {
	BookingID     string    `json:"booking_id"`
	UserID        string    `json:"user_id"`
	ShowID        string    `json:"show_id"`
	Seats         []string  `json:"seats"`
	ReleasedSeats []string  `json:"released_seats"`
	ExpiredAt     time.Time `json:"expired_at"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentOrphanedEvent reports money taken for a booking that no longer
// exists. It needs a human: refund or re-issue.
type PaymentOrphanedEvent struct {
	BookingID       string    `json:"booking_id"`
	SessionID       string    `json:"session_id,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	Source          string    `json:"source"`
	DetectedAt      time.Time `json:"detected_at"`
	Timestamp       time.Time `json:"timestamp"`
}

type ShowAddedEvent struct {
	MovieID    string      `json:"movie_id"`
	MovieTitle string      `json:"movie_title"`
	ShowIDs    []string    `json:"show_ids"`
	StartTimes []time.Time `json:"start_times"`
	Timestamp  time.Time   `json:"timestamp"`
}
