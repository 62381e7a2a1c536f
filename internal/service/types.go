package service

import (
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/models"
)

type ReserveInput struct {
	ShowID     string
	UserID     string
	UserEmail  string
	SeatLabels []string
}

type ReserveOutput struct {
	BookingID   string
	RedirectURL string
	Amount      int64
	ExpiresAt   time.Time
}

// ConfirmInput identifies a payment the provider reported as paid. Source
// is event.SourceWebhook or event.SourcePoll.
type ConfirmInput struct {
	BookingID       string
	SessionID       string
	PaymentIntentID string
	Source          string
}

type PaymentStatusOutput struct {
	IsPaid  bool
	Updated bool
}

// BookingView is a booking joined with its show for display. Show is nil
// if the show record is gone.
type BookingView struct {
	Booking *models.Booking
	Show    *models.Show
}

type ShowSlot struct {
	Date  string   // YYYY-MM-DD
	Times []string // HH:MM
}

type AddShowsInput struct {
	MovieID      string
	MovieTitle   string
	PricePerSeat int64
	Slots        []ShowSlot
}

type ShowSummary struct {
	Show          *models.Show
	OccupiedSeats int
	Earnings      int64
}
