package postgresrepo

import (
	"strings"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/models"
)

type showRecord struct {
	ID           string    `gorm:"primaryKey;size:64"`
	MovieID      string    `gorm:"not null;size:64;index"`
	MovieTitle   string    `gorm:"not null"`
	StartTime    time.Time `gorm:"not null;index"`
	PricePerSeat int64     `gorm:"not null"`
	Rows         string    `gorm:"column:seat_rows;not null"`
	SeatsPerRow  int       `gorm:"not null"`
	CreatedAt    time.Time
}

func (showRecord) TableName() string { return "shows" }

// seatHoldRecord is one occupied seat. The composite primary key is what
// makes a double booking impossible.
type seatHoldRecord struct {
	ShowID    string `gorm:"primaryKey;size:64"`
	SeatLabel string `gorm:"primaryKey;size:8"`
	BookingID string `gorm:"not null;size:64;index"`
	UserID    string `gorm:"not null;size:64"`
}

func (seatHoldRecord) TableName() string { return "show_seats" }

type bookingRecord struct {
	ID               string `gorm:"primaryKey;size:64"`
	UserID           string `gorm:"not null;size:64;index:idx_bookings_user_created,priority:1"`
	UserEmail        string
	ShowID           string `gorm:"not null;size:64;index"`
	Seats            string `gorm:"not null"`
	Amount           int64  `gorm:"not null"`
	IsPaid           bool   `gorm:"not null;default:false;index:idx_bookings_pending,priority:1"`
	PaymentSessionID string
	PaymentLink      string
	CreatedAt        time.Time `gorm:"not null;index:idx_bookings_user_created,priority:2;index:idx_bookings_pending,priority:2"`
	PaidAt           *time.Time
}

func (bookingRecord) TableName() string { return "bookings" }

// Models lists the tables to migrate.
func Models() []interface{} {
	return []interface{}{&showRecord{}, &seatHoldRecord{}, &bookingRecord{}}
}

func toShowRecord(s *models.Show) showRecord {
	return showRecord{
		ID:           s.ID,
		MovieID:      s.MovieID,
		MovieTitle:   s.MovieTitle,
		StartTime:    s.StartTime.UTC(),
		PricePerSeat: s.PricePerSeat,
		Rows:         strings.Join(s.Rows, ","),
		SeatsPerRow:  s.SeatsPerRow,
		CreatedAt:    s.CreatedAt.UTC(),
	}
}

func (r showRecord) toModel() *models.Show {
	return &models.Show{
		ID:           r.ID,
		MovieID:      r.MovieID,
		MovieTitle:   r.MovieTitle,
		StartTime:    r.StartTime.UTC(),
		PricePerSeat: r.PricePerSeat,
		Rows:         splitList(r.Rows),
		SeatsPerRow:  r.SeatsPerRow,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func toBookingRecord(b *models.Booking) bookingRecord {
	return bookingRecord{
		ID:               b.ID,
		UserID:           b.UserID,
		UserEmail:        b.UserEmail,
		ShowID:           b.ShowID,
		Seats:            strings.Join(b.BookedSeats, ","),
		Amount:           b.Amount,
		IsPaid:           b.IsPaid,
		PaymentSessionID: b.PaymentSessionID,
		PaymentLink:      b.PaymentLink,
		CreatedAt:        b.CreatedAt.UTC(),
		PaidAt:           b.PaidAt,
	}
}

func (r bookingRecord) toModel() *models.Booking {
	b := &models.Booking{
		ID:               r.ID,
		UserID:           r.UserID,
		UserEmail:        r.UserEmail,
		ShowID:           r.ShowID,
		BookedSeats:      splitList(r.Seats),
		Amount:           r.Amount,
		IsPaid:           r.IsPaid,
		PaymentSessionID: r.PaymentSessionID,
		PaymentLink:      r.PaymentLink,
		CreatedAt:        r.CreatedAt.UTC(),
	}
	if r.PaidAt != nil {
		t := r.PaidAt.UTC()
		b.PaidAt = &t
	}
	return b
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
