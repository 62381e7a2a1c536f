package models

import (
	"strconv"
	"strings"
	"time"
)

type Show struct {
	ID           string    `json:"id"`
	MovieID      string    `json:"movie_id"`
	MovieTitle   string    `json:"movie_title"`
	StartTime    time.Time `json:"start_time"`
	PricePerSeat int64     `json:"price_per_seat"`
	Rows         []string  `json:"rows"`
	SeatsPerRow  int       `json:"seats_per_row"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasStarted reports whether the show can no longer be booked.
func (s *Show) HasStarted(now time.Time) bool {
	return s.StartTime.Before(now)
}

// ValidSeat reports whether label names a seat in the show's layout,
// e.g. "A1" .. "J9" for ten rows of nine.
func (s *Show) ValidSeat(label string) bool {
	for _, row := range s.Rows {
		if !strings.HasPrefix(label, row) {
			continue
		}
		num := label[len(row):]
		if num == "" || num[0] == '0' {
			continue
		}
		// Atoi accepts a sign, which would alias "A+1" onto "A1".
		n, err := strconv.Atoi(num)
		if err != nil || strconv.Itoa(n) != num {
			continue
		}
		if n >= 1 && n <= s.SeatsPerRow {
			return true
		}
	}
	return false
}

func (s *Show) Capacity() int {
	return len(s.Rows) * s.SeatsPerRow
}

// SeatHold identifies who holds a seat. Release is conditional on the whole
// hold matching so a stale job can never free seats of a newer booking.
type SeatHold struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
}

const seatHoldSep = "|"

func (h SeatHold) String() string {
	return h.BookingID + seatHoldSep + h.UserID
}

func ParseSeatHold(s string) SeatHold {
	bookingID, userID, _ := strings.Cut(s, seatHoldSep)
	return SeatHold{BookingID: bookingID, UserID: userID}
}
