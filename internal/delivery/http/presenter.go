package http

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/service"
)

type createBookingRequest struct {
	ShowID     string   `json:"showId" validate:"required"`
	SeatLabels []string `json:"seatLabels" validate:"required,min=1,dive,required,max=4"`
}

type createBookingResponse struct {
	Success     bool      `json:"success"`
	BookingID   string    `json:"bookingId"`
	RedirectURL string    `json:"redirectUrl"`
	Amount      int64     `json:"amount"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type occupiedSeatsResponse struct {
	Success       bool     `json:"success"`
	OccupiedSeats []string `json:"occupiedSeats"`
}

type paymentStatusResponse struct {
	Success bool `json:"success"`
	IsPaid  bool `json:"isPaid"`
	Updated bool `json:"updated"`
}

type showResponse struct {
	ID           string    `json:"_id"`
	MovieID      string    `json:"movieId"`
	MovieTitle   string    `json:"movieTitle"`
	StartTime    time.Time `json:"showDateTime"`
	PricePerSeat int64     `json:"showPrice"`
	Rows         []string  `json:"rows"`
	SeatsPerRow  int       `json:"seatsPerRow"`
}

type bookingResponse struct {
	ID          string        `json:"_id"`
	ShowID      string        `json:"showId"`
	BookedSeats []string      `json:"bookedSeats"`
	Amount      int64         `json:"amount"`
	IsPaid      bool          `json:"isPaid"`
	PaymentLink string        `json:"paymentLink,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
	Show        *showResponse `json:"show,omitempty"`
}

type userBookingsResponse struct {
	Success  bool              `json:"success"`
	Bookings []bookingResponse `json:"bookings"`
}

type showsResponse struct {
	Success bool           `json:"success"`
	Shows   []showResponse `json:"shows"`
}

type oneShowResponse struct {
	Success bool          `json:"success"`
	Show    *showResponse `json:"show"`
}

type showSlotRequest struct {
	Date  string   `json:"date" validate:"required,datetime=2006-01-02"`
	Times []string `json:"times" validate:"required,min=1,dive,datetime=15:04"`
}

type addShowRequest struct {
	MovieID      string            `json:"movieId" validate:"required"`
	MovieTitle   string            `json:"movieTitle" validate:"required"`
	PricePerSeat int64             `json:"showPrice" validate:"required,gt=0"`
	Slots        []showSlotRequest `json:"showsInput" validate:"required,min=1,dive"`
}

type addShowResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	ShowIDs []string `json:"showIds"`
}

type showSummaryResponse struct {
	showResponse
	OccupiedSeats int   `json:"occupiedSeats"`
	Earnings      int64 `json:"earnings"`
}

type adminShowsResponse struct {
	Success bool                  `json:"success"`
	Shows   []showSummaryResponse `json:"shows"`
}

type dashboardResponse struct {
	Success       bool  `json:"success"`
	TotalBookings int64 `json:"totalBookings"`
	TotalRevenue  int64 `json:"totalRevenue"`
	ActiveShows   int64 `json:"activeShows"`
}

type isAdminResponse struct {
	Success bool `json:"success"`
	IsAdmin bool `json:"isAdmin"`
}

func newShowResponse(s *models.Show) *showResponse {
	if s == nil {
		return nil
	}
	out := &showResponse{}
	_ = copier.Copy(out, s)
	return out
}

func newShowsResponse(shows []*models.Show) []showResponse {
	out := make([]showResponse, 0, len(shows))
	for _, s := range shows {
		out = append(out, *newShowResponse(s))
	}
	return out
}

func newBookingResponses(views []service.BookingView) []bookingResponse {
	out := make([]bookingResponse, 0, len(views))
	for _, v := range views {
		var b bookingResponse
		_ = copier.Copy(&b, v.Booking)
		b.Show = newShowResponse(v.Show)
		out = append(out, b)
	}
	return out
}

func (r addShowRequest) toInput() service.AddShowsInput {
	in := service.AddShowsInput{
		MovieID:      r.MovieID,
		MovieTitle:   r.MovieTitle,
		PricePerSeat: r.PricePerSeat,
	}
	_ = copier.Copy(&in.Slots, &r.Slots)
	return in
}
