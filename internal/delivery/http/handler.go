package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/vogiaan1904/quickseat-booking/internal/auth"
	"github.com/vogiaan1904/quickseat-booking/internal/service"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"github.com/vogiaan1904/quickseat-booking/pkg/response"
)

const maxWebhookBytes = 64 << 10

type Handler struct {
	bookingSvc service.BookingService
	paymentSvc service.PaymentService
	showSvc    service.ShowService
	l          logger.Logger
	validator  *validator.Validate
}

func NewHandler(
	bookingSvc service.BookingService,
	paymentSvc service.PaymentService,
	showSvc service.ShowService,
	l logger.Logger,
) *Handler {
	return &Handler{
		bookingSvc: bookingSvc,
		paymentSvc: paymentSvc,
		showSvc:    showSvc,
		l:          l,
		validator:  validator.New(),
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"status":  "healthy",
		"service": "quickseat-booking",
	})
}

// fail logs server-side failures and writes the classified error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	httpErr := mapHTTPError(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		h.l.Errorf(r.Context(), "delivery.http.Handler.%s: %v", op, err)
	} else {
		h.l.Debugf(r.Context(), "delivery.http.Handler.%s: %v", op, err)
	}
	response.Error(w, httpErr)
}

func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadRequest.WithMessage("Invalid request body")
	}
	if err := h.validator.Struct(dst); err != nil {
		return errBadRequest.WithMessage(fmt.Sprintf("Validation failed: %v", err))
	}
	return nil
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	var req createBookingRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	out, err := h.bookingSvc.Reserve(r.Context(), service.ReserveInput{
		ShowID:     req.ShowID,
		UserID:     id.UserID,
		UserEmail:  id.Email,
		SeatLabels: req.SeatLabels,
	})
	if err != nil {
		h.fail(w, r, "CreateBooking", err)
		return
	}

	resp := createBookingResponse{Success: true}
	if err := copier.Copy(&resp, out); err != nil {
		h.fail(w, r, "CreateBooking", err)
		return
	}
	response.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) OccupiedSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.bookingSvc.OccupiedSeats(r.Context(), chi.URLParam(r, "showId"))
	if err != nil {
		h.fail(w, r, "OccupiedSeats", err)
		return
	}

	response.OK(w, occupiedSeatsResponse{Success: true, OccupiedSeats: seats})
}

func (h *Handler) CheckPayment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	out, err := h.paymentSvc.CheckPaymentStatus(r.Context(), chi.URLParam(r, "bookingId"), id.UserID)
	if err != nil {
		h.fail(w, r, "CheckPayment", err)
		return
	}

	response.OK(w, paymentStatusResponse{Success: true, IsPaid: out.IsPaid, Updated: out.Updated})
}

func (h *Handler) UserBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	views, err := h.bookingSvc.ListUserBookings(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, "UserBookings", err)
		return
	}

	response.OK(w, userBookingsResponse{Success: true, Bookings: newBookingResponses(views)})
}

// StripeWebhook needs the raw body for signature verification.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		response.Error(w, errBadRequest.WithMessage("Unreadable webhook body"))
		return
	}

	if err := h.paymentSvc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.fail(w, r, "StripeWebhook", err)
		return
	}

	response.OK(w, map[string]bool{"received": true})
}

func (h *Handler) ListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.showSvc.ListUpcoming(r.Context())
	if err != nil {
		h.fail(w, r, "ListShows", err)
		return
	}

	response.OK(w, showsResponse{Success: true, Shows: newShowsResponse(shows)})
}

func (h *Handler) GetShow(w http.ResponseWriter, r *http.Request) {
	show, err := h.showSvc.GetShow(r.Context(), chi.URLParam(r, "showId"))
	if err != nil {
		h.fail(w, r, "GetShow", err)
		return
	}

	response.OK(w, oneShowResponse{Success: true, Show: newShowResponse(show)})
}

func (h *Handler) IsAdmin(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	response.OK(w, isAdminResponse{Success: true, IsAdmin: id.IsAdmin()})
}

func (h *Handler) AddShow(w http.ResponseWriter, r *http.Request) {
	var req addShowRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	shows, err := h.showSvc.AddShows(r.Context(), req.toInput())
	if err != nil {
		h.fail(w, r, "AddShow", err)
		return
	}

	ids := make([]string, 0, len(shows))
	for _, s := range shows {
		ids = append(ids, s.ID)
	}

	response.JSON(w, http.StatusCreated, addShowResponse{
		Success: true,
		Message: "Show Added successfully.",
		ShowIDs: ids,
	})
}

func (h *Handler) AllShows(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.showSvc.ListAllShows(r.Context())
	if err != nil {
		h.fail(w, r, "AllShows", err)
		return
	}

	out := make([]showSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, showSummaryResponse{
			showResponse:  *newShowResponse(s.Show),
			OccupiedSeats: s.OccupiedSeats,
			Earnings:      s.Earnings,
		})
	}

	response.OK(w, adminShowsResponse{Success: true, Shows: out})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.showSvc.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, "Dashboard", err)
		return
	}

	resp := dashboardResponse{Success: true}
	if err := copier.Copy(&resp, stats); err != nil {
		h.fail(w, r, "Dashboard", err)
		return
	}
	response.OK(w, resp)
}
