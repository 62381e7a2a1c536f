package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/payment"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// A lost claim race is retried once from the availability check.
const maxClaimAttempts = 2

type BookingService interface {
	Reserve(ctx context.Context, in ReserveInput) (*ReserveOutput, error)
	OccupiedSeats(ctx context.Context, showID string) ([]string, error)
	ListUserBookings(ctx context.Context, userID string) ([]BookingView, error)
}

type bookingService struct {
	shows      repository.ShowRepository
	bookings   repository.BookingRepository
	gateway    payment.Gateway
	scheduler  Scheduler
	reconciler Reconciler
	clock      Clock
	l          logger.Logger
	cfg        config.BookingConfig
	payCfg     config.PaymentConfig
}

func NewBookingService(
	shows repository.ShowRepository,
	bookings repository.BookingRepository,
	gateway payment.Gateway,
	scheduler Scheduler,
	reconciler Reconciler,
	clock Clock,
	l logger.Logger,
	cfg config.BookingConfig,
	payCfg config.PaymentConfig,
) BookingService {
	return &bookingService{
		shows:      shows,
		bookings:   bookings,
		gateway:    gateway,
		scheduler:  scheduler,
		reconciler: reconciler,
		clock:      clock,
		l:          l,
		cfg:        cfg,
		payCfg:     payCfg,
	}
}

func (s *bookingService) Reserve(ctx context.Context, in ReserveInput) (*ReserveOutput, error) {
	seats, err := normalizeSeats(in.SeatLabels, s.cfg.MaxSeats)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	hold := models.SeatHold{BookingID: uuid.NewString(), UserID: in.UserID}

	var show *models.Show
	for attempt := 1; ; attempt++ {
		show, err = s.bookableShow(ctx, in.ShowID)
		if err != nil {
			return nil, err
		}
		for _, seat := range seats {
			if !show.ValidSeat(seat) {
				return nil, fmt.Errorf("%w: no seat %s in this show", ErrInvalidSeats, seat)
			}
		}

		occ, err := s.shows.OccupiedSeats(ctx, show.ID)
		if err != nil {
			return nil, storageErr(err)
		}
		if taken := takenSeats(occ, seats); len(taken) > 0 {
			return nil, fmt.Errorf("%w: %s already booked", ErrSeatsUnavailable, strings.Join(taken, ", "))
		}

		err = s.shows.ClaimSeats(ctx, show.ID, hold, seats)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrSeatConflict) {
			return nil, storageErr(err)
		}
		if attempt >= maxClaimAttempts {
			return nil, fmt.Errorf("%w: %v", ErrSeatsUnavailable, err)
		}
		s.l.Infof(ctx, "service.bookingService.Reserve: lost claim race on show %s, retrying: %v", show.ID, err)
	}

	b := &models.Booking{
		ID:          hold.BookingID,
		UserID:      in.UserID,
		UserEmail:   in.UserEmail,
		ShowID:      show.ID,
		BookedSeats: seats,
		Amount:      show.PricePerSeat * int64(len(seats)),
		CreatedAt:   now,
	}

	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		s.l.Errorf(ctx, "service.bookingService.Reserve: create booking: %v", err)
		s.releaseClaim(ctx, show.ID, hold, seats)
		return nil, storageErr(err)
	}

	sess, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		BookingID:   b.ID,
		Amount:      b.Amount,
		Currency:    s.payCfg.Currency,
		ProductName: fmt.Sprintf("%s, seats %s", show.MovieTitle, strings.Join(seats, ", ")),
		SuccessURL:  s.cfg.ClientOrigin + "/loading/my-bookings",
		CancelURL:   s.cfg.ClientOrigin + "/my-bookings",
		ExpiresAt:   now.Add(s.payCfg.SessionTTL),
	})
	if err != nil {
		s.l.Errorf(ctx, "service.bookingService.Reserve: create payment session for %s: %v", b.ID, err)
		s.rollback(ctx, b)
		return nil, gatewayErr(err)
	}

	if err := s.bookings.SetPaymentSession(ctx, b.ID, sess.ID, sess.URL); err != nil {
		s.l.Errorf(ctx, "service.bookingService.Reserve: store payment session for %s: %v", b.ID, err)
		if err := s.gateway.ExpireSession(context.WithoutCancel(ctx), sess.ID); err != nil {
			s.l.Warnf(ctx, "service.bookingService.Reserve: expire orphan session %s: %v", sess.ID, err)
		}
		s.rollback(ctx, b)
		return nil, storageErr(err)
	}

	// The fallback sweep covers a lost job.
	job := models.NewExpiryJob("", b, now.Add(s.cfg.ExpiryWindow))
	if err := s.scheduler.ScheduleOnce(ctx, s.cfg.ExpiryWindow, job); err != nil {
		s.l.Warnf(ctx, "service.bookingService.Reserve: schedule expiry for %s: %v", b.ID, err)
	}

	s.l.Infof(ctx, "service.bookingService.Reserve: booking %s holds %v on show %s for user %s", b.ID, seats, show.ID, in.UserID)

	return &ReserveOutput{
		BookingID:   b.ID,
		RedirectURL: sess.URL,
		Amount:      b.Amount,
		ExpiresAt:   now.Add(s.cfg.ExpiryWindow),
	}, nil
}

func (s *bookingService) OccupiedSeats(ctx context.Context, showID string) ([]string, error) {
	if _, err := s.getShow(ctx, showID); err != nil {
		return nil, err
	}

	occ, err := s.shows.OccupiedSeats(ctx, showID)
	if err != nil {
		return nil, storageErr(err)
	}

	seats := make([]string, 0, len(occ))
	for seat := range occ {
		seats = append(seats, seat)
	}
	sort.Strings(seats)

	return seats, nil
}

func (s *bookingService) ListUserBookings(ctx context.Context, userID string) ([]BookingView, error) {
	if err := s.reconciler.SweepUser(ctx, userID); err != nil {
		// Listing still works; the worker sweep retries the release.
		s.l.Warnf(ctx, "service.bookingService.ListUserBookings: sweep for %s: %v", userID, err)
	}

	bookings, err := s.bookings.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}

	shows := make(map[string]*models.Show)
	views := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		show, ok := shows[b.ShowID]
		if !ok {
			show, err = s.shows.GetShow(ctx, b.ShowID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, storageErr(err)
			}
			shows[b.ShowID] = show
		}
		views = append(views, BookingView{Booking: b, Show: show})
	}

	return views, nil
}

func (s *bookingService) bookableShow(ctx context.Context, showID string) (*models.Show, error) {
	show, err := s.getShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	if show.HasStarted(s.clock.Now()) {
		return nil, fmt.Errorf("%w: show %s has already started", ErrShowNotFound, showID)
	}

	return show, nil
}

func (s *bookingService) getShow(ctx context.Context, showID string) (*models.Show, error) {
	show, err := s.shows.GetShow(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShowNotFound
		}
		return nil, storageErr(err)
	}

	return show, nil
}

// rollback undoes a reservation that never got a usable payment session.
func (s *bookingService) rollback(ctx context.Context, b *models.Booking) {
	ctx = context.WithoutCancel(ctx)

	if err := s.bookings.DeleteBooking(ctx, b.ID); err != nil {
		s.l.Errorf(ctx, "service.bookingService.rollback: delete booking %s: %v", b.ID, err)
	}
	s.releaseClaim(ctx, b.ShowID, b.Hold(), b.BookedSeats)
}

func (s *bookingService) releaseClaim(ctx context.Context, showID string, hold models.SeatHold, seats []string) {
	if _, err := s.shows.ReleaseSeats(context.WithoutCancel(ctx), showID, hold, seats); err != nil {
		// The scheduled job never got created, so nothing else will free these.
		s.l.Errorf(ctx, "service.bookingService.releaseClaim: show %s seats %v stay held by %s: %v", showID, seats, hold.BookingID, err)
	}
}

func normalizeSeats(labels []string, max int) ([]string, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no seats selected", ErrInvalidSeats)
	}
	if len(labels) > max {
		return nil, fmt.Errorf("%w: at most %d per booking", ErrTooManySeats, max)
	}

	seen := make(map[string]struct{}, len(labels))
	seats := make([]string, 0, len(labels))
	for _, l := range labels {
		seat := strings.ToUpper(strings.TrimSpace(l))
		if seat == "" {
			return nil, fmt.Errorf("%w: empty seat label", ErrInvalidSeats)
		}
		if _, dup := seen[seat]; dup {
			return nil, fmt.Errorf("%w: seat %s selected twice", ErrInvalidSeats, seat)
		}
		seen[seat] = struct{}{}
		seats = append(seats, seat)
	}

	return seats, nil
}

func takenSeats(occ map[string]models.SeatHold, seats []string) []string {
	var taken []string
	for _, seat := range seats {
		if _, ok := occ[seat]; ok {
			taken = append(taken, seat)
		}
	}
	return taken
}
