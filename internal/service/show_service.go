package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"github.com/vogiaan1904/quickseat-booking/pkg/util"
)

type ShowService interface {
	AddShows(ctx context.Context, in AddShowsInput) ([]*models.Show, error)
	GetShow(ctx context.Context, id string) (*models.Show, error)
	ListUpcoming(ctx context.Context) ([]*models.Show, error)
	ListAllShows(ctx context.Context) ([]ShowSummary, error)
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

type showService struct {
	shows    repository.ShowRepository
	bookings repository.BookingRepository
	pub      EventPublisher
	clock    Clock
	l        logger.Logger
	cfg      config.BookingConfig
	loc      *time.Location
}

func NewShowService(
	shows repository.ShowRepository,
	bookings repository.BookingRepository,
	pub EventPublisher,
	clock Clock,
	l logger.Logger,
	cfg config.BookingConfig,
) (ShowService, error) {
	loc, err := time.LoadLocation(cfg.ShowTimezone)
	if err != nil {
		return nil, fmt.Errorf("load show timezone: %w", err)
	}

	return &showService{
		shows:    shows,
		bookings: bookings,
		pub:      pub,
		clock:    clock,
		l:        l,
		cfg:      cfg,
		loc:      loc,
	}, nil
}

func (s *showService) AddShows(ctx context.Context, in AddShowsInput) ([]*models.Show, error) {
	if strings.TrimSpace(in.MovieID) == "" || strings.TrimSpace(in.MovieTitle) == "" {
		return nil, fmt.Errorf("%w: movie id and title are required", ErrInvalidShowInput)
	}
	if in.PricePerSeat <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidShowInput)
	}
	if len(in.Slots) == 0 {
		return nil, fmt.Errorf("%w: no show times given", ErrInvalidShowInput)
	}

	now := s.clock.Now()

	// Parse everything up front so a bad slot creates nothing.
	var starts []time.Time
	seen := make(map[int64]struct{})
	for _, slot := range in.Slots {
		if len(slot.Times) == 0 {
			return nil, fmt.Errorf("%w: no times for %s", ErrInvalidShowInput, slot.Date)
		}
		for _, clock := range slot.Times {
			start, err := util.ParseLocalDateTime(slot.Date, clock, s.loc)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidShowInput, err)
			}
			if !start.After(now) {
				return nil, fmt.Errorf("%w: %s %s is in the past", ErrInvalidShowInput, slot.Date, clock)
			}
			if _, dup := seen[start.Unix()]; dup {
				continue
			}
			seen[start.Unix()] = struct{}{}
			starts = append(starts, start)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	created := make([]*models.Show, 0, len(starts))
	for _, start := range starts {
		show := &models.Show{
			ID:           uuid.NewString(),
			MovieID:      in.MovieID,
			MovieTitle:   in.MovieTitle,
			StartTime:    start,
			PricePerSeat: in.PricePerSeat,
			Rows:         append([]string(nil), s.cfg.SeatRows...),
			SeatsPerRow:  s.cfg.SeatsPerRow,
			CreatedAt:    now,
		}
		if err := s.shows.CreateShow(ctx, show); err != nil {
			s.l.Errorf(ctx, "service.showService.AddShows: create show at %s: %v", start, err)
			return created, storageErr(err)
		}
		created = append(created, show)
	}

	s.l.Infof(ctx, "service.showService.AddShows: added %d shows of %s", len(created), in.MovieTitle)

	evt := event.ShowAddedEvent{
		MovieID:    in.MovieID,
		MovieTitle: in.MovieTitle,
		Timestamp:  s.clock.Now(),
	}
	for _, show := range created {
		evt.ShowIDs = append(evt.ShowIDs, show.ID)
		evt.StartTimes = append(evt.StartTimes, show.StartTime)
	}
	if err := s.pub.PublishShowAdded(ctx, evt); err != nil {
		s.l.Warnf(ctx, "service.showService.AddShows: publish %s: %v", event.TopicShowAdded, err)
	}

	return created, nil
}

func (s *showService) GetShow(ctx context.Context, id string) (*models.Show, error) {
	show, err := s.shows.GetShow(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShowNotFound
		}
		return nil, storageErr(err)
	}
	return show, nil
}

func (s *showService) ListUpcoming(ctx context.Context) ([]*models.Show, error) {
	shows, err := s.shows.ListUpcomingShows(ctx, s.clock.Now())
	if err != nil {
		return nil, storageErr(err)
	}
	return shows, nil
}

func (s *showService) ListAllShows(ctx context.Context) ([]ShowSummary, error) {
	shows, err := s.shows.ListShows(ctx)
	if err != nil {
		return nil, storageErr(err)
	}

	out := make([]ShowSummary, 0, len(shows))
	for _, show := range shows {
		occ, err := s.shows.OccupiedSeats(ctx, show.ID)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, ShowSummary{
			Show:          show,
			OccupiedSeats: len(occ),
			Earnings:      int64(len(occ)) * show.PricePerSeat,
		})
	}

	return out, nil
}

func (s *showService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	paid, revenue, err := s.bookings.Stats(ctx)
	if err != nil {
		return nil, storageErr(err)
	}

	active, err := s.shows.CountUpcomingShows(ctx, s.clock.Now())
	if err != nil {
		return nil, storageErr(err)
	}

	return &models.DashboardStats{
		TotalBookings: paid,
		TotalRevenue:  revenue,
		ActiveShows:   active,
	}, nil
}
