package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/payment"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	redisrepo "github.com/vogiaan1904/quickseat-booking/internal/repository/redis"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

var t0 = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeGateway keeps checkout sessions in memory. ParseWebhook accepts
// signature "valid" and decodes the payload as a payment.Event.
type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	sessions  map[string]*payment.Session
	byIntent  map[string]string
	requests  []payment.SessionRequest
	expired   []string
	createErr error
	getErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions: make(map[string]*payment.Session),
		byIntent: make(map[string]string),
	}
}

func (g *fakeGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}

	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	sess := &payment.Session{
		ID:            id,
		URL:           "https://checkout.stripe.com/c/pay/" + id,
		PaymentStatus: "unpaid",
		Metadata:      map[string]string{payment.MetadataBookingID: req.BookingID},
	}
	g.sessions[id] = sess
	g.requests = append(g.requests, req)

	cp := *sess
	return &cp, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.getErr != nil {
		return nil, g.getErr
	}
	sess, ok := g.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (g *fakeGateway) ExpireSession(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, id)
	return nil
}

func (g *fakeGateway) FindSessionByPaymentIntent(_ context.Context, piID string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, ok := g.byIntent[piID]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	cp := *g.sessions[id]
	return &cp, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	var evt payment.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// pay marks the session paid as the provider would after checkout.
func (g *fakeGateway) pay(sessionID, piID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionID].PaymentStatus = payment.PaymentStatusPaid
	if piID != "" {
		g.byIntent[piID] = sessionID
	}
}

func (g *fakeGateway) expiredSessions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.expired...)
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []event.BookingConfirmedEvent
	expired   []event.BookingExpiredEvent
	orphaned  []event.PaymentOrphanedEvent
	added     []event.ShowAddedEvent
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, evt event.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, evt)
	return nil
}

func (p *recordingPublisher) PublishBookingExpired(_ context.Context, evt event.BookingExpiredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, evt)
	return nil
}

func (p *recordingPublisher) PublishPaymentOrphaned(_ context.Context, evt event.PaymentOrphanedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orphaned = append(p.orphaned, evt)
	return nil
}

func (p *recordingPublisher) PublishShowAdded(_ context.Context, evt event.ShowAddedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, evt)
	return nil
}

func (p *recordingPublisher) counts() (confirmed, expired, orphaned int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.confirmed), len(p.expired), len(p.orphaned)
}

var (
	testBookingCfg = config.BookingConfig{
		ExpiryWindow: 10 * time.Minute,
		MaxSeats:     5,
		SeatRows:     []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"},
		SeatsPerRow:  9,
		ClientOrigin: "http://localhost:5173",
		ShowTimezone: "Asia/Kolkata",
	}
	testPaymentCfg = config.PaymentConfig{
		Currency:   "inr",
		SessionTTL: 30 * time.Minute,
	}
	testSchedulerCfg = config.SchedulerConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		LeaseTimeout: 30 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: time.Second,
	}
)

type harness struct {
	mr    *miniredis.Miniredis
	clock *fakeClock
	gw    *fakeGateway
	pub   *recordingPublisher

	shows    repository.ShowRepository
	bookings repository.BookingRepository
	jobs     repository.JobRepository

	reconciler Reconciler
	bookingSvc BookingService
	paymentSvc PaymentService
	showSvc    ShowService
	processor  ExpiryProcessor

	show *models.Show
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })

	l := logger.InitializeTestZapLogger()
	h := &harness{
		mr:       mr,
		clock:    &fakeClock{now: t0},
		gw:       newFakeGateway(),
		pub:      &recordingPublisher{},
		shows:    redisrepo.NewRedisShowRepository(cli, "test", l),
		bookings: redisrepo.NewRedisBookingRepository(cli, "test", l),
		jobs:     redisrepo.NewRedisJobRepository(cli, "test", l),
	}

	sched := NewJobScheduler(h.jobs, h.clock, l)
	h.reconciler = NewReconciler(h.shows, h.bookings, h.gw, sched, h.pub, h.clock, l, testBookingCfg)
	h.bookingSvc = NewBookingService(h.shows, h.bookings, h.gw, sched, h.reconciler, h.clock, l, testBookingCfg, testPaymentCfg)
	h.paymentSvc = NewPaymentService(h.shows, h.bookings, h.gw, h.pub, h.clock, l, testPaymentCfg)
	h.processor = NewExpiryProcessor(h.jobs, h.reconciler, h.clock, l, testSchedulerCfg)

	showSvc, err := NewShowService(h.shows, h.bookings, h.pub, h.clock, l, testBookingCfg)
	if err != nil {
		t.Fatalf("NewShowService: %v", err)
	}
	h.showSvc = showSvc

	h.show = &models.Show{
		ID:           "show-1",
		MovieID:      "movie-1",
		MovieTitle:   "Interstellar",
		StartTime:    t0.Add(48 * time.Hour),
		PricePerSeat: 150,
		Rows:         testBookingCfg.SeatRows,
		SeatsPerRow:  testBookingCfg.SeatsPerRow,
		CreatedAt:    t0,
	}
	if err := h.shows.CreateShow(context.Background(), h.show); err != nil {
		t.Fatalf("CreateShow: %v", err)
	}

	return h
}

func (h *harness) reserve(t *testing.T, userID string, seats ...string) *ReserveOutput {
	t.Helper()

	out, err := h.bookingSvc.Reserve(context.Background(), ReserveInput{
		ShowID:     h.show.ID,
		UserID:     userID,
		UserEmail:  userID + "@example.com",
		SeatLabels: seats,
	})
	if err != nil {
		t.Fatalf("Reserve(%s, %v): %v", userID, seats, err)
	}
	return out
}

func (h *harness) occupied(t *testing.T) map[string]models.SeatHold {
	t.Helper()

	occ, err := h.shows.OccupiedSeats(context.Background(), h.show.ID)
	if err != nil {
		t.Fatalf("OccupiedSeats: %v", err)
	}
	return occ
}

func (h *harness) booking(t *testing.T, id string) *models.Booking {
	t.Helper()

	b, err := h.bookings.GetBooking(context.Background(), id)
	if err != nil {
		t.Fatalf("GetBooking(%s): %v", id, err)
	}
	return b
}

func (h *harness) bookingGone(t *testing.T, id string) bool {
	t.Helper()

	_, err := h.bookings.GetBooking(context.Background(), id)
	return errors.Is(err, repository.ErrNotFound)
}

func webhookPayload(t *testing.T, evt payment.Event) []byte {
	t.Helper()

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

func completedEvent(t *testing.T, sessionID, bookingID string) []byte {
	return webhookPayload(t, payment.Event{
		ID:            "evt_" + sessionID,
		Type:          payment.EventCheckoutCompleted,
		SessionID:     sessionID,
		PaymentStatus: payment.PaymentStatusPaid,
		Metadata:      map[string]string{payment.MetadataBookingID: bookingID},
	})
}

func seatsOf(occ map[string]models.SeatHold, bookingID string) []string {
	var seats []string
	for seat, hold := range occ {
		if hold.BookingID == bookingID {
			seats = append(seats, seat)
		}
	}
	sort.Strings(seats)
	return seats
}
