package postgresrepo

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the same gorm options
// Connect uses. One connection keeps every query on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func heldSeats(t *testing.T, shows repository.ShowRepository, showID, bookingID string) []string {
	t.Helper()

	occ, err := shows.OccupiedSeats(context.Background(), showID)
	if err != nil {
		t.Fatalf("OccupiedSeats: %v", err)
	}
	var seats []string
	for seat, h := range occ {
		if h.BookingID == bookingID {
			seats = append(seats, seat)
		}
	}
	sort.Strings(seats)
	return seats
}

func TestClaimSeats_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	shows := NewPostgresShowRepository(newTestDB(t), logger.InitializeTestZapLogger())

	first := models.SeatHold{BookingID: "b-1", UserID: "u1"}
	if err := shows.ClaimSeats(ctx, "show-1", first, []string{"A1", "A2"}); err != nil {
		t.Fatalf("ClaimSeats: %v", err)
	}

	second := models.SeatHold{BookingID: "b-2", UserID: "u2"}
	err := shows.ClaimSeats(ctx, "show-1", second, []string{"A3", "A2"})
	if !errors.Is(err, repository.ErrSeatConflict) {
		t.Fatalf("err = %v, want ErrSeatConflict", err)
	}
	if got := heldSeats(t, shows, "show-1", "b-2"); len(got) != 0 {
		t.Errorf("losing claim kept %v", got)
	}
	if got := heldSeats(t, shows, "show-1", "b-1"); !reflect.DeepEqual(got, []string{"A1", "A2"}) {
		t.Errorf("first claim holds %v", got)
	}

	// Seat labels are scoped to their show.
	if err := shows.ClaimSeats(ctx, "show-2", second, []string{"A1"}); err != nil {
		t.Errorf("claim on another show: %v", err)
	}
}

func TestReleaseSeats_OnlyOwnSeats(t *testing.T) {
	ctx := context.Background()
	shows := NewPostgresShowRepository(newTestDB(t), logger.InitializeTestZapLogger())

	mine := models.SeatHold{BookingID: "b-1", UserID: "u1"}
	theirs := models.SeatHold{BookingID: "b-2", UserID: "u2"}
	if err := shows.ClaimSeats(ctx, "show-1", mine, []string{"B1", "B2"}); err != nil {
		t.Fatalf("ClaimSeats: %v", err)
	}
	if err := shows.ClaimSeats(ctx, "show-1", theirs, []string{"B3"}); err != nil {
		t.Fatalf("ClaimSeats: %v", err)
	}

	released, err := shows.ReleaseSeats(ctx, "show-1", mine, []string{"B1", "B2", "B3"})
	if err != nil {
		t.Fatalf("ReleaseSeats: %v", err)
	}
	sort.Strings(released)
	if !reflect.DeepEqual(released, []string{"B1", "B2"}) {
		t.Errorf("released = %v", released)
	}
	if got := heldSeats(t, shows, "show-1", "b-2"); !reflect.DeepEqual(got, []string{"B3"}) {
		t.Errorf("other booking holds %v", got)
	}

	again, err := shows.ReleaseSeats(ctx, "show-1", mine, []string{"B1"})
	if err != nil {
		t.Fatalf("second ReleaseSeats: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second release freed %v", again)
	}

	// Same booking id under another user is not the owner.
	forged := models.SeatHold{BookingID: "b-2", UserID: "u1"}
	if got, _ := shows.ReleaseSeats(ctx, "show-1", forged, []string{"B3"}); len(got) != 0 {
		t.Errorf("forged hold released %v", got)
	}
}

func newBooking(id string, createdAt time.Time) *models.Booking {
	return &models.Booking{
		ID:          id,
		UserID:      "u1",
		ShowID:      "show-1",
		BookedSeats: []string{"C1", "C2"},
		Amount:      300,
		CreatedAt:   createdAt,
	}
}

func TestMarkPaid_Idempotent(t *testing.T) {
	ctx := context.Background()
	bookings := NewPostgresBookingRepository(newTestDB(t), logger.InitializeTestZapLogger())
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := bookings.CreateBooking(ctx, newBooking("b-1", now)); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if err := bookings.SetPaymentSession(ctx, "b-1", "cs_1", "https://checkout.stripe.com/c/pay/cs_1"); err != nil {
		t.Fatalf("SetPaymentSession: %v", err)
	}

	changed, err := bookings.MarkPaid(ctx, "b-1", now.Add(time.Minute))
	if err != nil || !changed {
		t.Fatalf("first MarkPaid = %v, %v", changed, err)
	}
	changed, err = bookings.MarkPaid(ctx, "b-1", now.Add(2*time.Minute))
	if err != nil || changed {
		t.Errorf("second MarkPaid = %v, %v", changed, err)
	}

	b, err := bookings.GetBooking(ctx, "b-1")
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if !b.IsPaid || b.PaymentSessionID != "" || b.PaymentLink != "" {
		t.Errorf("booking = %+v", b)
	}

	if _, err := bookings.MarkPaid(ctx, "nope", now); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing booking err = %v", err)
	}

	paid, revenue, err := bookings.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if paid != 1 || revenue != 300 {
		t.Errorf("Stats = %d, %d", paid, revenue)
	}
}

func TestDeleteUnpaid(t *testing.T) {
	ctx := context.Background()
	bookings := NewPostgresBookingRepository(newTestDB(t), logger.InitializeTestZapLogger())
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"b-paid", "b-open"} {
		if err := bookings.CreateBooking(ctx, newBooking(id, now)); err != nil {
			t.Fatalf("CreateBooking(%s): %v", id, err)
		}
	}
	if _, err := bookings.MarkPaid(ctx, "b-paid", now); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}

	if err := bookings.DeleteUnpaid(ctx, "b-paid"); !errors.Is(err, repository.ErrAlreadyPaid) {
		t.Errorf("paid booking err = %v, want ErrAlreadyPaid", err)
	}
	if _, err := bookings.GetBooking(ctx, "b-paid"); err != nil {
		t.Errorf("paid booking was deleted: %v", err)
	}

	if err := bookings.DeleteUnpaid(ctx, "b-open"); err != nil {
		t.Fatalf("DeleteUnpaid: %v", err)
	}
	if err := bookings.DeleteUnpaid(ctx, "b-open"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
