package redisrepo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

func TestBookingRepository_CreateGetList(t *testing.T) {
	_, cli := newTestClient(t)
	repo := NewRedisBookingRepository(cli, testPrefix, logger.InitializeTestZapLogger())
	ctx := context.Background()

	older := testBooking("b1", "u1", "show-1", "A1")
	older.CreatedAt = older.CreatedAt.Add(-time.Minute)
	newer := testBooking("b2", "u1", "show-1", "A2", "A3")
	other := testBooking("b3", "u2", "show-1", "B1")

	if err := repo.CreateBooking(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateBooking(ctx, newer); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateBooking(ctx, other); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetBooking(ctx, "b2")
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Amount != 300 || len(got.BookedSeats) != 2 || got.IsPaid {
		t.Errorf("got %+v", got)
	}
	if got.UserEmail != "u1@example.com" {
		t.Errorf("email = %q", got.UserEmail)
	}

	list, err := repo.ListUserBookings(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUserBookings: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b2" || list[1].ID != "b1" {
		t.Errorf("list order wrong: %v", list)
	}

	if _, err := repo.GetBooking(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetBooking(nope) err = %v", err)
	}
}

func TestBookingRepository_SetPaymentSession(t *testing.T) {
	_, cli := newTestClient(t)
	repo := NewRedisBookingRepository(cli, testPrefix, logger.InitializeTestZapLogger())
	ctx := context.Background()

	if err := repo.CreateBooking(ctx, testBooking("b1", "u1", "show-1", "A1")); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetPaymentSession(ctx, "b1", "cs_test_1", "https://pay/cs_test_1"); err != nil {
		t.Fatalf("SetPaymentSession: %v", err)
	}
	got, _ := repo.GetBooking(ctx, "b1")
	if got.PaymentSessionID != "cs_test_1" || got.PaymentLink != "https://pay/cs_test_1" {
		t.Errorf("session not stored: %+v", got)
	}

	if err := repo.SetPaymentSession(ctx, "gone", "cs", "link"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("SetPaymentSession(gone) err = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetBooking(ctx, "gone"); !errors.Is(err, repository.ErrNotFound) {
		t.Error("SetPaymentSession resurrected a missing booking")
	}
}

func TestBookingRepository_MarkPaidIsIdempotent(t *testing.T) {
	_, cli := newTestClient(t)
	repo := NewRedisBookingRepository(cli, testPrefix, logger.InitializeTestZapLogger())
	ctx := context.Background()

	b := testBooking("b1", "u1", "show-1", "A1", "A2")
	b.PaymentSessionID = "cs_test_1"
	b.PaymentLink = "https://pay"
	if err := repo.CreateBooking(ctx, b); err != nil {
		t.Fatal(err)
	}

	var changed int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkPaid(ctx, "b1", time.Now())
			if err != nil {
				t.Errorf("MarkPaid: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&changed, 1)
			}
		}()
	}
	wg.Wait()

	if changed != 1 {
		t.Fatalf("MarkPaid reported a change %d times, want exactly 1", changed)
	}

	got, _ := repo.GetBooking(ctx, "b1")
	if !got.IsPaid || got.PaidAt == nil {
		t.Errorf("booking not paid: %+v", got)
	}
	if got.PaymentSessionID != "" || got.PaymentLink != "" {
		t.Errorf("payment session not cleared: %+v", got)
	}

	paid, revenue, err := repo.Stats(ctx)
	if err != nil || paid != 1 || revenue != 300 {
		t.Errorf("Stats = %d, %d, %v; want 1, 300", paid, revenue, err)
	}

	pending, _ := repo.ListPendingBefore(ctx, time.Now().Add(time.Hour), 10)
	if len(pending) != 0 {
		t.Errorf("paid booking still pending: %v", pending)
	}

	if _, err := repo.MarkPaid(ctx, "missing", time.Now()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("MarkPaid(missing) err = %v, want ErrNotFound", err)
	}
}

func TestBookingRepository_DeleteUnpaid(t *testing.T) {
	_, cli := newTestClient(t)
	repo := NewRedisBookingRepository(cli, testPrefix, logger.InitializeTestZapLogger())
	ctx := context.Background()

	if err := repo.CreateBooking(ctx, testBooking("unpaid", "u1", "show-1", "A1")); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateBooking(ctx, testBooking("paid", "u1", "show-1", "A2")); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.MarkPaid(ctx, "paid", time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteUnpaid(ctx, "paid"); !errors.Is(err, repository.ErrAlreadyPaid) {
		t.Errorf("DeleteUnpaid(paid) err = %v, want ErrAlreadyPaid", err)
	}
	if _, err := repo.GetBooking(ctx, "paid"); err != nil {
		t.Errorf("paid booking was deleted: %v", err)
	}

	if err := repo.DeleteUnpaid(ctx, "unpaid"); err != nil {
		t.Fatalf("DeleteUnpaid(unpaid): %v", err)
	}
	if _, err := repo.GetBooking(ctx, "unpaid"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unpaid booking still present: %v", err)
	}
	if err := repo.DeleteUnpaid(ctx, "unpaid"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second DeleteUnpaid err = %v, want ErrNotFound", err)
	}

	list, _ := repo.ListUserBookings(ctx, "u1")
	if len(list) != 1 || list[0].ID != "paid" {
		t.Errorf("user index = %v, want only the paid booking", list)
	}
}

func TestBookingRepository_ListPendingBefore(t *testing.T) {
	_, cli := newTestClient(t)
	repo := NewRedisBookingRepository(cli, testPrefix, logger.InitializeTestZapLogger())
	ctx := context.Background()
	now := time.Now()

	stale := testBooking("stale", "u1", "show-1", "A1")
	stale.CreatedAt = now.Add(-20 * time.Minute)
	fresh := testBooking("fresh", "u2", "show-1", "A2")
	fresh.CreatedAt = now.Add(-time.Minute)

	if err := repo.CreateBooking(ctx, stale); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateBooking(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListPendingBefore(ctx, now.Add(-10*time.Minute), 100)
	if err != nil {
		t.Fatalf("ListPendingBefore: %v", err)
	}
	if len(got) != 1 || got[0].ID != "stale" {
		t.Errorf("pending = %v, want [stale]", got)
	}
}

func TestBookingRepository_DeleteBooking(t *testing.T) {
	_, cli := newTestClient(t)
	repo := NewRedisBookingRepository(cli, testPrefix, logger.InitializeTestZapLogger())
	ctx := context.Background()

	if err := repo.CreateBooking(ctx, testBooking("b1", "u1", "show-1", "A1")); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteBooking(ctx, "b1"); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if err := repo.DeleteBooking(ctx, "b1"); err != nil {
		t.Errorf("DeleteBooking is not idempotent: %v", err)
	}
	if list, _ := repo.ListUserBookings(ctx, "u1"); len(list) != 0 {
		t.Errorf("user index not cleaned: %v", list)
	}
}
