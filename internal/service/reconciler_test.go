package service

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/models"
)

func TestHandleExpiry_PaidBookingIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "A1", "A2")
	b := h.booking(t, out.BookingID)
	if err := h.paymentSvc.HandleWebhook(ctx, completedEvent(t, b.PaymentSessionID, b.ID), "valid"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	h.clock.Advance(15 * time.Minute)
	if _, err := h.processor.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, err := h.reconciler.SweepAll(ctx); err != nil {
		t.Fatalf("SweepAll: %v", err)
	}

	if !h.booking(t, out.BookingID).IsPaid {
		t.Error("paid booking changed")
	}
	if got := seatsOf(h.occupied(t), out.BookingID); !reflect.DeepEqual(got, []string{"A1", "A2"}) {
		t.Errorf("held seats = %v", got)
	}
	if _, expired, _ := h.pub.counts(); expired != 0 {
		t.Errorf("expired events = %d", expired)
	}
}

func TestHandleExpiry_ReleasesOnlyItsSeats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u1 := h.reserve(t, "u1", "A1", "A2")
	s1 := h.booking(t, u1.BookingID).PaymentSessionID
	h.clock.Advance(5 * time.Minute)
	u2 := h.reserve(t, "u2", "A3")
	h.clock.Advance(5 * time.Minute)

	n, err := h.processor.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("handled %d jobs, want 1", n)
	}

	if !h.bookingGone(t, u1.BookingID) {
		t.Error("expired booking still stored")
	}
	occ := h.occupied(t)
	if len(occ) != 1 || occ["A3"].BookingID != u2.BookingID {
		t.Errorf("occupied = %v", occ)
	}

	if len(h.pub.expired) != 1 {
		t.Fatalf("expired events = %d", len(h.pub.expired))
	}
	released := append([]string(nil), h.pub.expired[0].ReleasedSeats...)
	sort.Strings(released)
	if !reflect.DeepEqual(released, []string{"A1", "A2"}) {
		t.Errorf("released = %v", released)
	}
	if got := h.gw.expiredSessions(); !reflect.DeepEqual(got, []string{s1}) {
		t.Errorf("expired sessions = %v, want [%s]", got, s1)
	}

	// Running the same expiry again changes nothing.
	job := models.ExpiryJob{BookingID: u1.BookingID, ShowID: h.show.ID, UserID: "u1", Seats: []string{"A1", "A2"}}
	if err := h.reconciler.HandleExpiry(ctx, job); err != nil {
		t.Fatalf("repeat HandleExpiry: %v", err)
	}
	if _, expired, _ := h.pub.counts(); expired != 1 {
		t.Errorf("expired events after repeat = %d", expired)
	}
}

func TestHandleExpiry_EarlyFireReschedules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "B1")
	b := h.booking(t, out.BookingID)
	h.clock.Advance(time.Minute)

	job := models.NewExpiryJob("early", b, h.clock.Now())
	if err := h.reconciler.HandleExpiry(ctx, job); err != nil {
		t.Fatalf("HandleExpiry: %v", err)
	}

	if h.bookingGone(t, out.BookingID) {
		t.Fatal("booking expired before its window")
	}
	scheduled, _, err := h.jobs.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if scheduled != 2 {
		t.Errorf("scheduled jobs = %d, want the original plus a follow-up", scheduled)
	}

	h.clock.Advance(9 * time.Minute)
	if _, err := h.processor.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !h.bookingGone(t, out.BookingID) {
		t.Error("booking survived its window")
	}
}

func TestHandleExpiry_MissingBookingFreesStaleHold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stale := models.SeatHold{BookingID: "gone", UserID: "u1"}
	if err := h.shows.ClaimSeats(ctx, h.show.ID, stale, []string{"C5"}); err != nil {
		t.Fatalf("ClaimSeats: %v", err)
	}
	other := h.reserve(t, "u2", "C6")

	job := models.ExpiryJob{BookingID: "gone", ShowID: h.show.ID, UserID: "u1", Seats: []string{"C5", "C6"}}
	if err := h.reconciler.HandleExpiry(ctx, job); err != nil {
		t.Fatalf("HandleExpiry: %v", err)
	}

	occ := h.occupied(t)
	if _, ok := occ["C5"]; ok {
		t.Error("stale hold on C5 not released")
	}
	if occ["C6"].BookingID != other.BookingID {
		t.Errorf("C6 held by %q, want %q", occ["C6"].BookingID, other.BookingID)
	}
}

func TestSweepAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.reserve(t, "u1", "D1")
	h.reserve(t, "u2", "D2", "D3")
	h.clock.Advance(3 * time.Minute)
	keep := h.reserve(t, "u3", "D4")
	h.clock.Advance(8 * time.Minute)

	n, err := h.reconciler.SweepAll(ctx)
	if err != nil {
		t.Fatalf("SweepAll: %v", err)
	}
	if n != 2 {
		t.Errorf("swept %d, want 2", n)
	}

	occ := h.occupied(t)
	if len(occ) != 1 || occ["D4"].BookingID != keep.BookingID {
		t.Errorf("occupied = %v", occ)
	}

	if n, err := h.reconciler.SweepAll(ctx); err != nil || n != 0 {
		t.Errorf("second sweep = %d, %v", n, err)
	}
}
