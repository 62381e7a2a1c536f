package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/payment"
)

func TestHandleWebhook_ConfirmsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "A1", "A2")
	b := h.booking(t, out.BookingID)
	h.gw.pay(b.PaymentSessionID, "")
	h.clock.Advance(2 * time.Minute)

	payload := completedEvent(t, b.PaymentSessionID, b.ID)
	for i := 0; i < 3; i++ {
		if err := h.paymentSvc.HandleWebhook(ctx, payload, "valid"); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	paid := h.booking(t, out.BookingID)
	if !paid.IsPaid || paid.PaidAt == nil || !paid.PaidAt.Equal(t0.Add(2*time.Minute)) {
		t.Errorf("booking = %+v", paid)
	}
	if paid.PaymentLink != "" || paid.PaymentSessionID != "" {
		t.Errorf("payment session not cleared: %+v", paid)
	}

	confirmed, _, _ := h.pub.counts()
	if confirmed != 1 {
		t.Fatalf("confirmation events = %d, want 1", confirmed)
	}
	evt := h.pub.confirmed[0]
	if evt.Source != event.SourceWebhook || evt.MovieTitle != "Interstellar" || evt.Amount != 300 || evt.UserEmail != "u1@example.com" {
		t.Errorf("event = %+v", evt)
	}

	n, revenue, err := h.bookings.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if n != 1 || revenue != 300 {
		t.Errorf("stats = %d, %d", n, revenue)
	}

	st, err := h.paymentSvc.CheckPaymentStatus(ctx, out.BookingID, "u1")
	if err != nil {
		t.Fatalf("CheckPaymentStatus: %v", err)
	}
	if !st.IsPaid || st.Updated {
		t.Errorf("status = %+v, want paid and not updated", st)
	}
}

func TestHandleWebhook_Rejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "A1")
	b := h.booking(t, out.BookingID)

	if err := h.paymentSvc.HandleWebhook(ctx, completedEvent(t, b.PaymentSessionID, b.ID), "forged"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("bad signature err = %v", err)
	}

	noMeta := webhookPayload(t, payment.Event{
		Type:          payment.EventCheckoutCompleted,
		SessionID:     b.PaymentSessionID,
		PaymentStatus: payment.PaymentStatusPaid,
	})
	if err := h.paymentSvc.HandleWebhook(ctx, noMeta, "valid"); !errors.Is(err, ErrMissingBookingID) {
		t.Errorf("missing metadata err = %v", err)
	}

	unpaid := webhookPayload(t, payment.Event{
		Type:          payment.EventCheckoutCompleted,
		SessionID:     b.PaymentSessionID,
		PaymentStatus: "unpaid",
		Metadata:      map[string]string{payment.MetadataBookingID: b.ID},
	})
	if err := h.paymentSvc.HandleWebhook(ctx, unpaid, "valid"); err != nil {
		t.Errorf("unpaid completion err = %v", err)
	}

	other := webhookPayload(t, payment.Event{Type: "customer.created"})
	if err := h.paymentSvc.HandleWebhook(ctx, other, "valid"); err != nil {
		t.Errorf("unrelated event err = %v", err)
	}

	if h.booking(t, b.ID).IsPaid {
		t.Error("booking paid by a rejected or incomplete event")
	}
	if confirmed, _, _ := h.pub.counts(); confirmed != 0 {
		t.Errorf("confirmation events = %d", confirmed)
	}
}

func TestHandleWebhook_PaymentIntentFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "F1")
	b := h.booking(t, out.BookingID)
	h.gw.pay(b.PaymentSessionID, "pi_123")

	unknown := webhookPayload(t, payment.Event{Type: payment.EventPaymentIntentSucceeded, PaymentIntentID: "pi_unknown"})
	if err := h.paymentSvc.HandleWebhook(ctx, unknown, "valid"); err != nil {
		t.Errorf("unknown intent err = %v", err)
	}

	known := webhookPayload(t, payment.Event{Type: payment.EventPaymentIntentSucceeded, PaymentIntentID: "pi_123"})
	if err := h.paymentSvc.HandleWebhook(ctx, known, "valid"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	if !h.booking(t, b.ID).IsPaid {
		t.Error("booking not paid")
	}
}

func TestCheckPaymentStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "G1", "G2")
	b := h.booking(t, out.BookingID)

	if _, err := h.paymentSvc.CheckPaymentStatus(ctx, "missing", "u1"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("missing booking err = %v", err)
	}
	if _, err := h.paymentSvc.CheckPaymentStatus(ctx, out.BookingID, "u2"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("other user err = %v", err)
	}

	st, err := h.paymentSvc.CheckPaymentStatus(ctx, out.BookingID, "u1")
	if err != nil {
		t.Fatalf("CheckPaymentStatus: %v", err)
	}
	if st.IsPaid || st.Updated {
		t.Errorf("unpaid status = %+v", st)
	}

	h.gw.pay(b.PaymentSessionID, "")

	st, err = h.paymentSvc.CheckPaymentStatus(ctx, out.BookingID, "u1")
	if err != nil {
		t.Fatalf("CheckPaymentStatus: %v", err)
	}
	if !st.IsPaid || !st.Updated {
		t.Errorf("first paid status = %+v, want updated", st)
	}

	// A webhook arriving after the poll is a no-op.
	if err := h.paymentSvc.HandleWebhook(ctx, completedEvent(t, b.PaymentSessionID, b.ID), "valid"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	confirmed, _, _ := h.pub.counts()
	if confirmed != 1 {
		t.Errorf("confirmation events = %d, want 1", confirmed)
	}
	if h.pub.confirmed[0].Source != event.SourcePoll {
		t.Errorf("source = %q", h.pub.confirmed[0].Source)
	}
}

func TestCheckPaymentStatus_GatewayError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "H1")
	h.gw.getErr = errors.New("timeout")

	if _, err := h.paymentSvc.CheckPaymentStatus(ctx, out.BookingID, "u1"); !errors.Is(err, ErrGateway) {
		t.Errorf("err = %v, want ErrGateway", err)
	}
	if h.booking(t, out.BookingID).IsPaid {
		t.Error("booking paid despite gateway failure")
	}
}

// U1 holds A1,A2 and never pays. After expiry U2 takes A2,A3. U1's late
// payment must not resurrect the booking or reclaim A2.
func TestLateWebhookAfterExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u1 := h.reserve(t, "u1", "A1", "A2")
	b1 := h.booking(t, u1.BookingID)

	if _, err := h.bookingSvc.Reserve(ctx, ReserveInput{ShowID: h.show.ID, UserID: "u2", SeatLabels: []string{"A2", "A3"}}); !errors.Is(err, ErrSeatsUnavailable) {
		t.Fatalf("early u2 err = %v", err)
	}

	h.clock.Advance(10 * time.Minute)
	n, err := h.processor.RunOnce(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RunOnce = %d, %v", n, err)
	}

	u2 := h.reserve(t, "u2", "A2", "A3")

	h.gw.pay(b1.PaymentSessionID, "")
	err = h.paymentSvc.HandleWebhook(ctx, completedEvent(t, b1.PaymentSessionID, b1.ID), "valid")
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("late webhook err = %v, want ErrBookingNotFound", err)
	}

	if !h.bookingGone(t, u1.BookingID) {
		t.Error("expired booking came back")
	}
	occ := h.occupied(t)
	if len(occ) != 2 || occ["A2"].BookingID != u2.BookingID || occ["A3"].BookingID != u2.BookingID {
		t.Errorf("occupied = %v", occ)
	}

	confirmed, expired, orphaned := h.pub.counts()
	if confirmed != 0 || expired != 1 || orphaned != 1 {
		t.Errorf("events confirmed=%d expired=%d orphaned=%d", confirmed, expired, orphaned)
	}
	if h.pub.orphaned[0].BookingID != b1.ID || h.pub.orphaned[0].SessionID != b1.PaymentSessionID {
		t.Errorf("orphaned event = %+v", h.pub.orphaned[0])
	}
}

func TestConfirmPayment_ConcurrentPathsConfirmOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.reserve(t, "u1", "B1")
	sessionID := h.booking(t, out.BookingID).PaymentSessionID

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := event.SourceWebhook
			if i%2 == 1 {
				source = event.SourcePoll
			}
			ok, err := h.paymentSvc.ConfirmPayment(ctx, ConfirmInput{BookingID: out.BookingID, SessionID: sessionID, Source: source})
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			if ok {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if changed != 1 {
		t.Errorf("calls that changed the booking = %d, want 1", changed)
	}
	if confirmed, _, _ := h.pub.counts(); confirmed != 1 {
		t.Errorf("confirmation events = %d, want 1", confirmed)
	}
	if !h.booking(t, out.BookingID).IsPaid {
		t.Error("booking not paid")
	}

	_, err := h.paymentSvc.ConfirmPayment(ctx, ConfirmInput{BookingID: "gone", SessionID: "cs_x", Source: event.SourcePoll})
	if !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("missing booking err = %v, want ErrBookingNotFound", err)
	}
	if _, _, orphaned := h.pub.counts(); orphaned != 1 {
		t.Errorf("orphaned events = %d, want 1", orphaned)
	}
}
