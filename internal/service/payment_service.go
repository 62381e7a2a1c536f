package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/payment"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// PaymentService turns provider confirmations into paid bookings. The
// webhook is authoritative; CheckPaymentStatus is the client-driven fallback.
type PaymentService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	CheckPaymentStatus(ctx context.Context, bookingID, userID string) (*PaymentStatusOutput, error)
	// ConfirmPayment marks the booking paid and notifies once. It reports
	// whether this call was the one that changed the booking.
	ConfirmPayment(ctx context.Context, in ConfirmInput) (bool, error)
}

type paymentService struct {
	shows    repository.ShowRepository
	bookings repository.BookingRepository
	gateway  payment.Gateway
	pub      EventPublisher
	clock    Clock
	l        logger.Logger
	payCfg   config.PaymentConfig
}

func NewPaymentService(
	shows repository.ShowRepository,
	bookings repository.BookingRepository,
	gateway payment.Gateway,
	pub EventPublisher,
	clock Clock,
	l logger.Logger,
	payCfg config.PaymentConfig,
) PaymentService {
	return &paymentService{
		shows:    shows,
		bookings: bookings,
		gateway:  gateway,
		pub:      pub,
		clock:    clock,
		l:        l,
		payCfg:   payCfg,
	}
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.l.Warnf(ctx, "service.paymentService.HandleWebhook: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch evt.Type {
	case payment.EventCheckoutCompleted:
		if evt.PaymentStatus != payment.PaymentStatusPaid {
			s.l.Infof(ctx, "service.paymentService.HandleWebhook: session %s completed with status %q, waiting", evt.SessionID, evt.PaymentStatus)
			return nil
		}
		bID := evt.Metadata[payment.MetadataBookingID]
		if bID == "" {
			s.l.Errorf(ctx, "service.paymentService.HandleWebhook: event %s: %v", evt.ID, ErrMissingBookingID)
			return ErrMissingBookingID
		}
		_, err := s.ConfirmPayment(ctx, ConfirmInput{
			BookingID:       bID,
			SessionID:       evt.SessionID,
			PaymentIntentID: evt.PaymentIntentID,
			Source:          event.SourceWebhook,
		})
		return err

	case payment.EventPaymentIntentSucceeded:
		sess, err := s.gateway.FindSessionByPaymentIntent(ctx, evt.PaymentIntentID)
		if err != nil {
			if errors.Is(err, payment.ErrSessionNotFound) {
				s.l.Warnf(ctx, "service.paymentService.HandleWebhook: no checkout session for payment intent %s", evt.PaymentIntentID)
				return nil
			}
			return gatewayErr(err)
		}
		bID := sess.BookingID()
		if bID == "" {
			// Not one of ours; checkout sessions we create always carry the id.
			s.l.Warnf(ctx, "service.paymentService.HandleWebhook: session %s has no booking id, ignoring", sess.ID)
			return nil
		}
		_, err = s.ConfirmPayment(ctx, ConfirmInput{
			BookingID:       bID,
			SessionID:       sess.ID,
			PaymentIntentID: evt.PaymentIntentID,
			Source:          event.SourceWebhook,
		})
		return err

	default:
		s.l.Debugf(ctx, "service.paymentService.HandleWebhook: ignoring event type %s", evt.Type)
		return nil
	}
}

func (s *paymentService) CheckPaymentStatus(ctx context.Context, bookingID, userID string) (*PaymentStatusOutput, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, storageErr(err)
	}

	if b.UserID != userID {
		return nil, ErrUnauthorized
	}
	if b.IsPaid {
		return &PaymentStatusOutput{IsPaid: true}, nil
	}

	sessionID := b.PaymentSessionID
	if sessionID == "" {
		sessionID = payment.SessionIDFromURL(b.PaymentLink)
	}
	if sessionID == "" {
		return &PaymentStatusOutput{}, nil
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		s.l.Errorf(ctx, "service.paymentService.CheckPaymentStatus: booking %s: %v", b.ID, err)
		return nil, gatewayErr(err)
	}
	if !sess.IsPaid() {
		return &PaymentStatusOutput{}, nil
	}

	if _, err := s.ConfirmPayment(ctx, ConfirmInput{
		BookingID: b.ID,
		SessionID: sess.ID,
		Source:    event.SourcePoll,
	}); err != nil {
		return nil, err
	}

	return &PaymentStatusOutput{IsPaid: true, Updated: true}, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, c ConfirmInput) (bool, error) {
	now := s.clock.Now()

	changed, err := s.bookings.MarkPaid(ctx, c.BookingID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.l.Errorf(ctx, "service.paymentService.ConfirmPayment: payment via %s for missing booking %s (session %s): needs operator review",
				c.Source, c.BookingID, c.SessionID)
			if err := s.pub.PublishPaymentOrphaned(ctx, event.PaymentOrphanedEvent{
				BookingID:       c.BookingID,
				SessionID:       c.SessionID,
				PaymentIntentID: c.PaymentIntentID,
				Source:          c.Source,
				DetectedAt:      now,
				Timestamp:       now,
			}); err != nil {
				s.l.Errorf(ctx, "service.paymentService.ConfirmPayment: publish orphaned payment %s: %v", c.BookingID, err)
			}
			return false, ErrBookingNotFound
		}
		return false, storageErr(err)
	}

	if !changed {
		s.l.Debugf(ctx, "service.paymentService.ConfirmPayment: booking %s already paid", c.BookingID)
		return false, nil
	}

	s.l.Infof(ctx, "service.paymentService.ConfirmPayment: booking %s paid via %s", c.BookingID, c.Source)
	s.notifyConfirmed(ctx, c, now)

	return true, nil
}

func (s *paymentService) notifyConfirmed(ctx context.Context, c ConfirmInput, paidAt time.Time) {
	b, err := s.bookings.GetBooking(ctx, c.BookingID)
	if err != nil {
		s.l.Errorf(ctx, "service.paymentService.notifyConfirmed: load booking %s: %v", c.BookingID, err)
		return
	}

	var show *models.Show
	if show, err = s.shows.GetShow(ctx, b.ShowID); err != nil {
		s.l.Warnf(ctx, "service.paymentService.notifyConfirmed: load show %s: %v", b.ShowID, err)
		show = &models.Show{ID: b.ShowID}
	}

	if err := s.pub.PublishBookingConfirmed(ctx, event.BookingConfirmedEvent{
		BookingID:  b.ID,
		UserID:     b.UserID,
		UserEmail:  b.UserEmail,
		ShowID:     b.ShowID,
		MovieTitle: show.MovieTitle,
		ShowTime:   show.StartTime,
		Seats:      b.BookedSeats,
		Amount:     b.Amount,
		Currency:   s.payCfg.Currency,
		Source:     c.Source,
		PaidAt:     paidAt,
		Timestamp:  s.clock.Now(),
	}); err != nil {
		s.l.Errorf(ctx, "service.paymentService.notifyConfirmed: publish confirmation of %s: %v", b.ID, err)
	}
}
