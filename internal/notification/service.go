package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"github.com/vogiaan1904/quickseat-booking/pkg/mailer"
	"github.com/vogiaan1904/quickseat-booking/pkg/util"
)

const (
	qrName = "booking-qr.png"
	qrSize = 256
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Service turns booking events into e-mails. Callers treat every error as
// non-fatal: a booking is confirmed whether or not the mail goes out.
type Service interface {
	SendBookingConfirmation(ctx context.Context, evt event.BookingConfirmedEvent) error
	SendPaymentOrphanedAlert(ctx context.Context, evt event.PaymentOrphanedEvent) error
}

type Config struct {
	OpsEmail     string
	ClientOrigin string
	Timezone     string
}

type service struct {
	sender mailer.Sender
	l      logger.Logger
	cfg    Config
	loc    *time.Location
}

func NewService(sender mailer.Sender, l logger.Logger, cfg Config) (Service, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	return &service{
		sender: sender,
		l:      l,
		cfg:    cfg,
		loc:    loc,
	}, nil
}

type confirmationData struct {
	BookingID   string
	MovieTitle  string
	ShowTime    string
	Seats       string
	Amount      string
	QRName      string
	BookingsURL string
}

func (s *service) SendBookingConfirmation(ctx context.Context, evt event.BookingConfirmedEvent) error {
	if evt.UserEmail == "" {
		s.l.Warnf(ctx, "notification.service.SendBookingConfirmation: booking %s has no e-mail, skipping", evt.BookingID)
		return nil
	}

	qr, err := GenerateQRCode(evt.BookingID, qrSize)
	if err != nil {
		s.l.Errorf(ctx, "notification.service.SendBookingConfirmation: %v", err)
		return err
	}

	title := evt.MovieTitle
	if title == "" {
		title = "your show"
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, "booking_confirmed.html", confirmationData{
		BookingID:   evt.BookingID,
		MovieTitle:  title,
		ShowTime:    util.FormatLocal(evt.ShowTime, s.loc),
		Seats:       strings.Join(evt.Seats, ", "),
		Amount:      formatAmount(evt.Amount, evt.Currency),
		QRName:      qrName,
		BookingsURL: s.cfg.ClientOrigin + "/my-bookings",
	}); err != nil {
		s.l.Errorf(ctx, "notification.service.SendBookingConfirmation: render: %v", err)
		return err
	}

	if err := s.sender.Send(ctx, mailer.Message{
		To:      []string{evt.UserEmail},
		Subject: fmt.Sprintf("Booking confirmed: %s", title),
		HTML:    body.String(),
		Inline:  []mailer.Attachment{{Name: qrName, ContentType: "image/png", Data: qr}},
	}); err != nil {
		s.l.Errorf(ctx, "notification.service.SendBookingConfirmation: send to %s: %v", evt.UserEmail, err)
		return err
	}

	s.l.Infof(ctx, "notification.service.SendBookingConfirmation: sent booking %s to %s", evt.BookingID, evt.UserEmail)

	return nil
}

func (s *service) SendPaymentOrphanedAlert(ctx context.Context, evt event.PaymentOrphanedEvent) error {
	if s.cfg.OpsEmail == "" {
		s.l.Errorf(ctx, "notification.service.SendPaymentOrphanedAlert: no ops address configured; booking %s session %s needs a manual refund",
			evt.BookingID, evt.SessionID)
		return nil
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, "payment_orphaned.html", struct {
		BookingID       string
		SessionID       string
		PaymentIntentID string
		Source          string
		DetectedAt      string
	}{
		BookingID:       evt.BookingID,
		SessionID:       evt.SessionID,
		PaymentIntentID: evt.PaymentIntentID,
		Source:          evt.Source,
		DetectedAt:      util.FormatLocal(evt.DetectedAt, s.loc),
	}); err != nil {
		s.l.Errorf(ctx, "notification.service.SendPaymentOrphanedAlert: render: %v", err)
		return err
	}

	if err := s.sender.Send(ctx, mailer.Message{
		To:      []string{s.cfg.OpsEmail},
		Subject: fmt.Sprintf("[action needed] payment for missing booking %s", evt.BookingID),
		HTML:    body.String(),
	}); err != nil {
		s.l.Errorf(ctx, "notification.service.SendPaymentOrphanedAlert: %v", err)
		return err
	}

	return nil
}

func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%s %d", strings.ToUpper(currency), amount)
}
