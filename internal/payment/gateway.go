package payment

import (
	"context"
	"errors"
	"regexp"
	"time"
)

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"

	PaymentStatusPaid = "paid"

	MetadataBookingID = "bookingId"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSessionNotFound  = errors.New("payment session not found")
)

// Gateway creates hosted checkout sessions and decodes provider callbacks.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ExpireSession(ctx context.Context, id string) error
	FindSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

type SessionRequest struct {
	BookingID   string
	Amount      int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	ExpiresAt   time.Time
}

type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

func (s *Session) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

func (s *Session) BookingID() string {
	return s.Metadata[MetadataBookingID]
}

// Event is the provider-neutral view of a webhook delivery.
type Event struct {
	ID              string
	Type            string
	SessionID       string
	PaymentStatus   string
	PaymentIntentID string
	Metadata        map[string]string
}

var sessionIDPattern = regexp.MustCompile(`cs_(?:test|live)_[A-Za-z0-9]+`)

// SessionIDFromURL extracts the checkout session id embedded in a hosted
// checkout URL, or "" if there is none.
func SessionIDFromURL(url string) string {
	return sessionIDPattern.FindString(url)
}
