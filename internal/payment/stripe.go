package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// Amounts are kept in major currency units; Stripe wants minor units.
const minorUnitsPerMajor = 100

type stripeGateway struct {
	api           *client.API
	webhookSecret string
	l             logger.Logger
}

func NewStripeGateway(secretKey, webhookSecret string, l logger.Logger) Gateway {
	return &stripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		l:             l,
	}
}

func (g *stripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(req.Amount * minorUnitsPerMajor),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	params.Context = ctx
	params.AddMetadata(MetadataBookingID, req.BookingID)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.l.Errorf(ctx, "payment.stripeGateway.CreateSession: booking %s: %v", req.BookingID, err)
		return nil, err
	}

	return toSession(s), nil
}

func (g *stripeGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionNotFound
		}
		g.l.Errorf(ctx, "payment.stripeGateway.GetSession: %s: %v", id, err)
		return nil, err
	}

	return toSession(s), nil
}

func (g *stripeGateway) ExpireSession(ctx context.Context, id string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	if _, err := g.api.CheckoutSessions.Expire(id, params); err != nil {
		g.l.Warnf(ctx, "payment.stripeGateway.ExpireSession: %s: %v", id, err)
		return err
	}

	return nil
}

func (g *stripeGateway) FindSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*Session, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	it := g.api.CheckoutSessions.List(params)
	if it.Next() {
		return toSession(it.CheckoutSession()), nil
	}
	if err := it.Err(); err != nil {
		g.l.Errorf(ctx, "payment.stripeGateway.FindSessionByPaymentIntent: %s: %v", paymentIntentID, err)
		return nil, err
	}

	return nil, ErrSessionNotFound
}

func (g *stripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{
		ID:   evt.ID,
		Type: string(evt.Type),
	}
	if evt.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.SessionID = s.ID
		out.PaymentStatus = string(s.PaymentStatus)
		out.Metadata = s.Metadata
		if s.PaymentIntent != nil {
			out.PaymentIntentID = s.PaymentIntent.ID
		}
	case EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.Metadata = pi.Metadata
	}

	return out, nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
}

func isNotFound(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound
}
