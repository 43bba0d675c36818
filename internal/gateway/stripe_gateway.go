package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

const defaultSessionTTL = 30 * time.Minute

// StripeGateway implements CheckoutGateway using Stripe hosted Checkout
type StripeGateway struct {
	config *Config
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *Config) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaultSessionTTL
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// CreateSession creates a hosted Checkout Session for the booking
func (g *StripeGateway) CreateSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("checkout session request is required")
	}
	if req.BookingID == "" {
		return nil, fmt.Errorf("booking ID is required")
	}

	expiresAt := time.Now().Add(g.config.SessionTTL)

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.config.SuccessURL),
		CancelURL:  stripe.String(g.config.CancelURL),
		ExpiresAt:  stripe.Int64(expiresAt.Unix()),
		Metadata:   map[string]string{"booking_id": req.BookingID},
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSessionResponse{
		SessionRef:  s.ID,
		RedirectURL: s.URL,
		ExpiresAt:   time.Unix(s.ExpiresAt, 0).UTC(),
	}, nil
}

// ExpireSession expires a still-open Checkout Session
func (g *StripeGateway) ExpireSession(ctx context.Context, sessionRef string) error {
	if sessionRef == "" {
		return fmt.Errorf("session ref is required")
	}

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := session.Expire(sessionRef, params); err != nil {
		return fmt.Errorf("failed to expire checkout session: %w", err)
	}
	return nil
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// Ensure StripeGateway implements CheckoutGateway
var _ CheckoutGateway = (*StripeGateway)(nil)
