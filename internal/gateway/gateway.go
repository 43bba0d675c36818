package gateway

import (
	"context"
	"time"
)

// CheckoutGateway defines the interface for the hosted checkout provider
type CheckoutGateway interface {
	// CreateSession creates a hosted checkout session for a booking. The
	// returned session reference is stored on the booking so webhook events
	// can be correlated back to it.
	CreateSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResponse, error)

	// ExpireSession asks the provider to expire a still-open session.
	// Best effort; an already completed or expired session is not an error.
	ExpireSession(ctx context.Context, sessionRef string) error

	// Name returns the gateway name
	Name() string
}

// CheckoutSessionRequest represents a checkout session request
type CheckoutSessionRequest struct {
	BookingID   string
	Amount      int64 // minor units
	Currency    string
	Description string
	Metadata    map[string]string

	// CustomerEmail pre-fills the payment page when known
	CustomerEmail string
}

// CheckoutSessionResponse represents a created checkout session
type CheckoutSessionResponse struct {
	SessionRef  string
	RedirectURL string
	ExpiresAt   time.Time
}

// Config holds common gateway configuration
type Config struct {
	Provider      string // "stripe" or "mock"
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	// SessionTTL bounds how long a hosted session stays payable
	SessionTTL time.Duration
}
