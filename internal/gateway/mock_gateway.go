package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGateway implements CheckoutGateway for testing and load testing
type MockGateway struct {
	mu       sync.RWMutex
	sessions map[string]*CheckoutSessionResponse
	ttl      time.Duration

	// FailNext forces the next CreateSession call to fail, simulating a
	// provider outage.
	failNext bool
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(ttl time.Duration) *MockGateway {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MockGateway{
		sessions: make(map[string]*CheckoutSessionResponse),
		ttl:      ttl,
	}
}

// CreateSession creates a mock checkout session
func (g *MockGateway) CreateSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("checkout session request is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failNext {
		g.failNext = false
		return nil, fmt.Errorf("mock gateway unavailable")
	}

	ref := fmt.Sprintf("mock_cs_%s", uuid.New().String()[:8])
	resp := &CheckoutSessionResponse{
		SessionRef:  ref,
		RedirectURL: fmt.Sprintf("https://checkout.example.test/pay/%s", ref),
		ExpiresAt:   time.Now().Add(g.ttl).UTC(),
	}
	g.sessions[ref] = resp
	return resp, nil
}

// ExpireSession removes a mock session
func (g *MockGateway) ExpireSession(ctx context.Context, sessionRef string) error {
	if sessionRef == "" {
		return fmt.Errorf("session ref is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, sessionRef)
	return nil
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

// FailNext makes the next CreateSession call fail (for testing)
func (g *MockGateway) FailNext() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = true
}

// SessionCount returns how many sessions are open (for testing)
func (g *MockGateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Ensure MockGateway implements CheckoutGateway
var _ CheckoutGateway = (*MockGateway)(nil)
