package gateway

import "fmt"

// NewGateway creates a CheckoutGateway based on the configured provider
func NewGateway(config *Config) (CheckoutGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("gateway config is required")
	}

	switch config.Provider {
	case "stripe":
		return NewStripeGateway(config)
	case "mock", "":
		return NewMockGateway(config.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown checkout gateway provider: %s", config.Provider)
	}
}
