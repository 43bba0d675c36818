package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ContentItem is the subset of the content service's item we care about
type ContentItem struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
}

// ContentClient talks to the content service that owns the items being
// promoted. Promotion flag updates are best effort; the booking ledger is
// the source of truth.
type ContentClient interface {
	// GetItem fetches an item, returning domain.ErrInvalidContentItem when
	// it does not exist.
	GetItem(ctx context.Context, id string) (*ContentItem, error)

	// MarkPromoted flags the item promoted until the given date. The
	// content service clears the flag itself once the date passes, so a
	// missed cleanup call cannot leave an item promoted forever.
	MarkPromoted(ctx context.Context, id string, until time.Time) error

	// ClearPromoted drops the promoted flag ahead of its expiry.
	ClearPromoted(ctx context.Context, id string) error
}

// HTTPContentClient implements ContentClient over the content service's
// REST API
type HTTPContentClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPContentClient creates a new HTTPContentClient
func NewHTTPContentClient(baseURL string, timeout time.Duration) *HTTPContentClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPContentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// GetItem fetches an item by id
func (c *HTTPContentClient) GetItem(ctx context.Context, id string) (*ContentItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "client.content.get_item")
	defer span.End()

	span.SetAttributes(attribute.String("content_item_id", id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/internal/items/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build content request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("content service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrInvalidContentItem
	case resp.StatusCode != http.StatusOK:
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("content service returned %s", resp.Status)
	}

	var item ContentItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode content item: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return &item, nil
}

// MarkPromoted flags the item promoted until the given date
func (c *HTTPContentClient) MarkPromoted(ctx context.Context, id string, until time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "client.content.mark_promoted")
	defer span.End()

	span.SetAttributes(
		attribute.String("content_item_id", id),
		attribute.String("promoted_until", until.Format(domain.DateLayout)),
	)

	body := fmt.Sprintf(`{"promoted":true,"promoted_until":%q}`, until.Format(domain.DateLayout))
	return c.putPromoted(ctx, span, id, body)
}

// ClearPromoted drops the promoted flag ahead of its expiry
func (c *HTTPContentClient) ClearPromoted(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "client.content.clear_promoted")
	defer span.End()

	span.SetAttributes(attribute.String("content_item_id", id))

	return c.putPromoted(ctx, span, id, `{"promoted":false}`)
}

func (c *HTTPContentClient) putPromoted(ctx context.Context, span trace.Span, id, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/internal/items/%s/promoted", c.baseURL, id), strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build content request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("content service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		span.SetStatus(codes.Error, resp.Status)
		return fmt.Errorf("content service returned %s", resp.Status)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// NoOpContentClient accepts every item and drops promotion updates. Used in
// tests and standalone deployments.
type NoOpContentClient struct{}

// NewNoOpContentClient creates a new NoOpContentClient
func NewNoOpContentClient() *NoOpContentClient {
	return &NoOpContentClient{}
}

// GetItem returns a stub item
func (c *NoOpContentClient) GetItem(ctx context.Context, id string) (*ContentItem, error) {
	return &ContentItem{ID: id}, nil
}

// MarkPromoted is a no-op
func (c *NoOpContentClient) MarkPromoted(ctx context.Context, id string, until time.Time) error {
	return nil
}

// ClearPromoted is a no-op
func (c *NoOpContentClient) ClearPromoted(ctx context.Context, id string) error {
	return nil
}

var (
	_ ContentClient = (*HTTPContentClient)(nil)
	_ ContentClient = (*NoOpContentClient)(nil)
)
