package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nitikorn/featured-slots/internal/service"
	"github.com/nitikorn/featured-slots/pkg/logger"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookHandler handles Stripe checkout webhook events
type WebhookHandler struct {
	reconciler    service.ReconcilerService
	webhookSecret string
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(reconciler service.ReconcilerService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		reconciler:    reconciler,
		webhookSecret: webhookSecret,
	}
}

// HandleStripeWebhook handles POST /featured/webhooks/checkout.
// After the signature verifies, every outcome is acknowledged with 200 so
// the provider stops retrying; failures on our side are logged and left to
// the sweeper.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	log := logger.Get()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to read webhook body: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		log.Warn("Missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to verify webhook signature: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	log.Info(fmt.Sprintf("Received checkout webhook event: %s", event.Type))

	switch event.Type {
	case "checkout.session.completed":
		h.handleSessionCompleted(c, event)
	case "checkout.session.expired":
		h.handleSessionExpired(c, event)
	default:
		log.Info(fmt.Sprintf("Unhandled event type: %s", event.Type))
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "Event type not handled"})
	}
}

// handleSessionCompleted handles a paid checkout session
func (h *WebhookHandler) handleSessionCompleted(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Error(fmt.Sprintf("Failed to parse checkout.session.completed: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	paymentRef := ""
	if session.PaymentIntent != nil {
		paymentRef = session.PaymentIntent.ID
	}

	log.Info(fmt.Sprintf("Checkout completed: session=%s, booking_id=%s, amount=%d %s",
		session.ID, session.Metadata["booking_id"], session.AmountTotal, session.Currency))

	if err := h.reconciler.HandleCheckoutCompleted(c.Request.Context(), session.ID, paymentRef); err != nil {
		log.Error(fmt.Sprintf("Failed to reconcile completed session %s: %v", session.ID, err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleSessionExpired handles a checkout session that lapsed unpaid
func (h *WebhookHandler) handleSessionExpired(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Error(fmt.Sprintf("Failed to parse checkout.session.expired: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	log.Info(fmt.Sprintf("Checkout expired: session=%s, booking_id=%s",
		session.ID, session.Metadata["booking_id"]))

	if err := h.reconciler.HandleCheckoutExpired(c.Request.Context(), session.ID); err != nil {
		log.Error(fmt.Sprintf("Failed to reconcile expired session %s: %v", session.ID, err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
