package stripe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

const maxBodyBytes = int64(65536)

// processingDeadline stays under Stripe's delivery timeout so a slow
// attempt surfaces as a retryable failure on our side instead of a
// duplicated in-flight delivery. Redelivery is safe: every transition is
// an idempotent upsert.
const processingDeadline = 25 * time.Second

// WebhookHandler is the event ingestion gateway: it authenticates the
// payload, decodes the envelope into a typed event and hands it to the
// reconciliation engine.
type WebhookHandler struct {
	engine *subscription.Engine
	secret string
}

func NewWebhookHandler(engine *subscription.Engine, secret string) *WebhookHandler {
	return &WebhookHandler{engine: engine, secret: secret}
}

// Handle processes a signed Stripe event
// @Summary Stripe webhook endpoint
// @Description Receive signed payment-processor events and reconcile the subscription record
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "received: true"
// @Failure 400 {object} map[string]string "error: signature verification failed"
// @Failure 500 {object} map[string]string "error: processing failed, processor retries"
// @Router /stripe/webhook [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not read request body"})
		return
	}

	if h.secret == "" {
		utils.LogError(nil, "STRIPE_WEBHOOK_SECRET is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(payload, sig, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		utils.LogError(err, "Stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	ev, handled, err := subscription.DecodeEvent(event)
	if err != nil {
		// A known event type we cannot decode will never decode on
		// redelivery either; acknowledge and keep the payload in the logs.
		utils.LogError(err, "Undecodable "+string(event.Type)+" event "+event.ID)
		c.JSON(http.StatusOK, gin.H{"received": true, "skipped": true})
		return
	}
	if !handled {
		utils.LogInfo("Ignoring unhandled event type " + string(event.Type))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), processingDeadline)
	defer cancel()

	result, err := h.engine.Process(ctx, ev)
	if err != nil {
		// Store failures are retryable: a 5xx makes the processor redeliver
		// with its own backoff.
		utils.LogError(err, "Event "+string(event.Type)+" failed, asking processor to retry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	if !result.Applied {
		c.JSON(http.StatusOK, gin.H{"received": true, "skipped": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
