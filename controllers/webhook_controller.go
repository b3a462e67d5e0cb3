package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// WebhookController receives asynchronous provider callbacks. Stripe retries
// on non-2xx, so events we cannot act on (unknown reference, stale state) are
// acknowledged rather than bounced.
type WebhookController struct {
	Stripe   WebhookParser
	Checkout CheckoutAPI
	Refunds  RefundAPI
	Logger   *zap.Logger
}

func (wc *WebhookController) HandleStripeWebhook(c *gin.Context) {
	event, err := wc.Stripe.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("Rejected Stripe webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		wc.paymentIntentSucceeded(c, event)
	case "refund.updated":
		wc.refundUpdated(c, event)
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// paymentIntentSucceeded finalizes the checkout session tied to the payment
// intent. Duplicate deliveries converge on the already-created order.
func (wc *WebhookController) paymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		wc.Logger.Error("Failed to decode payment intent event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
		return
	}

	order, svcErr := wc.Checkout.FinalizeByProviderReference(c.Request.Context(), pi.ID)
	if svcErr != nil {
		if svcErr.StatusCode >= 500 {
			c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
			return
		}
		// Already finalized, session expired, or reference unknown. Ack so
		// Stripe stops retrying; the reconciler covers genuine stragglers.
		wc.Logger.Info("Payment intent webhook not actionable",
			zap.String("payment_intent_id", pi.ID),
			zap.String("reason", svcErr.Message),
		)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "orderId": order.ID})
}

func (wc *WebhookController) refundUpdated(c *gin.Context, event stripe.Event) {
	var r stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &r); err != nil {
		wc.Logger.Error("Failed to decode refund event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
		return
	}
	if r.Status != stripe.RefundStatusSucceeded {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	orderID, err := uuid.Parse(r.Metadata["order_id"])
	if err != nil {
		// Refund issued outside this service, nothing to correlate.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if svcErr := wc.Refunds.HandleRefundCompleted(c.Request.Context(), orderID, r.ID); svcErr != nil {
		if svcErr.StatusCode >= 500 {
			c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
