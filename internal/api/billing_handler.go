package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/middleware"
	"flacroncv-backend-go/internal/models"
)

// maxWebhookBytes bounds the raw webhook body; provider events are far smaller.
const maxWebhookBytes = 1 << 20

// PaymentHandler serves /payment.
type PaymentHandler struct {
	responder
	subscriptions core.SubscriptionService
	events        core.EventParser
}

func NewPaymentHandler(ss core.SubscriptionService, parser core.EventParser, logger *zap.Logger, production bool) *PaymentHandler {
	return &PaymentHandler{responder: newResponder(logger, production), subscriptions: ss, events: parser}
}

// Plans handles GET /payment/plans?currency=.
func (h *PaymentHandler) Plans(c *gin.Context) {
	plans, err := h.subscriptions.ListPlans(c.Request.Context(), c.Query("currency"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch subscription plans")
		return
	}
	ok(c, plans)
}

// Checkout handles POST /payment/checkout.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	var req models.CheckoutRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, core.ErrInvalidPlan.Message())
		return
	}
	url, err := h.subscriptions.CreateCheckout(c.Request.Context(), uid,
		c.GetString(middleware.ContextUserEmail), req.Plan, req.Currency)
	if err != nil {
		h.respondError(c, err, "Failed to create checkout session")
		return
	}
	ok(c, URLResponse{URL: url})
}

// Webhook handles POST /payment/webhook. It must see the body exactly as
// sent, so no JSON binding happens before verification. Only a verification
// failure answers 400 and only a store failure answers 500; everything else
// is acknowledged so the provider stops retrying.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		h.logger.Warn("Webhook body could not be read", zap.Error(err))
		badRequest(c, "Webhook Error: unreadable body")
		return
	}

	event, err := h.events.VerifyAndParse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("Webhook rejected", zap.Error(err))
		badRequest(c, "Webhook Error: "+err.Error())
		return
	}

	log := h.logger.With(zap.String("eventID", event.ID), zap.String("eventType", event.ProviderType))
	switch err := h.subscriptions.HandleEvent(c.Request.Context(), event); {
	case err == nil:
	case errors.Is(err, core.ErrOrphanEvent):
		log.Warn("Webhook event acknowledged without a matching user", zap.Error(err))
	case errors.Is(err, core.ErrExternalService):
		log.Error("Webhook event could not be applied, provider will retry", zap.Error(err))
		h.respondError(c, err, "Failed to process webhook")
		return
	default:
		log.Warn("Webhook event ignored", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Verify handles GET /payment/verify?session_id=.
func (h *PaymentHandler) Verify(c *gin.Context) {
	if _, found := callerID(c); !found {
		return
	}
	res, err := h.subscriptions.VerifyCheckout(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.respondError(c, err, "Failed to verify payment")
		return
	}
	ok(c, res)
}

// Unsubscribe handles POST /payment/unsubscribe.
func (h *PaymentHandler) Unsubscribe(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	status, err := h.subscriptions.Unsubscribe(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err, "Failed to cancel subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Subscription cancelled successfully",
		"stripeStatus": status,
	})
}
