package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Stripe recommends capping webhook bodies at around 64KiB.
const maxWebhookBodySize = int64(65536)

// webhookError is how event handlers report a failure. The dispatcher turns
// it into the single error response; handlers never write to the connection
// themselves.
type webhookError struct {
	status  int
	message string
}

func (e *webhookError) Error() string { return e.message }

type webhookHandler struct {
	creditSvc        service.CreditService
	subscriptionRepo repository.SubscriptionRepository
}

func NewWebhookHandler(
	creditSvc service.CreditService,
	subscriptionRepo repository.SubscriptionRepository,
) *webhookHandler {
	return &webhookHandler{
		creditSvc:        creditSvc,
		subscriptionRepo: subscriptionRepo,
	}
}

// HandleStripeWebhook verifies and dispatches Stripe events. Duplicate
// deliveries of a payment are acknowledged as success so Stripe stops
// retrying.
func (h *webhookHandler) HandleStripeWebhook(c echo.Context) error {
	logger := logrus.WithField("endpoint", "stripe_webhook")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodySize))
	if err != nil {
		logger.Errorf("Error reading webhook body: %v", err)
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: "cannot read request body",
		})
	}

	endpointSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if endpointSecret == "" {
		logger.Error("STRIPE_WEBHOOK_SECRET is not set")
		return c.JSON(http.StatusInternalServerError, response{
			Success: false,
			Message: "webhook not configured",
		})
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.Request().Header.Get("Stripe-Signature"),
		endpointSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		logger.Errorf("Webhook signature verification failed: %v", err)
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: "signature verification failed",
		})
	}

	logger = logger.WithField("event_type", event.Type)

	var whErr *webhookError

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			logger.Errorf("Error parsing payment intent: %v", err)
			whErr = &webhookError{http.StatusBadRequest, "invalid payment intent payload"}
			break
		}
		whErr = h.handlePaymentSucceeded(c.Request().Context(), logger, &intent)

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			logger.Errorf("Error parsing subscription: %v", err)
			whErr = &webhookError{http.StatusBadRequest, "invalid subscription payload"}
			break
		}
		whErr = h.handleSubscriptionChange(c.Request().Context(), logger, &subscription)

	default:
		// Unhandled event types are acknowledged and ignored
	}

	if whErr != nil {
		return c.JSON(whErr.status, response{
			Success: false,
			Message: whErr.message,
		})
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "ok",
	})
}

func (h *webhookHandler) handlePaymentSucceeded(ctx context.Context, logger *logrus.Entry, intent *stripe.PaymentIntent) *webhookError {
	if intent.Metadata["type"] != "one_time_purchase" {
		return nil
	}

	userID, err := strconv.ParseUint(intent.Metadata["user_id"], 10, 64)
	if err != nil || userID == 0 {
		logger.Errorf("Payment intent %s has no usable user_id metadata", intent.ID)
		return &webhookError{http.StatusBadRequest, "missing user metadata"}
	}

	packID := intent.Metadata["plan_type"]

	_, err = h.creditSvc.RecordPurchase(ctx, uint(userID), packID, intent.ID)
	if err != nil {
		// Duplicate delivery: the credit is already granted, ack as success
		if errors.Is(err, service.ErrDuplicatePurchase) {
			logger.Infof("Duplicate webhook delivery for payment intent %s", intent.ID)
			return nil
		}
		logger.Errorf("Error recording purchase: %v", err)
		return &webhookError{http.StatusInternalServerError, "failed to record purchase"}
	}

	logger.Infof("Recorded credit purchase %s for user %d", packID, userID)
	return nil
}

func (h *webhookHandler) handleSubscriptionChange(ctx context.Context, logger *logrus.Entry, sub *stripe.Subscription) *webhookError {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	if customerID == "" {
		logger.Error("Subscription event missing customer id")
		return &webhookError{http.StatusBadRequest, "missing customer id"}
	}

	record, err := h.subscriptionRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		logger.Errorf("Error looking up subscription: %v", err)
		return &webhookError{http.StatusInternalServerError, "failed to load subscription"}
	}

	if record == nil {
		userID, parseErr := strconv.ParseUint(sub.Metadata["user_id"], 10, 64)
		if parseErr != nil || userID == 0 {
			// Unknown customer and no metadata to attribute it; nothing to update
			logger.Warnf("Subscription event for unknown customer %s", customerID)
			return nil
		}
		record = &model.Subscription{
			UserID:           uint(userID),
			StripeCustomerID: customerID,
		}
	}

	record.Status = string(sub.Status)
	record.StripeSubscriptionID = sub.ID
	if sub.CurrentPeriodEnd > 0 {
		periodEnd := time.Unix(sub.CurrentPeriodEnd, 0)
		record.CurrentPeriodEnd = &periodEnd
	}

	if err := h.subscriptionRepo.Upsert(ctx, record); err != nil {
		logger.Errorf("Error saving subscription: %v", err)
		return &webhookError{http.StatusInternalServerError, "failed to save subscription"}
	}

	logger.Infof("Subscription for customer %s is now %s", customerID, record.Status)
	return nil
}
