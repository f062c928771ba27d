package handler

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

type billingHandler struct {
	availabilitySvc  service.AvailabilityService
	creditRepo       repository.CreditRepository
	subscriptionRepo repository.SubscriptionRepository
}

func NewBillingHandler(
	availabilitySvc service.AvailabilityService,
	creditRepo repository.CreditRepository,
	subscriptionRepo repository.SubscriptionRepository,
) *billingHandler {
	return &billingHandler{
		availabilitySvc:  availabilitySvc,
		creditRepo:       creditRepo,
		subscriptionRepo: subscriptionRepo,
	}
}

type billingResponse struct {
	Availability model.AvailabilitySnapshot   `json:"availability"`
	Credits      []model.CreditRecordResponse `json:"credits"`
}

// GetBilling is the read-only projection behind the billing page: the current
// availability snapshot plus the purchased-pack breakdown.
func (h *billingHandler) GetBilling(c echo.Context) error {
	logger := logrus.WithField("endpoint", "get_billing")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	snapshot, err := h.availabilitySvc.Snapshot(c.Request().Context(), userClaims.ID)
	if err != nil {
		logger.Errorf("Error computing availability: %v", err)
		return respondError(c, logger, err)
	}

	records, err := h.creditRepo.FindByUserID(c.Request().Context(), userClaims.ID)
	if err != nil {
		logger.Errorf("Error loading credit records: %v", err)
		return respondError(c, logger, err)
	}

	credits := make([]model.CreditRecordResponse, len(records))
	for i := range records {
		credits[i] = records[i].ToCreditRecordResponse()
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data: billingResponse{
			Availability: snapshot,
			Credits:      credits,
		},
	})
}

type checkoutRequest struct {
	PlanType  string `json:"plan_type"`
	Currency  string `json:"currency"`
	Locale    string `json:"locale"`
	ReturnURL string `json:"return_url"`
}

// CreateCheckoutSession starts a Stripe Checkout for a one-time credit pack.
// The pack and currency are validated before Stripe is contacted; JPY amounts
// are whole units, everything else is charged in minor units.
func (h *billingHandler) CreateCheckoutSession(c echo.Context) error {
	logger := logrus.WithField("endpoint", "create_checkout_session")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		logger.Errorf("Error parsing request: %v", err)
		return c.JSON(http.StatusBadRequest, response{
			Success: false,
			Message: "invalid request body",
		})
	}

	currency := model.Currency(strings.ToLower(req.Currency))
	if req.Currency == "" {
		currency = model.InferCurrency(req.Locale)
	}

	pack, err := model.PackDefinitionFor(req.PlanType)
	if err != nil {
		return respondError(c, logger, err)
	}

	amount, err := model.StripeAmount(req.PlanType, currency)
	if err != nil {
		return respondError(c, logger, err)
	}

	frontendURL := strings.TrimRight(os.Getenv("FRONTEND_URL"), "/")
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = frontendURL + "/billing"
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		logger.Error("STRIPE_SECRET_KEY is not set")
		return c.JSON(http.StatusInternalServerError, response{
			Success: false,
			Message: "billing not configured",
		})
	}

	metadata := map[string]string{
		"type":         "one_time_purchase",
		"user_id":      fmt.Sprintf("%d", userClaims.ID),
		"plan_type":    req.PlanType,
		"currency":     string(currency),
		"places_count": fmt.Sprintf("%d", pack.PlacesGranted),
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(currency)),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("ClippyMap credit pack (%d places)", pack.PlacesGranted)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		Metadata:   metadata,
		SuccessURL: stripe.String(returnURL + "?checkout=success"),
		CancelURL:  stripe.String(returnURL + "?checkout=cancelled"),
	}

	sess, err := session.New(params)
	if err != nil {
		logger.Errorf("Stripe checkout session failed: %v", err)
		return c.JSON(http.StatusInternalServerError, response{
			Success:  false,
			Message:  "failed to create checkout session",
			ErrorKey: "checkout_failed",
		})
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data: map[string]string{
			"url": sess.URL,
		},
	})
}

// CreatePortalSession opens the Stripe customer portal for subscription
// management.
func (h *billingHandler) CreatePortalSession(c echo.Context) error {
	logger := logrus.WithField("endpoint", "create_portal_session")

	userClaims, err := authSession(c)
	if err != nil {
		return respondError(c, logger, service.ErrUnauthorized)
	}

	subscription, err := h.subscriptionRepo.FindByUserID(c.Request().Context(), userClaims.ID)
	if err != nil {
		return respondError(c, logger, err)
	}
	if subscription == nil || subscription.StripeCustomerID == "" {
		return c.JSON(http.StatusBadRequest, response{
			Success:  false,
			Message:  "no billing account for this user",
			ErrorKey: "no_billing_account",
		})
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	frontendURL := strings.TrimRight(os.Getenv("FRONTEND_URL"), "/")

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(subscription.StripeCustomerID),
		ReturnURL: stripe.String(frontendURL + "/billing"),
	}

	sess, err := portal.New(params)
	if err != nil {
		logger.Errorf("Stripe portal session failed: %v", err)
		return c.JSON(http.StatusInternalServerError, response{
			Success:  false,
			Message:  "failed to create portal session",
			ErrorKey: "portal_failed",
		})
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Data: map[string]string{
			"url": sess.URL,
		},
	})
}
