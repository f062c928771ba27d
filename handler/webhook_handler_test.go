package handler

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
)

const testWebhookSecret = "whsec_test_secret"

type recordedPurchase struct {
	userID          uint
	packID          string
	paymentIntentID string
}

type fakeCreditService struct {
	purchases []recordedPurchase
	err       error
}

func (f *fakeCreditService) RecordPurchase(_ context.Context, userID uint, packID, paymentIntentID string) (*model.CreditRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.purchases = append(f.purchases, recordedPurchase{userID, packID, paymentIntentID})
	return &model.CreditRecord{UserID: userID, CreditType: packID, StripePaymentIntentID: paymentIntentID}, nil
}

type fakeSubscriptionStore struct {
	byCustomer map[string]*model.Subscription
	upserted   []*model.Subscription
}

func (f *fakeSubscriptionStore) FindByUserID(_ context.Context, userID uint) (*model.Subscription, error) {
	for _, sub := range f.byCustomer {
		if sub.UserID == userID {
			return sub, nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptionStore) FindByStripeCustomerID(_ context.Context, customerID string) (*model.Subscription, error) {
	return f.byCustomer[customerID], nil
}

func (f *fakeSubscriptionStore) Upsert(_ context.Context, subscription *model.Subscription) error {
	if f.byCustomer == nil {
		f.byCustomer = map[string]*model.Subscription{}
	}
	f.byCustomer[subscription.StripeCustomerID] = subscription
	f.upserted = append(f.upserted, subscription)
	return nil
}

// signedWebhookRequest builds a request carrying a valid Stripe-Signature
// header for the given event payload.
func signedWebhookRequest(t *testing.T, payload string) *http.Request {
	t.Helper()

	now := time.Now()
	signature := webhook.ComputeSignature(now, []byte(payload), testWebhookSecret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Stripe-Signature", header)
	return req
}

func deliverWebhook(t *testing.T, h *webhookHandler, payload string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := signedWebhookRequest(t, payload)
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandleStripeWebhook(e.NewContext(req, rec)))
	return rec
}

func paymentIntentEvent(intentID, metadata string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": %q, "metadata": %s}}
	}`, intentID, metadata)
}

func TestHandleStripeWebhookPaymentSucceeded(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	t.Run("records a one time purchase", func(t *testing.T) {
		credits := &fakeCreditService{}
		h := NewWebhookHandler(credits, &fakeSubscriptionStore{})

		payload := paymentIntentEvent("pi_123", `{"type": "one_time_purchase", "user_id": "42", "plan_type": "small_pack"}`)
		rec := deliverWebhook(t, h, payload)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, credits.purchases, 1)
		assert.Equal(t, uint(42), credits.purchases[0].userID)
		assert.Equal(t, "small_pack", credits.purchases[0].packID)
		assert.Equal(t, "pi_123", credits.purchases[0].paymentIntentID)
	})

	t.Run("ignores payments that are not credit purchases", func(t *testing.T) {
		credits := &fakeCreditService{}
		h := NewWebhookHandler(credits, &fakeSubscriptionStore{})

		payload := paymentIntentEvent("pi_other", `{"type": "something_else"}`)
		rec := deliverWebhook(t, h, payload)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, credits.purchases)
	})

	t.Run("rejects purchase events without a user id", func(t *testing.T) {
		credits := &fakeCreditService{}
		h := NewWebhookHandler(credits, &fakeSubscriptionStore{})

		payload := paymentIntentEvent("pi_nouser", `{"type": "one_time_purchase", "plan_type": "small_pack"}`)
		rec := deliverWebhook(t, h, payload)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, credits.purchases)

		// The body must be a single error envelope, not an error envelope
		// with a success envelope appended after it.
		var body response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "missing user metadata", body.Message)
	})

	t.Run("reports a failed purchase write as a server error", func(t *testing.T) {
		credits := &fakeCreditService{err: errors.New("insert failed")}
		h := NewWebhookHandler(credits, &fakeSubscriptionStore{})

		payload := paymentIntentEvent("pi_fail", `{"type": "one_time_purchase", "user_id": "42", "plan_type": "small_pack"}`)
		rec := deliverWebhook(t, h, payload)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "failed to record purchase", body.Message)
	})

	t.Run("acknowledges duplicate deliveries as success", func(t *testing.T) {
		credits := &fakeCreditService{err: service.ErrDuplicatePurchase}
		h := NewWebhookHandler(credits, &fakeSubscriptionStore{})

		payload := paymentIntentEvent("pi_dup", `{"type": "one_time_purchase", "user_id": "42", "plan_type": "small_pack"}`)
		rec := deliverWebhook(t, h, payload)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects a tampered signature", func(t *testing.T) {
		h := NewWebhookHandler(&fakeCreditService{}, &fakeSubscriptionStore{})

		payload := paymentIntentEvent("pi_bad", `{"type": "one_time_purchase", "user_id": "42", "plan_type": "small_pack"}`)
		e := echo.New()
		req := signedWebhookRequest(t, payload)
		req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
		rec := httptest.NewRecorder()
		require.NoError(t, h.HandleStripeWebhook(e.NewContext(req, rec)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleStripeWebhookSubscriptionChange(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	subscriptionEvent := func(eventType, customerID, status, metadata string) string {
		return fmt.Sprintf(`{
			"id": "evt_sub",
			"type": %q,
			"data": {"object": {
				"id": "sub_1",
				"customer": {"id": %q},
				"status": %q,
				"current_period_end": 1893456000,
				"metadata": %s
			}}
		}`, eventType, customerID, status, metadata)
	}

	t.Run("updates an existing subscription", func(t *testing.T) {
		store := &fakeSubscriptionStore{byCustomer: map[string]*model.Subscription{
			"cus_1": {UserID: 7, StripeCustomerID: "cus_1", Status: "trialing"},
		}}
		h := NewWebhookHandler(&fakeCreditService{}, store)

		rec := deliverWebhook(t, h, subscriptionEvent("customer.subscription.updated", "cus_1", "active", `{}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, store.upserted, 1)
		assert.Equal(t, uint(7), store.upserted[0].UserID)
		assert.Equal(t, "active", store.upserted[0].Status)
		assert.Equal(t, "sub_1", store.upserted[0].StripeSubscriptionID)
		require.NotNil(t, store.upserted[0].CurrentPeriodEnd)
	})

	t.Run("attributes an unknown customer via metadata", func(t *testing.T) {
		store := &fakeSubscriptionStore{}
		h := NewWebhookHandler(&fakeCreditService{}, store)

		rec := deliverWebhook(t, h, subscriptionEvent("customer.subscription.created", "cus_new", "active", `{"user_id": "9"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, store.upserted, 1)
		assert.Equal(t, uint(9), store.upserted[0].UserID)
		assert.Equal(t, "cus_new", store.upserted[0].StripeCustomerID)
	})

	t.Run("skips an unknown customer without metadata", func(t *testing.T) {
		store := &fakeSubscriptionStore{}
		h := NewWebhookHandler(&fakeCreditService{}, store)

		rec := deliverWebhook(t, h, subscriptionEvent("customer.subscription.updated", "cus_ghost", "active", `{}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, store.upserted)
	})

	t.Run("rejects a subscription event without a customer", func(t *testing.T) {
		store := &fakeSubscriptionStore{}
		h := NewWebhookHandler(&fakeCreditService{}, store)

		payload := `{
			"id": "evt_sub",
			"type": "customer.subscription.updated",
			"data": {"object": {"id": "sub_1", "status": "active", "metadata": {}}}
		}`
		rec := deliverWebhook(t, h, payload)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, store.upserted)

		var body response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "missing customer id", body.Message)
	})

	t.Run("marks a deleted subscription canceled", func(t *testing.T) {
		store := &fakeSubscriptionStore{byCustomer: map[string]*model.Subscription{
			"cus_1": {UserID: 7, StripeCustomerID: "cus_1", Status: "active"},
		}}
		h := NewWebhookHandler(&fakeCreditService{}, store)

		rec := deliverWebhook(t, h, subscriptionEvent("customer.subscription.deleted", "cus_1", "canceled", `{}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, store.upserted, 1)
		assert.Equal(t, "canceled", store.upserted[0].Status)
	})
}
