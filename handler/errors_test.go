package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
)

func invokeRespondError(t *testing.T, err error) (int, response) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, respondError(c, logrus.WithField("endpoint", "test"), err))

	var body response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKey    string
	}{
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"list not found", service.ErrListNotFound, http.StatusNotFound, "list_not_found"},
		{"duplicate place", service.ErrDuplicatePlace, http.StatusConflict, "duplicate_place"},
		{"invalid token", service.ErrInvalidToken, http.StatusNotFound, "invalid_token"},
		{"inactive token", service.ErrTokenInactive, http.StatusGone, "token_inactive"},
		{"expired token", service.ErrTokenExpired, http.StatusGone, "token_expired"},
		{"token usage limit", service.ErrTokenUsageLimit, http.StatusGone, "token_usage_limit"},
		{"shared list limit", service.ErrSharedListLimit, http.StatusForbidden, "shared_list_limit"},
		{"unknown pack", model.ErrUnknownPack, http.StatusBadRequest, "unknown_pack"},
		{"unsupported currency", model.ErrUnsupportedCurrency, http.StatusBadRequest, "unsupported_currency"},
		{"unexpected error", errors.New("connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := invokeRespondError(t, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKey, body.ErrorKey)
			assert.False(t, body.Success)
		})
	}

	t.Run("validation error carries field messages", func(t *testing.T) {
		status, body := invokeRespondError(t, &service.ValidationError{
			Fields: map[string]string{"name": "is required"},
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "validation_error", body.ErrorKey)
		assert.Equal(t, "is required", body.Errors["name"])
	})

	t.Run("quota exceeded carries the snapshot", func(t *testing.T) {
		status, body := invokeRespondError(t, &service.QuotaExceededError{
			Snapshot: model.AvailabilitySnapshot{
				Plan:       model.PlanFree,
				TotalLimit: 30,
				UsedPlaces: 30,
			},
		})
		assert.Equal(t, http.StatusPaymentRequired, status)
		assert.Equal(t, "quota_exceeded", body.ErrorKey)
		require.NotNil(t, body.Data)
	})

	t.Run("unexpected errors hide detail from the client", func(t *testing.T) {
		_, body := invokeRespondError(t, errors.New("pq: password authentication failed"))
		assert.NotContains(t, body.Message, "password")
	})
}
