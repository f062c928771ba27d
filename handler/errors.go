package handler

import (
	"errors"
	"net/http"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// respondError maps a service error to an HTTP status, a user-facing message
// and a stable error key the frontend uses to pick a localized string.
// Unexpected errors get a generic message; the detail only goes to the log.
func respondError(c echo.Context, logger *logrus.Entry, err error) error {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, response{
			Success:  false,
			Message:  "validation failed",
			ErrorKey: "validation_error",
			Errors:   validationErr.Fields,
		})
	}

	var quotaErr *service.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.JSON(http.StatusPaymentRequired, response{
			Success:  false,
			Message:  "place limit reached",
			ErrorKey: "quota_exceeded",
			Data:     quotaErr.Snapshot,
		})
	}

	type mapping struct {
		status  int
		key     string
		message string
	}

	known := []struct {
		err error
		m   mapping
	}{
		{service.ErrUnauthorized, mapping{http.StatusUnauthorized, "unauthorized", "authentication required"}},
		{service.ErrForbidden, mapping{http.StatusForbidden, "forbidden", "you do not have permission to do that"}},
		{service.ErrListNotFound, mapping{http.StatusNotFound, "list_not_found", "list not found"}},
		{service.ErrDuplicatePlace, mapping{http.StatusConflict, "duplicate_place", "this place is already in the list"}},
		{service.ErrInvalidToken, mapping{http.StatusNotFound, "invalid_token", "share link not found"}},
		{service.ErrTokenInactive, mapping{http.StatusGone, "token_inactive", "this share link is no longer active"}},
		{service.ErrTokenExpired, mapping{http.StatusGone, "token_expired", "this share link has expired"}},
		{service.ErrTokenUsageLimit, mapping{http.StatusGone, "token_usage_limit", "this share link has reached its usage limit"}},
		{service.ErrSharedListLimit, mapping{http.StatusForbidden, "shared_list_limit", "free plan allows joining one shared list"}},
		{model.ErrUnknownPack, mapping{http.StatusBadRequest, "unknown_pack", "unknown credit pack"}},
		{model.ErrUnsupportedCurrency, mapping{http.StatusBadRequest, "unsupported_currency", "unsupported currency"}},
	}

	for _, entry := range known {
		if errors.Is(err, entry.err) {
			return c.JSON(entry.m.status, response{
				Success:  false,
				Message:  entry.m.message,
				ErrorKey: entry.m.key,
			})
		}
	}

	logger.Errorf("Unexpected error: %v", err)
	return c.JSON(http.StatusInternalServerError, response{
		Success:  false,
		Message:  "an unexpected error occurred",
		ErrorKey: "internal_error",
	})
}
