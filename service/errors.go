package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
)

// Sentinel errors for the quota and permission flows. Handlers map each one to
// an HTTP status and a stable error key for localized messaging; none of them
// is ever retried inside this layer.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("insufficient permission")
	ErrListNotFound = errors.New("list not found")

	ErrDuplicatePlace    = errors.New("place already registered in this list")
	ErrDuplicatePurchase = errors.New("purchase already recorded")

	ErrInvalidToken    = errors.New("share token not found")
	ErrTokenInactive   = errors.New("share token is inactive")
	ErrTokenExpired    = errors.New("share token has expired")
	ErrTokenUsageLimit = errors.New("share token usage limit reached")
	ErrSharedListLimit = errors.New("shared list limit reached for free plan")
)

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, field := range keys {
		parts[i] = field + ": " + e.Fields[field]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// QuotaExceededError carries the current totals so the UI can prompt a
// purchase or upgrade.
type QuotaExceededError struct {
	Snapshot model.AvailabilitySnapshot
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("place quota exceeded: %d of %d used", e.Snapshot.UsedPlaces, e.Snapshot.TotalLimit)
}
