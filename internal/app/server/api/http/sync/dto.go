package sync

import (
	"net/http"

	"pantrykeeper/internal/domain/sync"
)

type pullInput struct {
	LastSyncedAt string `query:"lastSyncedAt" required:"false" doc:"Client watermark, RFC 3339. Omit for a full payload."`
}

type pullOutput struct {
	Body sync.PullResponse
}

type pushInput struct {
	Body sync.PushRequest
}

type pushOutput struct {
	Body sync.PushResponse
}

type migrateInput struct {
	Body sync.MigrateRequest
}

type migrateOutput struct {
	Body sync.MigrateResponse
}

// Error codes surfaced to clients alongside the HTTP status.
const (
	codeCookwareLimit       = "COOKWARE_LIMIT_REACHED"
	codeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
	codeMissingData         = "MISSING_DATA"
)

// gateError is the structured error body for feature-gate and input
// rejections. It satisfies huma.StatusError so huma serializes it as-is.
type gateError struct {
	status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Limit   int    `json:"limit,omitempty"`
	Count   int    `json:"count,omitempty"`
	Feature string `json:"feature,omitempty"`
}

func (e *gateError) Error() string  { return e.Message }
func (e *gateError) GetStatus() int { return e.status }

func cookwareLimitError(limit, count int) error {
	return &gateError{
		status:  http.StatusForbidden,
		Code:    codeCookwareLimit,
		Message: "cookware limit reached",
		Limit:   limit,
		Count:   count,
	}
}

func featureNotAvailableError(feature string) error {
	return &gateError{
		status:  http.StatusForbidden,
		Code:    codeFeatureNotAvailable,
		Message: "feature not available on current plan",
		Feature: feature,
	}
}

func missingDataError() error {
	return &gateError{
		status:  http.StatusBadRequest,
		Code:    codeMissingData,
		Message: "request body must contain a data payload",
	}
}
