package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError means the deployment is missing something the operator
// has to provide (credential, endpoint). Detected before any network call.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// InvalidRequestError means the caller sent an incomplete request.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// UpstreamError represents a non-success HTTP response from the provider.
type UpstreamError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Message)
}

// StatusCode maps an error to the HTTP status reported to callers.
func StatusCode(err error) int {
	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest
	}
	var up *UpstreamError
	if errors.As(err, &up) && up.StatusCode > 0 {
		return up.StatusCode
	}
	return http.StatusInternalServerError
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Message
	}
	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return invalid.Message
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Message
	}
	return err.Error()
}

// Kind names the error class; used as a metrics label and in logs.
func Kind(err error) string {
	if err == nil {
		return "success"
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return "configuration"
	}
	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return "invalid_request"
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return "upstream"
	}
	return "unexpected"
}
