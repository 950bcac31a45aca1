// Package apperr holds the sentinel errors shared by the data layer and the
// HTTP edge, and maps arbitrary errors onto user-facing codes.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalid      = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDisabled     = errors.New("feature disabled")
)

// Info is the user-facing description of an error.
type Info struct {
	Code       string `json:"code"`
	Status     int    `json:"-"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type pattern struct {
	needles    []string
	code       string
	status     int
	message    string
	suggestion string
}

// order matters: first match wins
var patterns = []pattern{
	{[]string{"too large", "request body too large", "file size"}, "FILE_TOO_LARGE", http.StatusRequestEntityTooLarge,
		"The uploaded file is too large.", "Split the document or compress it and try again."},
	{[]string{"rate limit", "too many requests", "429"}, "RATE_LIMITED", http.StatusTooManyRequests,
		"Too many requests.", "Wait a minute before trying again."},
	{[]string{"timeout", "deadline exceeded", "timed out"}, "TIMEOUT", http.StatusGatewayTimeout,
		"The operation took too long.", "Try again with a smaller document or later."},
	{[]string{"unsupported", "unknown format"}, "UNSUPPORTED_FORMAT", http.StatusUnsupportedMediaType,
		"This file format is not supported.", "Upload a PDF, Word document, image or plain text file."},
	{[]string{"api key", "invalid_api_key", "unauthorized", "401"}, "UPSTREAM_AUTH", http.StatusBadGateway,
		"An external service rejected our credentials.", "Ask an administrator to check the API keys."},
	{[]string{"connection refused", "no such host", "connection reset", "eof"}, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable,
		"A required service is unavailable.", "Try again in a few minutes."},
}

// Classify maps err to an Info. Sentinel errors are matched with errors.Is,
// everything else by substrings of the message.
func Classify(err error) Info {
	if err == nil {
		return Info{Code: "OK", Status: http.StatusOK}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return Info{Code: "NOT_FOUND", Status: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, ErrConflict):
		return Info{Code: "CONFLICT", Status: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, ErrInvalid):
		return Info{Code: "VALIDATION_ERROR", Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, ErrForbidden):
		return Info{Code: "FORBIDDEN", Status: http.StatusForbidden, Message: "You do not have access to this resource."}
	case errors.Is(err, ErrUnauthorized):
		return Info{Code: "UNAUTHORIZED", Status: http.StatusUnauthorized, Message: "Authentication required.", Suggestion: "Log in and retry."}
	case errors.Is(err, ErrDisabled):
		return Info{Code: "FEATURE_DISABLED", Status: http.StatusServiceUnavailable, Message: err.Error(),
			Suggestion: "Ask an administrator to configure this integration."}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		for _, n := range p.needles {
			if strings.Contains(msg, n) {
				return Info{Code: p.code, Status: p.status, Message: p.message, Suggestion: p.suggestion}
			}
		}
	}
	return Info{
		Code:       "INTERNAL_ERROR",
		Status:     http.StatusInternalServerError,
		Message:    "An unexpected error occurred.",
		Suggestion: "Try again; contact support if the problem persists.",
	}
}
