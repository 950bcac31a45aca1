package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, Classify(fmt.Errorf("client 7: %w", ErrNotFound)).Status)
	assert.Equal(t, "CONFLICT", Classify(fmt.Errorf("email: %w", ErrConflict)).Code)
	assert.Equal(t, http.StatusBadRequest, Classify(fmt.Errorf("hours must be positive: %w", ErrInvalid)).Status)
	assert.Equal(t, http.StatusServiceUnavailable, Classify(fmt.Errorf("payments: %w", ErrDisabled)).Status)
}

func TestClassifyByMessage(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{errors.New("http: request body too large"), "FILE_TOO_LARGE"},
		{errors.New("openai-compat api error: Rate limit reached"), "RATE_LIMITED"},
		{fmt.Errorf("llm: %w", context.DeadlineExceeded), "TIMEOUT"},
		{errors.New("unsupported file type"), "UNSUPPORTED_FORMAT"},
		{errors.New("Invalid API Key provided"), "UPSTREAM_AUTH"},
		{errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), "SERVICE_UNAVAILABLE"},
		{errors.New("something odd"), "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		info := Classify(tc.err)
		assert.Equal(t, tc.code, info.Code, tc.err.Error())
		assert.NotEmpty(t, info.Message)
	}
}
