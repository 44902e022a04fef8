package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(Validation, "bad"), http.StatusBadRequest},
		{New(Auth, "no token"), http.StatusUnauthorized},
		{New(NotFound, "missing"), http.StatusNotFound},
		{New(Conflict, "version"), http.StatusConflict},
		{New(MalformedInput, "corrupt"), http.StatusInternalServerError},
		{New(UnsupportedMediaType, "exe"), http.StatusInternalServerError},
		{New(UpstreamUnavailable, "llm down"), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", New(NotFound, "x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("store: %w", Wrap(Conflict, "stale version", errors.New("rows affected 0")))

	assert.True(t, errors.Is(err, New(Conflict, "")))
	assert.False(t, errors.Is(err, New(NotFound, "")))
	assert.True(t, IsKind(err, Conflict))
	assert.True(t, Retryable(err))
	assert.Equal(t, "stale version", PublicMessage(err))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("secret")))
}
