package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/docmind/internal/api"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	tokens map[string]string
}

func (s stubVerifier) Verify(token string) (string, error) {
	if owner, ok := s.tokens[token]; ok {
		return owner, nil
	}
	return "", apperr.New(apperr.Auth, "invalid token")
}

func ownerEcho(w http.ResponseWriter, r *http.Request) {
	owner, _ := r.Context().Value(config.OWNER_ID_KEY).(string)
	trace, _ := r.Context().Value(config.TRACE_ID_KEY).(string)
	w.Header().Set("X-Owner", owner)
	w.Header().Set("X-Seen-Trace", trace)
	w.WriteHeader(http.StatusNoContent)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.OutgoingError {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestWrap_Authentication(t *testing.T) {
	mw := New(&config.Config{}, stubVerifier{tokens: map[string]string{"good": "user-7"}})
	handler := mw.Wrap(ownerEcho)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantOwner  string
	}{
		{name: "valid bearer", header: "Bearer good", wantStatus: http.StatusNoContent, wantOwner: "user-7"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				e := decodeError(t, rec)
				assert.Equal(t, "auth", e.Kind)
				assert.Equal(t, http.StatusUnauthorized, e.Code)
				assert.False(t, e.Retry)
				return
			}
			assert.Equal(t, tt.wantOwner, rec.Header().Get("X-Owner"))
		})
	}
}

func TestWrap_AuthBypassUsesDevOwner(t *testing.T) {
	mw := New(&config.Config{AuthBypass: true}, nil)
	rec := httptest.NewRecorder()
	mw.Wrap(ownerEcho)(rec, httptest.NewRequest(http.MethodGet, "/documents", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, config.DevOwnerID, rec.Header().Get("X-Owner"))
}

func TestTraceIdIsPropagated(t *testing.T) {
	mw := New(&config.Config{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	rec := httptest.NewRecorder()
	mw.Public(ownerEcho)(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-Id"))
	assert.Equal(t, "trace-123", rec.Header().Get("X-Seen-Trace"))

	rec = httptest.NewRecorder()
	mw.Public(ownerEcho)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
	assert.Empty(t, rec.Header().Get("X-Owner"), "public routes carry no owner")
}

func TestRateLimiter_RejectsAfterBurst(t *testing.T) {
	mw := New(&config.Config{AuthBypass: true, RateLimitEnabled: true}, nil)
	handler := mw.Wrap(ownerEcho)

	var last *httptest.ResponseRecorder
	for i := 0; i < config.BURST_RATE_LIMIT_PER_SECOND+1; i++ {
		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		last = httptest.NewRecorder()
		handler(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	e := decodeError(t, last)
	assert.True(t, e.Retry)

	other := httptest.NewRequest(http.MethodGet, "/documents", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler(rec, other)
	assert.Equal(t, http.StatusNoContent, rec.Code, "limits are per client ip")
}

func TestIPRateLimiter_ReusesLimiterPerIP(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}
