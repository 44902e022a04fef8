package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/docmind/internal/adapter/utils"
	"github.com/akolanti/docmind/internal/auth"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/metrics"
	"github.com/akolanti/docmind/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	kind         string
	errorMessage string
	retry        bool
}

type Middleware struct {
	verifier   auth.Verifier
	authBypass bool
	limiter    *IPRateLimiter
	logger     *logger_i.Logger
}

// New builds the request chain. A nil verifier is only acceptable with AuthBypass.
func New(cfg *config.Config, verifier auth.Verifier) *Middleware {
	m := &Middleware{
		verifier:   verifier,
		authBypass: cfg.AuthBypass,
		logger:     logger_i.NewLogger("middleware"),
	}
	if cfg.RateLimitEnabled {
		m.limiter = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)
	}
	if m.authBypass {
		m.logger.Warn("auth bypass enabled, every request acts as the development owner")
	}
	return m
}

// Wrap runs trace, rate limit and auth before next.
func (m *Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, true)
}

// Public runs trace and metrics only.
func (m *Middleware) Public(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, false)
}

func (m *Middleware) wrap(next http.HandlerFunc, protected bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := m.processRequest(requestResponseStruct{req: r, writer: rec}, protected)
		if handleBadRequest(re) {
			next(rec, re.req)
		}
		metrics.HttpRequestsTotal.WithLabelValues(utils.RoutePattern(re.req), strconv.Itoa(rec.Status)).Inc()
	}
}

func (m *Middleware) processRequest(re requestResponseStruct, protected bool) requestResponseStruct {
	re.logger = m.logger
	re = injectTrace(re)
	if re.badRequest.isBadRequest || !protected {
		return re
	}
	if m.limiter != nil {
		re = m.rateLimiter(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	return m.authenticate(re)
}
