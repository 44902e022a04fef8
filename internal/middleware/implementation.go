package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/akolanti/docmind/internal/adapter/utils"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/auth"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/handlers"
)

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		re.badRequest = failureStruct{isBadRequest: true, httpCode: http.StatusBadRequest, kind: string(apperr.Validation), errorMessage: "request is empty"}
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	re.writer.Header().Set("X-Trace-Id", trace)
	re.req = req.WithContext(ctx)

	re.logger.Debug("request received", "method", req.Method, "path", req.URL.Path)
	return re
}

func (m *Middleware) authenticate(re requestResponseStruct) requestResponseStruct {
	owner, err := m.ownerFor(re.req.Header.Get("Authorization"))
	if err != nil {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusUnauthorized,
			kind:         string(apperr.Auth),
			errorMessage: apperr.PublicMessage(err),
		}
		return re
	}
	re.logger = re.logger.With("ownerId", owner)
	re.req = re.req.WithContext(context.WithValue(re.req.Context(), config.OWNER_ID_KEY, owner))
	return re
}

func (m *Middleware) ownerFor(authHeader string) (string, error) {
	if m.authBypass {
		return config.DevOwnerID, nil
	}
	if authHeader == "" {
		return "", apperr.New(apperr.Auth, "missing authorization header")
	}
	token, ok := auth.BearerToken(authHeader)
	if !ok {
		return "", apperr.New(apperr.Auth, "authorization header must be a bearer token")
	}
	if m.verifier == nil {
		return "", apperr.New(apperr.Auth, "token verification is not configured")
	}
	return m.verifier.Verify(token)
}

func (m *Middleware) rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !m.limiter.GetLimiter(ip).Allow() {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			kind:         "rate_limited",
			errorMessage: "rate limit exceeded",
			retry:        true,
		}
	}
	return re
}

// handleBadRequest writes the rejection and reports whether the request may continue.
func handleBadRequest(re requestResponseStruct) bool {
	if re.badRequest.isBadRequest {
		remote := ""
		if re.req != nil {
			remote = re.req.RemoteAddr
		}
		re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", remote)
		handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.kind, re.badRequest.errorMessage, re.badRequest.retry)
		return false
	}
	return true
}
