package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/akolanti/docmind/internal/adapter"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are gone already; nothing left but to log
		logRH.Error("Error encoding response", "error", err)
	}
}

// WriteError renders err as the JSON error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := adapter.ToErrorResponse(err)
	log := logRH
	if r != nil {
		log = logRH.FromContext(r.Context())
	}
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "status", code, "error", err)
	} else {
		log.Debug("request rejected", "status", code, "error", err)
	}
	writeJsonResponse(w, code, body)
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, kind string, message string, retry bool) {
	writeJsonResponse(w, httpCode, adapter.ErrorBody(httpCode, kind, message, retry))
}

func ownerFrom(ctx context.Context) (string, error) {
	owner, ok := ctx.Value(config.OWNER_ID_KEY).(string)
	if !ok || owner == "" {
		return "", apperr.New(apperr.Auth, "unauthenticated")
	}
	return owner, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	defer func() {
		if err := r.Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return apperr.Wrap(apperr.Validation, "request body is not valid JSON", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.Newf(apperr.Validation, "%s must be a non-negative integer", key)
	}
	return v, nil
}

func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
