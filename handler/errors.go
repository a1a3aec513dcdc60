package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"dream-agent/internal/observability"
	"dream-agent/internal/usecase"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorConflict:
		return http.StatusBadRequest
	case usecase.ErrorUnauthorized:
		return http.StatusUnauthorized
	case usecase.ErrorForbidden:
		return http.StatusForbidden
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case usecase.ErrorUpstreamTimeout:
		return http.StatusGatewayTimeout
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and an {error, reason} body. Errors that
// are not a *usecase.Error are reported as INTERNAL_ERROR without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		ue = &usecase.Error{Code: usecase.ErrorInternal, Reason: "unexpected_error", Err: err}
	}
	status := statusFor(ue.Code)

	logger := observability.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", ue.Code, "reason", ue.Reason, "err", ue.Err)
	} else {
		logger.Warn("request rejected", "code", ue.Code, "reason", ue.Reason)
	}
	respondError(w, r, status, string(ue.Code), ue.Reason)
}

func respondError(w http.ResponseWriter, _ *http.Request, status int, code, reason string) {
	respondJSON(w, status, errorResponse{Error: code, Reason: reason})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return usecase.NewError(usecase.ErrorInvalidInput, "invalid_body", err)
	}
	return nil
}
