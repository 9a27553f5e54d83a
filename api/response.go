package api

import (
	"context"
	apperrors "dm-lab/errors"
	"encoding/json"
	"errors"
	"net/http"
)

// statusClientClosedRequest is nginx's non standard code for a client that went away before the answer.
const statusClientClosedRequest = 499

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope is the body of every non 2xx answer. Fields is only set for validation failures.
type ErrorEnvelope struct {
	Error  APIError          `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// writeError maps service errors to status codes. Store failures are logged and answered with a generic
// message.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorEnvelope{
			Error:  APIError{Message: verr.Error(), Code: "validation_failed"},
			Fields: verr.Fields,
		})
	case errors.Is(err, apperrors.ErrInvalidPassword):
		respondError(w, http.StatusBadRequest, "invalid_password", err)
	case errors.Is(err, apperrors.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", apperrors.ErrUnauthenticated)
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", err)
	case errors.Is(err, apperrors.ErrNotParticipant):
		respondError(w, http.StatusForbidden, "not_participant", err)
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		respondError(w, http.StatusConflict, "user_exists", err)
	case errors.Is(err, context.Canceled):
		h.Log.Debug("Request cancelled by client", "path", r.URL.Path)
		respondError(w, statusClientClosedRequest, "client_closed_request", err)
	default:
		h.Log.Error("Request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	}
}
