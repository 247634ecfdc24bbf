package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/api"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// writeJSON marshals v and writes it with the given status code
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// decodeBody reads a JSON body into v and validates it. It writes the 400
// itself and reports false when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, validate *validator.Validate, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		config.ErrorStatus("invalid request", http.StatusBadRequest, w, err)
		return false
	}
	return true
}

// dispatchError maps the dispatch error taxonomy onto http statuses. Races and
// empty responder pools are expected outcomes, so they are logged at info.
func dispatchError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := api.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, dispatch.ErrInvalidInput):
		config.ErrorStatus("invalid request", http.StatusBadRequest, w, err)
	case errors.Is(err, dispatch.ErrNotAuthorized):
		config.ErrorStatus("not assigned to this request", http.StatusForbidden, w, err)
	case errors.Is(err, dispatch.ErrNoResponderAvailable):
		zap.S().Infow("no responder available", "requestId", requestID, "path", r.URL.Path)
		writeJSON(w, http.StatusNotFound, models.OutcomeResponse{Success: false, Message: err.Error()})
	case errors.Is(err, dispatch.ErrRequestNotPending):
		zap.S().Infow("request no longer pending", "requestId", requestID, "path", r.URL.Path)
		writeJSON(w, http.StatusConflict, models.OutcomeResponse{Success: false, Message: "too late: " + err.Error()})
	case errors.Is(err, dispatch.ErrNotFound):
		config.ErrorStatus("not found", http.StatusNotFound, w, err)
	case dispatch.IsUnavailable(err):
		config.ErrorStatus("service temporarily unavailable", http.StatusServiceUnavailable, w, err)
	default:
		config.ErrorStatus("internal error", http.StatusInternalServerError, w, err)
	}
}
