package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/api"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Responder exported for testing purposes
type Responder struct {
	Directory dispatch.Directory
	Projector StatusProjector
	Validate  *validator.Validate
}

// responderPath reads and checks the kind and phone path variables
func responderPath(w http.ResponseWriter, r *http.Request) (models.ResponderKind, models.Capabilities, string, bool) {
	vars := mux.Vars(r)
	kind := models.ResponderKind(vars["kind"])
	caps, ok := models.CapabilitiesFor(kind)
	if !ok {
		config.ErrorStatus("unknown responder kind", http.StatusBadRequest, w, dispatch.ErrInvalidInput)
		return "", caps, "", false
	}
	phone := vars["phone"]
	if !models.ValidPhone(phone) {
		config.ErrorStatus("phone must be an E.164 number", http.StatusBadRequest, w, dispatch.ErrInvalidInput)
		return "", caps, "", false
	}
	return kind, caps, phone, true
}

// UpdateStatusHandler sets a responder's availability and, optionally, location
func (v Responder) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	kind, caps, phone, ok := responderPath(w, r)
	if !ok {
		return
	}

	var body models.AvailabilityUpdateRequest
	if !decodeBody(w, r, v.Validate, &body) {
		return
	}
	state := models.Availability(body.Availability)
	if !caps.Allows(state) {
		config.ErrorStatus("availability not valid for this responder kind", http.StatusBadRequest, w, dispatch.ErrInvalidInput)
		return
	}
	var loc *models.GeoPoint
	if body.Lng != nil && body.Lat != nil {
		p := models.NewPoint(*body.Lng, *body.Lat)
		loc = &p
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := v.Directory.UpdateAvailability(ctx, kind, phone, state, loc); err != nil {
		dispatchError(w, r, err)
		return
	}
	zap.S().Debugw("responder status updated", "kind", kind, "phone", phone, "availability", state)

	resp, err := v.Directory.GetByPhone(ctx, kind, phone)
	if err != nil {
		config.ErrorStatus("failed to get responder", http.StatusServiceUnavailable, w, err)
		return
	}
	if resp == nil {
		config.ErrorStatus("responder not found", http.StatusNotFound, w, dispatch.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfileHandler replaces the profile of a verified responder
func (v Responder) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	kind, _, phone, ok := responderPath(w, r)
	if !ok {
		return
	}

	var body models.ResponderProfileRequest
	if !decodeBody(w, r, v.Validate, &body) {
		return
	}
	in := &models.Responder{Kind: kind, Phone: phone}
	switch kind {
	case models.KindOfficer:
		in.Officer = body.Officer
	case models.KindAmbulance:
		in.Ambulance = body.Ambulance
	}
	if in.Officer == nil && in.Ambulance == nil {
		config.ErrorStatus("profile for "+string(kind)+" is required", http.StatusBadRequest, w, dispatch.ErrInvalidInput)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	updated, err := v.Directory.UpdateProfile(ctx, in)
	if err != nil {
		dispatchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RequestsHandler lists the pending requests assigned to a responder
func (v Responder) RequestsHandler(w http.ResponseWriter, r *http.Request) {
	kind, _, phone, ok := responderPath(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	views, err := v.Projector.ResponderRequests(ctx, kind, phone)
	if err != nil {
		dispatchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
