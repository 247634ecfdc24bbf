package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/api"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Dispatch exported for testing purposes
type Dispatch struct {
	Engine    Dispatcher
	Projector StatusProjector
	Validate  *validator.Validate
}

// CreateDispatchHandler raises an SOS and assigns the nearest responder
func (d Dispatch) CreateDispatchHandler(w http.ResponseWriter, r *http.Request) {
	var body models.CreateDispatchRequest
	if !decodeBody(w, r, d.Validate, &body) {
		return
	}

	req, err := d.Engine.Create(r.Context(), dispatch.CreateParams{
		CitizenPhone: body.CitizenPhone,
		ServiceType:  models.ServiceType(body.ServiceType),
		Point:        models.NewPoint(*body.Lng, *body.Lat),
	})
	if err != nil {
		dispatchError(w, r, err)
		return
	}

	zap.S().Infow("dispatch request created",
		"requestId", req.ID,
		"serviceType", req.ServiceType,
		"distanceMeters", req.DistanceMeters,
		"traceId", api.RequestIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusCreated, models.CreateDispatchResponse{
		RequestID: req.ID,
		ChainID:   req.ChainID,
		Status:    req.Status,
		Assignment: models.Assignment{
			ResponderKind:  req.ResponderKind,
			ResponderPhone: req.ResponderPhone,
			DistanceMeters: req.DistanceMeters,
		},
		ExpiresAt:  req.ExpiresAt,
		TTLSeconds: int(d.Engine.TTL().Seconds()),
	})
}

// AcceptDispatchHandler lets the assignee take the request
func (d Dispatch) AcceptDispatchHandler(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]

	var body models.ResponderActionRequest
	if !decodeBody(w, r, d.Validate, &body) {
		return
	}

	req, err := d.Engine.Accept(r.Context(), requestID, body.ResponderPhone)
	if err != nil {
		dispatchError(w, r, err)
		return
	}

	resp := models.AcceptResponse{OK: true, Request: *req}
	view, err := d.Projector.ResponderView(r.Context(), requestID, body.ResponderPhone)
	if err != nil {
		// the accept already happened; the profile can be fetched by polling
		zap.S().Warnw("failed to load citizen profile after accept", "requestId", requestID, "error", err)
	} else {
		resp.Citizen = view.Citizen
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeclineDispatchHandler lets the assignee pass the request to the next responder
func (d Dispatch) DeclineDispatchHandler(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]

	var body models.ResponderActionRequest
	if !decodeBody(w, r, d.Validate, &body) {
		return
	}

	res, err := d.Engine.Decline(r.Context(), requestID, body.ResponderPhone)
	if err != nil {
		dispatchError(w, r, err)
		return
	}

	resp := models.DeclineResponse{OK: true, Outcome: res.Outcome}
	if res.Successor != nil {
		resp.Reassigned = true
		resp.SuccessorID = res.Successor.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// DispatchStatusHandler returns the citizen view to the citizen who raised the
// request and the responder view to its assignee
func (d Dispatch) DispatchStatusHandler(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]
	phone := r.URL.Query().Get("phone")
	if !models.ValidPhone(phone) {
		config.ErrorStatus("phone query parameter must be an E.164 number", http.StatusBadRequest, w, dispatch.ErrInvalidInput)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	citizenView, err := d.Projector.CitizenView(ctx, requestID, phone)
	if err == nil {
		writeJSON(w, http.StatusOK, citizenView)
		return
	}
	if !errors.Is(err, dispatch.ErrNotAuthorized) {
		dispatchError(w, r, err)
		return
	}

	responderView, err := d.Projector.ResponderView(ctx, requestID, phone)
	if err != nil {
		dispatchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, responderView)
}
