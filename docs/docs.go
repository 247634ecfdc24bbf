// Package docs SOS Dispatch API.
//
// Documentation of the SOS Dispatch API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/dispatch dispatch createDispatch
// Assigns the nearest available responder to a citizen.
// responses:
//   201: createDispatchResponse
//   404: outcomeResponse

// swagger:parameters createDispatch
type createDispatchParamsWrapper struct {
	// in:body
	Body models.CreateDispatchRequest
}

// The request that was created and who it went to
// swagger:response createDispatchResponse
type createDispatchResponseWrapper struct {
	// in:body
	Body models.CreateDispatchResponse
}

// swagger:route POST /api/v1/dispatch/{request_id}/accept dispatch acceptDispatch
// Accepts a pending request assigned to the calling responder.
// responses:
//   200: acceptResponse
//   409: outcomeResponse

// swagger:route POST /api/v1/dispatch/{request_id}/decline dispatch declineDispatch
// Declines a pending request and hands it to the next nearest responder.
// responses:
//   200: declineResponse

// swagger:parameters acceptDispatch declineDispatch
type responderActionParamsWrapper struct {
	// in:path
	RequestID string `json:"request_id"`
	// in:body
	Body models.ResponderActionRequest
}

// swagger:response acceptResponse
type acceptResponseWrapper struct {
	// in:body
	Body models.AcceptResponse
}

// swagger:response declineResponse
type declineResponseWrapper struct {
	// in:body
	Body models.DeclineResponse
}

// Returned when nobody could be assigned or the request is no longer pending
// swagger:response outcomeResponse
type outcomeResponseWrapper struct {
	// in:body
	Body models.OutcomeResponse
}

// swagger:route GET /api/v1/dispatch/{request_id} dispatch dispatchStatus
// Shows a request as seen by its citizen or its assigned responder.
// responses:
//   200: citizenViewResponse

// swagger:response citizenViewResponse
type citizenViewResponseWrapper struct {
	// in:body
	Body models.CitizenView
}

// swagger:route GET /api/v1/responders/{kind}/{phone}/requests responders responderRequests
// Lists the live requests of a responder.
// responses:
//   200: responderRequestsResponse

// swagger:response responderRequestsResponse
type responderRequestsResponseWrapper struct {
	// in:body
	Body []models.ResponderView
}

// swagger:route PUT /api/v1/responders/{kind}/{phone}/status responders updateStatus
// Changes a responder's availability and location.

// swagger:parameters updateStatus
type updateStatusParamsWrapper struct {
	// in:body
	Body models.AvailabilityUpdateRequest
}

// swagger:route POST /api/v1/otp/verify otp verifyCode
// Checks a one-time code and registers the phone.
// responses:
//   200: verifyCodeResponse

// swagger:response verifyCodeResponse
type verifyCodeResponseWrapper struct {
	// in:body
	Body models.VerifyCodeResponse
}
