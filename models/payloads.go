package models

import "time"

// CreateDispatchRequest is the body of POST /api/v1/dispatch
type CreateDispatchRequest struct {
	CitizenPhone string   `json:"citizenPhone" validate:"required,e164"`
	ServiceType  string   `json:"serviceType" validate:"required,oneof=police ambulance"`
	Lng          *float64 `json:"lng" validate:"required,longitude"`
	Lat          *float64 `json:"lat" validate:"required,latitude"`
}

// Assignment summarises who a request is currently assigned to
type Assignment struct {
	ResponderKind  ResponderKind `json:"responderKind"`
	ResponderPhone string        `json:"responderPhone"`
	DistanceMeters float64       `json:"distanceMeters"`
}

// CreateDispatchResponse is returned when a dispatch request was created
type CreateDispatchResponse struct {
	RequestID  string        `json:"requestId"`
	ChainID    string        `json:"chainId"`
	Status     RequestStatus `json:"status"`
	Assignment Assignment    `json:"assignment"`
	ExpiresAt  time.Time     `json:"expiresAt"`
	TTLSeconds int           `json:"ttlSeconds"`
}

// ResponderActionRequest is the body of the accept and decline endpoints
type ResponderActionRequest struct {
	ResponderPhone string `json:"responderPhone" validate:"required,e164"`
}

// AcceptResponse is returned to the responder that won the request
type AcceptResponse struct {
	OK      bool            `json:"ok"`
	Request DispatchRequest `json:"request"`
	Citizen *CitizenProfile `json:"citizen,omitempty"`
}

// DeclineResponse is returned to the responder that declined
type DeclineResponse struct {
	OK          bool         `json:"ok"`
	Reassigned  bool         `json:"reassigned"`
	SuccessorID string       `json:"successorId,omitempty"`
	Outcome     ChainOutcome `json:"outcome"`
}

// AvailabilityUpdateRequest is the body of PUT /responders/{kind}/{phone}/status
type AvailabilityUpdateRequest struct {
	Availability string   `json:"availability" validate:"required"`
	Lng          *float64 `json:"lng" validate:"required_with=Lat,omitempty,longitude"`
	Lat          *float64 `json:"lat" validate:"required_with=Lng,omitempty,latitude"`
}

// ResponderProfileRequest is the body of PUT /responders/{kind}/{phone}
type ResponderProfileRequest struct {
	Officer   *OfficerProfile   `json:"officer,omitempty"`
	Ambulance *AmbulanceProfile `json:"ambulance,omitempty" validate:"omitempty"`
}

// CitizenProfileRequest is the body of PUT /citizens/{phone}
type CitizenProfileRequest struct {
	Name              CitizenName        `json:"name"`
	DOB               *time.Time         `json:"dob,omitempty"`
	BloodGroup        string             `json:"bloodGroup,omitempty"`
	Allergies         []string           `json:"allergies,omitempty"`
	MedicalConditions []string           `json:"medicalConditions,omitempty"`
	Medications       []string           `json:"medications,omitempty"`
	SpecialNeeds      []string           `json:"specialNeeds,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty" validate:"dive"`
	HomeAddress       string             `json:"homeAddress,omitempty"`
	PhotoURL          string             `json:"photoUrl,omitempty"`
}

// SendCodeRequest is the body of POST /otp/send
type SendCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// VerifyCodeRequest is the body of POST /otp/verify
type VerifyCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=10"`
	Role  string `json:"role" validate:"required,oneof=citizen officer ambulance"`
}

// SendCodeResponse is returned once a code was sent
type SendCodeResponse struct {
	Success bool   `json:"success"`
	To      string `json:"to"`
}

// VerifyCodeResponse is returned once a code was approved
type VerifyCodeResponse struct {
	Success bool   `json:"success"`
	Role    string `json:"role"`
	Phone   string `json:"phone"`
}

// OutcomeResponse reports an expected, non-fatal dispatch outcome such as no
// responder being available or a responder acting too late
type OutcomeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthCheckResponse is returned by the health route
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
