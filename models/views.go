package models

import "time"

// CitizenView is the sanitized status of a request chain shown to the citizen.
// Responder identity is only present once the request has been accepted.
type CitizenView struct {
	RequestID               string           `json:"requestId"`
	ChainID                 string           `json:"chainId"`
	ServiceType             ServiceType      `json:"serviceType"`
	Status                  RequestStatus    `json:"status"`
	Searching               bool             `json:"searching,omitempty"`
	SecondsRemaining        int              `json:"secondsRemaining"`
	MapsURL                 string           `json:"mapsUrl"`
	Responder               *ResponderPublic `json:"responder,omitempty"`
	EstimatedArrivalMinutes *int             `json:"estimatedArrivalMinutes,omitempty"`
	NoResponderFound        bool             `json:"noResponderFound,omitempty"`
	CanRetry                bool             `json:"canRetry,omitempty"`
	Message                 string           `json:"message,omitempty"`
}

// ResponderView is the full detail of a request shown to its assignee
type ResponderView struct {
	RequestID        string          `json:"id"`
	Status           RequestStatus   `json:"status"`
	ServiceType      ServiceType     `json:"serviceType"`
	CitizenLocation  GeoPoint        `json:"userLocation"`
	MapsURL          string          `json:"mapsUrl"`
	DistanceMeters   float64         `json:"distanceMeters"`
	CreatedAt        time.Time       `json:"createdAt"`
	SecondsRemaining int             `json:"secondsRemaining"`
	Citizen          *CitizenProfile `json:"user"`
}
