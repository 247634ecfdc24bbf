package models

import "time"

// RequestStatus is the lifecycle state of a dispatch request
type RequestStatus string

// Dispatch request states. Accepted and expired are terminal; declined is
// terminal for the record but triggers a reassignment of the chain.
const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusDeclined RequestStatus = "declined"
	StatusExpired  RequestStatus = "expired"
)

// Terminal reports whether no further transition is possible from the status
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusExpired
}

// ChainOutcome records how a declined or expired request was followed up
type ChainOutcome string

// Chain outcomes. The empty value means the follow-up has not completed yet.
const (
	OutcomeUnresolved ChainOutcome = ""
	OutcomeReassigned ChainOutcome = "reassigned"
	OutcomeExhausted  ChainOutcome = "exhausted"
	OutcomeCapped     ChainOutcome = "capped"
)

// DispatchRequest holds the structure for the requests collection in mongo.
// A reassignment creates a new document in the same chain.
type DispatchRequest struct {
	ID                      string        `json:"id" bson:"_id"`
	ChainID                 string        `json:"chainId" bson:"chainId"`
	PreviousRequestID       string        `json:"previousRequestId,omitempty" bson:"previousRequestId,omitempty"`
	Hop                     int           `json:"hop" bson:"hop"`
	TriedResponders         []string      `json:"triedResponders" bson:"triedResponders"`
	CitizenPhone            string        `json:"citizenPhone" bson:"citizenPhone"`
	ServiceType             ServiceType   `json:"serviceType" bson:"serviceType"`
	CitizenLocation         GeoPoint      `json:"citizenLocation" bson:"citizenLocation"`
	MapsURL                 string        `json:"mapsUrl" bson:"mapsUrl"`
	ResponderKind           ResponderKind `json:"responderKind" bson:"responderKind"`
	ResponderPhone          string        `json:"responderPhone" bson:"responderPhone"`
	DistanceMeters          float64       `json:"distanceMeters" bson:"distanceMeters"`
	Status                  RequestStatus `json:"status" bson:"status"`
	ChainOutcome            ChainOutcome  `json:"chainOutcome,omitempty" bson:"chainOutcome"`
	EstimatedArrivalMinutes *int          `json:"estimatedArrivalMinutes,omitempty" bson:"estimatedArrivalMinutes,omitempty"`
	CreatedAt               time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt               time.Time     `json:"updatedAt" bson:"updatedAt"`
	ExpiresAt               time.Time     `json:"expiresAt" bson:"expiresAt"`
	AcceptedAt              *time.Time    `json:"acceptedAt,omitempty" bson:"acceptedAt,omitempty"`
	DeclinedAt              *time.Time    `json:"declinedAt,omitempty" bson:"declinedAt,omitempty"`
	ExpiredAt               *time.Time    `json:"expiredAt,omitempty" bson:"expiredAt,omitempty"`
	PurgeAt                 *time.Time    `json:"-" bson:"purgeAt,omitempty"`
}

// SecondsRemaining returns the whole seconds left before the deadline, never negative
func (r DispatchRequest) SecondsRemaining(now time.Time) int {
	left := r.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Transition is the mutation applied by a conditional status change
type Transition struct {
	To                      RequestStatus
	At                      time.Time
	EstimatedArrivalMinutes *int
	PurgeAt                 *time.Time
}
