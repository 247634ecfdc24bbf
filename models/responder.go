package models

import (
	"math"
	"time"
)

// ServiceType is the kind of help a citizen asks for
type ServiceType string

// Service types a citizen can request
const (
	ServicePolice    ServiceType = "police"
	ServiceAmbulance ServiceType = "ambulance"
)

// ResponderKind identifies the type of responder
type ResponderKind string

// Responder kinds
const (
	KindOfficer   ResponderKind = "officer"
	KindAmbulance ResponderKind = "ambulance"
)

// Availability is the dispatch readiness of a responder. The allowed values
// depend on the responder kind.
type Availability string

// Officer availability states
const (
	OfficerOnDuty  Availability = "on_duty"
	OfficerOffDuty Availability = "off_duty"
)

// Ambulance availability states
const (
	AmbulanceAvailable Availability = "available"
	AmbulanceEnroute   Availability = "enroute"
	AmbulanceBusy      Availability = "busy"
	AmbulanceOffline   Availability = "offline"
)

// Capabilities describes everything the dispatch core needs to know about a
// responder kind: which service it answers, its availability states, which
// state means ready for dispatch and which state it moves to on accept.
type Capabilities struct {
	Kind    ResponderKind
	Service ServiceType
	States  []Availability
	Ready   Availability
	Engaged Availability
	// Off is the state a newly registered responder starts in
	Off Availability

	baseMinutes  float64
	minutesPerKm float64
}

var capabilities = map[ResponderKind]Capabilities{
	KindOfficer: {
		Kind:         KindOfficer,
		Service:      ServicePolice,
		States:       []Availability{OfficerOnDuty, OfficerOffDuty},
		Ready:        OfficerOnDuty,
		Engaged:      OfficerOffDuty,
		Off:          OfficerOffDuty,
		baseMinutes:  1,
		minutesPerKm: 1.5,
	},
	KindAmbulance: {
		Kind:         KindAmbulance,
		Service:      ServiceAmbulance,
		States:       []Availability{AmbulanceAvailable, AmbulanceEnroute, AmbulanceBusy, AmbulanceOffline},
		Ready:        AmbulanceAvailable,
		Engaged:      AmbulanceEnroute,
		Off:          AmbulanceOffline,
		baseMinutes:  2,
		minutesPerKm: 2,
	},
}

// CapabilitiesFor returns the capability set for a responder kind
func CapabilitiesFor(kind ResponderKind) (Capabilities, bool) {
	c, ok := capabilities[kind]
	return c, ok
}

// KindForService returns the responder kind that answers a service type
func KindForService(s ServiceType) (ResponderKind, bool) {
	switch s {
	case ServicePolice:
		return KindOfficer, true
	case ServiceAmbulance:
		return KindAmbulance, true
	}
	return "", false
}

// Allows reports whether the availability state belongs to this kind
func (c Capabilities) Allows(a Availability) bool {
	for _, s := range c.States {
		if s == a {
			return true
		}
	}
	return false
}

// ArrivalMinutes estimates travel time from the distance captured at assignment
func (c Capabilities) ArrivalMinutes(distanceMeters float64) int {
	km := distanceMeters / 1000
	return int(math.Round(c.baseMinutes + km*c.minutesPerKm))
}

// Responder holds the structure for the responders collection in mongo. Officers
// and ambulances share the shape; only one of the profile pointers is set.
type Responder struct {
	Kind          ResponderKind     `json:"kind" bson:"kind"`
	Phone         string            `json:"phone" bson:"phone"`
	PhoneVerified bool              `json:"phoneVerified" bson:"phoneVerified"`
	Location      *GeoPoint         `json:"location,omitempty" bson:"location,omitempty"`
	Availability  Availability      `json:"availability" bson:"availability"`
	Officer       *OfficerProfile   `json:"officer,omitempty" bson:"officer,omitempty"`
	Ambulance     *AmbulanceProfile `json:"ambulance,omitempty" bson:"ambulance,omitempty"`
	LastStatusAt  time.Time         `json:"lastStatusAt" bson:"lastStatusAt"`
	CreatedAt     time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// OfficerProfile holds the profile fields of a police officer
type OfficerProfile struct {
	FullName        string `json:"fullName,omitempty" bson:"fullName,omitempty"`
	PersonalContact string `json:"personalContact,omitempty" bson:"personalContact,omitempty"`
	EmployeeID      string `json:"employeeId,omitempty" bson:"employeeId,omitempty"`
	Rank            string `json:"rank,omitempty" bson:"rank,omitempty"`
	Agency          string `json:"agency,omitempty" bson:"agency,omitempty"`
}

// AmbulanceProfile holds the profile fields of an ambulance unit
type AmbulanceProfile struct {
	UnitID             string               `json:"unitId,omitempty" bson:"unitId,omitempty"`
	VehiclePlate       string               `json:"vehiclePlate,omitempty" bson:"vehiclePlate,omitempty"`
	RegistrationNumber string               `json:"registrationNumber,omitempty" bson:"registrationNumber,omitempty"`
	MakeModel          string               `json:"makeModel,omitempty" bson:"makeModel,omitempty"`
	Color              string               `json:"color,omitempty" bson:"color,omitempty"`
	AgencyName         string               `json:"agencyName,omitempty" bson:"agencyName,omitempty"`
	Ownership          string               `json:"ownership,omitempty" bson:"ownership,omitempty" validate:"omitempty,oneof=public private ngo"`
	Region             string               `json:"region,omitempty" bson:"region,omitempty"`
	Capabilities       *AmbulanceCapability `json:"capabilities,omitempty" bson:"capabilities,omitempty"`
	Crew               *AmbulanceCrew       `json:"crew,omitempty" bson:"crew,omitempty"`
}

// AmbulanceCapability lists the medical equipment of an ambulance
type AmbulanceCapability struct {
	Level         string `json:"level" bson:"level" validate:"omitempty,oneof=BLS ALS ICU"`
	Oxygen        bool   `json:"oxygen" bson:"oxygen"`
	Defibrillator bool   `json:"defibrillator" bson:"defibrillator"`
	Ventilator    bool   `json:"ventilator" bson:"ventilator"`
	Neonatal      bool   `json:"neonatal" bson:"neonatal"`
}

// AmbulanceCrew lists who is on board
type AmbulanceCrew struct {
	DriverName    string `json:"driverName,omitempty" bson:"driverName,omitempty"`
	ParamedicName string `json:"paramedicName,omitempty" bson:"paramedicName,omitempty"`
	AttendantName string `json:"attendantName,omitempty" bson:"attendantName,omitempty"`
	ContactPhone  string `json:"contactPhone,omitempty" bson:"contactPhone,omitempty"`
	ContactEmail  string `json:"contactEmail,omitempty" bson:"contactEmail,omitempty"`
}

// Candidate is a responder found by a nearest-available lookup together with
// its distance to the citizen at lookup time
type Candidate struct {
	Responder      Responder
	DistanceMeters float64
}

// ResponderPublic is the part of a responder profile a citizen may see once
// the request has been accepted
type ResponderPublic struct {
	Kind         ResponderKind  `json:"kind"`
	Phone        string         `json:"phone"`
	Name         string         `json:"name,omitempty"`
	Agency       string         `json:"agency,omitempty"`
	Rank         string         `json:"rank,omitempty"`
	UnitID       string         `json:"unitId,omitempty"`
	VehiclePlate string         `json:"vehiclePlate,omitempty"`
	Crew         *AmbulanceCrew `json:"crew,omitempty"`
}

// Public returns the citizen-facing profile of the responder
func (r Responder) Public() ResponderPublic {
	p := ResponderPublic{Kind: r.Kind, Phone: r.Phone}
	if r.Officer != nil {
		p.Name = r.Officer.FullName
		p.Agency = r.Officer.Agency
		p.Rank = r.Officer.Rank
	}
	if r.Ambulance != nil {
		p.Agency = r.Ambulance.AgencyName
		p.UnitID = r.Ambulance.UnitID
		p.VehiclePlate = r.Ambulance.VehiclePlate
		p.Crew = r.Ambulance.Crew
	}
	return p
}
