package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesFor(t *testing.T) {
	officer, ok := CapabilitiesFor(KindOfficer)
	assert.True(t, ok)
	assert.Equal(t, ServicePolice, officer.Service)
	assert.Equal(t, OfficerOnDuty, officer.Ready)
	assert.Equal(t, OfficerOffDuty, officer.Engaged)
	assert.Equal(t, OfficerOffDuty, officer.Off)
	assert.True(t, officer.Allows(OfficerOffDuty))
	assert.False(t, officer.Allows(AmbulanceBusy))

	amb, ok := CapabilitiesFor(KindAmbulance)
	assert.True(t, ok)
	assert.Equal(t, AmbulanceAvailable, amb.Ready)
	assert.Equal(t, AmbulanceEnroute, amb.Engaged)
	assert.Equal(t, AmbulanceOffline, amb.Off)
	assert.True(t, amb.Allows(AmbulanceOffline))
	assert.False(t, amb.Allows(OfficerOnDuty))

	_, ok = CapabilitiesFor("firetruck")
	assert.False(t, ok)
}

func TestCapabilities_ArrivalMinutes(t *testing.T) {
	amb, _ := CapabilitiesFor(KindAmbulance)
	officer, _ := CapabilitiesFor(KindOfficer)

	assert.Equal(t, 6, amb.ArrivalMinutes(2000))
	assert.Equal(t, 2, amb.ArrivalMinutes(0))
	assert.Equal(t, 4, officer.ArrivalMinutes(2000))
	assert.Equal(t, 10, officer.ArrivalMinutes(6000))
}

func TestKindForService(t *testing.T) {
	k, ok := KindForService(ServicePolice)
	assert.True(t, ok)
	assert.Equal(t, KindOfficer, k)

	k, ok = KindForService(ServiceAmbulance)
	assert.True(t, ok)
	assert.Equal(t, KindAmbulance, k)

	_, ok = KindForService("fire")
	assert.False(t, ok)
}

func TestResponder_Public(t *testing.T) {
	r := Responder{
		Kind:  KindAmbulance,
		Phone: "+911234567890",
		Ambulance: &AmbulanceProfile{
			UnitID:       "AMB-7",
			VehiclePlate: "DL01AB1234",
			AgencyName:   "City EMS",
			Crew:         &AmbulanceCrew{DriverName: "Ravi"},
		},
	}
	p := r.Public()
	assert.Equal(t, "AMB-7", p.UnitID)
	assert.Equal(t, "City EMS", p.Agency)
	assert.Equal(t, "Ravi", p.Crew.DriverName)
	assert.Empty(t, p.Name)
}
