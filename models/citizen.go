package models

import (
	"strings"
	"time"
)

// Citizen holds the structure for the citizens collection in mongo
type Citizen struct {
	Phone             string             `json:"phone" bson:"phone"`
	PhoneVerified     bool               `json:"phoneVerified" bson:"phoneVerified"`
	Name              CitizenName        `json:"name" bson:"name"`
	DOB               *time.Time         `json:"dob,omitempty" bson:"dob,omitempty"`
	BloodGroup        string             `json:"bloodGroup,omitempty" bson:"bloodGroup,omitempty"`
	Allergies         []string           `json:"allergies,omitempty" bson:"allergies,omitempty"`
	MedicalConditions []string           `json:"medicalConditions,omitempty" bson:"medicalConditions,omitempty"`
	Medications       []string           `json:"medications,omitempty" bson:"medications,omitempty"`
	SpecialNeeds      []string           `json:"specialNeeds,omitempty" bson:"specialNeeds,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty" bson:"emergencyContacts,omitempty"`
	HomeAddress       string             `json:"homeAddress,omitempty" bson:"homeAddress,omitempty"`
	PhotoURL          string             `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CitizenName holds the parts of a citizen's name
type CitizenName struct {
	First  string `json:"first,omitempty" bson:"first,omitempty"`
	Middle string `json:"middle,omitempty" bson:"middle,omitempty"`
	Last   string `json:"last,omitempty" bson:"last,omitempty"`
}

// Display joins the non-empty name parts
func (n CitizenName) Display() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.First, n.Middle, n.Last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// EmergencyContact is someone to alert when the citizen raises an SOS
type EmergencyContact struct {
	Name         string `json:"name,omitempty" bson:"name,omitempty"`
	Relationship string `json:"relationship,omitempty" bson:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	Email        string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
}

// CitizenProfile is the view of a citizen shared with the responder assigned
// to their request
type CitizenProfile struct {
	Name              CitizenName        `json:"name"`
	Phone             string             `json:"phone"`
	BloodGroup        string             `json:"bloodGroup,omitempty"`
	Allergies         []string           `json:"allergies,omitempty"`
	MedicalConditions []string           `json:"medicalConditions,omitempty"`
	Medications       []string           `json:"medications,omitempty"`
	SpecialNeeds      []string           `json:"specialNeeds,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty"`
}

// Profile returns the medical profile shared with an assigned responder
func (c Citizen) Profile() CitizenProfile {
	return CitizenProfile{
		Name:              c.Name,
		Phone:             c.Phone,
		BloodGroup:        c.BloodGroup,
		Allergies:         c.Allergies,
		MedicalConditions: c.MedicalConditions,
		Medications:       c.Medications,
		SpecialNeeds:      c.SpecialNeeds,
		EmergencyContacts: c.EmergencyContacts,
	}
}
