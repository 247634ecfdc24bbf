package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/linesmerrill/sos-dispatch-api/api"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Citizen exported for testing purposes
type Citizen struct {
	DB       dispatch.Citizens
	Validate *validator.Validate
}

// UpdateProfileHandler replaces the profile of a verified citizen
func (c Citizen) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]
	if !models.ValidPhone(phone) {
		config.ErrorStatus("phone must be an E.164 number", http.StatusBadRequest, w, dispatch.ErrInvalidInput)
		return
	}

	var body models.CitizenProfileRequest
	if !decodeBody(w, r, c.Validate, &body) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	updated, err := c.DB.UpdateProfile(ctx, &models.Citizen{
		Phone:             phone,
		Name:              body.Name,
		DOB:               body.DOB,
		BloodGroup:        body.BloodGroup,
		Allergies:         body.Allergies,
		MedicalConditions: body.MedicalConditions,
		Medications:       body.Medications,
		SpecialNeeds:      body.SpecialNeeds,
		EmergencyContacts: body.EmergencyContacts,
		HomeAddress:       body.HomeAddress,
		PhotoURL:          body.PhotoURL,
	})
	if err != nil {
		dispatchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
