package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/api"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
	"github.com/linesmerrill/sos-dispatch-api/verification"
)

const roleCitizen = "citizen"

// OTP exported for testing purposes
type OTP struct {
	Verifier  OTPVerifier
	Directory dispatch.Directory
	Citizens  dispatch.Citizens
	Validate  *validator.Validate
}

// SendCodeHandler texts a one-time code to the phone in the body
func (o OTP) SendCodeHandler(w http.ResponseWriter, r *http.Request) {
	if o.Verifier == nil {
		config.ErrorStatus("phone verification is not configured", http.StatusServiceUnavailable, w, verification.ErrNotConfigured)
		return
	}
	var body models.SendCodeRequest
	if !decodeBody(w, r, o.Validate, &body) {
		return
	}

	to, err := o.Verifier.SendCode(r.Context(), body.Phone)
	if err != nil {
		verificationError(w, "failed to send verification code", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SendCodeResponse{Success: true, To: to})
}

// VerifyCodeHandler checks a code and marks the phone verified for the role,
// creating the citizen or responder on first verification
func (o OTP) VerifyCodeHandler(w http.ResponseWriter, r *http.Request) {
	if o.Verifier == nil {
		config.ErrorStatus("phone verification is not configured", http.StatusServiceUnavailable, w, verification.ErrNotConfigured)
		return
	}
	var body models.VerifyCodeRequest
	if !decodeBody(w, r, o.Validate, &body) {
		return
	}

	approved, phone, err := o.Verifier.CheckCode(r.Context(), body.Phone, body.Code)
	if err != nil {
		verificationError(w, "failed to check verification code", err)
		return
	}
	if !approved {
		config.ErrorStatus("invalid or expired code", http.StatusUnauthorized, w, errors.New("verification not approved"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if body.Role == roleCitizen {
		_, err = o.Citizens.UpsertVerified(ctx, phone)
	} else {
		_, err = o.Directory.UpsertVerified(ctx, models.ResponderKind(body.Role), phone)
	}
	if err != nil {
		dispatchError(w, r, err)
		return
	}
	zap.S().Infow("phone verified", "role", body.Role, "phone", phone)
	writeJSON(w, http.StatusOK, models.VerifyCodeResponse{Success: true, Role: body.Role, Phone: phone})
}

func verificationError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, verification.ErrInvalidPhone):
		config.ErrorStatus("invalid phone number", http.StatusBadRequest, w, err)
	case errors.Is(err, verification.ErrNotConfigured):
		config.ErrorStatus(message, http.StatusServiceUnavailable, w, err)
	default:
		config.ErrorStatus(message, http.StatusBadGateway, w, err)
	}
}
