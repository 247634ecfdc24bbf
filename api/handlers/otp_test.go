package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/sos-dispatch-api/api/handlers"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

func TestOTP_SendCodeHandler(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "POST", "/api/v1/otp/send", models.SendCodeRequest{Phone: citizenPhone})
	require.Equal(t, http.StatusOK, rr.Code)
	var body models.SendCodeResponse
	decode(t, rr, &body)
	assert.True(t, body.Success)
	assert.Equal(t, citizenPhone, body.To)

	rr = f.do(t, "POST", "/api/v1/otp/send", models.SendCodeRequest{Phone: "12"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	f.verifier.err = errors.New("twilio down")
	rr = f.do(t, "POST", "/api/v1/otp/send", models.SendCodeRequest{Phone: citizenPhone})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestOTP_VerifyCodeHandler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rr := f.do(t, "POST", "/api/v1/otp/verify", models.VerifyCodeRequest{Phone: ambulanceOne, Code: "123456", Role: "ambulance"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body models.VerifyCodeResponse
	decode(t, rr, &body)
	assert.Equal(t, "ambulance", body.Role)

	r, err := f.directory.GetByPhone(ctx, models.KindAmbulance, ambulanceOne)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.PhoneVerified)
	assert.Equal(t, models.AmbulanceOffline, r.Availability, "new responders start off duty")

	rr = f.do(t, "POST", "/api/v1/otp/verify", models.VerifyCodeRequest{Phone: citizenPhone, Code: "123456", Role: "citizen"})
	require.Equal(t, http.StatusOK, rr.Code)
	c, err := f.citizens.GetByPhone(ctx, citizenPhone)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.PhoneVerified)

	rr = f.do(t, "POST", "/api/v1/otp/verify", models.VerifyCodeRequest{Phone: citizenPhone, Code: "12ab", Role: "citizen"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = f.do(t, "POST", "/api/v1/otp/verify", models.VerifyCodeRequest{Phone: citizenPhone, Code: "123456", Role: "admin"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	f.verifier.approved = false
	rr = f.do(t, "POST", "/api/v1/otp/verify", models.VerifyCodeRequest{Phone: officerNear, Code: "123456", Role: "officer"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	r, err = f.directory.GetByPhone(ctx, models.KindOfficer, officerNear)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestOTP_NotConfigured(t *testing.T) {
	app := &handlers.App{Config: config.Config{}}
	app.Initialize(handlers.Deps{})

	f := &fixture{app: app}
	rr := f.do(t, "POST", "/api/v1/otp/send", models.SendCodeRequest{Phone: citizenPhone})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	rr = f.do(t, "POST", "/api/v1/otp/verify", models.VerifyCodeRequest{Phone: citizenPhone, Code: "1234", Role: "citizen"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
