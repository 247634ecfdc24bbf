// Package verification confirms phone ownership with one-time codes sent
// through Twilio Verify.
package verification

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	lookups "github.com/twilio/twilio-go/rest/lookups/v2"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Errors returned by the Verifier
var (
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidServiceSID = errors.New("invalid twilio verify service sid")
	ErrNotConfigured     = errors.New("phone verification is not configured")
)

var serviceSIDPattern = regexp.MustCompile(`^VA[0-9a-fA-F]{32}$`)

// VerifyAPI is the part of the twilio verify client the Verifier uses
type VerifyAPI interface {
	CreateVerification(serviceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// LookupAPI normalizes phone numbers
type LookupAPI interface {
	FetchPhoneNumber(phoneNumber string, params *lookups.FetchPhoneNumberParams) (*lookups.LookupsV2PhoneNumber, error)
}

// Verifier sends and checks one-time codes
type Verifier struct {
	verify     VerifyAPI
	lookup     LookupAPI
	serviceSID string
}

// New builds a Verifier from account credentials
func New(accountSID, authToken, serviceSID string) (*Verifier, error) {
	if accountSID == "" || authToken == "" {
		return nil, ErrNotConfigured
	}
	c := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewWithAPI(c.VerifyV2, c.LookupsV2, serviceSID)
}

// NewWithAPI builds a Verifier over existing clients. lookup may be nil, in
// which case numbers must already be E.164.
func NewWithAPI(v VerifyAPI, lookup LookupAPI, serviceSID string) (*Verifier, error) {
	serviceSID = strings.TrimSpace(serviceSID)
	if !serviceSIDPattern.MatchString(serviceSID) {
		return nil, ErrInvalidServiceSID
	}
	return &Verifier{verify: v, lookup: lookup, serviceSID: serviceSID}, nil
}

// Normalize returns phone in E.164 form
func (v *Verifier) Normalize(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrInvalidPhone
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if v.lookup == nil {
		if !models.ValidPhone(phone) {
			return "", ErrInvalidPhone
		}
		return phone, nil
	}
	params := &lookups.FetchPhoneNumberParams{}
	params.SetFields("validation")
	pn, err := v.lookup.FetchPhoneNumber(phone, params)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", ErrInvalidPhone
		}
		return "", err
	}
	if pn == nil || pn.PhoneNumber == nil || *pn.PhoneNumber == "" || (pn.Valid != nil && !*pn.Valid) {
		return "", ErrInvalidPhone
	}
	return *pn.PhoneNumber, nil
}

// SendCode texts a one-time code to phone and returns the normalized number
func (v *Verifier) SendCode(ctx context.Context, phone string) (string, error) {
	to, err := v.Normalize(ctx, phone)
	if err != nil {
		return "", err
	}
	params := &verify.CreateVerificationParams{}
	params.SetTo(to)
	params.SetChannel("sms")
	res, err := v.verify.CreateVerification(v.serviceSID, params)
	if err != nil {
		logTwilioError("send verification code", err)
		return "", err
	}
	if res != nil && res.Status != nil {
		zap.S().Debugw("verification code sent", "to", to, "status", *res.Status)
	}
	return to, nil
}

// CheckCode reports whether code is the approved code for phone. A wrong or
// expired code is not an error.
func (v *Verifier) CheckCode(ctx context.Context, phone, code string) (bool, string, error) {
	to, err := v.Normalize(ctx, phone)
	if err != nil {
		return false, "", err
	}
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(to)
	params.SetCode(code)
	res, err := v.verify.CreateVerificationCheck(v.serviceSID, params)
	if err != nil {
		// twilio answers 404 once the verification expired or was used
		if isStatus(err, http.StatusNotFound) {
			return false, to, nil
		}
		logTwilioError("check verification code", err)
		return false, to, err
	}
	approved := res != nil && res.Status != nil && *res.Status == "approved"
	return approved, to, nil
}

func isStatus(err error, status int) bool {
	var te *client.TwilioRestError
	return errors.As(err, &te) && te.Status == status
}

func logTwilioError(op string, err error) {
	var te *client.TwilioRestError
	if errors.As(err, &te) {
		zap.S().Errorw(op+" failed",
			"code", te.Code,
			"status", te.Status,
			"message", te.Message,
			"moreInfo", te.MoreInfo)
		return
	}
	zap.S().Errorw(op+" failed", "error", err)
}
