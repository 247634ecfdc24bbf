package notifications

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// MessageCreator is the part of the twilio api client used to send sms
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMS sends text messages through twilio. A messaging service sid is
// preferred over a from number when both are set.
type TwilioSMS struct {
	api                 MessageCreator
	messagingServiceSID string
	from                string
}

// NewTwilioSMS builds a sender from account credentials
func NewTwilioSMS(accountSID, authToken, messagingServiceSID, from string) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewTwilioSMSWithAPI(client.Api, messagingServiceSID, from)
}

// NewTwilioSMSWithAPI builds a sender over an existing api client
func NewTwilioSMSWithAPI(api MessageCreator, messagingServiceSID, from string) *TwilioSMS {
	return &TwilioSMS{api: api, messagingServiceSID: messagingServiceSID, from: from}
}

// SendSMS sends body to the E.164 number to
func (t *TwilioSMS) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(body)
	switch {
	case t.messagingServiceSID != "":
		params.SetMessagingServiceSid(t.messagingServiceSID)
	case t.from != "":
		params.SetFrom(t.from)
	default:
		return errors.New("twilio sender has neither a messaging service nor a from number")
	}

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return err
	}
	if resp != nil && resp.Sid != nil {
		zap.S().Debugw("sms sent", "to", to, "sid", *resp.Sid)
	}
	return nil
}
