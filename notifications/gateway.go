// Package notifications fans SOS alerts out to a citizen's emergency contacts
// over sms and email. Delivery is best effort: failures are counted, never
// returned.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linesmerrill/sos-dispatch-api/models"
	templates "github.com/linesmerrill/sos-dispatch-api/templates/html"
)

// DefaultConcurrency caps the number of sends in flight for one alert
const DefaultConcurrency = 8

// Result counts the outcome of a fan-out
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// SMSSender delivers a single text message
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailSender delivers a single email
type EmailSender interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, plainText, html string) error
}

// Gateway sends alerts through the configured senders. Either sender may be nil.
type Gateway struct {
	sms         SMSSender
	email       EmailSender
	concurrency int
}

// NewGateway returns a Gateway over the given senders
func NewGateway(sms SMSSender, email EmailSender) *Gateway {
	return &Gateway{sms: sms, email: email, concurrency: DefaultConcurrency}
}

// Send texts message to every phone. Numbers that are not E.164 are skipped
// without being counted.
func (g *Gateway) Send(ctx context.Context, phones []string, message string) Result {
	if g.sms == nil {
		zap.S().Debugw("sms sender not configured, skipping", "recipients", len(phones))
		return Result{}
	}
	var sent, failed int64
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for _, phone := range phones {
		phone := phone
		if !models.ValidPhone(phone) {
			zap.S().Debugw("skipping invalid phone", "phone", phone)
			continue
		}
		eg.Go(func() error {
			if err := g.sms.SendSMS(ctx, phone, message); err != nil {
				atomic.AddInt64(&failed, 1)
				zap.S().Warnw("failed to send sms", "to", phone, "error", err)
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	_ = eg.Wait()
	return Result{Sent: int(sent), Failed: int(failed)}
}

// NotifyEmergencyContacts alerts every emergency contact of citizen about r
func (g *Gateway) NotifyEmergencyContacts(ctx context.Context, citizen *models.Citizen, r *models.DispatchRequest) Result {
	if citizen == nil || len(citizen.EmergencyContacts) == 0 {
		return Result{}
	}
	name := citizen.Name.Display()
	if name == "" {
		name = citizen.Phone
	}
	body := AlertText(r.ServiceType, name, r.MapsURL)

	phones := make([]string, 0, len(citizen.EmergencyContacts))
	for _, c := range citizen.EmergencyContacts {
		if c.Phone != "" {
			phones = append(phones, c.Phone)
		}
	}
	res := g.Send(ctx, phones, body)

	if g.email == nil {
		return res
	}
	subject := AlertSubject(r.ServiceType, name)
	html := templates.RenderSOSAlertEmail(templates.SOSAlertEmailData{
		Subject:     subject,
		CitizenName: name,
		ServiceType: strings.ToUpper(string(r.ServiceType)),
		MapsURL:     r.MapsURL,
		RaisedAt:    r.CreatedAt,
	})
	for _, c := range citizen.EmergencyContacts {
		if c.Email == "" {
			continue
		}
		if err := g.email.SendEmail(ctx, c.Name, c.Email, subject, body, html); err != nil {
			res.Failed++
			zap.S().Warnw("failed to send alert email", "to", c.Email, "error", err)
			continue
		}
		res.Sent++
	}
	return res
}

// AlertText is the sms body sent to emergency contacts
func AlertText(service models.ServiceType, name, mapsURL string) string {
	return fmt.Sprintf("SOS %s ALERT\n%s needs help.\nLocation: %s", strings.ToUpper(string(service)), name, mapsURL)
}

// AlertSubject is the email subject sent to emergency contacts
func AlertSubject(service models.ServiceType, name string) string {
	return fmt.Sprintf("SOS %s alert for %s", strings.ToUpper(string(service)), name)
}
