package templates

import (
	"fmt"
	"html"
	"time"
)

// SOSAlertEmailData holds the fields shown in the emergency contact alert
type SOSAlertEmailData struct {
	Subject     string
	CitizenName string
	ServiceType string
	MapsURL     string
	RaisedAt    time.Time
}

// RenderSOSAlertEmail generates the HTML sent to a citizen's emergency contacts.
// Every field is HTML-escaped.
func RenderSOSAlertEmail(d SOSAlertEmailData) string {
	subject := html.EscapeString(d.Subject)
	name := html.EscapeString(d.CitizenName)
	service := html.EscapeString(d.ServiceType)
	mapsURL := html.EscapeString(d.MapsURL)
	raisedAt := d.RaisedAt.UTC().Format("02 Jan 2006 15:04 MST")

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #0a0a0f; }
    .container { max-width: 600px; margin: 0 auto; background-color: #12121f; }
    .header { background: linear-gradient(135deg, #ef4444 0%%, #b91c1c 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #e5e7eb; line-height: 1.6; font-size: 15px; }
    .cta-button { display: inline-block; background: #ef4444; color: #fff; padding: 14px 28px; border-radius: 8px; text-decoration: none; font-weight: 700; margin-top: 20px; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid rgba(255,255,255,0.1); }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>SOS %s ALERT</h1>
    </div>
    <div class="content">
      <p><strong>%s</strong> raised an emergency request at %s and listed you as an emergency contact.</p>
      <p>A responder is being dispatched to their location.</p>
      <a class="cta-button" href="%s">Open location in Maps</a>
    </div>
    <div class="footer">
      <p>You received this email because you are an emergency contact on SOS Dispatch.</p>
    </div>
  </div>
</body>
</html>`, subject, service, name, raisedAt, mapsURL)
}
