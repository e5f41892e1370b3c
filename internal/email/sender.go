package email

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Message is one rendered email for one destination.
type Message struct {
	To          string
	Subject     string
	HTML        string
	TrackOpens  bool
	TrackClicks bool
}

// Delivery hands a message to an external provider. A nil error means the
// provider accepted it.
type Delivery interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Send builds the MIME message and delivers it over a fresh connection.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if h := trackingHeader(msg); h != "" {
		m.SetHeader("X-SMTPAPI", h)
	}
	m.SetBody("text/html", msg.HTML)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send error: %w", err)
	}

	return nil
}

type trackSetting struct {
	Settings struct {
		Enable int `json:"enable"`
	} `json:"settings"`
}

// trackingHeader renders the relay filter header that switches on open and
// click tracking. Relays that do not understand it ignore it.
func trackingHeader(msg Message) string {
	if !msg.TrackOpens && !msg.TrackClicks {
		return ""
	}

	filters := map[string]trackSetting{}
	if msg.TrackOpens {
		var t trackSetting
		t.Settings.Enable = 1
		filters["opentrack"] = t
	}
	if msg.TrackClicks {
		var t trackSetting
		t.Settings.Enable = 1
		filters["clicktrack"] = t
	}

	b, err := json.Marshal(map[string]any{"filters": filters})
	if err != nil {
		return ""
	}
	return string(b)
}
