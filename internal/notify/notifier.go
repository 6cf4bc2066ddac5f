// Package notify delivers owner-facing notifications over email and SMS.
package notify

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/desokroshan/truckflow-ai/config"
)

// LoadSummary carries everything the owner notification displays for one
// load request
type LoadSummary struct {
	LoadID        string
	CustomerName  string
	CustomerPhone string
	Route         string
	CargoType     string
	Weight        string
	TruckType     string
	Deadline      string
	Summary       string
}

// SMSSender sends an outbound text message. Satisfied by telephony.Client.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Notifier sends owner notifications. Email and SMS are independent
// channels; a failure of one never blocks the other.
type Notifier struct {
	dialer       *gomail.Dialer
	from         string
	sms          SMSSender
	emailEnabled bool
}

// NewNotifier creates a notifier. Missing SMTP configuration disables the
// email channel only.
func NewNotifier(cfg config.SMTPConfig, sms SMSSender) *Notifier {
	n := &Notifier{
		from: cfg.From,
		sms:  sms,
	}
	if cfg.Host == "" {
		log.Warn().Msg("SMTP host not provided, email notifications disabled")
		return n
	}

	n.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	n.emailEnabled = true
	return n
}

// SendOwnerNotification emails the structured load summary with approve and
// reject links
func (n *Notifier) SendOwnerNotification(ctx context.Context, to string, summary LoadSummary, approveURL, rejectURL string) error {
	if !n.emailEnabled {
		log.Info().Str("to", to).Str("load_id", summary.LoadID).Msg("Email sending disabled, notification not sent")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("New Load Request %s - %s", summary.LoadID, summary.Route))
	m.SetBody("text/html", ownerEmailBody(summary, approveURL, rejectURL))

	if err := n.dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, "failed to send owner notification email")
	}

	log.Info().Str("to", to).Str("load_id", summary.LoadID).Msg("Owner notification email sent")
	return nil
}

// SendOwnerSMS texts the owner a short alert for a new load request
func (n *Notifier) SendOwnerSMS(ctx context.Context, to, loadID, customerName, route string) error {
	body := fmt.Sprintf("New load request %s from %s: %s. Check your email to approve or reject.",
		loadID, customerName, route)
	if err := n.sms.SendSMS(ctx, to, body); err != nil {
		return errors.Wrap(err, "failed to send owner SMS")
	}
	return nil
}

func ownerEmailBody(summary LoadSummary, approveURL, rejectURL string) string {
	deadline := summary.Deadline
	if deadline == "" {
		deadline = "Not specified"
	}
	return fmt.Sprintf(`<h2>New Load Request: %s</h2>
<p>%s</p>
<table>
  <tr><td><b>Customer</b></td><td>%s</td></tr>
  <tr><td><b>Phone</b></td><td>%s</td></tr>
  <tr><td><b>Route</b></td><td>%s</td></tr>
  <tr><td><b>Cargo</b></td><td>%s</td></tr>
  <tr><td><b>Weight</b></td><td>%s</td></tr>
  <tr><td><b>Truck Type</b></td><td>%s</td></tr>
  <tr><td><b>Deadline</b></td><td>%s</td></tr>
</table>
<p>
  <a href="%s">Approve</a> | <a href="%s">Reject</a>
</p>`,
		summary.LoadID,
		summary.Summary,
		summary.CustomerName,
		summary.CustomerPhone,
		summary.Route,
		summary.CargoType,
		summary.Weight,
		summary.TruckType,
		deadline,
		approveURL,
		rejectURL,
	)
}
