// Package telephony wraps the Twilio REST API and the TwiML responses the
// webhook endpoints return.
package telephony

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/desokroshan/truckflow-ai/config"
)

// Client provides call metadata lookup, recording download and outbound SMS
type Client struct {
	rest        *twilio.RestClient
	http        *http.Client
	accountSID  string
	authToken   string
	phoneNumber string
	enabled     bool
}

// NewClient creates a telephony client. Missing credentials yield a disabled
// client so the rest of the service keeps running.
func NewClient(cfg config.TwilioConfig) *Client {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		log.Warn().Msg("Twilio credentials not provided, telephony integration disabled")
		return &Client{enabled: false}
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &Client{
		rest:        rest,
		http:        &http.Client{Timeout: 60 * time.Second},
		accountSID:  cfg.AccountSID,
		authToken:   cfg.AuthToken,
		phoneNumber: cfg.PhoneNumber,
		enabled:     true,
	}
}

// Enabled reports whether credentials were configured
func (c *Client) Enabled() bool {
	return c.enabled
}

// CallerNumber recovers the caller's phone number for a call SID
func (c *Client) CallerNumber(ctx context.Context, callSID string) (string, error) {
	if !c.enabled {
		return "", errors.New("telephony is not configured")
	}

	call, err := c.rest.Api.FetchCall(callSID, &twilioApi.FetchCallParams{})
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch call")
	}
	if call.From == nil {
		return "", errors.New("call has no caller number")
	}
	return *call.From, nil
}

// DownloadRecording fetches the recording audio bytes and writes them to
// destPath. Twilio serves the mp3 rendition at the recording URL with an
// .mp3 suffix.
func (c *Client) DownloadRecording(ctx context.Context, recordingURL, destPath string) error {
	if !c.enabled {
		return errors.New("telephony is not configured")
	}

	url := recordingURL
	if !strings.HasSuffix(url, ".mp3") {
		url += ".mp3"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build recording request")
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to download recording")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("failed to download recording: status %s", resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return errors.Wrap(err, "failed to create recording file")
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errors.Wrap(err, "failed to write recording file")
	}
	return nil
}

// SendSMS sends an outbound SMS from the configured number
func (c *Client) SendSMS(ctx context.Context, to, body string) error {
	if !c.enabled || c.phoneNumber == "" {
		log.Info().Str("to", to).Str("body", body).Msg("SMS sending disabled, message not sent")
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.phoneNumber)
	params.SetBody(body)

	msg, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		return errors.Wrap(err, "failed to send SMS")
	}

	if msg.Sid != nil {
		log.Info().Str("to", to).Str("message_sid", *msg.Sid).Msg("SMS sent")
	}
	return nil
}
