package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/desokroshan/truckflow-ai/config"
)

type recordingSMSSender struct {
	to   string
	body string
}

func (r *recordingSMSSender) SendSMS(ctx context.Context, to, body string) error {
	r.to = to
	r.body = body
	return nil
}

func TestSendOwnerSMSFormatsAlert(t *testing.T) {
	sms := &recordingSMSSender{}
	notifier := NewNotifier(config.SMTPConfig{}, sms)

	err := notifier.SendOwnerSMS(context.Background(), "+1 (555) 999-8888",
		"EXT-2026-AB12", "John Smith", "Dallas, TX -> Atlanta, GA")
	require.NoError(t, err)
	require.Equal(t, "+1 (555) 999-8888", sms.to)
	require.Contains(t, sms.body, "EXT-2026-AB12")
	require.Contains(t, sms.body, "John Smith")
	require.Contains(t, sms.body, "Dallas, TX -> Atlanta, GA")
}

func TestSendOwnerNotificationDisabledWithoutSMTP(t *testing.T) {
	notifier := NewNotifier(config.SMTPConfig{}, &recordingSMSSender{})

	// Missing SMTP configuration disables email without erroring
	err := notifier.SendOwnerNotification(context.Background(), "owner@trucking.com",
		LoadSummary{LoadID: "EXT-2026-AB12"}, "http://a", "http://r")
	require.NoError(t, err)
}

func TestOwnerEmailBody(t *testing.T) {
	body := ownerEmailBody(LoadSummary{
		LoadID:        "EXT-2026-AB12",
		CustomerName:  "John Smith",
		CustomerPhone: "+1 (555) 234-5678",
		Route:         "Dallas, TX -> Atlanta, GA",
		CargoType:     "Electronics",
		Weight:        "15,000 lbs",
		TruckType:     "Dry Van",
		Summary:       "Urgent electronics load.",
	}, "http://localhost:5000/api/load-requests/1/approve", "http://localhost:5000/api/load-requests/1/reject")

	require.Contains(t, body, "EXT-2026-AB12")
	require.Contains(t, body, "John Smith")
	require.Contains(t, body, "/api/load-requests/1/approve")
	require.Contains(t, body, "/api/load-requests/1/reject")
	require.Contains(t, body, "Not specified")
}
