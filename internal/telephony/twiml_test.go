package telephony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoiceGreeting(t *testing.T) {
	xml, err := VoiceGreeting("/api/telephony/recording")
	require.NoError(t, err)
	require.Contains(t, xml, "<Response>")
	require.Contains(t, xml, "Expedite Transport")
	require.Contains(t, xml, `action="/api/telephony/recording"`)
	require.Contains(t, xml, `maxLength="300"`)
}

func TestVoiceGoodbye(t *testing.T) {
	xml, err := VoiceGoodbye()
	require.NoError(t, err)
	require.Contains(t, xml, "<Hangup")
	require.Contains(t, xml, "dispatch team")
}

func TestSMSAck(t *testing.T) {
	xml, err := SMSAck()
	require.NoError(t, err)
	require.Contains(t, xml, "<Message")
	require.Contains(t, xml, "Expedite Transport")
}
