package telephony

import (
	"github.com/twilio/twilio-go/twiml"
)

const (
	voiceName     = "Polly.Joanna-Neural"
	voiceLanguage = "en-US"

	greetingMessage = "Thank you for calling Expedite Transport. I'm your AI assistant and I'll help you with your shipping request. Please describe your shipping needs including pickup location, delivery location, cargo type, and any special requirements. I'll be recording this call to process your request."

	goodbyeMessage = "Thank you for choosing Expedite Transport. I'm processing your information and will send the details to our dispatch team. You should receive a confirmation within 15 minutes for your expedited shipment. Have a great day!"

	smsAckMessage = "Thank you for your load request! We're processing your shipping details and will send them to our dispatch team. You'll receive a confirmation within 15 minutes. - Expedite Transport"
)

// VoiceGreeting builds the TwiML answer for an incoming call: a spoken
// prompt followed by a record instruction that posts to recordAction.
func VoiceGreeting(recordAction string) (string, error) {
	say := &twiml.VoiceSay{
		Message:  greetingMessage,
		Voice:    voiceName,
		Language: voiceLanguage,
	}
	record := &twiml.VoiceRecord{
		Action:     recordAction,
		Method:     "POST",
		MaxLength:  "300",
		Transcribe: "false",
	}
	return twiml.Voice([]twiml.Element{say, record})
}

// VoiceGoodbye builds the TwiML acknowledgment returned from the recording
// webhook before the background pipeline runs.
func VoiceGoodbye() (string, error) {
	say := &twiml.VoiceSay{
		Message:  goodbyeMessage,
		Voice:    voiceName,
		Language: voiceLanguage,
	}
	hangup := &twiml.VoiceHangup{}
	return twiml.Voice([]twiml.Element{say, hangup})
}

// SMSAck builds the TwiML confirmation sent back for an inbound SMS.
func SMSAck() (string, error) {
	message := &twiml.MessagingMessage{
		Body: smsAckMessage,
	}
	return twiml.Messages([]twiml.Element{message})
}
