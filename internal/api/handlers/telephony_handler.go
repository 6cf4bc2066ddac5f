package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/desokroshan/truckflow-ai/internal/jobs"
	"github.com/desokroshan/truckflow-ai/internal/services"
	"github.com/desokroshan/truckflow-ai/internal/telephony"
	"github.com/desokroshan/truckflow-ai/internal/tracing"
)

// recordingWebhookPath is where the voice TwiML tells the provider to post
// the finished recording.
const recordingWebhookPath = "/api/telephony/recording"

// TelephonyHandler handles provider webhooks for calls, recordings and SMS.
// Webhooks must answer quickly with TwiML; the pipeline work runs in
// background jobs.
type TelephonyHandler struct {
	service *services.DispatchService
	runner  *jobs.Runner
	tracer  tracing.Tracer
}

// NewTelephonyHandler creates a new telephony webhook handler
func NewTelephonyHandler(service *services.DispatchService, runner *jobs.Runner, tracer tracing.Tracer) *TelephonyHandler {
	return &TelephonyHandler{
		service: service,
		runner:  runner,
		tracer:  tracer,
	}
}

// HandleVoice answers an incoming call webhook with the greeting and record
// instruction
func (h *TelephonyHandler) HandleVoice(c *gin.Context) {
	txn := h.tracer.StartTransaction("webhook-voice")
	defer h.tracer.EndTransaction(txn)

	callSID := c.PostForm("CallSid")
	from := c.PostForm("From")
	h.tracer.AddAttribute(txn, "call_sid", callSID)
	log.Info().Str("call_sid", callSID).Str("from", from).Msg("Incoming call webhook received")

	if _, err := h.service.HandleIncomingCall(c, callSID, from); err != nil {
		log.Error().Err(err).Str("call_sid", callSID).Msg("Failed to record incoming call")
		h.tracer.RecordError(txn, err)
		c.String(http.StatusInternalServerError, "Error processing call")
		return
	}

	response, err := telephony.VoiceGreeting(recordingWebhookPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build voice greeting")
		h.tracer.RecordError(txn, err)
		c.String(http.StatusInternalServerError, "Error processing call")
		return
	}
	c.Data(http.StatusOK, "text/xml", []byte(response))
}

// HandleRecording acknowledges a finished recording and processes it in the
// background
func (h *TelephonyHandler) HandleRecording(c *gin.Context) {
	txn := h.tracer.StartTransaction("webhook-recording")
	defer h.tracer.EndTransaction(txn)

	callSID := c.PostForm("CallSid")
	recordingURL := c.PostForm("RecordingUrl")
	h.tracer.AddAttribute(txn, "call_sid", callSID)
	log.Info().Str("call_sid", callSID).Str("recording_url", recordingURL).
		Msg("Recording webhook received")

	h.runner.Submit("process-recording", func(ctx context.Context) error {
		_, err := h.service.ProcessRecording(ctx, callSID, recordingURL)
		return err
	})

	response, err := telephony.VoiceGoodbye()
	if err != nil {
		log.Error().Err(err).Msg("Failed to build voice goodbye")
		h.tracer.RecordError(txn, err)
		c.String(http.StatusInternalServerError, "Error processing recording")
		return
	}
	c.Data(http.StatusOK, "text/xml", []byte(response))
}

// HandleSMS acknowledges an inbound SMS and processes its body in the
// background
func (h *TelephonyHandler) HandleSMS(c *gin.Context) {
	txn := h.tracer.StartTransaction("webhook-sms")
	defer h.tracer.EndTransaction(txn)

	from := c.PostForm("From")
	body := c.PostForm("Body")
	messageSID := c.PostForm("MessageSid")
	h.tracer.AddAttribute(txn, "message_sid", messageSID)
	log.Info().Str("from", from).Str("message_sid", messageSID).Msg("SMS webhook received")

	h.runner.Submit("process-sms", func(ctx context.Context) error {
		_, err := h.service.ProcessInboundSMS(ctx, from, body)
		return err
	})

	response, err := telephony.SMSAck()
	if err != nil {
		log.Error().Err(err).Msg("Failed to build SMS acknowledgment")
		h.tracer.RecordError(txn, err)
		c.String(http.StatusInternalServerError, "Error processing SMS")
		return
	}
	c.Data(http.StatusOK, "text/xml", []byte(response))
}

// RegisterRoutes registers the handler's routes
func (h *TelephonyHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/telephony/voice", h.HandleVoice)
	api.POST("/telephony/sms", h.HandleSMS)
	api.POST("/telephony/recording", h.HandleRecording)
}
