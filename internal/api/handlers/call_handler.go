package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/services"
	"github.com/desokroshan/truckflow-ai/internal/tracing"
)

// allowedAudioTypes is the upload MIME allow-list.
var allowedAudioTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/mp4":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
}

// CallHandler handles call simulation, audio uploads and call log HTTP
// requests
type CallHandler struct {
	service *services.DispatchService
	tracer  tracing.Tracer
	uploads config.UploadConfig
}

// NewCallHandler creates a new call handler
func NewCallHandler(service *services.DispatchService, tracer tracing.Tracer, uploads config.UploadConfig) *CallHandler {
	return &CallHandler{
		service: service,
		tracer:  tracer,
		uploads: uploads,
	}
}

// SimulateCallRequest represents a call simulation request
type SimulateCallRequest struct {
	PhoneNumber  string `json:"phoneNumber"`
	CustomerName string `json:"customerName"`
}

// SimulateCall records a simulated inbound call
func (h *CallHandler) SimulateCall(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-simulate-call")
	defer h.tracer.EndTransaction(txn)

	var req SimulateCallRequest
	// The body is optional; a bare POST simulates an anonymous caller.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	callLog, err := h.service.SimulateCall(c, req.PhoneNumber)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start call simulation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start call simulation"})
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"callId": callLog.ID, "status": "Call simulation started"})
}

// UploadAudio accepts an audio file and runs the full pipeline on it
// synchronously, returning the created load request
func (h *CallHandler) UploadAudio(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-upload-audio")
	defer h.tracer.EndTransaction(txn)

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file uploaded"})
		return
	}
	if file.Size > h.uploads.MaxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file too large"})
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !allowedAudioTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported audio type: %s", contentType)})
		return
	}
	h.tracer.AddAttribute(txn, "filename", file.Filename)
	h.tracer.AddAttribute(txn, "size", file.Size)

	if err := os.MkdirAll(h.uploads.Dir, 0o755); err != nil {
		log.Error().Err(err).Msg("Failed to create uploads directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store audio file"})
		return
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".mp3"
	}
	audioPath := filepath.Join(h.uploads.Dir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, audioPath); err != nil {
		log.Error().Err(err).Msg("Failed to store uploaded audio")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store audio file"})
		return
	}
	defer func() {
		if err := os.Remove(audioPath); err != nil {
			log.Warn().Err(err).Str("path", audioPath).Msg("Failed to remove uploaded audio")
		}
	}()

	processed, err := h.service.ProcessAudioFile(c, audioPath, "", nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to process uploaded audio")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process audio file: " + err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loadRequest":   processed.LoadRequest,
		"transcription": processed.Transcription.Text,
		"extractedData": processed.Extracted,
		"message":       "Audio processed successfully and notifications sent",
	})
}

// ListCallLogs returns all call logs, newest first
func (h *CallHandler) ListCallLogs(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-call-logs")
	defer h.tracer.EndTransaction(txn)

	callLogs, err := h.service.ListCallLogs(c)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list call logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch call logs"})
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, callLogs)
}

// RegisterRoutes registers the handler's routes
func (h *CallHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/simulate-call", h.SimulateCall)
	api.POST("/upload-audio", h.UploadAudio)
	api.GET("/call-logs", h.ListCallLogs)
}
