// Package services implements the dispatch pipeline that turns incoming
// calls, messages and audio uploads into load requests.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/cache"
	"github.com/desokroshan/truckflow-ai/internal/metrics"
	"github.com/desokroshan/truckflow-ai/internal/models"
	"github.com/desokroshan/truckflow-ai/internal/notify"
	"github.com/desokroshan/truckflow-ai/internal/repositories"
	"github.com/desokroshan/truckflow-ai/internal/transcription"
)

// revenuePerApprovedLoad is the flat per-load figure the dashboard reports
// until real pricing lands.
const revenuePerApprovedLoad = 2500

// metricsCacheTTL bounds how stale the cached dashboard metrics may be.
const metricsCacheTTL = 30 * time.Second

// simulatedCallerNumber is used when a simulation request names no caller.
const simulatedCallerNumber = "+1 (555) 123-4567"

// TelephonyClient is the telephony surface the pipeline needs.
type TelephonyClient interface {
	CallerNumber(ctx context.Context, callSID string) (string, error)
	DownloadRecording(ctx context.Context, recordingURL, destPath string) error
	SendSMS(ctx context.Context, to, body string) error
}

// Extractor maps transcript text to the structured load field set.
type Extractor interface {
	ExtractLoad(ctx context.Context, transcript string) (*models.ExtractedLoad, error)
	SummarizeLoad(ctx context.Context, load *models.ExtractedLoad) (string, error)
}

// SheetSync mirrors load rows into the operator's spreadsheet.
type SheetSync interface {
	AppendLoad(ctx context.Context, load *models.LoadRequest) error
	UpdateLoadStatus(ctx context.Context, loadID, status string) error
}

// LoadIndexer pushes load documents into the search index.
type LoadIndexer interface {
	IndexLoad(ctx context.Context, load *models.LoadRequest) error
}

// OwnerNotifier alerts the owner about a new load over email and SMS.
type OwnerNotifier interface {
	SendOwnerNotification(ctx context.Context, to string, summary notify.LoadSummary, approveURL, rejectURL string) error
	SendOwnerSMS(ctx context.Context, to, loadID, customerName, route string) error
}

// MetricsCache holds the computed dashboard metrics between requests.
// Satisfied by cache.RedisCache.
type MetricsCache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ProcessedAudio is the outcome of one audio processing run.
type ProcessedAudio struct {
	LoadRequest   *models.LoadRequest
	Transcription *transcription.Result
	Extracted     *models.ExtractedLoad
}

// DashboardMetrics summarizes pipeline activity for the dashboard.
type DashboardMetrics struct {
	CallsToday      int `json:"callsToday"`
	LoadsProcessed  int `json:"loadsProcessed"`
	PendingApproval int `json:"pendingApproval"`
	Revenue         int `json:"revenue"`
	TotalLoads      int `json:"totalLoads"`
	TotalCalls      int `json:"totalCalls"`
}

// DispatchService coordinates transcription, extraction, storage and
// notifications. Transcription, extraction and record creation are fatal for
// a pipeline run; spreadsheet sync, indexing and notifications are
// best-effort and only logged on failure.
type DispatchService struct {
	loads       repositories.LoadRequestRepository
	callLogs    repositories.CallLogRepository
	transcriber transcription.Transcriber
	extractor   Extractor
	telephony   TelephonyClient
	sheets      SheetSync
	indexer     LoadIndexer
	notifier    OwnerNotifier
	cache       MetricsCache
	metrics     *metrics.Metrics
	owner       config.OwnerConfig
	baseURL     string
	uploadsDir  string
}

// NewDispatchService creates the dispatch service.
func NewDispatchService(
	loads repositories.LoadRequestRepository,
	callLogs repositories.CallLogRepository,
	transcriber transcription.Transcriber,
	extractor Extractor,
	telephony TelephonyClient,
	sheets SheetSync,
	indexer LoadIndexer,
	notifier OwnerNotifier,
	metricsCache MetricsCache,
	m *metrics.Metrics,
	cfg config.Config,
) *DispatchService {
	return &DispatchService{
		loads:       loads,
		callLogs:    callLogs,
		transcriber: transcriber,
		extractor:   extractor,
		telephony:   telephony,
		sheets:      sheets,
		indexer:     indexer,
		notifier:    notifier,
		cache:       metricsCache,
		metrics:     m,
		owner:       cfg.Owner,
		baseURL:     cfg.BaseURL,
		uploadsDir:  cfg.Uploads.Dir,
	}
}

// ListLoadRequests returns all load requests, newest first.
func (s *DispatchService) ListLoadRequests(ctx context.Context) ([]models.LoadRequest, error) {
	return s.loads.List(ctx)
}

// GetLoadRequest returns one load request by id.
func (s *DispatchService) GetLoadRequest(ctx context.Context, id uint) (*models.LoadRequest, error) {
	return s.loads.GetByID(ctx, id)
}

// ListCallLogs returns all call logs, newest first.
func (s *DispatchService) ListCallLogs(ctx context.Context) ([]models.CallLog, error) {
	return s.callLogs.List(ctx)
}

// SimulateCall records a simulated inbound call. No audio is processed; the
// recording webhook drives the real pipeline.
func (s *DispatchService) SimulateCall(ctx context.Context, phoneNumber string) (*models.CallLog, error) {
	if phoneNumber == "" {
		phoneNumber = simulatedCallerNumber
	}

	callLog := &models.CallLog{
		PhoneNumber: phoneNumber,
		Duration:    0,
		Status:      models.CallStatusSimulated,
	}
	if err := s.callLogs.Create(ctx, callLog); err != nil {
		return nil, errors.Wrap(err, "failed to create simulated call log")
	}

	s.metrics.IncrementCounter("calls_simulated")
	log.Info().Uint("call_log_id", callLog.ID).Str("phone_number", phoneNumber).
		Msg("Call simulation started, waiting for recording webhook")
	return callLog, nil
}

// HandleIncomingCall records a real inbound call as in progress. The
// returned call log id is threaded through to the recording webhook via the
// call SID.
func (s *DispatchService) HandleIncomingCall(ctx context.Context, callSID, from string) (*models.CallLog, error) {
	callLog := &models.CallLog{
		PhoneNumber: from,
		Status:      models.CallStatusInProgress,
	}
	if callSID != "" {
		callLog.CallSID = &callSID
	}
	if err := s.callLogs.Create(ctx, callLog); err != nil {
		return nil, errors.Wrap(err, "failed to create call log")
	}

	s.metrics.IncrementCounter("calls_received")
	log.Info().Uint("call_log_id", callLog.ID).Str("call_sid", callSID).
		Str("from", from).Msg("Incoming call recorded")
	return callLog, nil
}

// ProcessAudioFile runs the full pipeline for an audio file already on disk:
// transcribe, extract, persist, then fan out the best-effort side effects.
// When callLogID is set the matching call log is updated with the transcript
// and linked to the created load.
func (s *DispatchService) ProcessAudioFile(ctx context.Context, audioPath, callerNumber string, callLogID *uint) (*ProcessedAudio, error) {
	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio file")
	}
	defer audio.Close()

	result, err := s.transcriber.Transcribe(ctx, audio, audioPath)
	if err != nil {
		s.metrics.RecordError("transcription")
		return nil, err
	}
	s.metrics.RecordSuccess("transcription")
	log.Info().Int("chars", len(result.Text)).Float64("duration_seconds", result.Duration).
		Msg("Audio transcribed")

	extracted, err := s.extractor.ExtractLoad(ctx, result.Text)
	if err != nil {
		s.metrics.RecordError("extraction")
		return nil, err
	}
	s.metrics.RecordSuccess("extraction")

	load, err := s.createLoadRequest(ctx, extracted, callerNumber, result.Text)
	if err != nil {
		return nil, err
	}

	if callLogID != nil {
		s.completeCallLog(ctx, *callLogID, load, result)
	} else {
		s.recordProcessedCall(ctx, load, result, audioPath)
	}

	s.finalizeLoad(ctx, load, extracted)
	return &ProcessedAudio{
		LoadRequest:   load,
		Transcription: result,
		Extracted:     extracted,
	}, nil
}

// ProcessRecording downloads a call recording, resolves the call log by call
// SID and runs the audio pipeline on the downloaded file.
func (s *DispatchService) ProcessRecording(ctx context.Context, callSID, recordingURL string) (*ProcessedAudio, error) {
	callerNumber := ""
	if number, err := s.telephony.CallerNumber(ctx, callSID); err != nil {
		log.Warn().Err(err).Str("call_sid", callSID).Msg("Failed to look up caller number")
	} else {
		callerNumber = number
	}

	var callLogID *uint
	if callLog, err := s.callLogs.GetByCallSID(ctx, callSID); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Err(err).Str("call_sid", callSID).Msg("Failed to look up call log")
		}
	} else {
		callLogID = &callLog.ID
		if callerNumber == "" {
			callerNumber = callLog.PhoneNumber
		}
	}

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create uploads directory")
	}
	audioPath := fmt.Sprintf("%s/recording_%s.mp3", s.uploadsDir, callSID)
	if err := s.telephony.DownloadRecording(ctx, recordingURL, audioPath); err != nil {
		s.metrics.RecordError("recording_download")
		return nil, err
	}
	defer func() {
		if err := os.Remove(audioPath); err != nil {
			log.Warn().Err(err).Str("path", audioPath).Msg("Failed to remove downloaded recording")
		}
	}()
	s.metrics.RecordSuccess("recording_download")

	return s.ProcessAudioFile(ctx, audioPath, callerNumber, callLogID)
}

// ProcessInboundSMS runs extraction directly on a text message body and
// creates the load request with the sender as customer phone.
func (s *DispatchService) ProcessInboundSMS(ctx context.Context, from, body string) (*models.LoadRequest, error) {
	extracted, err := s.extractor.ExtractLoad(ctx, body)
	if err != nil {
		s.metrics.RecordError("extraction")
		return nil, err
	}
	s.metrics.RecordSuccess("extraction")

	load, err := s.createLoadRequest(ctx, extracted, from, body)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("sms_received")
	s.finalizeLoad(ctx, load, extracted)
	return load, nil
}

// Decide approves or rejects a load request. Both decisions stamp the
// decision time; repeating a decision re-stamps it.
func (s *DispatchService) Decide(ctx context.Context, id uint, status string) (*models.LoadRequest, error) {
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, errors.Errorf("invalid decision status: %s", status)
	}

	now := time.Now()
	load, err := s.loads.UpdateStatus(ctx, id, status, &now)
	if err != nil {
		return nil, err
	}

	if err := s.sheets.UpdateLoadStatus(ctx, load.LoadID, status); err != nil {
		log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to update load status in spreadsheet")
	}
	if err := s.indexer.IndexLoad(ctx, load); err != nil {
		log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to reindex load request")
	}

	// A decision changes pendingApproval and revenue; drop the cached
	// metrics instead of serving them stale for the rest of the TTL.
	if err := s.cache.Delete(ctx, cache.MetricsCacheKey); err != nil {
		log.Debug().Err(err).Msg("Failed to invalidate cached dashboard metrics")
	}

	s.metrics.IncrementCounter("loads_" + status)
	log.Info().Uint("id", id).Str("load_id", load.LoadID).Str("status", status).
		Msg("Load request decided")
	return load, nil
}

// Metrics computes the dashboard metrics, served from cache when fresh.
func (s *DispatchService) Metrics(ctx context.Context) (*DashboardMetrics, error) {
	var cached DashboardMetrics
	if err := s.cache.Get(ctx, cache.MetricsCacheKey, &cached); err == nil {
		return &cached, nil
	}

	loadRequests, err := s.loads.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list load requests")
	}
	callLogs, err := s.callLogs.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list call logs")
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	m := &DashboardMetrics{
		TotalLoads: len(loadRequests),
		TotalCalls: len(callLogs),
	}
	for _, call := range callLogs {
		if !call.CreatedAt.Before(startOfDay) {
			m.CallsToday++
		}
	}
	for _, load := range loadRequests {
		if !load.CreatedAt.Before(startOfDay) {
			m.LoadsProcessed++
		}
		switch load.Status {
		case models.StatusPending:
			m.PendingApproval++
		case models.StatusApproved:
			m.Revenue += revenuePerApprovedLoad
		}
	}

	if err := s.cache.Set(ctx, cache.MetricsCacheKey, m, metricsCacheTTL); err != nil {
		log.Debug().Err(err).Msg("Failed to cache dashboard metrics")
	}
	return m, nil
}

// CleanupUploads removes stray files from the uploads directory older than
// the given age. Recordings and uploads are normally removed inline; this
// sweeps up after crashed pipeline runs.
func (s *DispatchService) CleanupUploads(ctx context.Context, olderThan time.Duration) error {
	entries, err := os.ReadDir(s.uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read uploads directory")
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := fmt.Sprintf("%s/%s", s.uploadsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove stale upload")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Stale uploads cleaned up")
	}
	return nil
}

// createLoadRequest persists the extracted fields as a pending load request.
// The extracted customer phone wins over the caller number because callers
// often leave a callback number in the message.
func (s *DispatchService) createLoadRequest(ctx context.Context, extracted *models.ExtractedLoad, callerNumber, transcript string) (*models.LoadRequest, error) {
	customerPhone := extracted.CustomerPhone
	if customerPhone == "" {
		customerPhone = callerNumber
	}

	extractedJSON, err := json.Marshal(extracted)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal extracted data")
	}
	extractedStr := string(extractedJSON)

	load := &models.LoadRequest{
		CustomerName:     extracted.CustomerName,
		CustomerPhone:    customerPhone,
		PickupLocation:   extracted.PickupLocation,
		PickupAddress:    extracted.PickupAddress,
		DeliveryLocation: extracted.DeliveryLocation,
		DeliveryAddress:  extracted.DeliveryAddress,
		CargoType:        extracted.CargoType,
		Weight:           extracted.Weight,
		TruckType:        extracted.TruckType,
		PickupTime:       optional(extracted.PickupTime),
		DeliveryTime:     optional(extracted.DeliveryTime),
		Deadline:         optional(extracted.Deadline),
		Status:           models.StatusPending,
		Transcription:    &transcript,
		ExtractedData:    &extractedStr,
	}
	if err := s.loads.Create(ctx, load); err != nil {
		s.metrics.RecordError("load_create")
		return nil, errors.Wrap(err, "failed to create load request")
	}

	s.metrics.RecordSuccess("load_create")
	s.metrics.IncrementCounter("loads_created")
	log.Info().Str("load_id", load.LoadID).Str("customer", load.CustomerName).
		Str("route", load.Route()).Msg("Load request created")
	return load, nil
}

// completeCallLog marks the originating call processed and links it to the
// load. Best-effort; the load already exists.
func (s *DispatchService) completeCallLog(ctx context.Context, callLogID uint, load *models.LoadRequest, result *transcription.Result) {
	if _, err := s.callLogs.MarkProcessed(ctx, callLogID, result.Text, int(result.Duration+0.5)); err != nil {
		log.Error().Err(err).Uint("call_log_id", callLogID).Msg("Failed to mark call log processed")
		return
	}
	if err := s.callLogs.LinkLoadRequest(ctx, callLogID, load.ID); err != nil {
		log.Error().Err(err).Uint("call_log_id", callLogID).Uint("load_request_id", load.ID).
			Msg("Failed to link call log to load request")
	}
}

// recordProcessedCall logs a call entry for audio that arrived without a
// prior call log, such as a direct upload. Best-effort.
func (s *DispatchService) recordProcessedCall(ctx context.Context, load *models.LoadRequest, result *transcription.Result, audioPath string) {
	callLog := &models.CallLog{
		PhoneNumber:   load.CustomerPhone,
		Duration:      int(result.Duration + 0.5),
		Status:        models.CallStatusProcessed,
		Transcription: &result.Text,
		AudioFileURL:  &audioPath,
		LoadRequestID: &load.ID,
	}
	if err := s.callLogs.Create(ctx, callLog); err != nil {
		log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to record processed call")
	}
}

// finalizeLoad runs the best-effort side effects for a new load: spreadsheet
// append, search indexing, summary generation and the owner notification
// fan-out. Failures are logged and never fail the pipeline run.
func (s *DispatchService) finalizeLoad(ctx context.Context, load *models.LoadRequest, extracted *models.ExtractedLoad) {
	if err := s.sheets.AppendLoad(ctx, load); err != nil {
		s.metrics.RecordError("sheets_append")
		log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to append load to spreadsheet")
	} else {
		s.metrics.RecordSuccess("sheets_append")
	}

	if err := s.indexer.IndexLoad(ctx, load); err != nil {
		log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to index load request")
	}

	summary, err := s.extractor.SummarizeLoad(ctx, extracted)
	if err != nil {
		log.Warn().Err(err).Str("load_id", load.LoadID).Msg("Failed to generate load summary, using fallback")
		summary = fmt.Sprintf("New load request from %s: %s of %s from %s to %s.",
			load.CustomerName, load.TruckType, load.CargoType,
			load.PickupLocation, load.DeliveryLocation)
	}

	loadSummary := notify.LoadSummary{
		LoadID:        load.LoadID,
		CustomerName:  load.CustomerName,
		CustomerPhone: load.CustomerPhone,
		Route:         load.Route(),
		CargoType:     load.CargoType,
		Weight:        load.Weight,
		TruckType:     load.TruckType,
		Deadline:      stringOrEmpty(load.Deadline),
		Summary:       summary,
	}
	approveURL := fmt.Sprintf("%s/api/load-requests/%d/approve", s.baseURL, load.ID)
	rejectURL := fmt.Sprintf("%s/api/load-requests/%d/reject", s.baseURL, load.ID)

	// Plain group, not WithContext: the channels are independent and a
	// failing one must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		if err := s.notifier.SendOwnerNotification(ctx, s.owner.Email, loadSummary, approveURL, rejectURL); err != nil {
			log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to send owner email")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.notifier.SendOwnerSMS(ctx, s.owner.Phone, load.LoadID, load.CustomerName, load.Route()); err != nil {
			log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to send owner SMS")
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordError("owner_notification")
		return
	}
	s.metrics.RecordSuccess("owner_notification")

	if err := s.loads.MarkNotificationSent(ctx, load.ID); err != nil {
		log.Error().Err(err).Str("load_id", load.LoadID).Msg("Failed to mark notification sent")
		return
	}
	load.NotificationSent = true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
