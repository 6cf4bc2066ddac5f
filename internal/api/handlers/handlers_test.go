package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/cache"
	"github.com/desokroshan/truckflow-ai/internal/jobs"
	"github.com/desokroshan/truckflow-ai/internal/metrics"
	"github.com/desokroshan/truckflow-ai/internal/models"
	"github.com/desokroshan/truckflow-ai/internal/notify"
	"github.com/desokroshan/truckflow-ai/internal/repositories"
	"github.com/desokroshan/truckflow-ai/internal/services"
	"github.com/desokroshan/truckflow-ai/internal/tracing"
	"github.com/desokroshan/truckflow-ai/internal/transcription"
)

type stubTranscriber struct{}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (*transcription.Result, error) {
	return &transcription.Result{
		Text:     "I need a dry van from Dallas to Atlanta for fifteen thousand pounds of electronics.",
		Duration: 42.6,
	}, nil
}

type stubExtractor struct{}

func (s *stubExtractor) ExtractLoad(ctx context.Context, transcript string) (*models.ExtractedLoad, error) {
	return &models.ExtractedLoad{
		CustomerName:     "John Smith",
		CustomerPhone:    "+1 (555) 234-5678",
		PickupLocation:   "Dallas, TX",
		DeliveryLocation: "Atlanta, GA",
		CargoType:        "Electronics",
		Weight:           "15,000 lbs",
		TruckType:        "Dry Van",
	}, nil
}

func (s *stubExtractor) SummarizeLoad(ctx context.Context, load *models.ExtractedLoad) (string, error) {
	return "Urgent electronics load from Dallas to Atlanta.", nil
}

type stubTelephony struct{}

func (s *stubTelephony) CallerNumber(ctx context.Context, callSID string) (string, error) {
	return "+1 (555) 234-5678", nil
}

func (s *stubTelephony) DownloadRecording(ctx context.Context, recordingURL, destPath string) error {
	return os.WriteFile(destPath, []byte("audio bytes"), 0o644)
}

func (s *stubTelephony) SendSMS(ctx context.Context, to, body string) error {
	return nil
}

type stubSheetSync struct{}

func (s *stubSheetSync) AppendLoad(ctx context.Context, load *models.LoadRequest) error {
	return nil
}

func (s *stubSheetSync) UpdateLoadStatus(ctx context.Context, loadID, status string) error {
	return nil
}

type stubIndexer struct{}

func (s *stubIndexer) IndexLoad(ctx context.Context, load *models.LoadRequest) error {
	return nil
}

type stubNotifier struct{}

func (s *stubNotifier) SendOwnerNotification(ctx context.Context, to string, summary notify.LoadSummary, approveURL, rejectURL string) error {
	return nil
}

func (s *stubNotifier) SendOwnerSMS(ctx context.Context, to, loadID, customerName, route string) error {
	return nil
}

type testEnv struct {
	router   *gin.Engine
	loads    repositories.LoadRequestRepository
	callLogs repositories.CallLogRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		BaseURL: "http://localhost:5000",
		Owner:   config.OwnerConfig{Email: "owner@trucking.com", Phone: "+1 (555) 999-8888"},
		Uploads: config.UploadConfig{Dir: t.TempDir(), MaxBytes: 25 * 1024 * 1024},
	}

	disabledCache, err := cache.NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	loads := repositories.NewMemoryLoadRequestRepository()
	callLogs := repositories.NewMemoryCallLogRepository()
	metricsCollector := metrics.NewMetrics()
	runner := jobs.NewRunner(metricsCollector)
	tracer := &tracing.NewRelicTracer{}

	service := services.NewDispatchService(
		loads, callLogs,
		&stubTranscriber{}, &stubExtractor{}, &stubTelephony{},
		&stubSheetSync{}, &stubIndexer{}, &stubNotifier{},
		disabledCache, metricsCollector, cfg,
	)

	router := gin.New()
	api := router.Group("/api")
	NewLoadHandler(service, tracer).RegisterRoutes(api)
	NewCallHandler(service, tracer, cfg.Uploads).RegisterRoutes(api)
	NewTelephonyHandler(service, runner, tracer).RegisterRoutes(api)
	NewMetricsHandler(service, metricsCollector).RegisterRoutes(api)

	return &testEnv{router: router, loads: loads, callLogs: callLogs}
}

func audioUploadRequest(t *testing.T, fieldName, filename, contentType string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("not really audio"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-audio", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadAudioCreatesLoadRequest(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, audioUploadRequest(t, "audio", "call.mp3", "audio/mpeg"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		LoadRequest   models.LoadRequest   `json:"loadRequest"`
		Transcription string               `json:"transcription"`
		ExtractedData models.ExtractedLoad `json:"extractedData"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Regexp(t, `^EXT-\d{4}-[A-Z0-9]{4}$`, resp.LoadRequest.LoadID)
	require.Equal(t, models.StatusPending, resp.LoadRequest.Status)
	require.NotEmpty(t, resp.Transcription)
	require.Equal(t, "Dallas, TX", resp.ExtractedData.PickupLocation)

	loads, err := env.loads.List(context.Background())
	require.NoError(t, err)
	require.Len(t, loads, 1)
}

func TestUploadAudioRequiresFile(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-audio", nil)
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadAudioRejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, audioUploadRequest(t, "audio", "notes.txt", "text/plain"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Unsupported audio type")
}

func TestSimulateCallCreatesCallLog(t *testing.T) {
	env := newTestEnv(t)

	body := strings.NewReader(`{"phoneNumber": "+1 (555) 123-4567"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/simulate-call", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Call simulation started")

	logs, err := env.callLogs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.CallStatusSimulated, logs[0].Status)
}

func TestVoiceWebhookReturnsGreetingTwiML(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"CallSid": {"CA1234567890"}, "From": {"+1 (555) 234-5678"}}
	req := httptest.NewRequest(http.MethodPost, "/api/telephony/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	require.Contains(t, w.Body.String(), "<Record")
	require.Contains(t, w.Body.String(), recordingWebhookPath)

	logs, err := env.callLogs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.CallStatusInProgress, logs[0].Status)
	require.NotNil(t, logs[0].CallSID)
	require.Equal(t, "CA1234567890", *logs[0].CallSID)
}

func TestRecordingWebhookProcessesInBackground(t *testing.T) {
	env := newTestEnv(t)

	// Seed the call log the voice webhook would have created
	callSID := "CA1234567890"
	require.NoError(t, env.callLogs.Create(context.Background(), &models.CallLog{
		PhoneNumber: "+1 (555) 234-5678",
		Status:      models.CallStatusInProgress,
		CallSID:     &callSID,
	}))

	form := url.Values{
		"CallSid":      {callSID},
		"RecordingUrl": {"https://api.twilio.example/recording/RE42"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/telephony/recording", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	// The webhook answers immediately with the goodbye TwiML
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<Hangup")

	// The pipeline finishes in the background
	require.Eventually(t, func() bool {
		loads, err := env.loads.List(context.Background())
		return err == nil && len(loads) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSMSWebhookProcessesInBackground(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"From":       {"+1 (555) 234-5678"},
		"Body":       {"Need a dry van Dallas to Atlanta, 15k lbs electronics"},
		"MessageSid": {"SM1234567890"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/telephony/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	require.Contains(t, w.Body.String(), "<Message")

	require.Eventually(t, func() bool {
		loads, err := env.loads.List(context.Background())
		return err == nil && len(loads) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestApproveAndRejectEndpoints(t *testing.T) {
	env := newTestEnv(t)

	load := &models.LoadRequest{
		CustomerName:     "John Smith",
		CustomerPhone:    "+1 (555) 234-5678",
		PickupLocation:   "Dallas, TX",
		DeliveryLocation: "Atlanta, GA",
		CargoType:        "Electronics",
		Weight:           "15,000 lbs",
		TruckType:        "Dry Van",
	}
	require.NoError(t, env.loads.Create(context.Background(), load))

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/load-requests/1/approve", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "approved")

	stored, err := env.loads.GetByID(context.Background(), load.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedAt)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/load-requests/999/reject", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListLoadRequestsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		load := &models.LoadRequest{
			CustomerName:     "John Smith",
			CustomerPhone:    "+1 (555) 234-5678",
			PickupLocation:   "Dallas, TX",
			DeliveryLocation: "Atlanta, GA",
			CargoType:        "Electronics",
			Weight:           "15,000 lbs",
			TruckType:        "Dry Van",
		}
		require.NoError(t, env.loads.Create(ctx, load))
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/load-requests", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var loads []models.LoadRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loads))
	require.Len(t, loads, 3)
	require.Equal(t, uint(3), loads[0].ID)
	require.Equal(t, uint(1), loads[2].ID)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	load := &models.LoadRequest{
		CustomerName:     "John Smith",
		CustomerPhone:    "+1 (555) 234-5678",
		PickupLocation:   "Dallas, TX",
		DeliveryLocation: "Atlanta, GA",
		CargoType:        "Electronics",
		Weight:           "15,000 lbs",
		TruckType:        "Dry Van",
		Status:           models.StatusApproved,
	}
	require.NoError(t, env.loads.Create(ctx, load))

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var m map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	require.Equal(t, 1, m["totalLoads"])
	require.Equal(t, 2500, m["revenue"])
	require.Equal(t, 0, m["pendingApproval"])
}

func TestSystemMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/metrics/system", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "uptime_seconds")
}
