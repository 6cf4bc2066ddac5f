package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/desokroshan/truckflow-ai/internal/models"
)

var loadCodePattern = regexp.MustCompile(`^EXT-\d{4}-[A-Z0-9]{4}$`)

func newTestLoad() *models.LoadRequest {
	return &models.LoadRequest{
		CustomerName:     "John Smith",
		CustomerPhone:    "+1 (555) 234-5678",
		PickupLocation:   "Dallas, TX",
		DeliveryLocation: "Atlanta, GA",
		CargoType:        "Electronics",
		Weight:           "15,000 lbs",
		TruckType:        "Dry Van",
	}
}

func TestCreateAssignsUniqueLoadCodes(t *testing.T) {
	repo := NewMemoryLoadRequestRepository()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		load := newTestLoad()
		require.NoError(t, repo.Create(ctx, load))
		require.Regexp(t, loadCodePattern, load.LoadID)
		require.False(t, seen[load.LoadID], "duplicate load code %s", load.LoadID)
		seen[load.LoadID] = true
	}
}

func TestCreateDefaultsStatusToPending(t *testing.T) {
	repo := NewMemoryLoadRequestRepository()

	load := newTestLoad()
	require.NoError(t, repo.Create(context.Background(), load))
	require.Equal(t, models.StatusPending, load.Status)
	require.False(t, load.CreatedAt.IsZero())
}

func TestGetByIDAndLoadID(t *testing.T) {
	repo := NewMemoryLoadRequestRepository()
	ctx := context.Background()

	load := newTestLoad()
	require.NoError(t, repo.Create(ctx, load))

	byID, err := repo.GetByID(ctx, load.ID)
	require.NoError(t, err)
	require.Equal(t, load.LoadID, byID.LoadID)

	byCode, err := repo.GetByLoadID(ctx, load.LoadID)
	require.NoError(t, err)
	require.Equal(t, load.ID, byCode.ID)

	_, err = repo.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByLoadID(ctx, "EXT-2026-XXXX")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListReturnsNewestFirst(t *testing.T) {
	repo := NewMemoryLoadRequestRepository()
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 5; i++ {
		load := newTestLoad()
		require.NoError(t, repo.Create(ctx, load))
		ids = append(ids, load.ID)
	}

	loads, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 5)
	for i, load := range loads {
		require.Equal(t, ids[len(ids)-1-i], load.ID)
	}
}

func TestUpdateStatusStampsApproval(t *testing.T) {
	repo := NewMemoryLoadRequestRepository()
	ctx := context.Background()

	load := newTestLoad()
	require.NoError(t, repo.Create(ctx, load))

	now := time.Now()
	updated, err := repo.UpdateStatus(ctx, load.ID, models.StatusApproved, &now)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedAt)
	require.True(t, updated.ApprovedAt.Equal(now))

	_, err = repo.UpdateStatus(ctx, 999, models.StatusApproved, &now)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkNotificationSent(t *testing.T) {
	repo := NewMemoryLoadRequestRepository()
	ctx := context.Background()

	load := newTestLoad()
	require.NoError(t, repo.Create(ctx, load))
	require.False(t, load.NotificationSent)

	require.NoError(t, repo.MarkNotificationSent(ctx, load.ID))

	stored, err := repo.GetByID(ctx, load.ID)
	require.NoError(t, err)
	require.True(t, stored.NotificationSent)

	require.ErrorIs(t, repo.MarkNotificationSent(ctx, 999), ErrNotFound)
}

func TestStoredRecordsAreIsolatedFromCallers(t *testing.T) {
	repo := NewMemoryLoadRequestRepository()
	ctx := context.Background()

	load := newTestLoad()
	require.NoError(t, repo.Create(ctx, load))

	// Mutating the returned copy must not touch the stored record
	fetched, err := repo.GetByID(ctx, load.ID)
	require.NoError(t, err)
	fetched.CustomerName = "Someone Else"

	stored, err := repo.GetByID(ctx, load.ID)
	require.NoError(t, err)
	require.Equal(t, "John Smith", stored.CustomerName)
}

func TestCallLogLifecycle(t *testing.T) {
	repo := NewMemoryCallLogRepository()
	ctx := context.Background()

	callSID := "CA1234567890"
	callLog := &models.CallLog{
		PhoneNumber: "+1 (555) 234-5678",
		Status:      models.CallStatusInProgress,
		CallSID:     &callSID,
	}
	require.NoError(t, repo.Create(ctx, callLog))
	require.NotZero(t, callLog.ID)

	bySID, err := repo.GetByCallSID(ctx, callSID)
	require.NoError(t, err)
	require.Equal(t, callLog.ID, bySID.ID)

	_, err = repo.GetByCallSID(ctx, "CA0000000000")
	require.ErrorIs(t, err, ErrNotFound)

	processed, err := repo.MarkProcessed(ctx, callLog.ID, "transcript text", 42)
	require.NoError(t, err)
	require.Equal(t, models.CallStatusProcessed, processed.Status)
	require.Equal(t, 42, processed.Duration)
	require.NotNil(t, processed.Transcription)
	require.Equal(t, "transcript text", *processed.Transcription)

	require.NoError(t, repo.LinkLoadRequest(ctx, callLog.ID, 7))
	stored, err := repo.GetByID(ctx, callLog.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LoadRequestID)
	require.Equal(t, uint(7), *stored.LoadRequestID)
}

func TestGetByCallSIDReturnsNewestMatch(t *testing.T) {
	repo := NewMemoryCallLogRepository()
	ctx := context.Background()

	callSID := "CA1234567890"
	first := &models.CallLog{PhoneNumber: "+1 (555) 234-5678", Status: models.CallStatusInProgress, CallSID: &callSID}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.CallLog{PhoneNumber: "+1 (555) 234-5678", Status: models.CallStatusInProgress, CallSID: &callSID}
	require.NoError(t, repo.Create(ctx, second))

	match, err := repo.GetByCallSID(ctx, callSID)
	require.NoError(t, err)
	require.Equal(t, second.ID, match.ID)
}

func TestUserRepository(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := &models.User{Username: "dispatcher", Password: "hashed"}
	require.NoError(t, repo.Create(ctx, user))

	byName, err := repo.GetByUsername(ctx, "dispatcher")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}
