package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/desokroshan/truckflow-ai/internal/models"
)

// MemoryLoadRequestRepository keeps load requests in process memory. It backs
// the service when no database is configured and all repository-level tests.
type MemoryLoadRequestRepository struct {
	mu     sync.RWMutex
	loads  map[uint]*models.LoadRequest
	codes  map[string]uint
	nextID uint
}

// NewMemoryLoadRequestRepository creates an empty in-memory repository
func NewMemoryLoadRequestRepository() *MemoryLoadRequestRepository {
	return &MemoryLoadRequestRepository{
		loads:  make(map[uint]*models.LoadRequest),
		codes:  make(map[string]uint),
		nextID: 1,
	}
}

// Create assigns an id and a unique load code, then stores the record
func (r *MemoryLoadRequestRepository) Create(ctx context.Context, load *models.LoadRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var code string
	for attempt := 0; ; attempt++ {
		if attempt >= loadCodeMaxAttempts {
			return errNoLoadCode
		}
		candidate, err := generateLoadCode(now)
		if err != nil {
			return err
		}
		if _, taken := r.codes[candidate]; !taken {
			code = candidate
			break
		}
	}

	load.ID = r.nextID
	r.nextID++
	load.LoadID = code
	if load.Status == "" {
		load.Status = models.StatusPending
	}
	load.CreatedAt = now

	stored := *load
	r.loads[load.ID] = &stored
	r.codes[code] = load.ID
	return nil
}

// GetByID fetches one load request
func (r *MemoryLoadRequestRepository) GetByID(ctx context.Context, id uint) (*models.LoadRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	load, ok := r.loads[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *load
	return &copied, nil
}

// GetByLoadID fetches one load request by load code
func (r *MemoryLoadRequestRepository) GetByLoadID(ctx context.Context, loadID string) (*models.LoadRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codes[loadID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r.loads[id]
	return &copied, nil
}

// List returns all load requests, newest first
func (r *MemoryLoadRequestRepository) List(ctx context.Context) ([]models.LoadRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loads := make([]models.LoadRequest, 0, len(r.loads))
	for _, load := range r.loads {
		loads = append(loads, *load)
	}
	sort.Slice(loads, func(i, j int) bool {
		if !loads[i].CreatedAt.Equal(loads[j].CreatedAt) {
			return loads[i].CreatedAt.After(loads[j].CreatedAt)
		}
		return loads[i].ID > loads[j].ID
	})
	return loads, nil
}

// UpdateStatus sets the status and approval timestamp
func (r *MemoryLoadRequestRepository) UpdateStatus(ctx context.Context, id uint, status string, approvedAt *time.Time) (*models.LoadRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	load, ok := r.loads[id]
	if !ok {
		return nil, ErrNotFound
	}
	load.Status = status
	load.ApprovedAt = approvedAt
	copied := *load
	return &copied, nil
}

// MarkNotificationSent flags the load request as notified
func (r *MemoryLoadRequestRepository) MarkNotificationSent(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	load, ok := r.loads[id]
	if !ok {
		return ErrNotFound
	}
	load.NotificationSent = true
	return nil
}

// MemoryCallLogRepository keeps call logs in process memory
type MemoryCallLogRepository struct {
	mu       sync.RWMutex
	callLogs map[uint]*models.CallLog
	nextID   uint
}

// NewMemoryCallLogRepository creates an empty in-memory repository
func NewMemoryCallLogRepository() *MemoryCallLogRepository {
	return &MemoryCallLogRepository{
		callLogs: make(map[uint]*models.CallLog),
		nextID:   1,
	}
}

// Create assigns an id and stores the call log
func (r *MemoryCallLogRepository) Create(ctx context.Context, callLog *models.CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	callLog.ID = r.nextID
	r.nextID++
	callLog.CreatedAt = time.Now()

	stored := *callLog
	r.callLogs[callLog.ID] = &stored
	return nil
}

// GetByID fetches one call log
func (r *MemoryCallLogRepository) GetByID(ctx context.Context, id uint) (*models.CallLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	callLog, ok := r.callLogs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *callLog
	return &copied, nil
}

// GetByCallSID fetches the most recent call log for a provider call SID
func (r *MemoryCallLogRepository) GetByCallSID(ctx context.Context, callSID string) (*models.CallLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match *models.CallLog
	for _, callLog := range r.callLogs {
		if callLog.CallSID == nil || *callLog.CallSID != callSID {
			continue
		}
		if match == nil || callLog.CreatedAt.After(match.CreatedAt) ||
			(callLog.CreatedAt.Equal(match.CreatedAt) && callLog.ID > match.ID) {
			match = callLog
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	copied := *match
	return &copied, nil
}

// List returns all call logs, newest first
func (r *MemoryCallLogRepository) List(ctx context.Context) ([]models.CallLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	callLogs := make([]models.CallLog, 0, len(r.callLogs))
	for _, callLog := range r.callLogs {
		callLogs = append(callLogs, *callLog)
	}
	sort.Slice(callLogs, func(i, j int) bool {
		if !callLogs[i].CreatedAt.Equal(callLogs[j].CreatedAt) {
			return callLogs[i].CreatedAt.After(callLogs[j].CreatedAt)
		}
		return callLogs[i].ID > callLogs[j].ID
	})
	return callLogs, nil
}

// MarkProcessed records the transcription and final duration for a call and
// moves it to the processed status
func (r *MemoryCallLogRepository) MarkProcessed(ctx context.Context, id uint, transcription string, duration int) (*models.CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	callLog, ok := r.callLogs[id]
	if !ok {
		return nil, ErrNotFound
	}
	callLog.Transcription = &transcription
	callLog.Duration = duration
	callLog.Status = models.CallStatusProcessed
	copied := *callLog
	return &copied, nil
}

// LinkLoadRequest back-references the load request a call produced
func (r *MemoryCallLogRepository) LinkLoadRequest(ctx context.Context, id uint, loadRequestID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	callLog, ok := r.callLogs[id]
	if !ok {
		return ErrNotFound
	}
	callLog.LoadRequestID = &loadRequestID
	return nil
}

// MemoryUserRepository keeps users in process memory
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[uint]*models.User
	nextID uint
}

// NewMemoryUserRepository creates an empty in-memory repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[uint]*models.User),
		nextID: 1,
	}
}

// Create assigns an id and stores the user
func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

// GetByID fetches one user
func (r *MemoryUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// GetByUsername fetches one user by username
func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}
