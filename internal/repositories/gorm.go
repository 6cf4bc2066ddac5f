package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/desokroshan/truckflow-ai/internal/models"
)

// GormLoadRequestRepository persists load requests through GORM
type GormLoadRequestRepository struct {
	db *gorm.DB
}

// NewGormLoadRequestRepository creates a new load request repository
func NewGormLoadRequestRepository(db *gorm.DB) *GormLoadRequestRepository {
	return &GormLoadRequestRepository{db: db}
}

// Create inserts a load request, assigning a load code that does not collide
// with any existing record
func (r *GormLoadRequestRepository) Create(ctx context.Context, load *models.LoadRequest) error {
	now := time.Now()
	for attempt := 0; attempt < loadCodeMaxAttempts; attempt++ {
		code, err := generateLoadCode(now)
		if err != nil {
			return err
		}

		var count int64
		if err := r.db.WithContext(ctx).Model(&models.LoadRequest{}).
			Where("load_id = ?", code).Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to check load code uniqueness")
		}
		if count > 0 {
			continue
		}

		load.LoadID = code
		if load.Status == "" {
			load.Status = models.StatusPending
		}
		load.CreatedAt = now
		if err := r.db.WithContext(ctx).Create(load).Error; err != nil {
			return errors.Wrap(err, "failed to create load request")
		}
		return nil
	}
	return errNoLoadCode
}

// GetByID fetches one load request by its surrogate id
func (r *GormLoadRequestRepository) GetByID(ctx context.Context, id uint) (*models.LoadRequest, error) {
	var load models.LoadRequest
	err := r.db.WithContext(ctx).First(&load, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get load request")
	}
	return &load, nil
}

// GetByLoadID fetches one load request by its human-facing load code
func (r *GormLoadRequestRepository) GetByLoadID(ctx context.Context, loadID string) (*models.LoadRequest, error) {
	var load models.LoadRequest
	err := r.db.WithContext(ctx).Where("load_id = ?", loadID).First(&load).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get load request by load code")
	}
	return &load, nil
}

// List returns all load requests, newest first
func (r *GormLoadRequestRepository) List(ctx context.Context) ([]models.LoadRequest, error) {
	var loads []models.LoadRequest
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&loads).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list load requests")
	}
	return loads, nil
}

// UpdateStatus sets the status and approval timestamp and returns the
// updated record
func (r *GormLoadRequestRepository) UpdateStatus(ctx context.Context, id uint, status string, approvedAt *time.Time) (*models.LoadRequest, error) {
	load, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	load.Status = status
	load.ApprovedAt = approvedAt
	if err := r.db.WithContext(ctx).Model(&models.LoadRequest{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "approved_at": approvedAt}).Error; err != nil {
		return nil, errors.Wrap(err, "failed to update load request status")
	}
	return load, nil
}

// MarkNotificationSent flags the load request as notified
func (r *GormLoadRequestRepository) MarkNotificationSent(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.LoadRequest{}).Where("id = ?", id).
		Update("notification_sent", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to mark notification sent")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormCallLogRepository persists call logs through GORM
type GormCallLogRepository struct {
	db *gorm.DB
}

// NewGormCallLogRepository creates a new call log repository
func NewGormCallLogRepository(db *gorm.DB) *GormCallLogRepository {
	return &GormCallLogRepository{db: db}
}

// Create inserts a call log
func (r *GormCallLogRepository) Create(ctx context.Context, callLog *models.CallLog) error {
	callLog.CreatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(callLog).Error; err != nil {
		return errors.Wrap(err, "failed to create call log")
	}
	return nil
}

// GetByID fetches one call log
func (r *GormCallLogRepository) GetByID(ctx context.Context, id uint) (*models.CallLog, error) {
	var callLog models.CallLog
	err := r.db.WithContext(ctx).First(&callLog, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get call log")
	}
	return &callLog, nil
}

// GetByCallSID fetches the call log created for a provider call SID
func (r *GormCallLogRepository) GetByCallSID(ctx context.Context, callSID string) (*models.CallLog, error) {
	var callLog models.CallLog
	err := r.db.WithContext(ctx).Where("call_sid = ?", callSID).
		Order("created_at DESC").First(&callLog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get call log by call SID")
	}
	return &callLog, nil
}

// List returns all call logs, newest first
func (r *GormCallLogRepository) List(ctx context.Context) ([]models.CallLog, error) {
	var callLogs []models.CallLog
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&callLogs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list call logs")
	}
	return callLogs, nil
}

// MarkProcessed records the transcription and final duration for a call and
// moves it to the processed status
func (r *GormCallLogRepository) MarkProcessed(ctx context.Context, id uint, transcription string, duration int) (*models.CallLog, error) {
	callLog, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	callLog.Transcription = &transcription
	callLog.Duration = duration
	callLog.Status = models.CallStatusProcessed
	if err := r.db.WithContext(ctx).Model(&models.CallLog{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"transcription": transcription,
			"duration":      duration,
			"status":        models.CallStatusProcessed,
		}).Error; err != nil {
		return nil, errors.Wrap(err, "failed to mark call log processed")
	}
	return callLog, nil
}

// LinkLoadRequest back-references the load request a call produced
func (r *GormCallLogRepository) LinkLoadRequest(ctx context.Context, id uint, loadRequestID uint) error {
	res := r.db.WithContext(ctx).Model(&models.CallLog{}).Where("id = ?", id).
		Update("load_request_id", loadRequestID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to link call log to load request")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormUserRepository persists users through GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new user repository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID fetches one user
func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	return &user, nil
}

// GetByUsername fetches one user by username
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get user by username")
	}
	return &user, nil
}
