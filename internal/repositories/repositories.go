package repositories

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/desokroshan/truckflow-ai/internal/models"
)

// ErrNotFound signals that a record does not exist. It is a normal outcome,
// distinct from a storage failure.
var ErrNotFound = errors.New("record not found")

var errNoLoadCode = errors.New("exhausted load code generation attempts")

// LoadRequestRepository provides access to load request records. Create
// assigns the surrogate id and a unique load code.
type LoadRequestRepository interface {
	Create(ctx context.Context, load *models.LoadRequest) error
	GetByID(ctx context.Context, id uint) (*models.LoadRequest, error)
	GetByLoadID(ctx context.Context, loadID string) (*models.LoadRequest, error)
	List(ctx context.Context) ([]models.LoadRequest, error)
	UpdateStatus(ctx context.Context, id uint, status string, approvedAt *time.Time) (*models.LoadRequest, error)
	MarkNotificationSent(ctx context.Context, id uint) error
}

// CallLogRepository provides access to call log records.
type CallLogRepository interface {
	Create(ctx context.Context, callLog *models.CallLog) error
	GetByID(ctx context.Context, id uint) (*models.CallLog, error)
	GetByCallSID(ctx context.Context, callSID string) (*models.CallLog, error)
	List(ctx context.Context) ([]models.CallLog, error)
	MarkProcessed(ctx context.Context, id uint, transcription string, duration int) (*models.CallLog, error)
	LinkLoadRequest(ctx context.Context, id uint, loadRequestID uint) error
}

// UserRepository provides access to user records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

const (
	loadCodeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	loadCodeSuffixLength = 4
	loadCodeMaxAttempts  = 10
)

// generateLoadCode produces a candidate load code of the form
// EXT-<year>-<4 random alphanumerics>. Uniqueness is the caller's
// responsibility; both repository implementations retry on collision.
func generateLoadCode(now time.Time) (string, error) {
	buf := make([]byte, loadCodeSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate load code suffix")
	}
	for i, b := range buf {
		buf[i] = loadCodeAlphabet[int(b)%len(loadCodeAlphabet)]
	}
	return fmt.Sprintf("%s-%d-%s", models.LoadCodePrefix, now.Year(), buf), nil
}
