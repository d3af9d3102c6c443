package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amit9129/automated-parking-system/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// ErrAlreadyExited is returned when an exit time is written to a session that already has one.
var ErrAlreadyExited = errors.New("session exit time already recorded")

// SessionEventLogRepository keeps an append-only audit trail of session events.
type SessionEventLogRepository interface {
	// Append is idempotent on the event id.
	Append(ctx context.Context, event domain.SessionEvent) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// PurgeFilter selects sessions for deletion. Zero-valued time fields are not applied.
type PurgeFilter struct {
	RequireExited bool
	EnteredBefore time.Time
	ExitedBefore  time.Time
}

// Matches reports whether a session satisfies the filter.
func (f PurgeFilter) Matches(s *domain.ParkingSession) bool {
	if f.RequireExited && !s.ExitTime.Valid {
		return false
	}
	if !f.EnteredBefore.IsZero() && !s.EntryTime.Before(f.EnteredBefore) {
		return false
	}
	if !f.ExitedBefore.IsZero() && (!s.ExitTime.Valid || !s.ExitTime.Time.Before(f.ExitedBefore)) {
		return false
	}
	return true
}

type ParkingSessionRepository interface {
	// NextSlot returns the next value of the store-owned slot sequence.
	NextSlot(ctx context.Context) (int64, error)
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	FindByID(ctx context.Context, id int64) (*domain.ParkingSession, error)
	// FindLatestByPlate returns the most recently entered session for the plate.
	FindLatestByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error)
	Find(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error)
	// SetExitTime stamps exit_time only if it is still null.
	SetExitTime(ctx context.Context, id int64, exitTime time.Time) (*domain.ParkingSession, error)
	MarkPaid(ctx context.Context, id int64) (*domain.ParkingSession, error)
	// DeleteMatching deletes in batches and returns the number of rows actually removed,
	// even when it also returns an error.
	DeleteMatching(ctx context.Context, filter PurgeFilter, batchSize int) (int, error)
}
