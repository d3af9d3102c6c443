package repofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository"
)

var _ repository.ParkingSessionRepository = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory session store. Set the *Err fields to inject failures.
type FakeSessionRepo struct {
	lock     sync.RWMutex
	sessions map[int64]*domain.ParkingSession
	nextID   int64
	slotSeq  int64

	NextSlotErr error
	CreateErr   error
	FindErr     error
	// DeleteFailAfter makes DeleteMatching fail once this many rows were removed; 0 disables it.
	DeleteFailAfter int
	DeleteErr       error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[int64]*domain.ParkingSession)}
}

func (r *FakeSessionRepo) NextSlot(ctx context.Context) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.NextSlotErr != nil {
		return 0, r.NextSlotErr
	}
	r.slotSeq++
	return r.slotSeq, nil
}

func (r *FakeSessionRepo) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	r.nextID++
	now := time.Now().UTC()
	stored := *session
	stored.ID = r.nextID
	stored.IsPaid = false
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.sessions[stored.ID] = &stored

	out := stored
	return &out, nil
}

// Put stores a session as-is, bypassing the lifecycle. Useful for seeding old rows.
func (r *FakeSessionRepo) Put(session domain.ParkingSession) *domain.ParkingSession {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.nextID++
	session.ID = r.nextID
	r.sessions[session.ID] = &session
	out := session
	return &out
}

func (r *FakeSessionRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.sessions)
}

func (r *FakeSessionRepo) FindByID(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.FindErr != nil {
		return nil, r.FindErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (r *FakeSessionRepo) FindLatestByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.FindErr != nil {
		return nil, r.FindErr
	}
	var latest *domain.ParkingSession
	for _, s := range r.sessions {
		if s.PlateText != plate {
			continue
		}
		if latest == nil || s.EntryTime.After(latest.EntryTime) ||
			(s.EntryTime.Equal(latest.EntryTime) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (r *FakeSessionRepo) Find(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.FindErr != nil {
		return nil, r.FindErr
	}
	out := make([]domain.ParkingSession, 0)
	for _, s := range r.sessions {
		if filter.Plate != nil && s.PlateText != *filter.Plate {
			continue
		}
		if filter.Paid != nil && s.IsPaid != *filter.Paid {
			continue
		}
		if filter.Exited != nil && s.ExitTime.Valid != *filter.Exited {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *FakeSessionRepo) SetExitTime(ctx context.Context, id int64, exitTime time.Time) (*domain.ParkingSession, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.ExitTime.Valid {
		return nil, repository.ErrAlreadyExited
	}
	s.ExitTime.Time = exitTime
	s.ExitTime.Valid = true
	s.UpdatedAt = time.Now().UTC()
	out := *s
	return &out, nil
}

func (r *FakeSessionRepo) MarkPaid(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.IsPaid = true
	s.UpdatedAt = time.Now().UTC()
	out := *s
	return &out, nil
}

func (r *FakeSessionRepo) DeleteMatching(ctx context.Context, filter repository.PurgeFilter, batchSize int) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ids := make([]int64, 0)
	for id, s := range r.sessions {
		if filter.Matches(s) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	removed := 0
	for _, id := range ids {
		if r.DeleteFailAfter > 0 && removed == r.DeleteFailAfter {
			return removed, r.DeleteErr
		}
		delete(r.sessions, id)
		removed++
	}
	return removed, nil
}
