package repofakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository"
)

var _ repository.UserRepository = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	lock   sync.RWMutex
	users  map[int64]*domain.User
	nextID int64
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{users: make(map[int64]*domain.User)}
}

func (r *FakeUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, fmt.Errorf("%w: username '%s' is taken", repository.ErrDuplicateEntry, user.Username)
		}
	}
	r.nextID++
	stored := *user
	stored.ID = r.nextID
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *FakeUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *FakeUserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}
