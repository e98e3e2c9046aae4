package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-app-service/internal/domain"
)

// UserRepository is an in-memory credential store.
type UserRepository struct {
	clock func() time.Time

	mu    sync.RWMutex
	order []string
	byID  map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		clock: time.Now,
		byID:  make(map[string]domain.User),
	}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usernameTakenLocked(u.Username, "") {
		return domain.ErrUsernameTaken
	}
	u.ID = uuid.NewString()
	u.RegisteredAt = r.clock().UTC()
	r.byID[u.ID] = *u
	r.order = append(r.order, u.ID)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if u := r.byID[id]; u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.byID[id])
	}
	return users, nil
}

func (r *UserRepository) Update(_ context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[u.ID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	if r.usernameTakenLocked(u.Username, u.ID) {
		return domain.User{}, domain.ErrUsernameTaken
	}
	existing.Username = u.Username
	existing.PasswordHash = u.PasswordHash
	r.byID[u.ID] = existing
	return existing, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *UserRepository) usernameTakenLocked(username, exceptID string) bool {
	for id, u := range r.byID {
		if id != exceptID && u.Username == username {
			return true
		}
	}
	return false
}
