package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
)

// UserRepository stores users in memory
type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*user.User
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]*user.User)}
}

func cloneUser(u *user.User) *user.User {
	cp := *u
	if u.Vehicle != nil {
		v := *u.Vehicle
		cp.Vehicle = &v
	}
	return &cp
}

// Create inserts the user, applying the same role and preference checks the
// SQL schema enforces with CHECK constraints.
func (repo *UserRepository) Create(ctx context.Context, u *user.User) error {
	if !u.Role.IsValid() {
		return user.ErrInvalidRole
	}
	if u.GenderPreference != "" && !u.GenderPreference.IsValid() {
		return fmt.Errorf("invalid gender preference %q", u.GenderPreference)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[u.ID] = cloneUser(u)
	return nil
}

func (repo *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	u, ok := repo.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (repo *UserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	users := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := repo.users[id]; ok {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

func (repo *UserRepository) SetOnline(ctx context.Context, id uuid.UUID, online bool) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	u, ok := repo.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.IsOnline = online
	u.UpdatedAt = time.Now()
	return nil
}

func (repo *UserRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	u, ok := repo.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Rating = rating
	u.UpdatedAt = time.Now()
	return nil
}

func (repo *UserRepository) IncrementRides(ctx context.Context, id uuid.UUID) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	u, ok := repo.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.TotalRides++
	u.UpdatedAt = time.Now()
	return nil
}
