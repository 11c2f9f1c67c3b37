package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/chat"
)

// MessageRepository stores chat messages in memory, grouped by ride
type MessageRepository struct {
	mu       sync.RWMutex
	messages map[uuid.UUID][]*chat.Message
}

// NewMessageRepository creates an empty in-memory message repository
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make(map[uuid.UUID][]*chat.Message)}
}

func (repo *MessageRepository) Create(ctx context.Context, m *chat.Message) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	cp := *m
	repo.messages[m.RideID] = append(repo.messages[m.RideID], &cp)
	return nil
}

func (repo *MessageRepository) ListByRide(ctx context.Context, rideID uuid.UUID) ([]*chat.Message, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	stored := repo.messages[rideID]
	msgs := make([]*chat.Message, len(stored))
	for i, m := range stored {
		cp := *m
		msgs[i] = &cp
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}
