package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/chat"
)

// MessageRepository persists chat messages in PostgreSQL
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a PostgreSQL-backed message repository
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (repo *MessageRepository) Create(ctx context.Context, m *chat.Message) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO messages (id, ride_id, sender_id, sender_name, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.RideID, m.SenderID, m.SenderName, m.Text, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (repo *MessageRepository) ListByRide(ctx context.Context, rideID uuid.UUID) ([]*chat.Message, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT id, ride_id, sender_id, sender_name, text, created_at
		FROM messages
		WHERE ride_id = $1
		ORDER BY created_at ASC, id ASC
	`, rideID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.RideID, &m.SenderID, &m.SenderName, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
