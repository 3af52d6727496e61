package postgres

import (
	"context"
	"fmt"

	"github.com/adamsujeta/ASPForum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const messageSelect = `
	SELECT m.id, mu.sender_id, su.username, mu.receiver_id, ru.username, m.content, m.created_at
	FROM message_user mu
	JOIN messages m ON m.id = mu.message_id
	JOIN users su ON su.id = mu.sender_id
	JOIN users ru ON ru.id = mu.receiver_id
`

type MessagesStore struct {
	pool *pgxpool.Pool
}

func NewMessagesStore(pool *pgxpool.Pool) *MessagesStore {
	return &MessagesStore{pool: pool}
}

func (s *MessagesStore) ListSent(ctx context.Context, userID string) ([]domain.MessageView, error) {
	const q = messageSelect + `
		WHERE mu.sender_id = $1
		ORDER BY m.created_at DESC
	`
	return s.list(ctx, q, userID)
}

func (s *MessagesStore) ListReceived(ctx context.Context, userID string) ([]domain.MessageView, error) {
	const q = messageSelect + `
		WHERE mu.receiver_id = $1
		ORDER BY m.created_at DESC
	`
	return s.list(ctx, q, userID)
}

// ListBetween returns the conversation between two users, both directions,
// newest first.
func (s *MessagesStore) ListBetween(ctx context.Context, userID, otherUserID string) ([]domain.MessageView, error) {
	const q = messageSelect + `
		WHERE (mu.sender_id = $1 AND mu.receiver_id = $2)
		   OR (mu.sender_id = $2 AND mu.receiver_id = $1)
		ORDER BY m.created_at DESC
	`
	return s.list(ctx, q, userID, otherUserID)
}

func (s *MessagesStore) list(ctx context.Context, q string, args ...any) ([]domain.MessageView, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanMessages(rows pgx.Rows) ([]domain.MessageView, error) {
	var out []domain.MessageView
	for rows.Next() {
		var (
			m          domain.MessageView
			senderUUID pgtype.UUID
			recvUUID   pgtype.UUID
		)
		if err := rows.Scan(&m.MessageID, &senderUUID, &m.SenderUsername, &recvUUID, &m.ReceiverUsername, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SenderID = uuidOrEmpty(senderUUID)
		m.ReceiverID = uuidOrEmpty(recvUUID)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}
