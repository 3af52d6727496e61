package postgres

import (
	"context"
	"fmt"

	"github.com/adamsujeta/ASPForum/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FriendsStore struct {
	pool *pgxpool.Pool
}

func NewFriendsStore(pool *pgxpool.Pool) *FriendsStore {
	return &FriendsStore{pool: pool}
}

func (s *FriendsStore) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	const q = `
		SELECT f.user_id, f.friend_user_id, u.username
		FROM friends f
		JOIN users u ON u.id = f.friend_user_id
		WHERE f.user_id = $1
		ORDER BY u.username ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []domain.Friend
	for rows.Next() {
		var (
			f          domain.Friend
			userUUID   pgtype.UUID
			friendUUID pgtype.UUID
		)
		if err := rows.Scan(&userUUID, &friendUUID, &f.Username); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		f.UserID = uuidOrEmpty(userUUID)
		f.FriendID = uuidOrEmpty(friendUUID)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return out, nil
}
