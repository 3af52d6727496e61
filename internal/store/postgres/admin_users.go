package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamsujeta/ASPForum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminUsersStore backs the admin user-management screens.
type AdminUsersStore struct {
	pool *pgxpool.Pool
}

func NewAdminUsersStore(pool *pgxpool.Pool) *AdminUsersStore {
	return &AdminUsersStore{pool: pool}
}

func (s *AdminUsersStore) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return s.listUsers(ctx, q, limit, offset)
}

func (s *AdminUsersStore) SearchUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE '%' || $1 || '%'
		   OR (email IS NOT NULL AND email ILIKE '%' || $1 || '%')
		ORDER BY username ASC
		LIMIT $2 OFFSET $3
	`
	return s.listUsers(ctx, q, query, limit, offset)
}

func (s *AdminUsersStore) listUsers(ctx context.Context, q string, args ...any) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var (
			u   domain.User
			row userRow
		)
		if err := rows.Scan(row.dests(&u)...); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		row.apply(&u)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// ToggleLockout flips the lockout flag and returns the new value.
func (s *AdminUsersStore) ToggleLockout(ctx context.Context, userID string) (bool, error) {
	const q = `
		UPDATE users
		SET lockout_enabled = NOT lockout_enabled, updated_at = now()
		WHERE id = $1
		RETURNING lockout_enabled
	`
	var enabled bool
	err := s.pool.QueryRow(ctx, q, userID).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("toggle lockout: %w", err)
	}
	return enabled, nil
}
