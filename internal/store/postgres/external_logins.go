package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamsujeta/ASPForum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExternalLoginsStore struct {
	pool *pgxpool.Pool
}

func NewExternalLoginsStore(pool *pgxpool.Pool) *ExternalLoginsStore {
	return &ExternalLoginsStore{pool: pool}
}

func (s *ExternalLoginsStore) ListLogins(ctx context.Context, userID string) ([]domain.ExternalLogin, error) {
	const q = `
		SELECT user_id, provider, provider_key, email, created_at
		FROM external_logins
		WHERE user_id = $1
		ORDER BY provider ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list logins: %w", err)
	}
	defer rows.Close()

	var out []domain.ExternalLogin
	for rows.Next() {
		var (
			l         domain.ExternalLogin
			idUUID    pgtype.UUID
			emailText pgtype.Text
		)
		if err := rows.Scan(&idUUID, &l.Provider, &l.ProviderKey, &emailText, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan login: %w", err)
		}
		l.UserID = uuidOrEmpty(idUUID)
		l.Email = textOrEmpty(emailText)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list logins: %w", err)
	}
	return out, nil
}

func (s *ExternalLoginsStore) AddLogin(ctx context.Context, userID, provider, providerKey, email string) (domain.ExternalLogin, error) {
	const q = `
		INSERT INTO external_logins (user_id, provider, provider_key, email)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, provider, provider_key, email, created_at
	`

	var (
		l         domain.ExternalLogin
		idUUID    pgtype.UUID
		emailText pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, userID, provider, providerKey, nullIfEmpty(email)).
		Scan(&idUUID, &l.Provider, &l.ProviderKey, &emailText, &l.CreatedAt)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" {
			return domain.ExternalLogin{}, domain.ErrExternalLoginExists
		}
		return domain.ExternalLogin{}, fmt.Errorf("add login: %w", err)
	}
	l.UserID = uuidOrEmpty(idUUID)
	l.Email = textOrEmpty(emailText)
	return l, nil
}

func (s *ExternalLoginsStore) RemoveLogin(ctx context.Context, userID, provider, providerKey string) error {
	const q = `
		DELETE FROM external_logins
		WHERE user_id = $1 AND provider = $2 AND provider_key = $3
	`
	ct, err := s.pool.Exec(ctx, q, userID, provider, providerKey)
	if err != nil {
		return fmt.Errorf("remove login: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetUserByLogin resolves the user linked to a (provider, key) pair.
func (s *ExternalLoginsStore) GetUserByLogin(ctx context.Context, provider, providerKey string) (domain.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = (SELECT user_id FROM external_logins WHERE provider = $1 AND provider_key = $2)
	`

	var (
		u   domain.User
		row userRow
	)
	err := s.pool.QueryRow(ctx, q, provider, providerKey).Scan(row.dests(&u)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by login: %w", err)
	}
	row.apply(&u)
	return u, nil
}

func (s *ExternalLoginsStore) CountLogins(ctx context.Context, userID string) (int, error) {
	const q = `SELECT count(*) FROM external_logins WHERE user_id = $1`
	var n int
	if err := s.pool.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logins: %w", err)
	}
	return n, nil
}
