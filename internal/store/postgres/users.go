package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adamsujeta/ASPForum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `
	id, email, username, phone_number, two_factor_enabled, lockout_enabled,
	avatar_path, privileges, posts_per_page, status, created_at, updated_at, last_login_at
`

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

type userRow struct {
	idUUID      pgtype.UUID
	emailText   pgtype.Text
	phoneText   pgtype.Text
	avatarText  pgtype.Text
	lastLoginTS pgtype.Timestamptz
}

func (r *userRow) dests(u *domain.User) []any {
	return []any{
		&r.idUUID,
		&r.emailText,
		&u.Username,
		&r.phoneText,
		&u.TwoFactorEnabled,
		&u.LockoutEnabled,
		&r.avatarText,
		&u.Privileges,
		&u.PostsPerPage,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
		&r.lastLoginTS,
	}
}

func (r *userRow) apply(u *domain.User) {
	u.ID = uuidOrEmpty(r.idUUID)
	u.Email = textOrEmpty(r.emailText)
	u.PhoneNumber = textOrEmpty(r.phoneText)
	u.AvatarPath = textOrEmpty(r.avatarText)
	u.LastLoginAt = timestamptzPtr(r.lastLoginTS)
}

func (s *UsersStore) CreateUser(ctx context.Context, email, username, passwordHash, avatarPath string) (domain.User, error) {
	const q = `
		INSERT INTO users (email, username, password_hash, avatar_path)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	var (
		u   domain.User
		row userRow
	)
	err := s.pool.QueryRow(ctx, q, nullIfEmpty(email), username, nullIfEmpty(passwordHash), nullIfEmpty(avatarPath)).
		Scan(row.dests(&u)...)
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	row.apply(&u)
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var (
		u   domain.User
		row userRow
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(row.dests(&u)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	row.apply(&u)
	return u, nil
}

func (s *UsersStore) GetUserWithPassword(ctx context.Context, id string) (domain.UserWithPassword, error) {
	const q = `SELECT password_hash, ` + userColumns + ` FROM users WHERE id = $1`

	var (
		u        domain.UserWithPassword
		row      userRow
		hashText pgtype.Text
	)
	dests := append([]any{&hashText}, row.dests(&u.User)...)
	err := s.pool.QueryRow(ctx, q, id).Scan(dests...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user with password: %w", err)
	}
	row.apply(&u.User)
	u.PasswordHash = textOrEmpty(hashText)
	return u, nil
}

func (s *UsersStore) GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error) {
	const q = `
		SELECT password_hash, ` + userColumns + `
		FROM users
		WHERE username = $1 OR (email IS NOT NULL AND lower(email) = lower($1))
		ORDER BY (username = $1) DESC
		LIMIT 1
	`

	var (
		u        domain.UserWithPassword
		row      userRow
		hashText pgtype.Text
	)
	dests := append([]any{&hashText}, row.dests(&u.User)...)
	err := s.pool.QueryRow(ctx, q, login).Scan(dests...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by login: %w", err)
	}
	row.apply(&u.User)
	u.PasswordHash = textOrEmpty(hashText)
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `
		SELECT password_hash, ` + userColumns + `
		FROM users
		WHERE email IS NOT NULL AND lower(email) = lower($1)
		LIMIT 1
	`

	var (
		u        domain.UserWithPassword
		row      userRow
		hashText pgtype.Text
	)
	dests := append([]any{&hashText}, row.dests(&u.User)...)
	err := s.pool.QueryRow(ctx, q, email).Scan(dests...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	row.apply(&u.User)
	u.PasswordHash = textOrEmpty(hashText)
	return u, nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetPhoneNumber(ctx context.Context, userID, phoneNumber string) error {
	const q = `UPDATE users SET phone_number = $2, updated_at = now() WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, userID, nullIfEmpty(phoneNumber))
	if err != nil {
		return fmt.Errorf("set phone number: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	const q = `UPDATE users SET two_factor_enabled = $2, updated_at = now() WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, userID, enabled)
	if err != nil {
		return fmt.Errorf("set two factor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetAvatarPath(ctx context.Context, userID, avatarPath string) error {
	const q = `UPDATE users SET avatar_path = $2, updated_at = now() WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, userID, nullIfEmpty(avatarPath))
	if err != nil {
		return fmt.Errorf("set avatar path: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) UpdateDetails(ctx context.Context, userID, username, email string, postsPerPage int) error {
	const q = `
		UPDATE users
		SET username = $2, email = $3, posts_per_page = $4, updated_at = now()
		WHERE id = $1
	`
	ct, err := s.pool.Exec(ctx, q, userID, username, nullIfEmpty(email), postsPerPage)
	if err != nil {
		return mapUserWriteError(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	const q = `UPDATE users SET last_login_at = $2, updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, userID, when)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return nil
}

// AccountSummary returns the profile card with post/thread counts.
func (s *UsersStore) AccountSummary(ctx context.Context, userID string) (domain.AccountSummary, error) {
	const q = `
		SELECT u.username, u.created_at,
			(SELECT count(*) FROM posts p WHERE p.user_id = u.id),
			(SELECT count(*) FROM threads t WHERE t.user_id = u.id)
		FROM users u
		WHERE u.id = $1
	`

	var out domain.AccountSummary
	err := s.pool.QueryRow(ctx, q, userID).Scan(&out.Username, &out.RegisteredAt, &out.PostCount, &out.ThreadCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AccountSummary{}, domain.ErrNotFound
		}
		return domain.AccountSummary{}, fmt.Errorf("account summary: %w", err)
	}
	return out, nil
}

func mapUserWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		switch pgerr.ConstraintName {
		case "users_username_uq":
			return domain.ErrUsernameTaken
		case "users_email_uq":
			return domain.ErrEmailTaken
		default:
			return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
		}
	}
	return fmt.Errorf("write user: %w", err)
}
