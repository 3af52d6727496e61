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

// RolesStore owns role membership and the moderator assignment table.
// Every mutation runs in one transaction and recomputes the denormalized
// privileges label from the authoritative tables before committing, so the
// label can never diverge from role membership.
type RolesStore struct {
	pool *pgxpool.Pool
}

func NewRolesStore(pool *pgxpool.Pool) *RolesStore {
	return &RolesStore{pool: pool}
}

func (s *RolesStore) IsInRole(ctx context.Context, userID, role string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`
	var ok bool
	if err := s.pool.QueryRow(ctx, q, userID, role).Scan(&ok); err != nil {
		return false, fmt.Errorf("is in role: %w", err)
	}
	return ok, nil
}

func (s *RolesStore) AddToRole(ctx context.Context, userID, role string) error {
	return s.inTx(ctx, userID, func(tx pgx.Tx) error {
		return addRoleTx(ctx, tx, userID, role)
	})
}

func (s *RolesStore) RemoveFromRole(ctx context.Context, userID, role string) error {
	return s.inTx(ctx, userID, func(tx pgx.Tx) error {
		return removeRoleTx(ctx, tx, userID, role)
	})
}

// ToggleAdminRole grants the Admin role if the user lacks it and revokes it
// otherwise. Returns the resulting membership state.
func (s *RolesStore) ToggleAdminRole(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.inTx(ctx, userID, func(tx pgx.Tx) error {
		const q = `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`
		if err := tx.QueryRow(ctx, q, userID, domain.RoleAdmin).Scan(&isAdmin); err != nil {
			return fmt.Errorf("check admin role: %w", err)
		}
		if isAdmin {
			if err := removeRoleTx(ctx, tx, userID, domain.RoleAdmin); err != nil {
				return err
			}
			isAdmin = false
			return nil
		}
		if err := addRoleTx(ctx, tx, userID, domain.RoleAdmin); err != nil {
			return err
		}
		isAdmin = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return isAdmin, nil
}

// AssignModerator creates the (subject, user) assignment and grants the
// Moderator role. A second call for the same pair is a no-op.
func (s *RolesStore) AssignModerator(ctx context.Context, subjectID int, userID string) error {
	return s.inTx(ctx, userID, func(tx pgx.Tx) error {
		const ins = `
			INSERT INTO moderators (user_id, subject_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, subject_id) DO NOTHING
		`
		ct, err := tx.Exec(ctx, ins, userID, subjectID)
		if err != nil {
			if foreignKeyMissing(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("assign moderator: %w", err)
		}
		if ct.RowsAffected() == 0 {
			// Already assigned; membership and label are already right.
			return nil
		}
		return addRoleTx(ctx, tx, userID, domain.RoleModerator)
	})
}

// RevokeModerator removes the assignment; if the user holds no assignment
// afterwards (counted inside the same transaction, after the delete), the
// Moderator role is removed as well.
func (s *RolesStore) RevokeModerator(ctx context.Context, subjectID int, userID string) error {
	return s.inTx(ctx, userID, func(tx pgx.Tx) error {
		const del = `DELETE FROM moderators WHERE user_id = $1 AND subject_id = $2`
		ct, err := tx.Exec(ctx, del, userID, subjectID)
		if err != nil {
			return fmt.Errorf("revoke moderator: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		var remaining int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM moderators WHERE user_id = $1`, userID).Scan(&remaining); err != nil {
			return fmt.Errorf("count assignments: %w", err)
		}
		if remaining == 0 {
			return removeRoleTx(ctx, tx, userID, domain.RoleModerator)
		}
		return nil
	})
}

func (s *RolesStore) ListAssignments(ctx context.Context, userID string) ([]domain.ModeratorAssignment, error) {
	const q = `
		SELECT m.user_id, m.subject_id, s.title, m.created_at
		FROM moderators m
		JOIN subjects s ON s.id = m.subject_id
		WHERE m.user_id = $1
		ORDER BY s.title ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.ModeratorAssignment
	for rows.Next() {
		var (
			a      domain.ModeratorAssignment
			idUUID pgtype.UUID
		)
		if err := rows.Scan(&idUUID, &a.SubjectID, &a.SubjectTitle, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.UserID = uuidOrEmpty(idUUID)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}

// inTx runs fn and then refreshes the privileges label for userID inside
// the same transaction.
func (s *RolesStore) inTx(ctx context.Context, userID string, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := refreshPrivilegesTx(ctx, tx, userID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func addRoleTx(ctx context.Context, tx pgx.Tx, userID, role string) error {
	const q = `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING
	`
	if _, err := tx.Exec(ctx, q, userID, role); err != nil {
		if foreignKeyMissing(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("add role: %w", err)
	}
	return nil
}

func removeRoleTx(ctx context.Context, tx pgx.Tx, userID, role string) error {
	const q = `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`
	if _, err := tx.Exec(ctx, q, userID, role); err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	return nil
}

func refreshPrivilegesTx(ctx context.Context, tx pgx.Tx, userID string) error {
	const q = `
		UPDATE users
		SET privileges = CASE
			WHEN EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = users.id AND r.role = $2) THEN $4
			WHEN EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = users.id AND r.role = $3) THEN $5
			ELSE $6
		END,
		updated_at = now()
		WHERE id = $1
	`
	ct, err := tx.Exec(ctx, q, userID,
		domain.RoleAdmin, domain.RoleModerator,
		domain.PrivilegesAdmin, domain.PrivilegesModerator, domain.PrivilegesUser)
	if err != nil {
		return fmt.Errorf("refresh privileges: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func foreignKeyMissing(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == "23503"
}
