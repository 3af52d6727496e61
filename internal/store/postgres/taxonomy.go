package postgres

import (
	"context"
	"fmt"

	"github.com/adamsujeta/ASPForum/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TaxonomyStore reads the forum structure: categories, subjects, news.
// All read-only in this surface.
type TaxonomyStore struct {
	pool *pgxpool.Pool
}

func NewTaxonomyStore(pool *pgxpool.Pool) *TaxonomyStore {
	return &TaxonomyStore{pool: pool}
}

func (s *TaxonomyStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const q = `SELECT id, title FROM categories ORDER BY title ASC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *TaxonomyStore) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.listSubjects(ctx, `SELECT id, category_id, title FROM subjects ORDER BY title ASC`)
}

func (s *TaxonomyStore) ListSubjectsByCategory(ctx context.Context, categoryID int) ([]domain.Subject, error) {
	return s.listSubjects(ctx,
		`SELECT id, category_id, title FROM subjects WHERE category_id = $1 ORDER BY title ASC`, categoryID)
}

func (s *TaxonomyStore) listSubjects(ctx context.Context, q string, args ...any) ([]domain.Subject, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []domain.Subject
	for rows.Next() {
		var sub domain.Subject
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Title); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return out, nil
}

func (s *TaxonomyStore) ListNews(ctx context.Context) ([]domain.News, error) {
	const q = `SELECT id, title, content, created_at FROM news ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()

	var out []domain.News
	for rows.Next() {
		var n domain.News
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return out, nil
}
