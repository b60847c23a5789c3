package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurorallabs/referral-portal/internal/model"
)

// CatalogRepository provides data access for the seeded reward_templates catalog.
type CatalogRepository struct {
	pool PoolInterface
}

// NewCatalogRepository creates a new CatalogRepository with the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// NewCatalogRepositoryWithPool creates a new CatalogRepository with a custom pool interface.
// This is primarily used for testing.
func NewCatalogRepositoryWithPool(pool PoolInterface) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func scanCatalogTemplate(row rowScanner) (*model.CatalogTemplate, error) {
	var t model.CatalogTemplate
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.PointsRequired, &t.Status, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns the catalog ordered by cost.
func (r *CatalogRepository) List(ctx context.Context) ([]model.CatalogTemplate, error) {
	query := `SELECT id, slug, name, description, points_required, status, created_at
		FROM reward_templates ORDER BY points_required, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	templates, err := collect(rows, scanCatalogTemplate)
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	return templates, nil
}

// InsertIfAbsent stores t unless its slug is already taken.
// It reports whether a row was inserted and fills in CreatedAt when it was.
func (r *CatalogRepository) InsertIfAbsent(ctx context.Context, t *model.CatalogTemplate) (bool, error) {
	query := `INSERT INTO reward_templates (id, slug, name, description, points_required, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO NOTHING
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, t.ID, t.Slug, t.Name, t.Description, t.PointsRequired, t.Status).
		Scan(&t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert catalog template %s: %w", t.Slug, err)
	}
	return true, nil
}
