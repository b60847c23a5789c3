package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/service"
	"github.com/aurorallabs/referral-portal/pkg/database"
)

// Every query filters on kind so templates and claims never leak into each other's results.
const (
	templateColumns = `id, name, description, points_required, status, created_at, updated_at`
	claimColumns    = `id, user_id, status, template_id, name, description, points_required, created_at, processed_at`
)

// RewardRepository provides data access for the rewards table, which holds
// both claimable templates and user claims.
type RewardRepository struct {
	pool PoolInterface
}

// NewRewardRepository creates a new RewardRepository with the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// NewRewardRepositoryWithPool creates a new RewardRepository with a custom pool interface.
// This is primarily used for testing.
func NewRewardRepositoryWithPool(pool PoolInterface) *RewardRepository {
	return &RewardRepository{pool: pool}
}

func scanTemplate(row rowScanner) (*model.RewardTemplate, error) {
	var t model.RewardTemplate
	var description *string
	err := row.Scan(&t.ID, &t.Name, &description, &t.PointsRequired, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description != nil {
		t.Description = *description
	}
	return &t, nil
}

func scanClaim(row rowScanner) (*model.RewardClaim, error) {
	var c model.RewardClaim
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Status,
		&c.TemplateID,
		&c.Name,
		&c.Description,
		&c.PointsRequired,
		&c.CreatedAt,
		&c.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListTemplates returns reward templates ordered by cost. activeOnly hides inactive ones.
func (r *RewardRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]model.RewardTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM rewards
		WHERE kind = 'template' AND (NOT $1 OR status = 'active')
		ORDER BY points_required, name`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list reward templates: %w", err)
	}
	templates, err := collect(rows, scanTemplate)
	if err != nil {
		return nil, fmt.Errorf("scan reward templates: %w", err)
	}
	return templates, nil
}

// GetTemplate retrieves a template by id using q, which may be the pool or a transaction.
// Returns service.ErrTemplateNotFound if no template has that id.
func (r *RewardRepository) GetTemplate(ctx context.Context, q database.TxQuerier, id string) (*model.RewardTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM rewards WHERE id = $1 AND kind = 'template'`

	t, err := scanTemplate(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get reward template %s: %w", id, err)
	}
	return t, nil
}

// CreateTemplate inserts a template and fills in its timestamps.
func (r *RewardRepository) CreateTemplate(ctx context.Context, t *model.RewardTemplate) error {
	query := `INSERT INTO rewards (id, kind, name, description, points_required, status)
		VALUES ($1, 'template', $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, t.ID, t.Name, t.Description, t.PointsRequired, t.Status).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reward template: %w", err)
	}
	return nil
}

// UpdateTemplate replaces the editable fields of a template.
// Returns service.ErrTemplateNotFound if no template has that id.
func (r *RewardRepository) UpdateTemplate(ctx context.Context, t *model.RewardTemplate) error {
	query := `UPDATE rewards SET name = $2, description = $3, points_required = $4, status = $5, updated_at = NOW()
		WHERE id = $1 AND kind = 'template'
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, t.ID, t.Name, t.Description, t.PointsRequired, t.Status).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrTemplateNotFound
		}
		return fmt.Errorf("update reward template %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTemplate removes a template. Claims keep their copied template fields.
func (r *RewardRepository) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rewards WHERE id = $1 AND kind = 'template'`, id)
	if err != nil {
		return fmt.Errorf("delete reward template %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrTemplateNotFound
	}
	return nil
}

// InsertClaim stores a claim within a transaction and fills in CreatedAt.
func (r *RewardRepository) InsertClaim(ctx context.Context, tx database.TxQuerier, c *model.RewardClaim) error {
	query := `INSERT INTO rewards (id, kind, user_id, status, template_id, name, description, points_required)
		VALUES ($1, 'claim', $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := tx.QueryRow(ctx, query, c.ID, c.UserID, c.Status, c.TemplateID, c.Name, c.Description, c.PointsRequired).
		Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reward claim: %w", err)
	}
	return nil
}

// ListClaimsByUser returns a user's claims, newest first.
func (r *RewardRepository) ListClaimsByUser(ctx context.Context, userID string) ([]model.RewardClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM rewards
		WHERE kind = 'claim' AND user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list claims for %s: %w", userID, err)
	}
	claims, err := collect(rows, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("scan claims: %w", err)
	}
	return claims, nil
}

// ListClaims returns all claims newest first, optionally filtered by status.
func (r *RewardRepository) ListClaims(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM rewards
		WHERE kind = 'claim' AND ($1 = '' OR status = $1)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	claims, err := collect(rows, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("scan claims: %w", err)
	}
	return claims, nil
}

// GetClaimForUpdate retrieves a claim with a row lock (SELECT FOR UPDATE).
// Returns service.ErrClaimNotFound if the claim doesn't exist.
func (r *RewardRepository) GetClaimForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.RewardClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM rewards WHERE id = $1 AND kind = 'claim' FOR UPDATE`

	c, err := scanClaim(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrClaimNotFound
		}
		return nil, fmt.Errorf("get claim for update %s: %w", id, err)
	}
	return c, nil
}

// SetClaimStatus moves a locked claim to status and stamps processed_at.
func (r *RewardRepository) SetClaimStatus(ctx context.Context, tx database.TxQuerier, id string, status model.ClaimStatus) (*model.RewardClaim, error) {
	query := `UPDATE rewards SET status = $2, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND kind = 'claim'
		RETURNING ` + claimColumns

	c, err := scanClaim(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrClaimNotFound
		}
		return nil, fmt.Errorf("set claim status %s: %w", id, err)
	}
	return c, nil
}

// DeleteClaim removes a locked claim.
func (r *RewardRepository) DeleteClaim(ctx context.Context, tx database.TxQuerier, id string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM rewards WHERE id = $1 AND kind = 'claim'`, id); err != nil {
		return fmt.Errorf("delete claim %s: %w", id, err)
	}
	return nil
}

// CountClaimsByStatus returns the number of claims in status.
func (r *RewardRepository) CountClaimsByStatus(ctx context.Context, status model.ClaimStatus) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rewards WHERE kind = 'claim' AND status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s claims: %w", status, err)
	}
	return n, nil
}
