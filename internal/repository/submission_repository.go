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

const submissionColumns = `id, name, email, type, referred_by, status, city, answers, created_at, updated_at`

// SubmissionRepository provides data access for form submissions using pgx.
type SubmissionRepository struct {
	pool PoolInterface
}

// NewSubmissionRepository creates a new SubmissionRepository with the given pool.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// NewSubmissionRepositoryWithPool creates a new SubmissionRepository with a custom pool interface.
// This is primarily used for testing.
func NewSubmissionRepositoryWithPool(pool PoolInterface) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var s model.Submission
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.Type,
		&s.ReferredBy,
		&s.Status,
		&s.City,
		&s.Answers,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s.Answers == nil {
		s.Answers = map[string]any{}
	}
	return &s, nil
}

// ExistsByEmailAndType reports whether a submission with the email (case-insensitive) and type exists.
func (r *SubmissionRepository) ExistsByEmailAndType(ctx context.Context, tx database.TxQuerier, email string, typ model.SubmissionType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM submissions WHERE lower(email) = lower($1) AND type = $2)`

	var exists bool
	if err := tx.QueryRow(ctx, query, email, typ).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate submission: %w", err)
	}
	return exists, nil
}

// Insert stores a submission within a transaction and fills in its timestamps.
// Returns service.ErrDuplicateSubmission if the once-per-email index rejects the row.
func (r *SubmissionRepository) Insert(ctx context.Context, tx database.TxQuerier, s *model.Submission) error {
	query := `INSERT INTO submissions (id, name, email, type, referred_by, status, city, answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	answers := s.Answers
	if answers == nil {
		answers = map[string]any{}
	}

	err := tx.QueryRow(ctx, query, s.ID, s.Name, s.Email, s.Type, s.ReferredBy, s.Status, s.City, answers).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintSubmissionOncePerEmail) {
			return service.ErrDuplicateSubmission
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListByReferrer returns the submissions credited to a referrer, newest first.
func (r *SubmissionRepository) ListByReferrer(ctx context.Context, referrerID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE referred_by = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("list referrals for %s: %w", referrerID, err)
	}
	subs, err := collect(rows, scanSubmission)
	if err != nil {
		return nil, fmt.Errorf("scan referrals: %w", err)
	}
	return subs, nil
}

// List returns submissions newest first, optionally filtered by status.
func (r *SubmissionRepository) List(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	subs, err := collect(rows, scanSubmission)
	if err != nil {
		return nil, fmt.Errorf("scan submissions: %w", err)
	}
	return subs, nil
}

// ListAnswers returns the answers of every pet-survey submission.
func (r *SubmissionRepository) ListAnswers(ctx context.Context) ([]map[string]any, error) {
	rows, err := r.pool.Query(ctx, `SELECT answers FROM submissions WHERE type = $1`, model.SubmissionTypePetSurvey)
	if err != nil {
		return nil, fmt.Errorf("list survey answers: %w", err)
	}
	defer rows.Close()

	answers := []map[string]any{}
	for rows.Next() {
		var a map[string]any
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan survey answers: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate survey answers: %w", err)
	}
	return answers, nil
}

// GetByID retrieves a submission by id.
// Returns nil, nil if the submission is not found.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	s, err := scanSubmission(r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return s, nil
}

// Update applies the non-nil fields of req and returns the updated submission.
// Returns service.ErrSubmissionNotFound if the submission doesn't exist.
func (r *SubmissionRepository) Update(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error) {
	query := `UPDATE submissions SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			city = COALESCE($4, city),
			status = COALESCE($5, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + submissionColumns

	var status *string
	if req.Status != nil {
		v := string(*req.Status)
		status = &v
	}

	s, err := scanSubmission(r.pool.QueryRow(ctx, query, id, req.Name, req.Email, req.City, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrSubmissionNotFound
		}
		if database.IsUniqueViolation(err, database.ConstraintSubmissionOncePerEmail) {
			return nil, service.ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("update submission %s: %w", id, err)
	}
	return s, nil
}

// Delete removes a submission. Referral counters are not adjusted.
// Returns service.ErrSubmissionNotFound if no row was deleted.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrSubmissionNotFound
	}
	return nil
}

// Count returns the number of submissions.
func (r *SubmissionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}
