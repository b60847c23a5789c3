package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/service"
	"github.com/aurorallabs/referral-portal/pkg/database"
)

const userColumns = `id, email, display_name, photo_url, role, referral_count, rewards_claimed, created_at, last_login_at`

// UserRepository provides data access for users using pgx.
type UserRepository struct {
	pool PoolInterface
}

// NewUserRepository creates a new UserRepository with the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewUserRepositoryWithPool creates a new UserRepository with a custom pool interface.
// This is primarily used for testing.
func NewUserRepositoryWithPool(pool PoolInterface) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PhotoURL,
		&u.Role,
		&u.ReferralCount,
		&u.RewardsClaimed,
		&u.CreatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert provisions a user on first sign-in and records the login on every later one.
// Existing display names and roles are kept; counters are never touched.
func (r *UserRepository) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	query := `INSERT INTO users (id, email, display_name, photo_url, role, last_login_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = CASE WHEN users.display_name = '' THEN EXCLUDED.display_name ELSE users.display_name END,
			photo_url = CASE WHEN EXCLUDED.photo_url <> '' THEN EXCLUDED.photo_url ELSE users.photo_url END,
			last_login_at = NOW()
		RETURNING ` + userColumns

	role := user.Role
	if role == "" {
		role = model.RoleUser
	}

	u, err := scanUser(r.pool.QueryRow(ctx, query, user.ID, user.Email, user.DisplayName, user.PhotoURL, role))
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return u, nil
}

// GetByID retrieves a user by id.
// Returns nil, nil if the user is not found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves the oldest user with the given email, compared case-insensitively.
// Returns nil, nil if no user matches.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) ORDER BY created_at LIMIT 1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetForUpdate retrieves a user with a row lock (SELECT FOR UPDATE).
// Returns service.ErrUserNotFound if the user doesn't exist.
func (r *UserRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user for update %s: %w", id, err)
	}
	return u, nil
}

// IncrementReferralCount adds one credited referral. Must run after locking the row.
func (r *UserRepository) IncrementReferralCount(ctx context.Context, tx database.TxQuerier, id string) error {
	if _, err := tx.Exec(ctx, `UPDATE users SET referral_count = referral_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment referral count for %s: %w", id, err)
	}
	return nil
}

// IncrementRewardsClaimed adds one claimed reward. Must run after locking the row.
func (r *UserRepository) IncrementRewardsClaimed(ctx context.Context, tx database.TxQuerier, id string) error {
	if _, err := tx.Exec(ctx, `UPDATE users SET rewards_claimed = rewards_claimed + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment rewards claimed for %s: %w", id, err)
	}
	return nil
}

// DecrementRewardsClaimed gives back one claimed reward, never going below zero.
func (r *UserRepository) DecrementRewardsClaimed(ctx context.Context, tx database.TxQuerier, id string) error {
	query := `UPDATE users SET rewards_claimed = GREATEST(rewards_claimed - 1, 0) WHERE id = $1`
	if _, err := tx.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("decrement rewards claimed for %s: %w", id, err)
	}
	return nil
}

// SetRole stores the role of a user.
// Returns service.ErrUserNotFound if no row was updated.
func (r *UserRepository) SetRole(ctx context.Context, id string, role model.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set role for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

// UpdateDisplayName changes the display name and returns the updated user.
func (r *UserRepository) UpdateDisplayName(ctx context.Context, id, name string) (*model.User, error) {
	query := `UPDATE users SET display_name = $2 WHERE id = $1 RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrUserNotFound
		}
		return nil, fmt.Errorf("update display name for %s: %w", id, err)
	}
	return u, nil
}

// List returns all users, newest first.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// ListOverclaimed returns users whose claimed rewards exceed referral_count / perReward.
func (r *UserRepository) ListOverclaimed(ctx context.Context, perReward int) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE rewards_claimed > referral_count / $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, perReward)
	if err != nil {
		return nil, fmt.Errorf("list overclaimed users: %w", err)
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("scan overclaimed users: %w", err)
	}
	return users, nil
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountActiveSince returns the number of users who signed in after since.
func (r *UserRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE last_login_at > $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}
