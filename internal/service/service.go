package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/tracing"
	"github.com/aurorallabs/referral-portal/pkg/database"
)

var tracer = tracing.Tracer("service")

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepositoryInterface defines the interface for user data access.
type UserRepositoryInterface interface {
	Upsert(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.User, error)
	IncrementReferralCount(ctx context.Context, tx database.TxQuerier, id string) error
	IncrementRewardsClaimed(ctx context.Context, tx database.TxQuerier, id string) error
	DecrementRewardsClaimed(ctx context.Context, tx database.TxQuerier, id string) error
	SetRole(ctx context.Context, id string, role model.Role) error
	UpdateDisplayName(ctx context.Context, id, name string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListOverclaimed(ctx context.Context, perReward int) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// SubmissionRepositoryInterface defines the interface for submission data access.
type SubmissionRepositoryInterface interface {
	ExistsByEmailAndType(ctx context.Context, tx database.TxQuerier, email string, typ model.SubmissionType) (bool, error)
	Insert(ctx context.Context, tx database.TxQuerier, s *model.Submission) error
	ListByReferrer(ctx context.Context, referrerID string) ([]model.Submission, error)
	List(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	ListAnswers(ctx context.Context) ([]map[string]any, error)
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	Update(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// RewardRepositoryInterface defines the interface for reward template and claim data access.
type RewardRepositoryInterface interface {
	ListTemplates(ctx context.Context, activeOnly bool) ([]model.RewardTemplate, error)
	GetTemplate(ctx context.Context, q database.TxQuerier, id string) (*model.RewardTemplate, error)
	CreateTemplate(ctx context.Context, t *model.RewardTemplate) error
	UpdateTemplate(ctx context.Context, t *model.RewardTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	InsertClaim(ctx context.Context, tx database.TxQuerier, c *model.RewardClaim) error
	ListClaimsByUser(ctx context.Context, userID string) ([]model.RewardClaim, error)
	ListClaims(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error)
	GetClaimForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.RewardClaim, error)
	SetClaimStatus(ctx context.Context, tx database.TxQuerier, id string, status model.ClaimStatus) (*model.RewardClaim, error)
	DeleteClaim(ctx context.Context, tx database.TxQuerier, id string) error
	CountClaimsByStatus(ctx context.Context, status model.ClaimStatus) (int, error)
}

// CatalogRepositoryInterface defines the interface for the seeded template catalog.
type CatalogRepositoryInterface interface {
	List(ctx context.Context) ([]model.CatalogTemplate, error)
	InsertIfAbsent(ctx context.Context, t *model.CatalogTemplate) (bool, error)
}

// Publisher signals live-update topics. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, topic string) error
}

func newID() string {
	return uuid.NewString()
}
