package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aurorallabs/referral-portal/internal/live"
	"github.com/aurorallabs/referral-portal/internal/model"
)

// SubmissionService provides business logic for form intake.
type SubmissionService struct {
	pool        TxBeginner
	users       UserRepositoryInterface
	submissions SubmissionRepositoryInterface
	publisher   Publisher
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(pool *pgxpool.Pool, users UserRepositoryInterface, submissions SubmissionRepositoryInterface, publisher Publisher) *SubmissionService {
	return NewSubmissionServiceWithTxBeginner(pool, users, submissions, publisher)
}

// NewSubmissionServiceWithTxBeginner creates a SubmissionService with a custom TxBeginner.
// Primarily used for testing.
func NewSubmissionServiceWithTxBeginner(pool TxBeginner, users UserRepositoryInterface, submissions SubmissionRepositoryInterface, publisher Publisher) *SubmissionService {
	return &SubmissionService{
		pool:        pool,
		users:       users,
		submissions: submissions,
		publisher:   publisher,
	}
}

// Submit stores a form submission and credits the referrer, if any, in the same transaction.
// Returns:
//   - ErrMissingFields if type, email or name is blank
//   - ErrDuplicateSubmission if the email already submitted a once-per-email form type
//
// An unknown referrer is not an error: the submission is stored without one.
func (s *SubmissionService) Submit(ctx context.Context, req *model.SubmitFormRequest) (*model.Submission, error) {
	if req == nil || req.Type == "" || req.Email == "" || req.Name == "" {
		return nil, ErrMissingFields
	}

	ctx, span := tracer.Start(ctx, "SubmissionService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("submission.type", req.Type))

	typ := model.SubmissionType(req.Type)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Duplicate check; the unique index catches concurrent duplicates at insert
	if typ.OncePerEmail() {
		exists, err := s.submissions.ExistsByEmailAndType(ctx, tx, req.Email, typ)
		if err != nil {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			return nil, ErrDuplicateSubmission
		}
	}

	sub := &model.Submission{
		ID:      newID(),
		Name:    req.Name,
		Email:   req.Email,
		Type:    typ,
		Status:  model.SubmissionStatusPending,
		City:    req.City,
		Answers: req.Answers,
	}

	// 2. Credit the referrer when it exists
	if req.ReferredBy != "" {
		_, err := s.users.GetForUpdate(ctx, tx, req.ReferredBy)
		switch {
		case errors.Is(err, ErrUserNotFound):
			log.Info().Str("referred_by", req.ReferredBy).Msg("unknown referrer, storing submission without referral")
		case err != nil:
			return nil, fmt.Errorf("get referrer: %w", err)
		default:
			if err := s.users.IncrementReferralCount(ctx, tx, req.ReferredBy); err != nil {
				return nil, fmt.Errorf("credit referrer: %w", err)
			}
			referrer := req.ReferredBy
			sub.ReferredBy = &referrer
		}
	}

	// 3. Insert
	if err := s.submissions.Insert(ctx, tx, sub); err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			return nil, ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}

	if sub.ReferredBy != nil {
		publish(ctx, s.publisher, live.ReferralsTopic(*sub.ReferredBy))
	}
	return sub, nil
}

// ListReferrals returns the submissions credited to referrerID, newest first.
func (s *SubmissionService) ListReferrals(ctx context.Context, referrerID string) ([]model.Submission, error) {
	subs, err := s.submissions.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return subs, nil
}
