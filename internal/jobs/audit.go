// Package jobs runs periodic background maintenance.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/aurorallabs/referral-portal/internal/model"
)

// ErrInvalidInterval is returned when a job interval is not positive.
var ErrInvalidInterval = errors.New("job interval must be positive")

// OverclaimAuditor finds users whose claimed rewards exceed what they earned.
type OverclaimAuditor interface {
	OverclaimedUsers(ctx context.Context) ([]model.User, error)
}

// Scheduler owns the gocron scheduler and the jobs registered on it.
type Scheduler struct {
	sched   gocron.Scheduler
	timeout time.Duration
}

// NewScheduler registers the ledger audit to run every interval.
// The first run happens immediately after Start.
func NewScheduler(auditor OverclaimAuditor, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{sched: sched, timeout: interval}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if _, err := AuditLedger(ctx, auditor); err != nil {
				log.Error().Err(err).Msg("ledger audit failed")
			}
		}),
		gocron.WithName("ledger-audit"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("register ledger audit: %w", err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.sched.Start()
	log.Info().Dur("interval", s.timeout).Msg("job scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// AuditLedger logs a warning for every user whose rewards_claimed is larger
// than their referrals have earned and returns how many it found.
// Nothing is corrected automatically.
func AuditLedger(ctx context.Context, auditor OverclaimAuditor) (int, error) {
	users, err := auditor.OverclaimedUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("find overclaimed users: %w", err)
	}
	for _, u := range users {
		log.Warn().
			Str("user_id", u.ID).
			Int("referral_count", u.ReferralCount).
			Int("rewards_claimed", u.RewardsClaimed).
			Msg("rewards claimed exceed rewards earned")
	}
	if len(users) > 0 {
		log.Warn().Int("users", len(users)).Msg("ledger audit found overclaimed users")
	} else {
		log.Debug().Msg("ledger audit clean")
	}
	return len(users), nil
}
