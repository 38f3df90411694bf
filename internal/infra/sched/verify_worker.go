package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cashpoints/internal/domain/ports/repository"
	"cashpoints/internal/usecase"
)

const sweepBatchSize = 200

// VerifyWorker periodically sweeps pending referrals. Users who joined the
// group but never tapped the verify button still get their referrer paid.
type VerifyWorker struct {
	interval   time.Duration
	referrals  repository.ReferralRepository
	users      repository.UserRepository
	referralUC usecase.ReferralUseCase
	log        *zerolog.Logger
}

func NewVerifyWorker(interval time.Duration, referrals repository.ReferralRepository, users repository.UserRepository, referralUC usecase.ReferralUseCase, logger *zerolog.Logger) *VerifyWorker {
	l := logger.With().Str("component", "VerifyWorker").Logger()
	return &VerifyWorker{
		interval:   interval,
		referrals:  referrals,
		users:      users,
		referralUC: referralUC,
		log:        &l,
	}
}

func (w *VerifyWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting verify worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping verify worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.sweep(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("verify sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("pending referrals verified")
			}
		}
	}
}

// sweep walks pending referrals and rewards the ones whose referred user has
// since joined the group. Returns how many were verified this pass.
func (w *VerifyWorker) sweep(ctx context.Context) (int, error) {
	pending, err := w.referrals.ListPending(ctx, repository.NoTX, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	verified := 0
	for _, ref := range pending {
		if ctx.Err() != nil {
			return verified, ctx.Err()
		}
		user, err := w.users.FindByID(ctx, repository.NoTX, ref.ReferredID)
		if err != nil {
			w.log.Warn().Err(err).Str("referral_id", ref.ID).Msg("referred user lookup failed")
			continue
		}
		rewarded, err := w.referralUC.VerifyAndReward(ctx, user)
		if err != nil {
			w.log.Warn().Err(err).Str("referral_id", ref.ID).Msg("verify failed")
			continue
		}
		if rewarded {
			verified++
		}
	}
	return verified, nil
}
