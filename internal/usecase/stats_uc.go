package usecase

import (
	"context"

	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/repository"
	"cashpoints/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Totals is the aggregate snapshot served by /status (admin) and the admin API.
type Totals struct {
	Users             int
	ReferralsPending  int
	ReferralsVerified int
	RewardsPaid       int64
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*Totals, error)
}

type statsUC struct {
	users     repository.UserRepository
	referrals repository.ReferralRepository
	earnings  repository.EarningRepository
	log       *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, referrals repository.ReferralRepository, earnings repository.EarningRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, referrals: referrals, earnings: earnings, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*Totals, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Totals")()

	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.referrals.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	paid, err := s.earnings.TotalPaid(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Totals{
		Users:             users,
		ReferralsPending:  byStatus[model.ReferralPending],
		ReferralsVerified: byStatus[model.ReferralVerified],
		RewardsPaid:       paid,
	}, nil
}
