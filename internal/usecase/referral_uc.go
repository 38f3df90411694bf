package usecase

import (
	"context"
	"errors"
	"time"

	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/adapter"
	"cashpoints/internal/domain/ports/repository"
	"cashpoints/internal/infra/logging"
	"cashpoints/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ReferralUseCase = (*referralUC)(nil)

// ReferralUseCase implements the referral lifecycle: attach on /start,
// verify-and-reward once group membership is confirmed.
type ReferralUseCase interface {
	// ResolveReferrer maps a referral code to its owner. Lookup order is the
	// users table first, then the referral_codes table as fallback.
	ResolveReferrer(ctx context.Context, code string) (*model.User, error)

	// Attach records a pending referral of referred through code. Self
	// referrals, repeat joins and second referrers are rejected with
	// domain errors; repeat joins additionally bump the rejoin counter.
	Attach(ctx context.Context, code string, referred *model.User) (*model.Referral, error)

	// VerifyAndReward checks live group membership for the referred user and,
	// if a pending referral exists, pays the referrer exactly once. Returns
	// (false, nil) when there is nothing to do: not a member, no pending
	// referral, or reward already given.
	VerifyAndReward(ctx context.Context, referred *model.User) (bool, error)
}

type referralUC struct {
	users      repository.UserRepository
	referrals  repository.ReferralRepository
	codes      repository.ReferralCodeRepository
	earnings   repository.EarningRepository
	tm         repository.TransactionManager
	membership adapter.MembershipChecker
	reward     int64
	log        *zerolog.Logger
}

func NewReferralUseCase(
	users repository.UserRepository,
	referrals repository.ReferralRepository,
	codes repository.ReferralCodeRepository,
	earnings repository.EarningRepository,
	tm repository.TransactionManager,
	membership adapter.MembershipChecker,
	reward int64,
	logger *zerolog.Logger,
) *referralUC {
	return &referralUC{
		users:      users,
		referrals:  referrals,
		codes:      codes,
		earnings:   earnings,
		tm:         tm,
		membership: membership,
		reward:     reward,
		log:        logger,
	}
}

func (r *referralUC) ResolveReferrer(ctx context.Context, code string) (*model.User, error) {
	defer logging.TraceDuration(r.log, "ReferralUC.ResolveReferrer")()

	if _, err := model.ParseReferralCode(code); err != nil {
		metrics.IncReferralRejected("invalid_code")
		return nil, domain.ErrInvalidArgument
	}

	// Primary: owner recorded on the user row.
	owner, err := r.users.FindByReferralCode(ctx, repository.NoTX, code)
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Fallback: referral_codes table (codes minted by the mini app before
	// the owner ever talked to the bot).
	rc, err := r.codes.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncReferralRejected("unknown_code")
		}
		return nil, err
	}
	if !rc.Active {
		metrics.IncReferralRejected("unknown_code")
		return nil, domain.ErrNotFound
	}
	return r.users.FindByID(ctx, repository.NoTX, rc.UserID)
}

func (r *referralUC) Attach(ctx context.Context, code string, referred *model.User) (*model.Referral, error) {
	defer logging.TraceDuration(r.log, "ReferralUC.Attach")()

	referrer, err := r.ResolveReferrer(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer.ID == referred.ID {
		metrics.IncReferralRejected("self")
		return nil, domain.ErrSelfReferral
	}

	var created *model.Referral
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err = r.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		existing, err := r.referrals.FindByReferred(ctx, tx, referred.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			if existing.ReferrerID == referrer.ID {
				// Rejoin through the same link: count it, never re-reward.
				existing.RecordRejoin()
				if err := r.referrals.Save(ctx, tx, existing); err != nil {
					return err
				}
				r.log.Info().
					Str("referred", referred.ID).
					Int("rejoin_count", existing.RejoinCount).
					Msg("duplicate referral, rejoin recorded")
				metrics.IncReferralRejected("duplicate")
				return domain.ErrDuplicateReferral
			}
			// First referrer wins; a second referrer gets nothing.
			r.log.Warn().
				Str("referred", referred.ID).
				Str("first_referrer", existing.ReferrerID).
				Str("late_referrer", referrer.ID).
				Msg("user already referred by someone else")
			metrics.IncReferralRejected("foreign")
			return domain.ErrAlreadyReferred
		}

		ref, err := model.NewReferral(referrer.ID, referred.ID, code)
		if err != nil {
			return err
		}
		if err := r.referrals.Save(ctx, tx, ref); err != nil {
			return err
		}
		created = ref
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReferralCreated()
	r.log.Info().Str("referrer", referrer.ID).Str("referred", referred.ID).Msg("referral recorded")
	return created, nil
}

func (r *referralUC) VerifyAndReward(ctx context.Context, referred *model.User) (bool, error) {
	defer logging.TraceDuration(r.log, "ReferralUC.VerifyAndReward")()

	member, err := r.membership.IsGroupMember(ctx, referred.TelegramID)
	if err != nil {
		return false, err
	}
	if !member {
		return false, nil
	}

	rewarded := false
	now := time.Now()
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err = r.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		ref, err := r.referrals.FindPendingByReferred(ctx, tx, referred.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil // nothing pending; idempotent no-op
			}
			return err
		}

		if err := ref.MarkVerified(now); err != nil {
			return err
		}
		if err := r.referrals.Save(ctx, tx, ref); err != nil {
			return err
		}

		referrer, err := r.users.FindByID(ctx, tx, ref.ReferrerID)
		if err != nil {
			return err
		}
		referrer.Credit(r.reward)
		referrer.TotalReferrals++
		if err := r.users.Save(ctx, tx, referrer); err != nil {
			return err
		}

		// Usage bookkeeping; a missing code row is not fatal.
		if rc, err := r.codes.FindByCode(ctx, tx, ref.Code); err == nil {
			rc.RecordUse(now)
			if err := r.codes.Save(ctx, tx, rc); err != nil {
				return err
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		earning, err := model.NewReferralEarning(referrer.ID, r.reward, ref.ID, referred.TelegramID)
		if err != nil {
			return err
		}
		if err := r.earnings.Save(ctx, tx, earning); err != nil {
			return err
		}

		rewarded = true
		r.log.Info().
			Str("referrer", referrer.ID).
			Str("referred", referred.ID).
			Int64("amount", r.reward).
			Msg("referral reward paid")
		return nil
	})
	if err != nil {
		return false, err
	}
	if rewarded {
		metrics.ReferralVerified(r.reward)
	}
	return rewarded, nil
}
