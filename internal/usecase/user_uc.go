package usecase

import (
	"context"
	"errors"
	"time"

	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/repository"
	"cashpoints/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-related operations used by bot/admin flows.
type UserUseCase interface {
	// RegisterOrFetch finds the user by Telegram ID or creates them,
	// refreshing profile fields and last-active time either way. New users
	// get a referral code row provisioned in the same transaction.
	RegisterOrFetch(ctx context.Context, tgID int64, username, firstName, lastName string) (*model.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	Count(ctx context.Context) (int, error)
	CountInactiveSince(ctx context.Context, since time.Time) (int, error)
}

type userUC struct {
	users repository.UserRepository
	codes repository.ReferralCodeRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, codes repository.ReferralCodeRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		codes: codes,
		tm:    tm,
		log:   logger,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64, username, firstName, lastName string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	var user *model.User
	// Read and write as one atomic operation so two concurrent /start
	// deliveries cannot create the user twice.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByTelegramID(ctx, tx, tgID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if usr != nil {
			if username != "" {
				usr.Username = username
			}
			if firstName != "" {
				usr.FirstName = firstName
			}
			if lastName != "" {
				usr.LastName = lastName
			}
			usr.Touch()
			if err := u.users.Save(ctx, tx, usr); err != nil {
				u.log.Error().Err(err).Int64("tg_id", tgID).Msg("failed to update user")
				return err
			}
			user = usr
			return nil
		}

		nu, err := model.NewUser("", tgID, username, firstName, lastName)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		code, err := model.NewReferralCode(nu.ReferralCode, nu.ID)
		if err != nil {
			return err
		}
		if err := u.codes.Save(ctx, tx, code); err != nil {
			return err
		}
		u.log.Info().Int64("tg_id", tgID).Str("referral_code", nu.ReferralCode).Msg("registered new user")
		user = nu
		return nil
	})

	return user, err
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByTelegramID")()
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}

func (u *userUC) CountInactiveSince(ctx context.Context, since time.Time) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.CountInactiveSince")()
	return u.users.CountInactiveUsers(ctx, repository.NoTX, since)
}
