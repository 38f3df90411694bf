package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `
  id, telegram_id, username, first_name, last_name,
  balance, total_earnings, total_referrals, referral_code,
  is_verified, is_banned, created_at, updated_at, last_active_at`

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, telegram_id, username, first_name, last_name,
  balance, total_earnings, total_referrals, referral_code,
  is_verified, is_banned, created_at, updated_at, last_active_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  username=$3, first_name=$4, last_name=$5,
  balance=$6, total_earnings=$7, total_referrals=$8,
  is_verified=$10, is_banned=$11, updated_at=$13, last_active_at=$14;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		u.ID, u.TelegramID, u.Username, u.FirstName, u.LastName,
		u.Balance, u.TotalEarnings, u.TotalReferrals, u.ReferralCode,
		u.IsVerified, u.IsBanned, u.CreatedAt, u.UpdatedAt, u.LastActiveAt)
	return err
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, `SELECT`+userColumns+` FROM users WHERE id=$1;`, id)
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	return r.findOne(ctx, tx, `SELECT`+userColumns+` FROM users WHERE telegram_id=$1;`, tgID)
}

func (r *PostgresUserRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.User, error) {
	return r.findOne(ctx, tx, `SELECT`+userColumns+` FROM users WHERE referral_code=$1;`, code)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg any) (*model.User, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := ex.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.Balance, &u.TotalEarnings, &u.TotalReferrals, &u.ReferralCode,
		&u.IsVerified, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt, &u.LastActiveAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserRepo) CountInactiveUsers(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE last_active_at < $1;`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count inactive: %w", err)
	}
	return n, nil
}
