package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/repository"
)

var _ repository.ReferralCodeRepository = (*PostgresReferralCodeRepo)(nil)

type PostgresReferralCodeRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresReferralCodeRepo(pool *pgxpool.Pool) *PostgresReferralCodeRepo {
	return &PostgresReferralCodeRepo{pool: pool}
}

func (r *PostgresReferralCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.ReferralCode) error {
	const q = `
INSERT INTO referral_codes (code, user_id, active, usage_count, last_used_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (code) DO UPDATE SET
  active=$3, usage_count=$4, last_used_at=$5;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, c.Code, c.UserID, c.Active, c.UsageCount, c.LastUsedAt, c.CreatedAt)
	return err
}

func (r *PostgresReferralCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ReferralCode, error) {
	const q = `
SELECT code, user_id, active, usage_count, last_used_at, created_at
  FROM referral_codes WHERE code=$1;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var c model.ReferralCode
	if err := ex.QueryRow(ctx, q, code).Scan(
		&c.Code, &c.UserID, &c.Active, &c.UsageCount, &c.LastUsedAt, &c.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
