package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*PostgresReferralRepo)(nil)

type PostgresReferralRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresReferralRepo(pool *pgxpool.Pool) *PostgresReferralRepo {
	return &PostgresReferralRepo{pool: pool}
}

const referralColumns = `
  id, referrer_id, referred_id, code, status,
  group_join_verified, group_join_at, rejoin_count, reward_given,
  created_at, updated_at`

func (r *PostgresReferralRepo) Save(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	const q = `
INSERT INTO referrals (
  id, referrer_id, referred_id, code, status,
  group_join_verified, group_join_at, rejoin_count, reward_given,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  status=$5, group_join_verified=$6, group_join_at=$7,
  rejoin_count=$8, reward_given=$9, updated_at=$11;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		ref.ID, ref.ReferrerID, ref.ReferredID, ref.Code, ref.Status,
		ref.GroupJoinVerified, ref.GroupJoinAt, ref.RejoinCount, ref.RewardGiven,
		ref.CreatedAt, ref.UpdatedAt)
	return err
}

func (r *PostgresReferralRepo) FindByReferred(ctx context.Context, tx repository.Tx, referredID string) (*model.Referral, error) {
	return r.findOne(ctx, tx, `SELECT`+referralColumns+` FROM referrals WHERE referred_id=$1;`, referredID)
}

func (r *PostgresReferralRepo) FindPendingByReferred(ctx context.Context, tx repository.Tx, referredID string) (*model.Referral, error) {
	return r.findOne(ctx, tx,
		`SELECT`+referralColumns+` FROM referrals WHERE referred_id=$1 AND status=$2;`,
		referredID, model.ReferralPending)
}

func (r *PostgresReferralRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...any) (*model.Referral, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var ref model.Referral
	if err := ex.QueryRow(ctx, q, args...).Scan(
		&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Code, &ref.Status,
		&ref.GroupJoinVerified, &ref.GroupJoinAt, &ref.RejoinCount, &ref.RewardGiven,
		&ref.CreatedAt, &ref.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}

func (r *PostgresReferralRepo) ListPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Referral, error) {
	if limit <= 0 {
		limit = 100
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx,
		`SELECT`+referralColumns+` FROM referrals WHERE status=$1 ORDER BY created_at LIMIT $2;`,
		model.ReferralPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Referral
	for rows.Next() {
		var ref model.Referral
		if err := rows.Scan(
			&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Code, &ref.Status,
			&ref.GroupJoinVerified, &ref.GroupJoinAt, &ref.RejoinCount, &ref.RewardGiven,
			&ref.CreatedAt, &ref.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &ref)
	}
	return out, rows.Err()
}

func (r *PostgresReferralRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.ReferralStatus]int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT status, COUNT(*) FROM referrals GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}
	defer rows.Close()

	out := make(map[model.ReferralStatus]int)
	for rows.Next() {
		var status model.ReferralStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
