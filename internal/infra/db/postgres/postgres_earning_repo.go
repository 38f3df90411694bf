package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/repository"
)

var _ repository.EarningRepository = (*PostgresEarningRepo)(nil)

type PostgresEarningRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresEarningRepo(pool *pgxpool.Pool) *PostgresEarningRepo {
	return &PostgresEarningRepo{pool: pool}
}

// Save appends a ledger entry. Earnings are never updated.
func (r *PostgresEarningRepo) Save(ctx context.Context, tx repository.Tx, e *model.Earning) error {
	const q = `
INSERT INTO earnings (id, user_id, amount, type, description, referral_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, e.ID, e.UserID, e.Amount, e.Type, e.Description, nullable(e.ReferralID), e.CreatedAt)
	return err
}

func (r *PostgresEarningRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Earning, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, user_id, amount, type, description, COALESCE(referral_id::text, ''), created_at
  FROM earnings WHERE user_id=$1 ORDER BY id DESC LIMIT $2;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Earning
	for rows.Next() {
		var e model.Earning
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Type, &e.Description, &e.ReferralID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *PostgresEarningRepo) TotalPaid(ctx context.Context, tx repository.Tx) (int64, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := ex.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM earnings;`).Scan(&total); err != nil {
		return 0, fmt.Errorf("total paid: %w", err)
	}
	return total, nil
}

// nullable maps an empty string to SQL NULL for optional UUID columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
