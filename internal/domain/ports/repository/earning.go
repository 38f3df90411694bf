package repository

import (
	"context"

	"cashpoints/internal/domain/model"
)

type EarningRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Earning) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Earning, error)
	TotalPaid(ctx context.Context, tx Tx) (int64, error)
}
