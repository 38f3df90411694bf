package repository

import (
	"context"

	"cashpoints/internal/domain/model"
)

type ReferralRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Referral) error
	// FindByReferred returns the single referral row for a referred user,
	// regardless of who referred them, or domain.ErrNotFound.
	FindByReferred(ctx context.Context, tx Tx, referredID string) (*model.Referral, error)
	// FindPendingByReferred returns the pending referral awaiting group join,
	// or domain.ErrNotFound.
	FindPendingByReferred(ctx context.Context, tx Tx, referredID string) (*model.Referral, error)
	ListPending(ctx context.Context, tx Tx, limit int) ([]*model.Referral, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.ReferralStatus]int, error)
}

type ReferralCodeRepository interface {
	Save(ctx context.Context, tx Tx, c *model.ReferralCode) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ReferralCode, error)
}
