package model

import (
	"fmt"
	"time"

	"cashpoints/internal/domain"

	"github.com/oklog/ulid/v2"
)

type EarningType string

const (
	EarningReferral EarningType = "referral"
)

// Earning is an append-only ledger entry. IDs are ULIDs so the ledger sorts
// chronologically without a separate sequence.
type Earning struct {
	ID          string
	UserID      string
	Amount      int64
	Type        EarningType
	Description string
	ReferralID  string
	CreatedAt   time.Time
}

func NewReferralEarning(userID string, amount int64, referralID string, referredTgID int64) (*Earning, error) {
	if userID == "" || referralID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Earning{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Amount:      amount,
		Type:        EarningReferral,
		Description: fmt.Sprintf("Referral reward from user %d", referredTgID),
		ReferralID:  referralID,
		CreatedAt:   now,
	}, nil
}
