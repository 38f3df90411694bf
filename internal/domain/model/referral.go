package model

import (
	"time"

	"cashpoints/internal/domain"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	// ReferralPending means the referred user started the bot through a link
	// but has not been seen inside the required group yet.
	ReferralPending ReferralStatus = "pending_group_join"
	// ReferralVerified means group membership was confirmed and the reward
	// was paid out.
	ReferralVerified ReferralStatus = "verified"
)

// Referral links a referrer to a referred user. There is at most one referral
// per referred user: the first referrer wins, later attempts only bump
// RejoinCount on the existing row.
type Referral struct {
	ID                string
	ReferrerID        string // domain user ID of the referrer
	ReferredID        string // domain user ID of the referred user
	Code              string
	Status            ReferralStatus
	GroupJoinVerified bool
	GroupJoinAt       *time.Time
	RejoinCount       int
	RewardGiven       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewReferral(referrerID, referredID, code string) (*Referral, error) {
	if referrerID == "" || referredID == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}
	if referrerID == referredID {
		return nil, domain.ErrSelfReferral
	}
	now := time.Now()
	return &Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrerID,
		ReferredID: referredID,
		Code:       code,
		Status:     ReferralPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkVerified flips the referral to verified and latches the reward flag.
// It fails if the reward was already paid, which is what makes the payout
// idempotent under concurrent verification paths.
func (r *Referral) MarkVerified(at time.Time) error {
	if r.RewardGiven {
		return domain.ErrRewardAlreadyGiven
	}
	r.Status = ReferralVerified
	r.GroupJoinVerified = true
	r.GroupJoinAt = &at
	r.RewardGiven = true
	r.UpdatedAt = at
	return nil
}

// RecordRejoin counts a repeated /start through the same referral link.
func (r *Referral) RecordRejoin() {
	r.RejoinCount++
	r.UpdatedAt = time.Now()
}

// ReferralCode is the lookup row the mini app shares with the bot. Usage is
// tracked for reporting; the users table remains the authority on ownership.
type ReferralCode struct {
	Code       string
	UserID     string
	Active     bool
	UsageCount int
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

func NewReferralCode(code, userID string) (*ReferralCode, error) {
	if code == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &ReferralCode{
		Code:      code,
		UserID:    userID,
		Active:    true,
		CreatedAt: time.Now(),
	}, nil
}

func (c *ReferralCode) RecordUse(at time.Time) {
	c.UsageCount++
	c.LastUsedAt = &at
}
