package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cashpoints/internal/domain"

	"github.com/google/uuid"
)

// User is a domain entity representing a Telegram user in the rewards system.
// Balance and TotalEarnings are whole currency units (Taka).
type User struct {
	ID             string
	TelegramID     int64
	Username       string
	FirstName      string
	LastName       string
	Balance        int64
	TotalEarnings  int64
	TotalReferrals int
	ReferralCode   string
	IsVerified     bool
	IsBanned       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActiveAt   time.Time
}

func NewUser(id string, tgID int64, username, firstName, lastName string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	u := &User{
		ID:           id,
		TelegramID:   tgID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		ReferralCode: ReferralCodeFor(tgID),
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}
	return u, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func (u *User) Touch() {
	now := time.Now()
	u.LastActiveAt = now
	u.UpdatedAt = now
}

// DisplayName picks the friendliest non-empty identifier, mirroring what the
// bot prints in chat messages.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("User%d", u.TelegramID)
}

// Credit applies a reward to the user's balance and lifetime earnings.
func (u *User) Credit(amount int64) {
	u.Balance += amount
	u.TotalEarnings += amount
	u.UpdatedAt = time.Now()
}

const referralCodePrefix = "CP"

// ReferralCodeFor derives the canonical referral code for a Telegram ID.
// The mini app derives the same code client-side, so the format is fixed.
func ReferralCodeFor(tgID int64) string {
	return referralCodePrefix + strconv.FormatInt(tgID, 10)
}

// ParseReferralCode validates a code and extracts the owner's Telegram ID.
func ParseReferralCode(code string) (int64, error) {
	if !strings.HasPrefix(code, referralCodePrefix) || len(code) < len(referralCodePrefix)+1 {
		return 0, domain.ErrInvalidArgument
	}
	id, err := strconv.ParseInt(code[len(referralCodePrefix):], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return id, nil
}
