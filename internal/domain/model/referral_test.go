//go:build !integration

package model_test

import (
	"errors"
	"testing"
	"time"

	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
)

func TestNewReferral(t *testing.T) {
	t.Run("starts pending", func(t *testing.T) {
		ref, err := model.NewReferral("referrer", "referred", "CP100")
		if err != nil {
			t.Fatalf("NewReferral failed: %v", err)
		}
		if ref.Status != model.ReferralPending {
			t.Errorf("status = %q, want %q", ref.Status, model.ReferralPending)
		}
		if ref.RewardGiven || ref.GroupJoinVerified {
			t.Error("new referral must not be verified")
		}
	})

	t.Run("rejects self referral", func(t *testing.T) {
		if _, err := model.NewReferral("same", "same", "CP1"); !errors.Is(err, domain.ErrSelfReferral) {
			t.Errorf("err = %v, want ErrSelfReferral", err)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		if _, err := model.NewReferral("", "referred", "CP1"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
		if _, err := model.NewReferral("referrer", "referred", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestReferralMarkVerified(t *testing.T) {
	ref, _ := model.NewReferral("referrer", "referred", "CP100")
	at := time.Now()

	if err := ref.MarkVerified(at); err != nil {
		t.Fatalf("MarkVerified failed: %v", err)
	}
	if ref.Status != model.ReferralVerified || !ref.RewardGiven || !ref.GroupJoinVerified {
		t.Errorf("referral not fully verified: %+v", ref)
	}
	if ref.GroupJoinAt == nil || !ref.GroupJoinAt.Equal(at) {
		t.Errorf("GroupJoinAt = %v, want %v", ref.GroupJoinAt, at)
	}

	// The latch makes a second payout impossible.
	if err := ref.MarkVerified(time.Now()); !errors.Is(err, domain.ErrRewardAlreadyGiven) {
		t.Errorf("second MarkVerified err = %v, want ErrRewardAlreadyGiven", err)
	}
}

func TestReferralRecordRejoin(t *testing.T) {
	ref, _ := model.NewReferral("referrer", "referred", "CP100")
	ref.RecordRejoin()
	ref.RecordRejoin()
	if ref.RejoinCount != 2 {
		t.Errorf("RejoinCount = %d, want 2", ref.RejoinCount)
	}
	if ref.Status != model.ReferralPending {
		t.Errorf("rejoin must not change status, got %q", ref.Status)
	}
}

func TestReferralCode(t *testing.T) {
	t.Run("new code is active", func(t *testing.T) {
		rc, err := model.NewReferralCode("CP42", "user-1")
		if err != nil {
			t.Fatalf("NewReferralCode failed: %v", err)
		}
		if !rc.Active {
			t.Error("expected active code")
		}
	})

	t.Run("record use bumps counter", func(t *testing.T) {
		rc, _ := model.NewReferralCode("CP42", "user-1")
		at := time.Now()
		rc.RecordUse(at)
		if rc.UsageCount != 1 {
			t.Errorf("UsageCount = %d, want 1", rc.UsageCount)
		}
		if rc.LastUsedAt == nil || !rc.LastUsedAt.Equal(at) {
			t.Errorf("LastUsedAt = %v, want %v", rc.LastUsedAt, at)
		}
	})
}

func TestNewReferralEarning(t *testing.T) {
	e, err := model.NewReferralEarning("user-1", 2, "ref-1", 101)
	if err != nil {
		t.Fatalf("NewReferralEarning failed: %v", err)
	}
	if e.Type != model.EarningReferral {
		t.Errorf("type = %q, want referral", e.Type)
	}
	if e.Description != "Referral reward from user 101" {
		t.Errorf("description = %q", e.Description)
	}
	if e.ID == "" {
		t.Error("expected ULID")
	}

	if _, err := model.NewReferralEarning("", 2, "ref-1", 101); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("missing user: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := model.NewReferralEarning("user-1", 0, "ref-1", 101); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("zero amount: err = %v, want ErrInvalidArgument", err)
	}
}
