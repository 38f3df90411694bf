//go:build !integration

package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cashpoints/internal/application"
	"cashpoints/internal/config"
	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/adapter"
	"cashpoints/internal/usecase"
)

type stubUserUC struct {
	user *model.User
	err  error
}

func (s *stubUserUC) RegisterOrFetch(ctx context.Context, tgID int64, username, firstName, lastName string) (*model.User, error) {
	return s.user, s.err
}

func (s *stubUserUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	if s.user == nil {
		return nil, domain.ErrNotFound
	}
	return s.user, s.err
}

func (s *stubUserUC) Count(ctx context.Context) (int, error) { return 0, nil }

func (s *stubUserUC) CountInactiveSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

type stubReferralUC struct {
	attachCode string
	attachErr  error
	verifyOK   bool
	verifyErr  error
	verified   int
}

func (s *stubReferralUC) ResolveReferrer(ctx context.Context, code string) (*model.User, error) {
	return nil, domain.ErrNotFound
}

func (s *stubReferralUC) Attach(ctx context.Context, code string, referred *model.User) (*model.Referral, error) {
	s.attachCode = code
	if s.attachErr != nil {
		return nil, s.attachErr
	}
	return model.NewReferral("referrer", referred.ID, code)
}

func (s *stubReferralUC) VerifyAndReward(ctx context.Context, referred *model.User) (bool, error) {
	s.verified++
	return s.verifyOK, s.verifyErr
}

type stubStatsUC struct{}

func (stubStatsUC) Totals(ctx context.Context) (*usecase.Totals, error) {
	return &usecase.Totals{Users: 10, ReferralsVerified: 4, RewardsPaid: 8}, nil
}

type stubChecker struct {
	member bool
	err    error
}

func (s *stubChecker) IsGroupMember(ctx context.Context, tgID int64) (bool, error) {
	return s.member, s.err
}

type stubPinger struct{ err error }

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Group.ID = -100123
	cfg.Group.Name = "Cash Points Community"
	cfg.Group.Link = "https://t.me/cashpoints"
	cfg.MiniAppURL = "https://app.example.com"
	cfg.Reward.Referral = 2
	return cfg
}

func newFacade(userUC *stubUserUC, refUC *stubReferralUC, checker *stubChecker) *application.BotFacade {
	log := zerolog.Nop()
	return application.NewBotFacade(userUC, refUC, stubStatsUC{}, checker, &stubPinger{}, testConfig(), &log)
}

func testUser(t *testing.T) *model.User {
	t.Helper()
	u, err := model.NewUser("user-1", 42, "alice", "Alice", "")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	return u
}

func hasButton(msg *adapter.Message, text string) bool {
	for _, row := range msg.Buttons {
		for _, b := range row {
			if strings.Contains(b.Text, text) {
				return true
			}
		}
	}
	return false
}

func TestHandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("member gets welcome with mini app", func(t *testing.T) {
		refUC := &stubReferralUC{}
		f := newFacade(&stubUserUC{user: testUser(t)}, refUC, &stubChecker{member: true})

		msg, err := f.HandleStart(ctx, 42, "alice", "Alice", "", "")
		if err != nil {
			t.Fatalf("HandleStart failed: %v", err)
		}
		if !strings.Contains(msg.Text, "Welcome") {
			t.Errorf("expected welcome text, got %q", msg.Text)
		}
		if !strings.Contains(msg.Text, "CP42") {
			t.Errorf("expected referral code in text, got %q", msg.Text)
		}
		if msg.PhotoURL == "" {
			t.Error("welcome message should carry a photo")
		}
		if !hasButton(msg, "Open and Earn") {
			t.Error("missing mini app button")
		}
		if refUC.verified != 0 {
			t.Error("no payload, no verification expected")
		}
	})

	t.Run("non-member gets join gate with verify button", func(t *testing.T) {
		f := newFacade(&stubUserUC{user: testUser(t)}, &stubReferralUC{}, &stubChecker{member: false})

		msg, err := f.HandleStart(ctx, 42, "alice", "Alice", "", "")
		if err != nil {
			t.Fatalf("HandleStart failed: %v", err)
		}
		if !strings.Contains(msg.Text, "Group Join Required") {
			t.Errorf("expected join gate, got %q", msg.Text)
		}
		found := false
		for _, row := range msg.Buttons {
			for _, b := range row {
				if b.Data == "verify_membership" {
					found = true
				}
			}
		}
		if !found {
			t.Error("missing verify_membership callback button")
		}
	})

	t.Run("payload attaches referral and member triggers payout", func(t *testing.T) {
		refUC := &stubReferralUC{verifyOK: true}
		f := newFacade(&stubUserUC{user: testUser(t)}, refUC, &stubChecker{member: true})

		if _, err := f.HandleStart(ctx, 42, "alice", "Alice", "", "CP100"); err != nil {
			t.Fatalf("HandleStart failed: %v", err)
		}
		if refUC.attachCode != "CP100" {
			t.Errorf("attach code = %q, want CP100", refUC.attachCode)
		}
		if refUC.verified != 1 {
			t.Errorf("verify calls = %d, want 1", refUC.verified)
		}
	})

	t.Run("bad referral codes never block start", func(t *testing.T) {
		for _, attachErr := range []error{
			domain.ErrSelfReferral,
			domain.ErrDuplicateReferral,
			domain.ErrAlreadyReferred,
			domain.ErrInvalidArgument,
			domain.ErrNotFound,
		} {
			f := newFacade(&stubUserUC{user: testUser(t)}, &stubReferralUC{attachErr: attachErr}, &stubChecker{member: true})
			if _, err := f.HandleStart(ctx, 42, "alice", "Alice", "", "CPbad"); err != nil {
				t.Errorf("attach error %v must not fail start, got %v", attachErr, err)
			}
		}
	})

	t.Run("membership check error degrades to join gate", func(t *testing.T) {
		f := newFacade(&stubUserUC{user: testUser(t)}, &stubReferralUC{}, &stubChecker{err: errors.New("api down")})

		msg, err := f.HandleStart(ctx, 42, "alice", "Alice", "", "")
		if err != nil {
			t.Fatalf("HandleStart failed: %v", err)
		}
		if !strings.Contains(msg.Text, "Group Join Required") {
			t.Errorf("expected join gate on membership error, got %q", msg.Text)
		}
	})

	t.Run("banned user is rejected", func(t *testing.T) {
		banned := testUser(t)
		banned.IsBanned = true
		f := newFacade(&stubUserUC{user: banned}, &stubReferralUC{}, &stubChecker{member: true})

		if _, err := f.HandleStart(ctx, 42, "alice", "Alice", "", ""); !errors.Is(err, domain.ErrUserBanned) {
			t.Errorf("err = %v, want ErrUserBanned", err)
		}
	})
}

func TestHandleVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user is told to /start", func(t *testing.T) {
		f := newFacade(&stubUserUC{}, &stubReferralUC{}, &stubChecker{member: true})

		msg, err := f.HandleVerify(ctx, 42)
		if err != nil {
			t.Fatalf("HandleVerify failed: %v", err)
		}
		if !strings.Contains(msg.Text, "/start") {
			t.Errorf("expected /start hint, got %q", msg.Text)
		}
	})

	t.Run("member with pending referral gets bonus note", func(t *testing.T) {
		refUC := &stubReferralUC{verifyOK: true}
		f := newFacade(&stubUserUC{user: testUser(t)}, refUC, &stubChecker{member: true})

		msg, err := f.HandleVerify(ctx, 42)
		if err != nil {
			t.Fatalf("HandleVerify failed: %v", err)
		}
		if !strings.Contains(msg.Text, "Bonus") {
			t.Errorf("expected bonus note, got %q", msg.Text)
		}
	})

	t.Run("member without referral gets plain welcome", func(t *testing.T) {
		f := newFacade(&stubUserUC{user: testUser(t)}, &stubReferralUC{verifyOK: false}, &stubChecker{member: true})

		msg, err := f.HandleVerify(ctx, 42)
		if err != nil {
			t.Fatalf("HandleVerify failed: %v", err)
		}
		if strings.Contains(msg.Text, "Bonus") {
			t.Errorf("unexpected bonus note: %q", msg.Text)
		}
	})

	t.Run("still not a member", func(t *testing.T) {
		f := newFacade(&stubUserUC{user: testUser(t)}, &stubReferralUC{}, &stubChecker{member: false})

		msg, err := f.HandleVerify(ctx, 42)
		if err != nil {
			t.Fatalf("HandleVerify failed: %v", err)
		}
		if !strings.Contains(msg.Text, "not joined") {
			t.Errorf("expected not-joined text, got %q", msg.Text)
		}
		if msg.PhotoURL != "" {
			t.Error("verify retry message should not carry a photo")
		}
	})
}

func TestHandleStatus(t *testing.T) {
	f := newFacade(&stubUserUC{user: testUser(t)}, &stubReferralUC{}, &stubChecker{member: true})

	msg, err := f.HandleStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("HandleStatus failed: %v", err)
	}
	for _, want := range []string{"42", "Connected", "10 users", "Online"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("status missing %q: %q", want, msg.Text)
		}
	}
}

func TestHandleHelp(t *testing.T) {
	f := newFacade(&stubUserUC{user: testUser(t)}, &stubReferralUC{}, &stubChecker{member: true})

	msg := f.HandleHelp(context.Background())
	for _, want := range []string{"/start", "/help", "/status", "Cash Points Community"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("help missing %q", want)
		}
	}
	if !hasButton(msg, "Join Group") {
		t.Error("missing join group button")
	}
}
