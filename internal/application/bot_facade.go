package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cashpoints/internal/config"
	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/adapter"
	"cashpoints/internal/usecase"

	"github.com/rs/zerolog"
)

// Pinger reports storage liveness; satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Promo images shown with the welcome and join-required messages.
const (
	welcomePhotoURL = "https://i.postimg.cc/65Sx65jK/01.jpg"
	joinPhotoURL    = "https://i.postimg.cc/44DtvWyZ/43b0363d-525b-425c-bc02-b66f6d214445-1.jpg"
)

// BotFacade composes usecases into high-level bot commands. Methods return
// adapter.Message values so the Telegram transport just renders them.
type BotFacade struct {
	UserUC     usecase.UserUseCase
	ReferralUC usecase.ReferralUseCase
	StatsUC    usecase.StatsUseCase
	Membership adapter.MembershipChecker

	db      Pinger
	group   config.GroupConfig
	miniApp string
	reward  int64
	log     *zerolog.Logger
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	referralUC usecase.ReferralUseCase,
	statsUC usecase.StatsUseCase,
	membership adapter.MembershipChecker,
	db Pinger,
	cfg *config.Config,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		UserUC:     userUC,
		ReferralUC: referralUC,
		StatsUC:    statsUC,
		Membership: membership,
		db:         db,
		group:      cfg.Group,
		miniApp:    cfg.MiniAppURL,
		reward:     cfg.Reward.Referral,
		log:        logger,
	}
}

// HandleStart registers/refreshes the user, attaches a referral when a code
// payload is present, then branches on group membership: members get the
// mini-app entry, everyone else gets the join-required gate.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username, firstName, lastName, payload string) (*adapter.Message, error) {
	user, err := b.UserUC.RegisterOrFetch(ctx, tgID, username, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("register/fetch user: %w", err)
	}
	if user.IsBanned {
		return nil, domain.ErrUserBanned
	}

	referred := false
	if code := strings.TrimSpace(payload); code != "" {
		_, err := b.ReferralUC.Attach(ctx, code, user)
		switch {
		case err == nil:
			referred = true
		case errors.Is(err, domain.ErrSelfReferral),
			errors.Is(err, domain.ErrDuplicateReferral),
			errors.Is(err, domain.ErrAlreadyReferred),
			errors.Is(err, domain.ErrInvalidArgument),
			errors.Is(err, domain.ErrNotFound):
			// Invalid or repeated codes never block /start.
			b.log.Info().Err(err).Str("code", code).Int64("tg_id", tgID).Msg("referral not attached")
		default:
			return nil, fmt.Errorf("attach referral: %w", err)
		}
	}

	member, err := b.Membership.IsGroupMember(ctx, tgID)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("membership check failed")
		member = false
	}
	if !member {
		return b.joinRequiredMessage(user), nil
	}

	// Already in the group: pay out a pending referral right away.
	if referred {
		if _, err := b.ReferralUC.VerifyAndReward(ctx, user); err != nil {
			b.log.Error().Err(err).Int64("tg_id", tgID).Msg("verify-and-reward failed on start")
		}
	}
	return b.welcomeMessage(user), nil
}

// HandleVerify re-checks membership after the user pressed "Verify
// Membership" and pays the referrer when a pending referral exists.
func (b *BotFacade) HandleVerify(ctx context.Context, tgID int64) (*adapter.Message, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &adapter.Message{Text: "Please send /start first."}, nil
		}
		return nil, err
	}

	member, err := b.Membership.IsGroupMember(ctx, tgID)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("membership check failed")
		member = false
	}
	if !member {
		msg := b.joinRequiredMessage(user)
		msg.Text = fmt.Sprintf(
			"❌ <b>Group Join Required</b>\n\nHello %s! You have not joined the group yet.\n\n1️⃣ Join %s\n2️⃣ Then tap 'Verify Membership' again\n\n🔒 Mini App access is for group members only.",
			user.DisplayName(), b.group.Name)
		msg.PhotoURL = ""
		return msg, nil
	}

	rewarded, err := b.ReferralUC.VerifyAndReward(ctx, user)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("verify-and-reward failed")
	}

	msg := b.welcomeMessage(user)
	if rewarded {
		msg.Text += "\n\n🎁 <b>Bonus:</b> Your referrer has been rewarded!"
	}
	return msg, nil
}

// HandleStatus reports bot, database and membership state for the calling user.
func (b *BotFacade) HandleStatus(ctx context.Context, tgID int64) (*adapter.Message, error) {
	member, err := b.Membership.IsGroupMember(ctx, tgID)
	if err != nil {
		member = false
	}

	sb := strings.Builder{}
	sb.WriteString("🤖 <b>Bot Status Report</b>\n\n")
	fmt.Fprintf(&sb, "🆔 <b>Telegram ID:</b> <code>%d</code>\n", tgID)
	fmt.Fprintf(&sb, "📱 <b>Group Member:</b> %s\n", yesNo(member))
	fmt.Fprintf(&sb, "💾 <b>Database:</b> %s\n", connectedOffline(b.DatabaseOnline(ctx)))
	sb.WriteString("🤖 <b>Bot:</b> ✅ Online\n")

	if totals, err := b.StatsUC.Totals(ctx); err == nil {
		fmt.Fprintf(&sb, "\n📊 <b>Totals:</b> %d users, %d verified referrals, ৳%d paid out\n",
			totals.Users, totals.ReferralsVerified, totals.RewardsPaid)
	}
	fmt.Fprintf(&sb, "\n⏰ <b>Check Time:</b> %s", time.Now().Format("2006-01-02 15:04:05"))

	return &adapter.Message{
		Text: sb.String(),
		Buttons: [][]adapter.InlineButton{
			{{Text: "📱 Join Group", URL: b.group.Link}},
			{{Text: "🚀 Open Mini App", URL: b.miniApp}},
		},
	}, nil
}

// HandleHelp describes commands and the referral program.
func (b *BotFacade) HandleHelp(ctx context.Context) *adapter.Message {
	text := fmt.Sprintf(
		"🤖 <b>Cash Points Bot Commands</b>\n\n"+
			"/start - Start the bot and check group membership\n"+
			"/help - Show this help message\n"+
			"/status - Check bot and database status\n\n"+
			"💰 <b>Referral System:</b>\n"+
			"🔗 Share your referral link\n"+
			"🎁 Earn ৳%d for each successful referral\n"+
			"✅ Referred users must join the group to earn you rewards\n\n"+
			"📱 <b>Group:</b> %s\n🔗 <b>Link:</b> %s",
		b.reward, b.group.Name, b.group.Link)
	return &adapter.Message{
		Text: text,
		Buttons: [][]adapter.InlineButton{
			{{Text: "📱 Join Group", URL: b.group.Link}},
			{{Text: "🚀 Open Mini App", URL: b.miniApp}},
		},
	}
}

// DatabaseOnline probes storage; the health endpoint and /status share it.
func (b *BotFacade) DatabaseOnline(ctx context.Context) bool {
	if b.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.db.Ping(ctx) == nil
}

func (b *BotFacade) welcomeMessage(user *model.User) *adapter.Message {
	text := fmt.Sprintf(
		"🎉 <b>Welcome %s!</b>\n\n"+
			"✅ You are a member of %s.\n\n"+
			"🏆 Earning rewards is easy: invite friends with your referral link and complete daily tasks.\n"+
			"🔗 Your referral code: <code>%s</code>\n\n"+
			"👉 Tap below to open the Mini App and claim your rewards!",
		user.DisplayName(), b.group.Name, user.ReferralCode)
	return &adapter.Message{
		Text:     text,
		PhotoURL: welcomePhotoURL,
		Buttons: [][]adapter.InlineButton{
			{{Text: "Open and Earn 💰", URL: b.miniApp}},
		},
	}
}

func (b *BotFacade) joinRequiredMessage(user *model.User) *adapter.Message {
	text := fmt.Sprintf(
		"🔒 <b>Group Join Required</b>\n\n"+
			"Hello %s! To access the Mini App you must join our group.\n\n"+
			"📋 <b>Steps:</b>\n"+
			"✅ Join the group\n"+
			"✅ Tap 'Verify Membership'\n"+
			"✅ Get Mini App access\n\n"+
			"⚠️ <b>Important:</b> withdrawals are only available to group members.",
		user.DisplayName())
	return &adapter.Message{
		Text:     text,
		PhotoURL: joinPhotoURL,
		Buttons: [][]adapter.InlineButton{
			{{Text: fmt.Sprintf("📱 Join %s", b.group.Name), URL: b.group.Link}},
			{{Text: "✅ Verify Membership", Data: "verify_membership"}},
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "✅ Yes"
	}
	return "❌ No"
}

func connectedOffline(v bool) string {
	if v {
		return "✅ Connected"
	}
	return "❌ Offline Mode"
}
