package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"cashpoints/internal/application"
	"cashpoints/internal/config"
	"cashpoints/internal/domain"
	"cashpoints/internal/domain/ports/adapter"
	"cashpoints/internal/infra/logging"
	"cashpoints/internal/infra/metrics"
	"cashpoints/internal/infra/redis"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// Per-user command budget. The verify button can be mashed, so callbacks get
// their own window.
const (
	commandLimit     = 10
	commandWindow    = time.Minute
	verifyCallback   = "verify_membership"
	pollTimeoutSecs  = 60
	updateBufferSize = 100
)

// RealTelegramBotAdapter implements adapter.TelegramBotAdapter on tgbotapi
// and routes inbound updates (polling or webhook) to the facade.
type RealTelegramBotAdapter struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.Config
	limiter *redis.RateLimiter
	log     *zerolog.Logger

	// facade is bound after construction: the facade's membership checker
	// wraps this adapter, so the adapter has to exist first.
	facade *application.BotFacade
	// invalidate drops the cached membership entry before a verify re-check.
	invalidate func(ctx context.Context, tgID int64)

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.Config, limiter *redis.RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	workers := cfg.Bot.Workers
	if workers <= 0 {
		workers = 5
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, err
	}

	l := logger.With().Str("component", "telegram").Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		limiter:       limiter,
		log:           &l,
		updateWorkers: workers,
	}, nil
}

// Bind attaches the facade and the membership-cache invalidation hook.
// Must be called before any update is handled.
func (r *RealTelegramBotAdapter) Bind(facade *application.BotFacade, invalidate func(ctx context.Context, tgID int64)) {
	r.facade = facade
	r.invalidate = invalidate
}

// Username reports the authenticated bot account name.
func (r *RealTelegramBotAdapter) Username() string { return r.bot.Self.UserName }

// StartPolling long-polls Telegram and fans updates out to workers.
// It blocks until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSecs

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, updateBufferSize)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					r.HandleUpdate(ctx, update, "polling")
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// HandleUpdate routes one Telegram update. The webhook handler calls this
// through the worker pool; polling workers call it directly.
func (r *RealTelegramBotAdapter) HandleUpdate(ctx context.Context, update tgbotapi.Update, transport string) {
	ctx = logging.WithUpdateID(ctx, update.UpdateID)
	err := r.route(ctx, update)
	metrics.IncUpdateProcessed(transport, err == nil)
	if err != nil {
		logging.With(ctx, r.log).Error().Err(err).Msg("handle update")
	}
}

func (r *RealTelegramBotAdapter) route(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		return r.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	tgID := msg.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	if !msg.IsCommand() {
		// Only private chats get a hint; group chatter is ignored.
		if msg.Chat != nil && msg.Chat.IsPrivate() {
			return r.SendMessage(ctx, tgID, "Sorry, I didn't understand that. Send /help for commands.")
		}
		return nil
	}

	cmd := msg.Command()
	if ok, err := r.allow(ctx, tgID, cmd); err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
	} else if !ok {
		logging.With(ctx, r.log).Debug().Str("command", cmd).Msg("rate limited")
		return nil
	}
	metrics.IncCommandHandled(cmd)

	switch cmd {
	case "start":
		return r.handleStart(ctx, msg)
	case "help":
		return r.send(ctx, tgID, r.facade.HandleHelp(ctx))
	case "status":
		reply, err := r.facade.HandleStatus(ctx, tgID)
		if err != nil {
			return err
		}
		return r.send(ctx, tgID, reply)
	default:
		return r.SendMessage(ctx, tgID, "Unknown command. Send /help for the list of commands.")
	}
}

func (r *RealTelegramBotAdapter) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	reply, err := r.facade.HandleStart(ctx, from.ID, from.UserName, from.FirstName, from.LastName, msg.CommandArguments())
	if err != nil {
		if errors.Is(err, domain.ErrUserBanned) {
			return r.SendMessage(ctx, from.ID, "Your account is suspended.")
		}
		// Storage trouble must not leave the user staring at silence.
		logging.With(ctx, r.log).Error().Err(err).Msg("start failed")
		return r.SendMessage(ctx, from.ID, "Something went wrong. Please try again in a moment.")
	}
	return r.send(ctx, from.ID, reply)
}

func (r *RealTelegramBotAdapter) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil {
		return nil
	}
	tgID := cb.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	// Ack immediately so the client stops the spinner.
	if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("answer callback")
	}

	if cb.Data != verifyCallback {
		return nil
	}
	if ok, err := r.allow(ctx, tgID, "verify"); err == nil && !ok {
		return nil
	}
	metrics.IncCommandHandled("verify")

	if r.invalidate != nil {
		r.invalidate(ctx, tgID)
	}
	reply, err := r.facade.HandleVerify(ctx, tgID)
	if err != nil {
		return err
	}
	return r.send(ctx, tgID, reply)
}

func (r *RealTelegramBotAdapter) allow(ctx context.Context, tgID int64, cmd string) (bool, error) {
	if r.limiter == nil {
		return true, nil
	}
	return r.limiter.Allow(ctx, redis.UserCommandKey(tgID, cmd), commandLimit, commandWindow)
}

// send renders an adapter.Message: photo with caption when a photo is set,
// plain text otherwise.
func (r *RealTelegramBotAdapter) send(ctx context.Context, tgID int64, m *adapter.Message) error {
	if m == nil {
		return nil
	}
	if m.PhotoURL != "" {
		return r.SendPhoto(ctx, tgID, m.PhotoURL, m.Text, m.Buttons)
	}
	return r.SendButtons(ctx, tgID, m.Text, m.Buttons)
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	return r.SendButtons(ctx, tgID, text, nil)
}

func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb, ok := keyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) SendPhoto(ctx context.Context, tgID int64, photoURL, caption string, rows [][]adapter.InlineButton) error {
	photo := tgbotapi.NewPhoto(tgID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if kb, ok := keyboard(rows); ok {
		photo.ReplyMarkup = kb
	}
	if _, err := r.bot.Send(photo); err != nil {
		// Photo hosts disappear; the text still has to arrive.
		logging.With(ctx, r.log).Warn().Err(err).Str("photo", photoURL).Msg("photo send failed, falling back to text")
		return r.SendButtons(ctx, tgID, caption, rows)
	}
	return nil
}

// IsGroupMember asks the Telegram API whether the user belongs to the
// required group. member, administrator and creator count; left, kicked and
// restricted do not.
func (r *RealTelegramBotAdapter) IsGroupMember(ctx context.Context, tgID int64) (bool, error) {
	member, err := r.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: r.cfg.Group.ID,
			UserID: tgID,
		},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	default:
		return false, nil
	}
}

// keyboard converts transport-neutral button rows into a tgbotapi inline
// keyboard. Telegram rejects empty keyboards, hence the ok flag.
func keyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.Data != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			}
		}
		out = append(out, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}
