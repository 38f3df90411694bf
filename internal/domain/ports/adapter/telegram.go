package adapter

import "context"

// InlineButton is a transport-neutral description of a Telegram inline
// keyboard button. Exactly one of URL or Data should be set.
type InlineButton struct {
	Text string
	URL  string
	Data string
}

// Message is what the application layer hands back to the transport: text,
// optional keyboard and an optional photo to attach the caption to.
type Message struct {
	Text     string
	Buttons  [][]InlineButton
	PhotoURL string
}

// MembershipChecker reports whether a Telegram user currently belongs to the
// required group. Implementations may cache.
type MembershipChecker interface {
	IsGroupMember(ctx context.Context, tgID int64) (bool, error)
}

// TelegramBotAdapter is the outbound port the application uses to talk to
// Telegram.
type TelegramBotAdapter interface {
	MembershipChecker
	SendMessage(ctx context.Context, tgID int64, text string) error
	SendButtons(ctx context.Context, tgID int64, text string, rows [][]InlineButton) error
	SendPhoto(ctx context.Context, tgID int64, photoURL, caption string, rows [][]InlineButton) error
}
