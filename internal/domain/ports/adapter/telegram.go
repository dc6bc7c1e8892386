package adapter

import "context"

// InlineButton is one inline-keyboard button. Data is the callback tag.
type InlineButton struct {
	Text string
	Data string
}

// Row is a convenience constructor for one keyboard row.
func Row(buttons ...InlineButton) []InlineButton { return buttons }

// TelegramBot is the outbound side of the chat transport. Send failures to
// admins are logged and swallowed by callers; the triggering operation has
// already persisted its result.
type TelegramBot interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}
