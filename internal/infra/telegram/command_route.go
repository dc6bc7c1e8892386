package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

func (b *Bot) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":   b.handleStartCommand,
		"cabinet": b.handleCabinetCommand,
		"cancel":  b.handleCancelCommand,
		"help":    b.handleHelpCommand,

		"admin": b.adminOnly(b.handleAdminCommand),
	}
}

func (b *Bot) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !b.isAdmin(message.From.ID) {
			return b.SendMessage(ctx, message.Chat.ID, "🛑 You are not authorized to use this command.")
		}
		return next(ctx, message)
	}
}

func (b *Bot) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := b.registration.Start(ctx, message.From.ID, message.From.UserName)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", message.From.ID).Msg("start failed")
		return b.SendMessage(ctx, message.Chat.ID, "❌ Something went wrong. Please try again.")
	}
	return b.send(ctx, message.Chat.ID, reply)
}

func (b *Bot) handleCabinetCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := b.registration.Cabinet(ctx, message.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", message.From.ID).Msg("cabinet failed")
		return b.SendMessage(ctx, message.Chat.ID, "❌ Something went wrong. Please try again.")
	}
	return b.send(ctx, message.Chat.ID, reply)
}

func (b *Bot) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := b.intake.CancelActive(ctx, message.From.ID, message.Chat.ID)
	if err != nil {
		return err
	}
	return b.send(ctx, message.Chat.ID, reply)
}

func (b *Bot) handleAdminCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := b.admin.Panel(ctx, message.From.ID)
	if err != nil {
		return err
	}
	return b.send(ctx, message.Chat.ID, reply)
}

func (b *Bot) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	help := "Commands:\n" +
		"/start — register or open your cabinet\n" +
		"/cabinet — your clients and balance\n" +
		"/cancel — abort the current flow\n" +
		"/help — this message"
	if b.isAdmin(message.From.ID) {
		help += "\n/admin — admin panel"
	}
	return b.SendMessage(ctx, message.Chat.ID, help)
}
