package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/infra/logging"
	"sales-tracker-bot/internal/usecase"
)

type cbHandler func(ctx context.Context, tgID, chatID int64, data string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks.
func (b *Bot) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		usecase.CallbackAddClient:         b.addClientCBRoute,
		usecase.CallbackRequestWithdrawal: b.requestWithdrawalCBRoute,
		usecase.CallbackConfirmSave:       b.intakeChoiceCBRoute,
		usecase.CallbackConfirmCancel:     b.intakeChoiceCBRoute,
		usecase.CallbackAdminTopWorkers:   b.adminTopWorkersCBRoute,
		usecase.CallbackAdminWithdrawals:  b.adminWithdrawalsCBRoute,
		usecase.CallbackAdminExportCSV:    b.adminExportCBRoute,
		usecase.CallbackAdminBack:         b.adminBackCBRoute,
	}
}

// Prefix-match callbacks; the id or choice follows the prefix.
func (b *Bot) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: usecase.CallbackMessengerPrefix, Fn: b.intakeChoiceCBRoute},
		{Prefix: usecase.CallbackStatusPrefix, Fn: b.intakeChoiceCBRoute},
		{Prefix: usecase.CallbackWithdrawApprovePrefix, Fn: b.withdrawDecisionCBRoute(true)},
		{Prefix: usecase.CallbackWithdrawDeclinePrefix, Fn: b.withdrawDecisionCBRoute(false)},
		{Prefix: usecase.CallbackApprovePrefix, Fn: b.workerDecisionCBRoute(true)},
		{Prefix: usecase.CallbackDeclinePrefix, Fn: b.workerDecisionCBRoute(false)},
	}
}

func (b *Bot) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query.From == nil {
		return errors.New("callback query without sender")
	}

	// Stop the telegram spinner when we return.
	defer func() { _, _ = b.api.Request(tgbotapi.NewCallback(query.ID, "")) }()

	tgID := query.From.ID
	chatID := tgID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	ctx = logging.WithTgID(ctx, tgID)
	ctx = logging.WithChatID(ctx, chatID)

	data := strings.TrimSpace(query.Data)
	if fn, ok := b.cbRoutes()[data]; ok {
		return b.reportCBError(ctx, chatID, fn(ctx, tgID, chatID, data))
	}
	for _, pr := range b.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return b.reportCBError(ctx, chatID, pr.Fn(ctx, tgID, chatID, data))
		}
	}

	b.log.Warn().Str("data", data).Int64("tg_id", tgID).Msg("unknown callback data")
	return nil
}

// reportCBError turns handler errors into a user-facing message so a failed
// button press never dies silently.
func (b *Bot) reportCBError(ctx context.Context, chatID int64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUnauthorized):
		return b.SendMessage(ctx, chatID, "🛑 You are not authorized for this action.")
	default:
		b.log.Error().Err(err).Msg("callback handling failed")
		return b.SendMessage(ctx, chatID, "❌ Something went wrong. Please try again.")
	}
}

func (b *Bot) addClientCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	reply, err := b.intake.Start(ctx, tgID, chatID)
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

func (b *Bot) requestWithdrawalCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	reply, err := b.withdrawal.Start(ctx, tgID, chatID)
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

// intakeChoiceCBRoute forwards the tag untouched; the flow knows which step
// it belongs to.
func (b *Bot) intakeChoiceCBRoute(ctx context.Context, tgID, chatID int64, data string) error {
	reply, err := b.intake.HandleChoice(ctx, tgID, chatID, data)
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

func (b *Bot) withdrawDecisionCBRoute(approve bool) cbHandler {
	return func(ctx context.Context, tgID, chatID int64, data string) error {
		prefix := usecase.CallbackWithdrawDeclinePrefix
		decide := b.withdrawal.Decline
		if approve {
			prefix = usecase.CallbackWithdrawApprovePrefix
			decide = b.withdrawal.Approve
		}
		id, err := idFromTag(data, prefix)
		if err != nil {
			return err
		}
		reply, err := decide(ctx, tgID, id)
		if err != nil {
			return err
		}
		return b.send(ctx, chatID, reply)
	}
}

func (b *Bot) workerDecisionCBRoute(approve bool) cbHandler {
	return func(ctx context.Context, tgID, chatID int64, data string) error {
		prefix := usecase.CallbackDeclinePrefix
		decide := b.registration.Decline
		if approve {
			prefix = usecase.CallbackApprovePrefix
			decide = b.registration.Approve
		}
		workerID, err := idFromTag(data, prefix)
		if err != nil {
			return err
		}
		reply, err := decide(ctx, tgID, workerID)
		if err != nil {
			return err
		}
		return b.send(ctx, chatID, reply)
	}
}

func (b *Bot) adminTopWorkersCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	reply, err := b.admin.TopWorkers(ctx, tgID)
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

func (b *Bot) adminWithdrawalsCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	reply, err := b.admin.PendingWithdrawals(ctx, tgID)
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

func (b *Bot) adminExportCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	filename, data, err := b.admin.ExportDoneCSV(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.SendMessage(ctx, chatID, "📄 No paid-out withdrawals to export yet.")
		}
		return err
	}
	return b.SendDocument(ctx, chatID, filename, data, "Paid-out withdrawals")
}

func (b *Bot) adminBackCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	reply, err := b.admin.Panel(ctx, tgID)
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

func idFromTag(data, prefix string) (int64, error) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad id in callback %q: %w", data, err)
	}
	return id, nil
}
