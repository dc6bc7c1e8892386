package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sales-tracker-bot/internal/config"
	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/adapter"
	"sales-tracker-bot/internal/domain/ports/repository"
	"sales-tracker-bot/internal/infra/logging"
	"sales-tracker-bot/internal/infra/metrics"
	"sales-tracker-bot/internal/usecase"
)

// Bot is the tgbotapi transport: it polls updates with a pool of worker
// goroutines and implements the outbound adapter.TelegramBot port. The
// handlers are wired in after construction because the usecases themselves
// need the outbound port.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.BotConfig
	log *zerolog.Logger

	sessions     repository.SessionRepository
	registration usecase.RegistrationUseCase
	intake       usecase.IntakeUseCase
	withdrawal   usecase.WithdrawalUseCase
	admin        usecase.AdminUseCase

	adminIDsMap   map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
}

var _ adapter.TelegramBot = (*Bot)(nil)

func NewBot(cfg *config.BotConfig, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	adminMap := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		log:           logger,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}, nil
}

// Wire attaches the inbound handlers. Must be called before StartPolling.
func (b *Bot) Wire(
	sessions repository.SessionRepository,
	registration usecase.RegistrationUseCase,
	intake usecase.IntakeUseCase,
	withdrawal usecase.WithdrawalUseCase,
	admin usecase.AdminUseCase,
) {
	b.sessions = sessions
	b.registration = registration
	b.intake = intake
	b.withdrawal = withdrawal
	b.admin = admin
}

// StartPolling polls Telegram for updates and fans them out to the worker
// pool. It blocks until ctx is canceled.
func (b *Bot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < b.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up, ok := <-updateChan:
					if !ok {
						return
					}
					if err := b.handleUpdate(ctx, up); err != nil {
						b.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case <-ctx.Done():
				return
			case up := <-updates:
				select {
				case updateChan <- up:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	<-ctx.Done()
	b.api.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
		}
		kbRows = append(kbRows, kbRow)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) isAdmin(tgID int64) bool {
	_, ok := b.adminIDsMap[tgID]
	return ok
}

// send delivers a usecase reply. A nil reply means the event was dropped.
func (b *Bot) send(ctx context.Context, chatID int64, reply *usecase.Reply) error {
	if reply == nil {
		return nil
	}
	if len(reply.Buttons) > 0 {
		return b.SendButtons(ctx, chatID, reply.Text, reply.Buttons)
	}
	return b.SendMessage(ctx, chatID, reply.Text)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	if update.CallbackQuery != nil {
		metrics.IncUpdate("callback")
		return b.handleQuery(ctx, update.CallbackQuery)
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	tgID := msg.From.ID
	chatID := msg.Chat.ID
	ctx = logging.WithTgID(ctx, tgID)
	ctx = logging.WithChatID(ctx, chatID)

	if msg.IsCommand() {
		metrics.IncUpdate("command")
		fn, ok := b.commandRoutes()[msg.Command()]
		if !ok {
			return b.SendMessage(ctx, chatID, "Unknown command. Send /help for the list of commands.")
		}
		return fn(ctx, msg)
	}

	if len(msg.Photo) > 0 || msg.Document != nil {
		metrics.IncUpdate("attachment")
		return b.handleAttachment(ctx, msg)
	}

	metrics.IncUpdate("message")
	return b.handleText(ctx, tgID, chatID, msg.Text)
}

// handleText routes a plain message by the user's current conversation step.
func (b *Bot) handleText(ctx context.Context, tgID, chatID int64, text string) error {
	sess, err := b.sessions.Get(ctx, tgID, chatID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	var reply *usecase.Reply
	switch {
	case sess.Step == model.StepWithdrawalAmount:
		reply, err = b.withdrawal.HandleAmount(ctx, tgID, chatID, text)
	case sess.Active():
		reply, err = b.intake.HandleText(ctx, tgID, chatID, text)
	default:
		return b.SendMessage(ctx, chatID, "Use /start to open your cabinet or /help for commands.")
	}
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

// handleAttachment downloads the file and hands it to the intake flow. Photos
// use the largest available size.
func (b *Bot) handleAttachment(ctx context.Context, msg *tgbotapi.Message) error {
	tgID := msg.From.ID
	chatID := msg.Chat.ID

	var fileID, filename string
	switch {
	case msg.Document != nil:
		fileID = msg.Document.FileID
		filename = msg.Document.FileName
		if filename == "" {
			filename = fmt.Sprintf("receipt_%d.bin", tgID)
		}
	case len(msg.Photo) > 0:
		fileID = msg.Photo[len(msg.Photo)-1].FileID
		filename = fmt.Sprintf("receipt_%d.jpg", tgID)
	default:
		return nil
	}

	body, err := b.fetchFile(ctx, fileID)
	if err != nil {
		b.log.Error().Err(err).Str("file_id", fileID).Msg("attachment download failed")
		return b.SendMessage(ctx, chatID, "❌ Could not download the file. Please try again.")
	}
	defer body.Close()

	reply, err := b.intake.HandleAttachment(ctx, tgID, chatID, usecase.Attachment{
		Filename: filename,
		File:     body,
	})
	if err != nil {
		return err
	}
	return b.send(ctx, chatID, reply)
}

// fetchFile resolves a Telegram file id and streams its content.
func (b *Bot) fetchFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Link(b.api.Token), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
