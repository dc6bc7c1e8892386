package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/adapter"
	"sales-tracker-bot/internal/domain/ports/repository"
	"sales-tracker-bot/internal/infra/logging"
	"sales-tracker-bot/internal/infra/metrics"
	"sales-tracker-bot/internal/validate"
)

// WithdrawalUseCase drives the single-step withdrawal flow and the admin
// approve/decline actions on pending withdrawals.
type WithdrawalUseCase interface {
	Start(ctx context.Context, tgID, chatID int64) (*Reply, error)
	HandleAmount(ctx context.Context, tgID, chatID int64, text string) (*Reply, error)
	Approve(ctx context.Context, adminID, withdrawalID int64) (*Reply, error)
	Decline(ctx context.Context, adminID, withdrawalID int64) (*Reply, error)
}

var _ WithdrawalUseCase = (*withdrawalUC)(nil)

type withdrawalUC struct {
	notifier
	sessions    repository.SessionRepository
	workers     repository.WorkerRepository
	withdrawals repository.WithdrawalRepository
	log         *zerolog.Logger
}

func NewWithdrawalUseCase(
	sessions repository.SessionRepository,
	workers repository.WorkerRepository,
	withdrawals repository.WithdrawalRepository,
	bot adapter.TelegramBot,
	adminIDs []int64,
	logger *zerolog.Logger,
) *withdrawalUC {
	return &withdrawalUC{
		notifier:    notifier{bot: bot, admins: newAdminSet(adminIDs), log: logger},
		sessions:    sessions,
		workers:     workers,
		withdrawals: withdrawals,
		log:         logger,
	}
}

// Start checks the entry precondition (positive balance) and enters the flow.
func (u *withdrawalUC) Start(ctx context.Context, tgID, chatID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "WithdrawalUC.Start")()

	worker, err := u.workers.Find(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return text("🛑 You are not registered as a worker."), nil
		}
		return nil, fmt.Errorf("find worker: %w", err)
	}
	if worker.Balance <= 0 {
		return text("❌ Nothing to withdraw: your balance is empty."), nil
	}

	err = u.sessions.Update(ctx, tgID, chatID, func(s *model.Session) error {
		s.Step = model.StepWithdrawalAmount
		s.Data = make(map[string]string)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("💰 Your balance: %.2f\n\nEnter the amount to withdraw:", worker.Balance)), nil
}

// HandleAmount validates the requested amount against the balance re-fetched
// at validation time, then creates the PENDING withdrawal with an immediate
// optimistic debit. The session is cleared whether or not persistence
// succeeds.
func (u *withdrawalUC) HandleAmount(ctx context.Context, tgID, chatID int64, msg string) (*Reply, error) {
	defer logging.TraceDuration(u.log, "WithdrawalUC.HandleAmount")()
	log := logging.With(ctx, u.log)

	raw := strings.TrimSpace(msg)
	if !validate.IsMoney(raw) {
		return text("❌ Invalid amount. Enter a number like 50 or 50.25:"), nil
	}
	amount, err := strconv.ParseFloat(validate.NormalizeMoney(raw), 64)
	if err != nil || amount <= 0 {
		return text("❌ The amount must be greater than zero:"), nil
	}

	worker, err := u.workers.Find(ctx, tgID)
	if err != nil {
		_ = u.sessions.Clear(ctx, tgID, chatID)
		return fail(log, "withdrawal", err, "worker lookup failed during withdrawal"), nil
	}
	if amount > worker.Balance {
		// Validation error: keep the session so the user can try again.
		return text(fmt.Sprintf("❌ Not enough funds. Your balance: %.2f", worker.Balance)), nil
	}

	// Guaranteed cleanup: past validation, the session is cleared no matter
	// how persistence goes.
	defer func() {
		if err := u.sessions.Clear(ctx, tgID, chatID); err != nil {
			log.Error().Err(err).Msg("failed to clear session after withdrawal")
		}
	}()

	id, err := u.withdrawals.Create(ctx, tgID, amount)
	if err != nil {
		return fail(log, "withdrawal", err, "create withdrawal failed"), nil
	}
	if err := u.workers.IncBalance(ctx, tgID, -amount); err != nil {
		return fail(log, "withdrawal", err, "optimistic debit failed"), nil
	}

	u.notifyAdmins(ctx, fmt.Sprintf(
		"💸 Withdrawal request\n\n👤 Worker: @%s (ID: %d)\n💰 Amount: %.2f\n🆔 Request ID: %d",
		worker.Username, tgID, amount, id,
	), [][]adapter.InlineButton{
		adapter.Row(
			adapter.InlineButton{Text: "✅ Paid out", Data: fmt.Sprintf("%s%d", CallbackWithdrawApprovePrefix, id)},
			adapter.InlineButton{Text: "❌ Decline", Data: fmt.Sprintf("%s%d", CallbackWithdrawDeclinePrefix, id)},
		),
	})

	metrics.IncFlowOutcome("withdrawal", "saved")
	return text(fmt.Sprintf("✅ Withdrawal request for %.2f sent to the administrators.", amount)), nil
}

// Approve finalizes a pending withdrawal as DONE; the debit stays.
func (u *withdrawalUC) Approve(ctx context.Context, adminID, withdrawalID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "WithdrawalUC.Approve")()
	if !u.admins.allowed(adminID) {
		return nil, domain.ErrUnauthorized
	}

	w, err := u.withdrawals.Find(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return text("❌ Withdrawal request not found."), nil
		}
		return nil, fmt.Errorf("find withdrawal: %w", err)
	}
	if w.Finalized() {
		return text(fmt.Sprintf("Request %d is already %s.", w.ID, w.Status)), nil
	}

	if err := u.withdrawals.UpdateStatus(ctx, withdrawalID, model.WithdrawalDone); err != nil {
		return nil, fmt.Errorf("update withdrawal: %w", err)
	}

	u.notifyUser(ctx, w.TelegramID, fmt.Sprintf("✅ Your withdrawal of %.2f has been paid out!", w.Amount))
	return text(fmt.Sprintf("✅ Withdrawal %d approved.", withdrawalID)), nil
}

// Decline finalizes a pending withdrawal as DECLINED and refunds the debit.
func (u *withdrawalUC) Decline(ctx context.Context, adminID, withdrawalID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "WithdrawalUC.Decline")()
	if !u.admins.allowed(adminID) {
		return nil, domain.ErrUnauthorized
	}

	w, err := u.withdrawals.Find(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return text("❌ Withdrawal request not found."), nil
		}
		return nil, fmt.Errorf("find withdrawal: %w", err)
	}
	if w.Finalized() {
		return text(fmt.Sprintf("Request %d is already %s.", w.ID, w.Status)), nil
	}

	if err := u.withdrawals.UpdateStatus(ctx, withdrawalID, model.WithdrawalDeclined); err != nil {
		return nil, fmt.Errorf("update withdrawal: %w", err)
	}
	if err := u.workers.IncBalance(ctx, w.TelegramID, w.Amount); err != nil {
		// The status is already DECLINED; surface the refund failure rather
		// than leaving it silent.
		return nil, fmt.Errorf("refund balance: %w", err)
	}

	u.notifyUser(ctx, w.TelegramID, fmt.Sprintf(
		"❌ Your withdrawal request for %.2f was declined. The funds are back on your balance.", w.Amount))
	return text(fmt.Sprintf("❌ Withdrawal %d declined, funds returned.", withdrawalID)), nil
}

// fail logs err, counts the failed flow and returns the generic user-facing
// failure message.
func fail(log *zerolog.Logger, flow string, err error, msg string) *Reply {
	log.Error().Err(err).Msg(msg)
	metrics.IncFlowOutcome(flow, "failed")
	return text("❌ Something went wrong. Please try again.")
}
