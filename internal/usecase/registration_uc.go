package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/adapter"
	"sales-tracker-bot/internal/domain/ports/repository"
	"sales-tracker-bot/internal/infra/logging"
)

// RegistrationUseCase covers first contact, the worker cabinet and the admin
// decision on a pending application.
type RegistrationUseCase interface {
	Start(ctx context.Context, tgID int64, username string) (*Reply, error)
	Cabinet(ctx context.Context, tgID int64) (*Reply, error)
	Approve(ctx context.Context, adminID, workerID int64) (*Reply, error)
	Decline(ctx context.Context, adminID, workerID int64) (*Reply, error)
}

var _ RegistrationUseCase = (*registrationUC)(nil)

type registrationUC struct {
	notifier
	workers repository.WorkerRepository
	log     *zerolog.Logger
}

func NewRegistrationUseCase(
	workers repository.WorkerRepository,
	bot adapter.TelegramBot,
	adminIDs []int64,
	logger *zerolog.Logger,
) *registrationUC {
	return &registrationUC{
		notifier: notifier{bot: bot, admins: newAdminSet(adminIDs), log: logger},
		workers:  workers,
		log:      logger,
	}
}

// Start handles first contact. Unknown users become pending workers and the
// admins get an approve/decline card.
func (u *registrationUC) Start(ctx context.Context, tgID int64, username string) (*Reply, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Start")()

	if u.admins.allowed(tgID) {
		return text("🔧 You are an admin. Use /admin for the control panel."), nil
	}

	worker, err := u.workers.Find(ctx, tgID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find worker: %w", err)
	}

	if worker != nil {
		switch worker.Role {
		case model.RoleWorker:
			return u.Cabinet(ctx, tgID)
		case model.RolePending:
			return text("⏳ Your application is under review."), nil
		case model.RoleDeclined:
			return text("🛑 Your application was declined. Contact an administrator to reapply."), nil
		default:
			return text("❌ Something is off with your account. Contact an administrator."), nil
		}
	}

	if username == "" {
		username = "unknown"
	}
	if err := u.workers.Add(ctx, tgID, username); err != nil {
		return nil, fmt.Errorf("add worker: %w", err)
	}

	u.notifyAdmins(ctx,
		fmt.Sprintf("📋 New worker application\n\nUser: @%s\nID: %d", username, tgID),
		[][]adapter.InlineButton{
			adapter.Row(
				adapter.InlineButton{Text: "✅ Approve", Data: fmt.Sprintf("%s%d", CallbackApprovePrefix, tgID)},
				adapter.InlineButton{Text: "❌ Decline", Data: fmt.Sprintf("%s%d", CallbackDeclinePrefix, tgID)},
			),
		})

	return text("📝 Application sent. Wait for an administrator to approve it."), nil
}

// Cabinet shows the worker's numbers with the two flow entry points.
func (u *registrationUC) Cabinet(ctx context.Context, tgID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Cabinet")()

	worker, err := u.workers.Find(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return text("❌ Worker not found. Use /start first."), nil
		}
		return nil, fmt.Errorf("find worker: %w", err)
	}
	if !worker.Approved() {
		return text("🛑 Your account is not approved yet."), nil
	}

	return &Reply{
		Text: fmt.Sprintf("👤 Your cabinet\n\n— Clients: %d\n— Balance: %.2f", worker.ClientsCount, worker.Balance),
		Buttons: [][]adapter.InlineButton{
			adapter.Row(adapter.InlineButton{Text: "➕ Add client", Data: CallbackAddClient}),
			adapter.Row(adapter.InlineButton{Text: "💸 Request withdrawal", Data: CallbackRequestWithdrawal}),
		},
	}, nil
}

func (u *registrationUC) decide(ctx context.Context, adminID, workerID int64, role model.WorkerRole, workerMsg, adminMsg string) (*Reply, error) {
	if !u.admins.allowed(adminID) {
		return nil, domain.ErrUnauthorized
	}
	if err := u.workers.SetRole(ctx, workerID, role); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return text("❌ Worker not found."), nil
		}
		return nil, fmt.Errorf("set role: %w", err)
	}
	u.notifyUser(ctx, workerID, workerMsg)
	return text(adminMsg), nil
}

func (u *registrationUC) Approve(ctx context.Context, adminID, workerID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Approve")()
	return u.decide(ctx, adminID, workerID, model.RoleWorker,
		"✅ Your application was approved. Use /start to open your cabinet.",
		fmt.Sprintf("✅ Worker %d approved.", workerID))
}

func (u *registrationUC) Decline(ctx context.Context, adminID, workerID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Decline")()
	return u.decide(ctx, adminID, workerID, model.RoleDeclined,
		"🛑 Your application was declined.",
		fmt.Sprintf("❌ Worker %d declined.", workerID))
}
