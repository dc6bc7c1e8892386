package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/domain/ports/adapter"
	"sales-tracker-bot/internal/domain/ports/repository"
	"sales-tracker-bot/internal/infra/logging"
)

// AdminUseCase backs the /admin panel: worker leaderboard, pending
// withdrawals and the CSV export of paid-out withdrawals.
type AdminUseCase interface {
	Panel(ctx context.Context, adminID int64) (*Reply, error)
	TopWorkers(ctx context.Context, adminID int64) (*Reply, error)
	PendingWithdrawals(ctx context.Context, adminID int64) (*Reply, error)
	ExportDoneCSV(ctx context.Context, adminID int64) (string, []byte, error)
}

var _ AdminUseCase = (*adminUC)(nil)

type adminUC struct {
	workers     repository.WorkerRepository
	withdrawals repository.WithdrawalRepository
	admins      adminSet
	log         *zerolog.Logger
}

func NewAdminUseCase(
	workers repository.WorkerRepository,
	withdrawals repository.WithdrawalRepository,
	adminIDs []int64,
	logger *zerolog.Logger,
) *adminUC {
	return &adminUC{
		workers:     workers,
		withdrawals: withdrawals,
		admins:      newAdminSet(adminIDs),
		log:         logger,
	}
}

func panelButtons() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		adapter.Row(adapter.InlineButton{Text: "📊 Top workers", Data: CallbackAdminTopWorkers}),
		adapter.Row(adapter.InlineButton{Text: "💸 Withdrawal requests", Data: CallbackAdminWithdrawals}),
		adapter.Row(adapter.InlineButton{Text: "📄 Export CSV", Data: CallbackAdminExportCSV}),
	}
}

func backButton() []adapter.InlineButton {
	return adapter.Row(adapter.InlineButton{Text: "⬅️ Back", Data: CallbackAdminBack})
}

func (u *adminUC) Panel(ctx context.Context, adminID int64) (*Reply, error) {
	if !u.admins.allowed(adminID) {
		return nil, domain.ErrUnauthorized
	}
	return &Reply{Text: "🔧 Admin panel", Buttons: panelButtons()}, nil
}

// TopWorkers lists the ten approved workers with the highest balance.
func (u *adminUC) TopWorkers(ctx context.Context, adminID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "AdminUC.TopWorkers")()
	if !u.admins.allowed(adminID) {
		return nil, domain.ErrUnauthorized
	}

	workers, err := u.workers.ListApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	if len(workers) == 0 {
		return &Reply{Text: "📊 Top workers\n\nNo approved workers yet.", Buttons: [][]adapter.InlineButton{backButton()}}, nil
	}

	sort.Slice(workers, func(i, j int) bool { return workers[i].Balance > workers[j].Balance })
	if len(workers) > 10 {
		workers = workers[:10]
	}

	var b bytes.Buffer
	b.WriteString("📊 Top workers by balance:\n\n")
	for i, w := range workers {
		fmt.Fprintf(&b, "%d. @%s\n   💰 Balance: %.2f\n   👥 Clients: %d\n\n", i+1, w.Username, w.Balance, w.ClientsCount)
	}
	return &Reply{Text: b.String(), Buttons: [][]adapter.InlineButton{backButton()}}, nil
}

// PendingWithdrawals lists PENDING requests with approve/decline buttons per
// row.
func (u *adminUC) PendingWithdrawals(ctx context.Context, adminID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "AdminUC.PendingWithdrawals")()
	if !u.admins.allowed(adminID) {
		return nil, domain.ErrUnauthorized
	}

	pending, err := u.withdrawals.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	if len(pending) == 0 {
		return &Reply{Text: "💸 Withdrawal requests\n\nNothing pending.", Buttons: [][]adapter.InlineButton{backButton()}}, nil
	}

	var b bytes.Buffer
	b.WriteString("💸 Withdrawal requests:\n\n")
	buttons := make([][]adapter.InlineButton, 0, len(pending)+1)
	for _, w := range pending {
		username := u.usernameOf(ctx, w.TelegramID)
		fmt.Fprintf(&b, "🆔 ID: %d\n👤 @%s (ID: %d)\n💰 Amount: %.2f\n\n", w.ID, username, w.TelegramID, w.Amount)
		buttons = append(buttons, adapter.Row(
			adapter.InlineButton{Text: fmt.Sprintf("✅ %d", w.ID), Data: fmt.Sprintf("%s%d", CallbackWithdrawApprovePrefix, w.ID)},
			adapter.InlineButton{Text: fmt.Sprintf("❌ %d", w.ID), Data: fmt.Sprintf("%s%d", CallbackWithdrawDeclinePrefix, w.ID)},
		))
	}
	buttons = append(buttons, backButton())
	return &Reply{Text: b.String(), Buttons: buttons}, nil
}

// ExportDoneCSV renders all DONE withdrawals as a CSV document.
func (u *adminUC) ExportDoneCSV(ctx context.Context, adminID int64) (string, []byte, error) {
	defer logging.TraceDuration(u.log, "AdminUC.ExportDoneCSV")()
	if !u.admins.allowed(adminID) {
		return "", nil, domain.ErrUnauthorized
	}

	done, err := u.withdrawals.ListDone(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("list withdrawals: %w", err)
	}
	if len(done) == 0 {
		return "", nil, domain.ErrNotFound
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"ID", "TG_ID", "Username", "Amount", "Status", "Date"})
	for _, wd := range done {
		_ = w.Write([]string{
			strconv.FormatInt(wd.ID, 10),
			strconv.FormatInt(wd.TelegramID, 10),
			u.usernameOf(ctx, wd.TelegramID),
			fmt.Sprintf("%.2f", wd.Amount),
			string(wd.Status),
			wd.CreatedAt,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("write csv: %w", err)
	}

	filename := fmt.Sprintf("withdrawals_%s.csv", time.Now().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

// usernameOf is a best-effort lookup; lists keep rendering when a worker row
// is gone.
func (u *adminUC) usernameOf(ctx context.Context, tgID int64) string {
	worker, err := u.workers.Find(ctx, tgID)
	if err != nil {
		return "unknown"
	}
	return worker.Username
}
