package sheets

import (
	"context"
	"fmt"
	"time"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/repository"
)

var _ repository.WithdrawalRepository = (*WithdrawalRepo)(nil)

// Withdrawals sheet layout: id | tg_id | amount | status | created_at.
const (
	withdrawalsRange    = "Withdrawals!A2:E"
	withdrawalsTable    = "Withdrawals!A1"
	withdrawalsFirstRow = 2
	colWithdrawalStatus = "D"
)

type WithdrawalRepo struct {
	*Store
}

func NewWithdrawalRepo(store *Store) *WithdrawalRepo { return &WithdrawalRepo{Store: store} }

func parseWithdrawal(row []string) *model.Withdrawal {
	w := &model.Withdrawal{}
	if len(row) > 0 {
		w.ID = parseInt64(row[0])
	}
	if len(row) > 1 {
		w.TelegramID = parseInt64(row[1])
	}
	if len(row) > 2 {
		w.Amount = parseFloat(row[2])
	}
	if len(row) > 3 {
		w.Status = model.WithdrawalStatus(row[3])
	}
	if len(row) > 4 {
		w.CreatedAt = row[4]
	}
	return w
}

func (r *WithdrawalRepo) fetch(ctx context.Context) ([]*model.Withdrawal, map[int64]int, error) {
	rows, err := r.api.Get(ctx, withdrawalsRange)
	if err != nil {
		return nil, nil, err
	}
	withdrawals := make([]*model.Withdrawal, 0, len(rows))
	rowNum := make(map[int64]int, len(rows))
	for i, row := range rows {
		w := parseWithdrawal(row)
		withdrawals = append(withdrawals, w)
		rowNum[w.ID] = withdrawalsFirstRow + i
	}
	return withdrawals, rowNum, nil
}

// Create assigns the next id by scanning for the current maximum. Two
// concurrent creates can observe the same maximum; the spreadsheet has no
// atomic counter to offer.
func (r *WithdrawalRepo) Create(ctx context.Context, tgID int64, amount float64) (int64, error) {
	var id int64
	err := r.call(ctx, "withdrawal.create", func(ctx context.Context) error {
		withdrawals, _, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		id = 1
		for _, w := range withdrawals {
			if w.ID >= id {
				id = w.ID + 1
			}
		}
		createdAt := time.Now().Format(timestampsFmt)
		return r.api.Append(ctx, withdrawalsTable, []interface{}{
			id, tgID, model.RoundMoney(amount), string(model.WithdrawalPending), createdAt,
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *WithdrawalRepo) Find(ctx context.Context, id int64) (*model.Withdrawal, error) {
	var found *model.Withdrawal
	err := r.call(ctx, "withdrawal.find", func(ctx context.Context) error {
		withdrawals, _, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		for _, w := range withdrawals {
			if w.ID == id {
				found = w
				return nil
			}
		}
		return domain.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *WithdrawalRepo) UpdateStatus(ctx context.Context, id int64, status model.WithdrawalStatus) error {
	return r.call(ctx, "withdrawal.update_status", func(ctx context.Context) error {
		withdrawals, rowNum, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		for _, w := range withdrawals {
			if w.ID == id {
				target := fmt.Sprintf("Withdrawals!%s%d", colWithdrawalStatus, rowNum[id])
				return r.api.UpdateCell(ctx, target, string(status))
			}
		}
		return domain.ErrNotFound
	})
}

func (r *WithdrawalRepo) listByStatus(ctx context.Context, op string, status model.WithdrawalStatus) ([]*model.Withdrawal, error) {
	var matched []*model.Withdrawal
	err := r.call(ctx, op, func(ctx context.Context) error {
		withdrawals, _, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		matched = matched[:0]
		for _, w := range withdrawals {
			if w.Status == status {
				matched = append(matched, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func (r *WithdrawalRepo) ListPending(ctx context.Context) ([]*model.Withdrawal, error) {
	return r.listByStatus(ctx, "withdrawal.list_pending", model.WithdrawalPending)
}

func (r *WithdrawalRepo) ListDone(ctx context.Context) ([]*model.Withdrawal, error) {
	return r.listByStatus(ctx, "withdrawal.list_done", model.WithdrawalDone)
}
