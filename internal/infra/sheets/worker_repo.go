package sheets

import (
	"context"
	"fmt"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/repository"
)

var _ repository.WorkerRepository = (*WorkerRepo)(nil)

// Workers sheet layout: tg_id | username | role | clients_count | balance.
// Data starts at row 2; row 1 is the header.
const (
	workersRange     = "Workers!A2:E"
	workersTable     = "Workers!A1"
	workersFirstRow  = 2
	colWorkerRole    = "C"
	colClientsCount  = "D"
	colWorkerBalance = "E"
)

type WorkerRepo struct {
	*Store
}

func NewWorkerRepo(store *Store) *WorkerRepo { return &WorkerRepo{Store: store} }

func parseWorker(row []string) *model.Worker {
	w := &model.Worker{}
	if len(row) > 0 {
		w.TelegramID = parseInt64(row[0])
	}
	if len(row) > 1 {
		w.Username = row[1]
	}
	if len(row) > 2 {
		w.Role = model.WorkerRole(row[2])
	}
	if len(row) > 3 {
		w.ClientsCount = parseInt(row[3])
	}
	if len(row) > 4 {
		w.Balance = parseFloat(row[4])
	}
	return w
}

// fetch reads the whole Workers sheet. rowNum maps each worker to its
// spreadsheet row for targeted cell updates.
func (r *WorkerRepo) fetch(ctx context.Context) (workers []*model.Worker, rowNum map[int64]int, err error) {
	rows, err := r.api.Get(ctx, workersRange)
	if err != nil {
		return nil, nil, err
	}
	rowNum = make(map[int64]int, len(rows))
	for i, row := range rows {
		w := parseWorker(row)
		workers = append(workers, w)
		rowNum[w.TelegramID] = workersFirstRow + i
	}
	return workers, rowNum, nil
}

func (r *WorkerRepo) Find(ctx context.Context, tgID int64) (*model.Worker, error) {
	var found *model.Worker
	err := r.call(ctx, "worker.find", func(ctx context.Context) error {
		workers, _, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		for _, w := range workers {
			if w.TelegramID == tgID {
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

func (r *WorkerRepo) Add(ctx context.Context, tgID int64, username string) error {
	return r.call(ctx, "worker.add", func(ctx context.Context) error {
		return r.api.Append(ctx, workersTable, []interface{}{tgID, username, string(model.RolePending), 0, 0.0})
	})
}

// updateCell locates the worker's row and rewrites one column of it.
func (r *WorkerRepo) updateCell(ctx context.Context, op string, tgID int64, col string, value func(*model.Worker) interface{}) error {
	return r.call(ctx, op, func(ctx context.Context) error {
		workers, rowNum, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		for _, w := range workers {
			if w.TelegramID == tgID {
				target := fmt.Sprintf("Workers!%s%d", col, rowNum[tgID])
				return r.api.UpdateCell(ctx, target, value(w))
			}
		}
		return domain.ErrNotFound
	})
}

func (r *WorkerRepo) SetRole(ctx context.Context, tgID int64, role model.WorkerRole) error {
	return r.updateCell(ctx, "worker.set_role", tgID, colWorkerRole, func(*model.Worker) interface{} {
		return string(role)
	})
}

func (r *WorkerRepo) IncClientsCount(ctx context.Context, tgID int64) error {
	return r.updateCell(ctx, "worker.inc_clients", tgID, colClientsCount, func(w *model.Worker) interface{} {
		return w.ClientsCount + 1
	})
}

func (r *WorkerRepo) IncBalance(ctx context.Context, tgID int64, delta float64) error {
	return r.updateCell(ctx, "worker.inc_balance", tgID, colWorkerBalance, func(w *model.Worker) interface{} {
		return model.RoundMoney(w.Balance + delta)
	})
}

func (r *WorkerRepo) ListApproved(ctx context.Context) ([]*model.Worker, error) {
	var approved []*model.Worker
	err := r.call(ctx, "worker.list_approved", func(ctx context.Context) error {
		workers, _, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		approved = approved[:0]
		for _, w := range workers {
			if w.Approved() {
				approved = append(approved, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}
