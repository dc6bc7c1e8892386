package repository

import (
	"context"

	"sales-tracker-bot/internal/domain/model"
)

// WorkerRepository is the port for the Workers collection. Implementations
// perform full-collection scans; there is no indexed lookup in the backing
// store. Writes re-fetch the collection, locate the row by TelegramID and
// update single cells, so two concurrent writers to the same row race
// (last write wins).
type WorkerRepository interface {
	// Find returns the worker row or domain.ErrNotFound.
	Find(ctx context.Context, tgID int64) (*model.Worker, error)
	// Add appends a new pending worker row.
	Add(ctx context.Context, tgID int64, username string) error
	// SetRole updates the role cell of an existing row.
	SetRole(ctx context.Context, tgID int64, role model.WorkerRole) error
	// IncClientsCount adds one to the clients_count cell.
	IncClientsCount(ctx context.Context, tgID int64) error
	// IncBalance adds delta (which may be negative) to the balance cell,
	// rounding the result to 2 decimal places.
	IncBalance(ctx context.Context, tgID int64, delta float64) error
	// ListApproved returns all rows with role=worker.
	ListApproved(ctx context.Context) ([]*model.Worker, error)
}

// ClientRepository is the port for the append-only Clients collection.
type ClientRepository interface {
	Append(ctx context.Context, c *model.Client) error
}

// WithdrawalRepository is the port for the Withdrawals collection. Create
// assigns ids by scanning for the current maximum and adding one; that is not
// atomic against concurrent creates, matching the backing store's semantics.
type WithdrawalRepository interface {
	// Create appends a PENDING row and returns its assigned id.
	Create(ctx context.Context, tgID int64, amount float64) (int64, error)
	// Find returns the row or domain.ErrNotFound.
	Find(ctx context.Context, id int64) (*model.Withdrawal, error)
	// UpdateStatus rewrites the status cell of an existing row.
	UpdateStatus(ctx context.Context, id int64, status model.WithdrawalStatus) error
	// ListPending returns all PENDING rows.
	ListPending(ctx context.Context) ([]*model.Withdrawal, error)
	// ListDone returns all DONE rows.
	ListDone(ctx context.Context) ([]*model.Withdrawal, error)
}
