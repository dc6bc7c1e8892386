package sheets

import (
	"context"

	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

// Clients sheet layout: worker_tg_id | worker_username | phone | name |
// messenger | order_link | amount | status | receipt_url | timestamp.
const (
	clientsTable  = "Clients!A1"
	timestampsFmt = "2006-01-02 15:04:05"
)

type ClientRepo struct {
	*Store
}

func NewClientRepo(store *Store) *ClientRepo { return &ClientRepo{Store: store} }

func (r *ClientRepo) Append(ctx context.Context, c *model.Client) error {
	return r.call(ctx, "client.append", func(ctx context.Context) error {
		return r.api.Append(ctx, clientsTable, []interface{}{
			c.WorkerTelegramID,
			c.WorkerUsername,
			c.Phone,
			c.Name,
			c.Messenger,
			c.OrderLink,
			model.RoundMoney(c.Amount),
			c.Status,
			c.ReceiptURL,
			c.CreatedAt.Format(timestampsFmt),
		})
	})
}
