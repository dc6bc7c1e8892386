package model

import "time"

// Client order status labels as they are written to the Clients collection.
const (
	ClientStatusWants   = "wants to buy"
	ClientStatusWaiting = "awaiting payment"
	ClientStatusPaid    = "paid"
)

// Client is one append-only row of the Clients collection. Rows are never
// updated once written.
type Client struct {
	WorkerTelegramID int64
	WorkerUsername   string
	Phone            string
	Name             string
	Messenger        string
	OrderLink        string
	Amount           float64
	Status           string
	ReceiptURL       string
	CreatedAt        time.Time
}
