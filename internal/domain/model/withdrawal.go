package model

// WithdrawalStatus values match the Withdrawals collection verbatim.
// PENDING is the only non-terminal status.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalDone     WithdrawalStatus = "DONE"
	WithdrawalDeclined WithdrawalStatus = "DECLINED"
)

// Withdrawal is one row of the Withdrawals collection. The balance is debited
// when the row is created and refunded only on decline.
type Withdrawal struct {
	ID         int64
	TelegramID int64
	Amount     float64
	Status     WithdrawalStatus
	CreatedAt  string
}

func (w *Withdrawal) Finalized() bool { return w.Status != WithdrawalPending }
