package model

// WorkerRole is the lifecycle of a registered worker. Transitions out of
// RolePending happen only through an admin decision.
type WorkerRole string

const (
	RolePending  WorkerRole = "pending"
	RoleWorker   WorkerRole = "worker"
	RoleDeclined WorkerRole = "declined"
)

// Worker is one row of the Workers collection. TelegramID is the unique key.
type Worker struct {
	TelegramID   int64
	Username     string
	Role         WorkerRole
	ClientsCount int
	Balance      float64
}

// NewWorker creates a worker in the state it has on first contact.
func NewWorker(tgID int64, username string) *Worker {
	return &Worker{
		TelegramID: tgID,
		Username:   username,
		Role:       RolePending,
	}
}

func (w *Worker) Approved() bool { return w.Role == RoleWorker }
