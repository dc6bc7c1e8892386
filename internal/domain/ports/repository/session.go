package repository

import (
	"context"

	"sales-tracker-bot/internal/domain/model"
)

// SessionRepository is the port for per-(user, chat) conversation state.
// Unknown keys yield an idle session; no operation fails on a missing entry.
type SessionRepository interface {
	// Get returns a snapshot of the session, creating an idle one on first
	// touch. Callers must not rely on mutations to the returned value being
	// visible to other callers.
	Get(ctx context.Context, tgID, chatID int64) (*model.Session, error)
	// Set replaces the session wholesale.
	Set(ctx context.Context, tgID, chatID int64, s *model.Session) error
	// Update applies fn to the current session and stores the result. The
	// read-modify-write is atomic per (tgID, chatID): the engine's
	// check-current-step-then-advance must not interleave with itself.
	Update(ctx context.Context, tgID, chatID int64, fn func(*model.Session) error) error
	// Clear resets the session to idle with empty data. Clearing an already
	// idle session is a no-op.
	Clear(ctx context.Context, tgID, chatID int64) error
}
