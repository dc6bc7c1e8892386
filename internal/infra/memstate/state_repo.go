// Package memstate keeps conversation sessions in process memory. Entries
// live for the process lifetime and are never evicted; cardinality is bounded
// by the user population.
package memstate

import (
	"context"
	"sync"

	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/repository"
	"sales-tracker-bot/internal/infra/metrics"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

type sessionKey struct {
	TgID   int64
	ChatID int64
}

// SessionRepo is a mutex-guarded map keyed by (tgID, chatID). Update runs its
// closure under the lock, so one session's check-then-advance is atomic.
type SessionRepo struct {
	mu       sync.Mutex
	sessions map[sessionKey]*model.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[sessionKey]*model.Session)}
}

// entry returns the live session for key, creating an idle one on first touch.
// Callers must hold r.mu.
func (r *SessionRepo) entry(key sessionKey) *model.Session {
	s, ok := r.sessions[key]
	if !ok {
		s = model.NewSession()
		r.sessions[key] = s
	}
	return s
}

func (r *SessionRepo) Get(ctx context.Context, tgID, chatID int64) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry(sessionKey{tgID, chatID}).Clone(), nil
}

func (r *SessionRepo) Set(ctx context.Context, tgID, chatID int64, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionKey{tgID, chatID}] = s.Clone()
	r.publishGauge()
	return nil
}

func (r *SessionRepo) Update(ctx context.Context, tgID, chatID int64, fn func(*model.Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.entry(sessionKey{tgID, chatID})
	if err := fn(s); err != nil {
		return err
	}
	r.publishGauge()
	return nil
}

func (r *SessionRepo) Clear(ctx context.Context, tgID, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.entry(sessionKey{tgID, chatID})
	s.Step = model.StepNone
	s.Data = make(map[string]string)
	r.publishGauge()
	return nil
}

// publishGauge counts sessions currently inside a flow. Callers hold r.mu.
func (r *SessionRepo) publishGauge() {
	n := 0
	for _, s := range r.sessions {
		if s.Active() {
			n++
		}
	}
	metrics.SetActiveSessions(n)
}
