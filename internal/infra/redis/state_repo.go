package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo stores sessions as JSON blobs keyed by (tgID, chatID). Unlike
// the memory backend it applies a TTL, so abandoned flows expire instead of
// accumulating.
//
// Redis holds the data, but the read-modify-write of one session must still
// be mutually excluded: duplicate button presses land on different pool
// workers concurrently. The bot is a single process, so a per-key in-process
// mutex gives Update the same atomicity the memory backend has.
type SessionRepo struct {
	client Client
	ttl    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionRepo(client Client, ttl time.Duration) *SessionRepo {
	return &SessionRepo{
		client: client,
		ttl:    ttl,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (r *SessionRepo) key(tgID, chatID int64) string {
	return fmt.Sprintf("conv_state:%d:%d", tgID, chatID)
}

// lock returns the mutex guarding one session key, creating it on first use.
// Entries are never removed; the map grows with the set of active users, like
// the memory backend's session map.
func (r *SessionRepo) lock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

func (r *SessionRepo) get(ctx context.Context, key string) (*model.Session, error) {
	data, err := r.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return model.NewSession(), nil
	}
	if err != nil {
		return nil, err
	}

	var s model.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	return &s, nil
}

func (r *SessionRepo) set(ctx context.Context, key string, s *model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl)
}

func (r *SessionRepo) Get(ctx context.Context, tgID, chatID int64) (*model.Session, error) {
	return r.get(ctx, r.key(tgID, chatID))
}

func (r *SessionRepo) Set(ctx context.Context, tgID, chatID int64, s *model.Session) error {
	key := r.key(tgID, chatID)
	l := r.lock(key)
	l.Lock()
	defer l.Unlock()
	return r.set(ctx, key, s)
}

// Update runs fn on the stored session and writes the result back, holding
// the session's lock for the whole read-modify-write so concurrent updates of
// the same session serialize.
func (r *SessionRepo) Update(ctx context.Context, tgID, chatID int64, fn func(*model.Session) error) error {
	key := r.key(tgID, chatID)
	l := r.lock(key)
	l.Lock()
	defer l.Unlock()

	s, err := r.get(ctx, key)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	return r.set(ctx, key, s)
}

func (r *SessionRepo) Clear(ctx context.Context, tgID, chatID int64) error {
	key := r.key(tgID, chatID)
	l := r.lock(key)
	l.Lock()
	defer l.Unlock()
	return r.client.Del(ctx, key)
}
