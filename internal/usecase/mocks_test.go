package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memWorkerRepo is a small in-memory Workers collection used by unit tests.
type memWorkerRepo struct {
	mu      sync.Mutex
	store   map[int64]*model.Worker
	findErr error
	incErr  error
}

func newMemWorkerRepo() *memWorkerRepo {
	return &memWorkerRepo{store: make(map[int64]*model.Worker)}
}

func (m *memWorkerRepo) put(w *model.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.store[w.TelegramID] = &cp
}

func (m *memWorkerRepo) Find(ctx context.Context, tgID int64) (*model.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	w, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWorkerRepo) Add(ctx context.Context, tgID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[tgID] = model.NewWorker(tgID, username)
	return nil
}

func (m *memWorkerRepo) SetRole(ctx context.Context, tgID int64, role model.WorkerRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	w.Role = role
	return nil
}

func (m *memWorkerRepo) IncClientsCount(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return m.incErr
	}
	w, ok := m.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	w.ClientsCount++
	return nil
}

func (m *memWorkerRepo) IncBalance(ctx context.Context, tgID int64, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return m.incErr
	}
	w, ok := m.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	w.Balance = model.RoundMoney(w.Balance + delta)
	return nil
}

func (m *memWorkerRepo) ListApproved(ctx context.Context) ([]*model.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Worker
	for _, w := range m.store {
		if w.Approved() {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memClientRepo records appended client rows.
type memClientRepo struct {
	mu        sync.Mutex
	appended  []*model.Client
	appendErr error
}

func newMemClientRepo() *memClientRepo { return &memClientRepo{} }

func (m *memClientRepo) Append(ctx context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	cp := *c
	m.appended = append(m.appended, &cp)
	return nil
}

// memWithdrawalRepo mimics the sheet's max-id+1 assignment.
type memWithdrawalRepo struct {
	mu        sync.Mutex
	store     map[int64]*model.Withdrawal
	createErr error
}

func newMemWithdrawalRepo() *memWithdrawalRepo {
	return &memWithdrawalRepo{store: make(map[int64]*model.Withdrawal)}
}

func (m *memWithdrawalRepo) Create(ctx context.Context, tgID int64, amount float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	var id int64 = 1
	for existing := range m.store {
		if existing >= id {
			id = existing + 1
		}
	}
	m.store[id] = &model.Withdrawal{ID: id, TelegramID: tgID, Amount: amount, Status: model.WithdrawalPending}
	return id, nil
}

func (m *memWithdrawalRepo) Find(ctx context.Context, id int64) (*model.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWithdrawalRepo) UpdateStatus(ctx context.Context, id int64, status model.WithdrawalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	w.Status = status
	return nil
}

func (m *memWithdrawalRepo) listByStatus(status model.WithdrawalStatus) []*model.Withdrawal {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Withdrawal
	for _, w := range m.store {
		if w.Status == status {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memWithdrawalRepo) ListPending(ctx context.Context) ([]*model.Withdrawal, error) {
	return m.listByStatus(model.WithdrawalPending), nil
}

func (m *memWithdrawalRepo) ListDone(ctx context.Context) ([]*model.Withdrawal, error) {
	return m.listByStatus(model.WithdrawalDone), nil
}

// sentMessage is one outbound message captured by mockBot.
type sentMessage struct {
	ChatID  int64
	Text    string
	Buttons [][]adapter.InlineButton
}

type mockBot struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
}

func newMockBot() *mockBot { return &mockBot{} }

func (b *mockBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.record(chatID, text, nil)
}

func (b *mockBot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	return b.record(chatID, text, rows)
}

func (b *mockBot) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	return b.record(chatID, fmt.Sprintf("document:%s", filename), nil)
}

func (b *mockBot) record(chatID int64, text string, rows [][]adapter.InlineButton) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, sentMessage{ChatID: chatID, Text: text, Buttons: rows})
	return nil
}

func (b *mockBot) sentTo(chatID int64) []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentMessage
	for _, m := range b.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type mockReceiptStore struct {
	url     string
	saveErr error
	saved   int
}

func (m *mockReceiptStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	m.saved++
	if m.saveErr != nil {
		return "", m.saveErr
	}
	return m.url, nil
}
