package usecase

import (
	"context"
	"strings"
	"testing"

	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/infra/memstate"
)

const (
	testWorkerID int64 = 100
	testChatID   int64 = 100
	testAdminID  int64 = 900
)

type intakeFixture struct {
	uc       *intakeUC
	sessions *memstate.SessionRepo
	workers  *memWorkerRepo
	clients  *memClientRepo
	receipts *mockReceiptStore
	bot      *mockBot
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	f := &intakeFixture{
		sessions: memstate.NewSessionRepo(),
		workers:  newMemWorkerRepo(),
		clients:  newMemClientRepo(),
		receipts: &mockReceiptStore{url: "https://drive.google.com/file/d/abc/view"},
		bot:      newMockBot(),
	}
	f.workers.put(&model.Worker{
		TelegramID:   testWorkerID,
		Username:     "alice",
		Role:         model.RoleWorker,
		ClientsCount: 4,
		Balance:      10,
	})
	f.uc = NewIntakeUseCase(f.sessions, f.workers, f.clients, f.receipts, f.bot, []int64{testAdminID}, newTestLogger())
	return f
}

func (f *intakeFixture) step(t *testing.T) model.Step {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), testWorkerID, testChatID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	return s.Step
}

// walkToConfirm drives the flow from the start up to the confirmation card.
func (f *intakeFixture) walkToConfirm(t *testing.T, statusTag string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.uc.Start(ctx, testWorkerID, testChatID); err != nil {
		t.Fatalf("start: %v", err)
	}
	steps := []func() (*Reply, error){
		func() (*Reply, error) { return f.uc.HandleText(ctx, testWorkerID, testChatID, "79991234567") },
		func() (*Reply, error) { return f.uc.HandleText(ctx, testWorkerID, testChatID, "Ivan Petrov") },
		func() (*Reply, error) {
			return f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackMessengerPrefix+"telegram")
		},
		func() (*Reply, error) { return f.uc.HandleText(ctx, testWorkerID, testChatID, "https://shop.example/item/1") },
		func() (*Reply, error) { return f.uc.HandleText(ctx, testWorkerID, testChatID, "1500") },
		func() (*Reply, error) { return f.uc.HandleChoice(ctx, testWorkerID, testChatID, statusTag) },
	}
	for i, fn := range steps {
		reply, err := fn()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if reply == nil {
			t.Fatalf("step %d: no reply", i)
		}
	}
}

func TestIntakeFullFlowPaid(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	f.walkToConfirm(t, CallbackStatusPrefix+"paid")
	if got := f.step(t); got != model.StepClientReceipt {
		t.Fatalf("step after paid status = %q, want %q", got, model.StepClientReceipt)
	}

	// Any text at the receipt step skips the receipt.
	reply, err := f.uc.HandleText(ctx, testWorkerID, testChatID, "skip")
	if err != nil {
		t.Fatalf("skip receipt: %v", err)
	}
	if !strings.Contains(reply.Text, "Ivan Petrov") || !strings.Contains(reply.Text, "1500.00") {
		t.Fatalf("confirmation card missing collected data: %q", reply.Text)
	}
	if len(reply.Buttons) == 0 {
		t.Fatal("confirmation card has no buttons")
	}

	reply, err = f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackConfirmSave)
	if err != nil {
		t.Fatalf("confirm save: %v", err)
	}
	// 4 prior clients keeps the 5% tier: 1500 * 0.05 = 75.
	if !strings.Contains(reply.Text, "75.00") {
		t.Fatalf("save reply = %q, want commission 75.00", reply.Text)
	}

	if len(f.clients.appended) != 1 {
		t.Fatalf("appended %d clients, want 1", len(f.clients.appended))
	}
	c := f.clients.appended[0]
	if c.Phone != "79991234567" || c.Name != "Ivan Petrov" || c.Messenger != "Telegram" {
		t.Errorf("client row = %+v", c)
	}
	if c.Amount != 1500 || c.Status != model.ClientStatusPaid {
		t.Errorf("amount/status = %v/%q", c.Amount, c.Status)
	}

	w, _ := f.workers.Find(ctx, testWorkerID)
	if w.ClientsCount != 5 {
		t.Errorf("clients count = %d, want 5", w.ClientsCount)
	}
	if w.Balance != 85 {
		t.Errorf("balance = %v, want 85", w.Balance)
	}
	if got := f.step(t); got != model.StepNone {
		t.Errorf("session step after save = %q, want idle", got)
	}
	if len(f.bot.sentTo(testAdminID)) == 0 {
		t.Error("admins were not notified about the new client")
	}
}

func TestIntakeWaitingStatusSkipsReceiptAndCommission(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	f.walkToConfirm(t, CallbackStatusPrefix+"waiting")
	if got := f.step(t); got != model.StepClientConfirm {
		t.Fatalf("step after waiting status = %q, want %q", got, model.StepClientConfirm)
	}

	if _, err := f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackConfirmSave); err != nil {
		t.Fatalf("confirm save: %v", err)
	}

	if len(f.clients.appended) != 1 {
		t.Fatalf("appended %d clients, want 1", len(f.clients.appended))
	}
	if got := f.clients.appended[0].Status; got != model.ClientStatusWaiting {
		t.Errorf("status = %q, want %q", got, model.ClientStatusWaiting)
	}
	if got := f.clients.appended[0].ReceiptURL; got != "" {
		t.Errorf("receipt url = %q, want empty", got)
	}

	// Unpaid orders count toward the client total but earn nothing yet.
	w, _ := f.workers.Find(ctx, testWorkerID)
	if w.ClientsCount != 5 {
		t.Errorf("clients count = %d, want 5", w.ClientsCount)
	}
	if w.Balance != 10 {
		t.Errorf("balance = %v, want unchanged 10", w.Balance)
	}
}

func TestIntakeInvalidInputsReprompt(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Start(ctx, testWorkerID, testChatID); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, bad := range []string{"abc", "123", "+7 999 123", "12345678901234567890"} {
		reply, err := f.uc.HandleText(ctx, testWorkerID, testChatID, bad)
		if err != nil {
			t.Fatalf("phone %q: %v", bad, err)
		}
		if !strings.Contains(reply.Text, "❌") {
			t.Errorf("phone %q accepted: %q", bad, reply.Text)
		}
		if got := f.step(t); got != model.StepClientPhone {
			t.Fatalf("phone %q moved the flow to %q", bad, got)
		}
	}

	// Valid phone finally advances.
	if _, err := f.uc.HandleText(ctx, testWorkerID, testChatID, "79991234567"); err != nil {
		t.Fatalf("valid phone: %v", err)
	}
	if got := f.step(t); got != model.StepClientName {
		t.Fatalf("step = %q, want %q", got, model.StepClientName)
	}
}

func TestIntakeAmountValidation(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Start(ctx, testWorkerID, testChatID); err != nil {
		t.Fatal(err)
	}
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "79991234567"))
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "Ivan"))
	mustReply(t)(f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackMessengerPrefix+"whatsapp"))
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "order #42"))

	for _, bad := range []string{"abc", "10.999", "-5", "0"} {
		reply, err := f.uc.HandleText(ctx, testWorkerID, testChatID, bad)
		if err != nil {
			t.Fatalf("amount %q: %v", bad, err)
		}
		if !strings.Contains(reply.Text, "❌") {
			t.Errorf("amount %q accepted: %q", bad, reply.Text)
		}
		if got := f.step(t); got != model.StepClientAmount {
			t.Fatalf("amount %q moved the flow to %q", bad, got)
		}
	}

	// Comma decimal separators are normalized.
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "1000,50"))
	if got := f.step(t); got != model.StepClientStatus {
		t.Fatalf("step = %q, want %q", got, model.StepClientStatus)
	}
	s, _ := f.sessions.Get(ctx, testWorkerID, testChatID)
	if got := s.Data[model.FieldAmount]; got != "1000.50" {
		t.Errorf("stored amount = %q, want normalized 1000.50", got)
	}
}

func TestIntakeCancelAtConfirmPersistsNothing(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	f.walkToConfirm(t, CallbackStatusPrefix+"wants")
	reply, err := f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackConfirmCancel)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(reply.Text, "cancelled") {
		t.Errorf("cancel reply = %q", reply.Text)
	}

	if len(f.clients.appended) != 0 {
		t.Errorf("cancel persisted %d clients", len(f.clients.appended))
	}
	w, _ := f.workers.Find(ctx, testWorkerID)
	if w.ClientsCount != 4 || w.Balance != 10 {
		t.Errorf("worker mutated on cancel: %+v", w)
	}
	if got := f.step(t); got != model.StepNone {
		t.Errorf("session step after cancel = %q, want idle", got)
	}
}

func TestIntakeDuplicateSaveIsDropped(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	f.walkToConfirm(t, CallbackStatusPrefix+"wants")
	if _, err := f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackConfirmSave); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// A second press of the same button finds an idle session and is dropped.
	reply, err := f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackConfirmSave)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if reply != nil {
		t.Errorf("second save produced a reply: %q", reply.Text)
	}
	if len(f.clients.appended) != 1 {
		t.Errorf("appended %d clients, want exactly 1", len(f.clients.appended))
	}
}

func TestIntakeReceiptUpload(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	f.walkToConfirm(t, CallbackStatusPrefix+"paid")
	reply, err := f.uc.HandleAttachment(ctx, testWorkerID, testChatID, Attachment{
		Filename: "receipt.jpg",
		File:     strings.NewReader("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	if !strings.Contains(reply.Text, "Receipt saved") {
		t.Errorf("reply = %q, want receipt confirmation", reply.Text)
	}
	if f.receipts.saved != 1 {
		t.Errorf("receipt store called %d times, want 1", f.receipts.saved)
	}

	if _, err := f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackConfirmSave); err != nil {
		t.Fatal(err)
	}
	if got := f.clients.appended[0].ReceiptURL; got != f.receipts.url {
		t.Errorf("receipt url = %q, want %q", got, f.receipts.url)
	}
}

func TestIntakeReceiptUploadFailureIsNonFatal(t *testing.T) {
	f := newIntakeFixture(t)
	f.receipts.saveErr = context.DeadlineExceeded
	ctx := context.Background()

	f.walkToConfirm(t, CallbackStatusPrefix+"paid")
	reply, err := f.uc.HandleAttachment(ctx, testWorkerID, testChatID, Attachment{
		Filename: "receipt.pdf",
		File:     strings.NewReader("pdf-bytes"),
	})
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	if got := f.step(t); got != model.StepClientConfirm {
		t.Fatalf("upload failure stalled the flow at %q", got)
	}
	if !strings.Contains(reply.Text, "without it") {
		t.Errorf("reply = %q, want skip notice", reply.Text)
	}

	if _, err := f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackConfirmSave); err != nil {
		t.Fatal(err)
	}
	if got := f.clients.appended[0].ReceiptURL; got != "" {
		t.Errorf("receipt url = %q, want empty after failed upload", got)
	}
}

func TestIntakeStartRequiresApproval(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	f.workers.put(model.NewWorker(200, "pending_bob"))

	reply, err := f.uc.Start(ctx, 200, 200)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(reply.Text, "approved") {
		t.Errorf("reply = %q, want approval rejection", reply.Text)
	}
	s, _ := f.sessions.Get(ctx, 200, 200)
	if s.Active() {
		t.Error("pending worker got an active session")
	}
}

func TestIntakeStartUnregistered(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	reply, err := f.uc.Start(ctx, 999, 999)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(reply.Text, "not registered") {
		t.Errorf("reply = %q, want registration hint", reply.Text)
	}
	s, _ := f.sessions.Get(ctx, 999, 999)
	if s.Active() {
		t.Error("unregistered user got an active session")
	}
}

// A button press that belongs to another step must not advance the flow with
// a defaulted value.
func TestIntakeForeignChoiceTagReprompts(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Start(ctx, testWorkerID, testChatID); err != nil {
		t.Fatal(err)
	}
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "79991234567"))
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "Ivan"))

	// Status tag at the messenger step: re-ask, keep the step.
	reply := mustReply(t)(f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackStatusPrefix+"paid"))
	if reply.Text != stepPrompts[model.StepClientMessenger] || len(reply.Buttons) == 0 {
		t.Fatalf("reply = %+v, want messenger prompt", reply)
	}
	if got := f.step(t); got != model.StepClientMessenger {
		t.Fatalf("step = %q, want unchanged", got)
	}

	mustReply(t)(f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackMessengerPrefix+"telegram"))
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "order #42"))
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "1500"))

	// Messenger tag at the status step: same treatment.
	reply = mustReply(t)(f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackMessengerPrefix+"whatsapp"))
	if reply.Text != stepPrompts[model.StepClientStatus] || len(reply.Buttons) == 0 {
		t.Fatalf("reply = %+v, want status prompt", reply)
	}
	if got := f.step(t); got != model.StepClientStatus {
		t.Fatalf("step = %q, want unchanged", got)
	}

	// The step's own tag still advances.
	mustReply(t)(f.uc.HandleChoice(ctx, testWorkerID, testChatID, CallbackStatusPrefix+"waiting"))
	if got := f.step(t); got != model.StepClientConfirm {
		t.Fatalf("step = %q, want %q", got, model.StepClientConfirm)
	}
}

func TestIntakeTextAtButtonStepReasksQuestion(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Start(ctx, testWorkerID, testChatID); err != nil {
		t.Fatal(err)
	}
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "79991234567"))
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "Ivan"))

	// The flow now waits for a button press; a typed answer re-asks.
	reply, err := f.uc.HandleText(ctx, testWorkerID, testChatID, "telegram")
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Text != stepPrompts[model.StepClientMessenger] {
		t.Fatalf("reply = %+v, want messenger prompt", reply)
	}
	if got := f.step(t); got != model.StepClientMessenger {
		t.Errorf("step = %q, want unchanged", got)
	}
}

func TestIntakeChoiceWithNoActiveFlowIsDropped(t *testing.T) {
	f := newIntakeFixture(t)
	reply, err := f.uc.HandleChoice(context.Background(), testWorkerID, testChatID, CallbackStatusPrefix+"paid")
	if err != nil {
		t.Fatal(err)
	}
	if reply != nil {
		t.Errorf("stray callback produced a reply: %q", reply.Text)
	}
}

func TestCancelActive(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	reply, err := f.uc.CancelActive(ctx, testWorkerID, testChatID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Text, "Nothing") {
		t.Errorf("idle cancel reply = %q", reply.Text)
	}

	if _, err := f.uc.Start(ctx, testWorkerID, testChatID); err != nil {
		t.Fatal(err)
	}
	mustReply(t)(f.uc.HandleText(ctx, testWorkerID, testChatID, "79991234567"))

	reply, err = f.uc.CancelActive(ctx, testWorkerID, testChatID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Text, "Cancelled") {
		t.Errorf("cancel reply = %q", reply.Text)
	}
	if got := f.step(t); got != model.StepNone {
		t.Errorf("step after cancel = %q, want idle", got)
	}
}

func mustReply(t *testing.T) func(*Reply, error) *Reply {
	return func(reply *Reply, err error) *Reply {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply == nil {
			t.Fatal("expected a reply")
		}
		return reply
	}
}
