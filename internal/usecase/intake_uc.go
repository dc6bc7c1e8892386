package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"sales-tracker-bot/internal/commission"
	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/domain/model"
	"sales-tracker-bot/internal/domain/ports/adapter"
	"sales-tracker-bot/internal/domain/ports/repository"
	"sales-tracker-bot/internal/infra/logging"
	"sales-tracker-bot/internal/infra/metrics"
	"sales-tracker-bot/internal/validate"
)

// EventKind classifies an inbound chat event for dispatch.
type EventKind string

const (
	EventText       EventKind = "text"
	EventChoice     EventKind = "choice"
	EventAttachment EventKind = "attachment"
)

// Attachment is an inbound file already fetched from the transport.
type Attachment struct {
	Filename string
	File     io.Reader
}

type input struct {
	text       string
	tag        string
	attachment *Attachment
}

type transitionKey struct {
	Event EventKind
	Step  model.Step
}

type transitionFunc func(u *intakeUC, ctx context.Context, tgID, chatID int64, in input) (*Reply, error)

// intakeTransitions is the client-intake state machine as data: one entry per
// (event kind, step) pair the flow reacts to. Events with no entry for the
// current step are answered by re-asking the step's question (text) or dropped
// (anything else).
var intakeTransitions = map[transitionKey]transitionFunc{
	{EventText, model.StepClientPhone}:         (*intakeUC).onPhone,
	{EventText, model.StepClientName}:          (*intakeUC).onName,
	{EventChoice, model.StepClientMessenger}:   (*intakeUC).onMessenger,
	{EventText, model.StepClientOrderLink}:     (*intakeUC).onOrderLink,
	{EventText, model.StepClientAmount}:        (*intakeUC).onAmount,
	{EventChoice, model.StepClientStatus}:      (*intakeUC).onStatus,
	{EventAttachment, model.StepClientReceipt}: (*intakeUC).onReceipt,
	{EventText, model.StepClientReceipt}:       (*intakeUC).onReceiptSkip,
	{EventChoice, model.StepClientConfirm}:     (*intakeUC).onConfirm,
}

var stepPrompts = map[model.Step]string{
	model.StepClientPhone:     "📞 Enter the client's phone number (digits only, 10-15 characters):",
	model.StepClientName:      "👤 Enter the client's full name:",
	model.StepClientMessenger: "📨 Pick the messenger to reach the client on:",
	model.StepClientOrderLink: "🔗 Send the order link or a short description:",
	model.StepClientAmount:    "💰 Enter the order amount:",
	model.StepClientStatus:    "📋 Pick the order status:",
	model.StepClientReceipt:   "📄 Attach a photo or PDF of the receipt (any other message skips it):",
}

var messengerLabels = map[string]string{
	CallbackMessengerPrefix + "telegram": "Telegram",
	CallbackMessengerPrefix + "whatsapp": "WhatsApp",
	CallbackMessengerPrefix + "other":    "Other",
}

var statusLabels = map[string]string{
	CallbackStatusPrefix + "wants":   model.ClientStatusWants,
	CallbackStatusPrefix + "waiting": model.ClientStatusWaiting,
	CallbackStatusPrefix + "paid":    model.ClientStatusPaid,
}

// errStaleTransition means the session moved on between the snapshot and the
// check-and-set; the event is dropped without a reply.
var errStaleTransition = errors.New("stale transition")

// IntakeUseCase drives the client-intake flow.
type IntakeUseCase interface {
	Start(ctx context.Context, tgID, chatID int64) (*Reply, error)
	HandleText(ctx context.Context, tgID, chatID int64, text string) (*Reply, error)
	HandleChoice(ctx context.Context, tgID, chatID int64, tag string) (*Reply, error)
	HandleAttachment(ctx context.Context, tgID, chatID int64, att Attachment) (*Reply, error)
	CancelActive(ctx context.Context, tgID, chatID int64) (*Reply, error)
}

var _ IntakeUseCase = (*intakeUC)(nil)

type intakeUC struct {
	notifier
	sessions repository.SessionRepository
	workers  repository.WorkerRepository
	clients  repository.ClientRepository
	receipts adapter.ReceiptStore
	log      *zerolog.Logger
}

func NewIntakeUseCase(
	sessions repository.SessionRepository,
	workers repository.WorkerRepository,
	clients repository.ClientRepository,
	receipts adapter.ReceiptStore,
	bot adapter.TelegramBot,
	adminIDs []int64,
	logger *zerolog.Logger,
) *intakeUC {
	return &intakeUC{
		notifier: notifier{bot: bot, admins: newAdminSet(adminIDs), log: logger},
		sessions: sessions,
		workers:  workers,
		clients:  clients,
		receipts: receipts,
		log:      logger,
	}
}

// Start enters the flow. Only approved workers may add clients.
func (u *intakeUC) Start(ctx context.Context, tgID, chatID int64) (*Reply, error) {
	defer logging.TraceDuration(u.log, "IntakeUC.Start")()

	worker, err := u.workers.Find(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return text("🛑 You are not registered as a worker. Use /start first."), nil
		}
		return nil, fmt.Errorf("find worker: %w", err)
	}
	if !worker.Approved() {
		return text("🛑 Only approved workers can add clients."), nil
	}

	err = u.sessions.Update(ctx, tgID, chatID, func(s *model.Session) error {
		s.Step = model.StepClientPhone
		s.Data = make(map[string]string)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return text(stepPrompts[model.StepClientPhone]), nil
}

func (u *intakeUC) HandleText(ctx context.Context, tgID, chatID int64, msg string) (*Reply, error) {
	return u.dispatch(ctx, EventText, tgID, chatID, input{text: msg})
}

func (u *intakeUC) HandleChoice(ctx context.Context, tgID, chatID int64, tag string) (*Reply, error) {
	return u.dispatch(ctx, EventChoice, tgID, chatID, input{tag: tag})
}

func (u *intakeUC) HandleAttachment(ctx context.Context, tgID, chatID int64, att Attachment) (*Reply, error) {
	return u.dispatch(ctx, EventAttachment, tgID, chatID, input{attachment: &att})
}

// CancelActive aborts whatever flow is in progress, unconditionally and with
// no partial persistence.
func (u *intakeUC) CancelActive(ctx context.Context, tgID, chatID int64) (*Reply, error) {
	sess, err := u.sessions.Get(ctx, tgID, chatID)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return text("Nothing to cancel."), nil
	}
	flow := "intake"
	if sess.Step == model.StepWithdrawalAmount {
		flow = "withdrawal"
	}
	if err := u.sessions.Clear(ctx, tgID, chatID); err != nil {
		return nil, err
	}
	metrics.IncFlowOutcome(flow, "cancelled")
	return text("❌ Cancelled."), nil
}

func (u *intakeUC) dispatch(ctx context.Context, kind EventKind, tgID, chatID int64, in input) (*Reply, error) {
	sess, err := u.sessions.Get(ctx, tgID, chatID)
	if err != nil {
		return nil, err
	}
	fn, ok := intakeTransitions[transitionKey{kind, sess.Step}]
	if !ok {
		// A text while the flow waits for a button press (or vice versa):
		// re-ask the current question instead of losing the user.
		if p, hasPrompt := stepPrompts[sess.Step]; hasPrompt && kind == EventText {
			return text(p), nil
		}
		return nil, nil
	}
	reply, err := fn(u, ctx, tgID, chatID, in)
	if errors.Is(err, errStaleTransition) {
		return nil, nil
	}
	return reply, err
}

// advance performs the atomic check-and-set for one transition: it verifies
// the session is still at from, stores the collected fields and moves to to.
// The returned snapshot reflects the session after the transition.
func (u *intakeUC) advance(ctx context.Context, tgID, chatID int64, from, to model.Step, set map[string]string) (*model.Session, error) {
	var snap *model.Session
	err := u.sessions.Update(ctx, tgID, chatID, func(s *model.Session) error {
		if s.Step != from {
			return errStaleTransition
		}
		for k, v := range set {
			s.Set(k, v)
		}
		s.Step = to
		snap = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// take atomically snapshots and clears the session if it is still at want.
// This is the guaranteed-cleanup step of flow completion: the session is
// cleared before any side effect runs, so the user can never get stuck, and a
// duplicate button press finds an idle session.
func (u *intakeUC) take(ctx context.Context, tgID, chatID int64, want model.Step) (*model.Session, error) {
	var snap *model.Session
	err := u.sessions.Update(ctx, tgID, chatID, func(s *model.Session) error {
		if s.Step != want {
			return errStaleTransition
		}
		snap = s.Clone()
		s.Step = model.StepNone
		s.Data = make(map[string]string)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (u *intakeUC) onPhone(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	phone := strings.TrimSpace(in.text)
	if !validate.IsPhone(phone) {
		return text("❌ That doesn't look like a phone number. Digits only, 10-15 characters:"), nil
	}
	if _, err := u.advance(ctx, tgID, chatID, model.StepClientPhone, model.StepClientName,
		map[string]string{model.FieldPhone: phone}); err != nil {
		return nil, err
	}
	return text(stepPrompts[model.StepClientName]), nil
}

func (u *intakeUC) onName(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	name := strings.TrimSpace(in.text)
	if utf8.RuneCountInString(name) < 2 {
		return text("❌ That name is too short. Enter the client's full name:"), nil
	}
	if _, err := u.advance(ctx, tgID, chatID, model.StepClientName, model.StepClientMessenger,
		map[string]string{model.FieldName: name}); err != nil {
		return nil, err
	}
	return messengerPrompt(), nil
}

func (u *intakeUC) onMessenger(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	label, ok := messengerLabels[in.tag]
	if !ok {
		// A tag from another step's buttons: re-ask instead of advancing
		// with a defaulted value.
		return messengerPrompt(), nil
	}
	if _, err := u.advance(ctx, tgID, chatID, model.StepClientMessenger, model.StepClientOrderLink,
		map[string]string{model.FieldMessenger: label}); err != nil {
		return nil, err
	}
	return text(stepPrompts[model.StepClientOrderLink]), nil
}

func (u *intakeUC) onOrderLink(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	link := strings.TrimSpace(in.text)
	if utf8.RuneCountInString(link) < 3 {
		return text("❌ That's too short. Send the order link or a short description:"), nil
	}
	if _, err := u.advance(ctx, tgID, chatID, model.StepClientOrderLink, model.StepClientAmount,
		map[string]string{model.FieldOrderLink: link}); err != nil {
		return nil, err
	}
	return text(stepPrompts[model.StepClientAmount]), nil
}

func (u *intakeUC) onAmount(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	raw := strings.TrimSpace(in.text)
	if !validate.IsMoney(raw) {
		return text("❌ Invalid amount. Enter a number like 1000 or 1000.50:"), nil
	}
	amount, err := strconv.ParseFloat(validate.NormalizeMoney(raw), 64)
	if err != nil || amount <= 0 {
		return text("❌ The amount must be greater than zero:"), nil
	}
	if _, err := u.advance(ctx, tgID, chatID, model.StepClientAmount, model.StepClientStatus,
		map[string]string{model.FieldAmount: validate.NormalizeMoney(raw)}); err != nil {
		return nil, err
	}
	return statusPrompt(), nil
}

func (u *intakeUC) onStatus(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	label, ok := statusLabels[in.tag]
	if !ok {
		return statusPrompt(), nil
	}

	if label == model.ClientStatusPaid {
		if _, err := u.advance(ctx, tgID, chatID, model.StepClientStatus, model.StepClientReceipt,
			map[string]string{model.FieldStatus: label}); err != nil {
			return nil, err
		}
		return text(stepPrompts[model.StepClientReceipt]), nil
	}

	snap, err := u.advance(ctx, tgID, chatID, model.StepClientStatus, model.StepClientConfirm,
		map[string]string{model.FieldStatus: label, model.FieldReceiptURL: ""})
	if err != nil {
		return nil, err
	}
	return u.summary(snap), nil
}

func (u *intakeUC) onReceipt(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	log := logging.With(ctx, u.log)

	// Upload failures are non-fatal: continue without a receipt.
	url := ""
	if in.attachment != nil {
		var err error
		url, err = u.receipts.Save(ctx, in.attachment.Filename, in.attachment.File)
		if err != nil {
			log.Error().Err(err).Msg("receipt upload failed, continuing without receipt")
			url = ""
		}
	}

	snap, err := u.advance(ctx, tgID, chatID, model.StepClientReceipt, model.StepClientConfirm,
		map[string]string{model.FieldReceiptURL: url})
	if err != nil {
		return nil, err
	}
	reply := u.summary(snap)
	if url != "" {
		reply.Text = "✅ Receipt saved!\n\n" + reply.Text
	} else if in.attachment != nil {
		reply.Text = "❌ Could not save the receipt, continuing without it.\n\n" + reply.Text
	}
	return reply, nil
}

// onReceiptSkip treats any non-attachment input at the receipt step as a skip.
func (u *intakeUC) onReceiptSkip(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	snap, err := u.advance(ctx, tgID, chatID, model.StepClientReceipt, model.StepClientConfirm,
		map[string]string{model.FieldReceiptURL: ""})
	if err != nil {
		return nil, err
	}
	return u.summary(snap), nil
}

func (u *intakeUC) onConfirm(ctx context.Context, tgID, chatID int64, in input) (*Reply, error) {
	switch in.tag {
	case CallbackConfirmCancel:
		if _, err := u.take(ctx, tgID, chatID, model.StepClientConfirm); err != nil {
			return nil, err
		}
		metrics.IncFlowOutcome("intake", "cancelled")
		return text("❌ Client intake cancelled."), nil
	case CallbackConfirmSave:
		snap, err := u.take(ctx, tgID, chatID, model.StepClientConfirm)
		if err != nil {
			return nil, err
		}
		return u.complete(ctx, tgID, snap), nil
	default:
		return u.summary(nil), nil
	}
}

// complete persists the collected client. Any failure is logged and surfaced
// as a generic message; the session was already cleared by take.
func (u *intakeUC) complete(ctx context.Context, tgID int64, snap *model.Session) *Reply {
	defer logging.TraceDuration(u.log, "IntakeUC.complete")()
	log := logging.With(ctx, u.log)

	fail := func(err error, msg string) *Reply {
		log.Error().Err(err).Msg(msg)
		metrics.IncFlowOutcome("intake", "failed")
		return text("❌ Something went wrong while saving the client. Please try again.")
	}

	worker, err := u.workers.Find(ctx, tgID)
	if err != nil {
		return fail(err, "worker lookup failed during intake completion")
	}

	amount, err := strconv.ParseFloat(snap.Data[model.FieldAmount], 64)
	if err != nil {
		return fail(err, "unparseable amount in session data")
	}
	commissionAmount := commission.Calc(worker.ClientsCount, amount)

	client := &model.Client{
		WorkerTelegramID: tgID,
		WorkerUsername:   worker.Username,
		Phone:            snap.Data[model.FieldPhone],
		Name:             snap.Data[model.FieldName],
		Messenger:        snap.Data[model.FieldMessenger],
		OrderLink:        snap.Data[model.FieldOrderLink],
		Amount:           amount,
		Status:           snap.Data[model.FieldStatus],
		ReceiptURL:       snap.Data[model.FieldReceiptURL],
		CreatedAt:        time.Now(),
	}

	if err := u.clients.Append(ctx, client); err != nil {
		return fail(err, "append client row failed")
	}
	if err := u.workers.IncClientsCount(ctx, tgID); err != nil {
		return fail(err, "increment clients count failed")
	}
	if client.Status == model.ClientStatusPaid {
		if err := u.workers.IncBalance(ctx, tgID, commissionAmount); err != nil {
			return fail(err, "commission credit failed")
		}
	}

	u.notifyAdmins(ctx, fmt.Sprintf(
		"📈 New client added\n\n👤 Worker: @%s\n📞 Client: %s (%s)\n💰 Amount: %.2f\n💵 Commission: %.2f\n📋 Status: %s",
		worker.Username, client.Name, client.Phone, client.Amount, commissionAmount, client.Status,
	), nil)

	metrics.IncFlowOutcome("intake", "saved")
	return text(fmt.Sprintf("✅ Client saved! Commission: %.2f", commissionAmount))
}

func messengerPrompt() *Reply {
	return &Reply{
		Text: stepPrompts[model.StepClientMessenger],
		Buttons: [][]adapter.InlineButton{
			adapter.Row(
				adapter.InlineButton{Text: "📱 Telegram", Data: CallbackMessengerPrefix + "telegram"},
				adapter.InlineButton{Text: "💬 WhatsApp", Data: CallbackMessengerPrefix + "whatsapp"},
			),
			adapter.Row(adapter.InlineButton{Text: "📧 Other", Data: CallbackMessengerPrefix + "other"}),
		},
	}
}

func statusPrompt() *Reply {
	return &Reply{
		Text: stepPrompts[model.StepClientStatus],
		Buttons: [][]adapter.InlineButton{
			adapter.Row(adapter.InlineButton{Text: "🤔 Wants to buy", Data: CallbackStatusPrefix + "wants"}),
			adapter.Row(adapter.InlineButton{Text: "⏳ Awaiting payment", Data: CallbackStatusPrefix + "waiting"}),
			adapter.Row(adapter.InlineButton{Text: "✅ Paid", Data: CallbackStatusPrefix + "paid"}),
		},
	}
}

// summary renders the confirmation card. With a nil session it re-fetches
// nothing and only re-shows the buttons.
func (u *intakeUC) summary(snap *model.Session) *Reply {
	buttons := [][]adapter.InlineButton{
		adapter.Row(
			adapter.InlineButton{Text: "✅ Save", Data: CallbackConfirmSave},
			adapter.InlineButton{Text: "❌ Cancel", Data: CallbackConfirmCancel},
		),
	}
	if snap == nil {
		return &Reply{Text: "Save this client?", Buttons: buttons}
	}

	receipt := "no"
	if snap.Data[model.FieldReceiptURL] != "" {
		receipt = "yes"
	}
	amount, _ := strconv.ParseFloat(snap.Data[model.FieldAmount], 64)
	return &Reply{
		Text: fmt.Sprintf(
			"📋 Review the client details:\n\n📞 Phone: %s\n👤 Name: %s\n📨 Messenger: %s\n🔗 Order: %s\n💰 Amount: %.2f\n📋 Status: %s\n📄 Receipt: %s",
			snap.Data[model.FieldPhone], snap.Data[model.FieldName], snap.Data[model.FieldMessenger],
			snap.Data[model.FieldOrderLink], amount, snap.Data[model.FieldStatus], receipt,
		),
		Buttons: buttons,
	}
}
