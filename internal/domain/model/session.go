package model

// Step identifies where a user is inside a multi-step flow. StepNone means no
// flow is active.
type Step string

const (
	StepNone Step = ""

	// Client intake flow
	StepClientPhone     Step = "client_phone"
	StepClientName      Step = "client_name"
	StepClientMessenger Step = "client_messenger"
	StepClientOrderLink Step = "client_order_link"
	StepClientAmount    Step = "client_amount"
	StepClientStatus    Step = "client_status"
	StepClientReceipt   Step = "client_receipt"
	StepClientConfirm   Step = "client_confirm"

	// Withdrawal flow
	StepWithdrawalAmount Step = "withdrawal_amount"
)

// Field keys used in Session.Data.
const (
	FieldPhone      = "phone"
	FieldName       = "name"
	FieldMessenger  = "messenger"
	FieldOrderLink  = "order_link"
	FieldAmount     = "amount"
	FieldStatus     = "status"
	FieldReceiptURL = "receipt_url"
)

// Session holds a user's progress through a flow together with the data
// collected so far. The zero value is a valid idle session.
type Session struct {
	Step Step              `json:"step"`
	Data map[string]string `json:"data"`
}

// NewSession returns an idle session with initialized data.
func NewSession() *Session {
	return &Session{Step: StepNone, Data: make(map[string]string)}
}

// Active reports whether any flow is in progress.
func (s *Session) Active() bool { return s.Step != StepNone }

// Set stores one collected field, allocating the map on first use so that a
// zero-value session stays usable.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// Clone returns an independent copy so callers can hand out snapshots.
func (s *Session) Clone() *Session {
	cp := &Session{Step: s.Step, Data: make(map[string]string, len(s.Data))}
	for k, v := range s.Data {
		cp.Data[k] = v
	}
	return cp
}
