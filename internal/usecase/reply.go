package usecase

import "sales-tracker-bot/internal/domain/ports/adapter"

// Reply is what a handler wants sent back to the chat the event came from.
// A nil Reply means the event was not for this handler (or was silently
// dropped as stale) and nothing should be sent.
type Reply struct {
	Text    string
	Buttons [][]adapter.InlineButton
}

func text(s string) *Reply { return &Reply{Text: s} }

// Callback tags carried in inline-keyboard buttons. The prefixed tags embed
// the target id after the prefix.
const (
	CallbackAddClient         = "add_client"
	CallbackRequestWithdrawal = "request_withdrawal"

	CallbackMessengerPrefix = "messenger_"
	CallbackStatusPrefix    = "status_"
	CallbackConfirmSave     = "confirm_save"
	CallbackConfirmCancel   = "confirm_cancel"

	CallbackApprovePrefix         = "approve_"
	CallbackDeclinePrefix         = "decline_"
	CallbackWithdrawApprovePrefix = "withdraw_approve_"
	CallbackWithdrawDeclinePrefix = "withdraw_decline_"

	CallbackAdminTopWorkers  = "admin_top_workers"
	CallbackAdminWithdrawals = "admin_withdrawals"
	CallbackAdminExportCSV   = "admin_export_csv"
	CallbackAdminBack        = "admin_back"
)
