package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"sales-tracker-bot/internal/domain/ports/adapter"
)

// adminSet is the static allow-list of admin identities. Checked before every
// admin-scoped operation.
type adminSet map[int64]struct{}

func newAdminSet(ids []int64) adminSet {
	s := make(adminSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (a adminSet) allowed(id int64) bool {
	_, ok := a[id]
	return ok
}

func (a adminSet) ids() []int64 {
	out := make([]int64, 0, len(a))
	for id := range a {
		out = append(out, id)
	}
	return out
}

// notifier fans messages out to every admin. Send failures are logged and
// swallowed: by the time a notification goes out, the primary persistence has
// already succeeded.
type notifier struct {
	bot    adapter.TelegramBot
	admins adminSet
	log    *zerolog.Logger
}

func (n *notifier) notifyAdmins(ctx context.Context, text string, rows [][]adapter.InlineButton) {
	for _, adminID := range n.admins.ids() {
		var err error
		if len(rows) > 0 {
			err = n.bot.SendButtons(ctx, adminID, text, rows)
		} else {
			err = n.bot.SendMessage(ctx, adminID, text)
		}
		if err != nil {
			n.log.Error().Err(err).Int64("admin_id", adminID).Msg("failed to notify admin")
		}
	}
}

func (n *notifier) notifyUser(ctx context.Context, tgID int64, text string) {
	if err := n.bot.SendMessage(ctx, tgID, text); err != nil {
		n.log.Error().Err(err).Int64("tg_id", tgID).Msg("failed to notify user")
	}
}
