package telegram

import (
	"strconv"
	"strings"

	accessmodels "github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/menu"
	relaymodels "github.com/Alqaedgcb/legal-telegram-bot/internal/features/relay/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

// Normalize maps a raw update onto a relay event. Both the poller and the
// webhook handler go through here, so the relay sees one event shape no
// matter how the update arrived. False means the update carries nothing
// the relay acts on.
func Normalize(u Update) (relaymodels.Event, bool) {
	if cb := u.CallbackQuery; cb != nil {
		return normalizeCallback(cb)
	}
	if msg := u.Message; msg != nil {
		return normalizeMessage(msg)
	}
	return relaymodels.Event{}, false
}

func normalizeCallback(cb *CallbackQuery) (relaymodels.Event, bool) {
	ev := relaymodels.Event{
		From:       profileOf(cb.From),
		CallbackID: cb.ID,
	}
	if cb.Message != nil {
		ev.Prompt = transport.MessageRef{
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
		}
	}

	if decision, target, ok := accessmodels.ParseDecisionToken(cb.Data); ok {
		ev.Kind = relaymodels.EventDecision
		ev.Decision = decision
		ev.Target = target
		return ev, true
	}
	if item, ok := menu.ParseToken(cb.Data); ok {
		ev.Kind = relaymodels.EventMenu
		ev.MenuItem = item
		return ev, true
	}
	return relaymodels.Event{}, false
}

func normalizeMessage(msg *Message) (relaymodels.Event, bool) {
	if msg.From == nil || msg.From.IsBot || msg.Text == "" {
		return relaymodels.Event{}, false
	}

	ev := relaymodels.Event{From: profileOf(*msg.From)}
	text := strings.TrimSpace(msg.Text)

	if !strings.HasPrefix(text, "/") {
		ev.Kind = relaymodels.EventText
		ev.Text = text
		return ev, true
	}

	fields := strings.Fields(text)
	// Commands may arrive as /cmd@botname in group contexts.
	cmd, _, _ := strings.Cut(fields[0], "@")
	switch cmd {
	case "/start":
		ev.Kind = relaymodels.EventStart
		return ev, true
	case "/ban", "/unban":
		ev.Kind = relaymodels.EventAdmin
		ev.Admin = accessmodels.OverrideBan
		if cmd == "/unban" {
			ev.Admin = accessmodels.OverrideUnban
		}
		if len(fields) > 1 {
			ev.Text = fields[1]
			if id, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				ev.Target = id
			}
		}
		return ev, true
	}
	// Unknown commands are ignored, matching the handler filters.
	return relaymodels.Event{}, false
}

func profileOf(u User) accessmodels.Profile {
	return accessmodels.Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}
