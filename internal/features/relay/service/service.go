package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/common/metrics"
	accessmodels "github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/repository"
	accesssvc "github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/service"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/menu"
	moderation "github.com/Alqaedgcb/legal-telegram-bot/internal/features/moderation/service"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/relay/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

const excerptRunes = 64

const (
	msgAwaitingApproval = "⏳ Your access request was sent to the administration.\nYou will be notified once it is approved."
	msgNotApproved      = "⏳ You cannot use the bot until you are approved."
	msgBanned           = "❌ You are banned from using this bot."
	msgReceived         = "✅ Your message was received, you will get a reply soon."
	msgPermanentBan     = "❌ You have been banned for repeated violations."
)

// RelayController dispatches normalized inbound events. It may be invoked
// concurrently; the registry's per-key locking is what keeps that safe.
type RelayController interface {
	Handle(ctx context.Context, ev models.Event)
}

type relayController struct {
	gateway        accesssvc.ApprovalGateway
	engine         moderation.ModerationEngine
	users          repository.UserRegistry
	msgr           transport.Messenger
	approverChatID int64
}

func NewRelayController(
	gateway accesssvc.ApprovalGateway,
	engine moderation.ModerationEngine,
	users repository.UserRegistry,
	msgr transport.Messenger,
	approverChatID int64,
) RelayController {
	return &relayController{
		gateway:        gateway,
		engine:         engine,
		users:          users,
		msgr:           msgr,
		approverChatID: approverChatID,
	}
}

func (c *relayController) Handle(ctx context.Context, ev models.Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	logger := log.With().Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Int64("from", ev.From.ID).Logger()

	// A broken event must never take the process down with it.
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("event processing aborted")
		}
	}()

	if ev.From.ID == 0 {
		metrics.EventsDropped.Inc()
		logger.Warn().Msg("malformed event dropped: missing sender")
		return
	}
	metrics.EventsReceived.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case models.EventStart:
		c.handleStart(ctx, ev)
	case models.EventDecision:
		c.handleDecision(ctx, ev, logger)
	case models.EventText:
		c.handleText(ctx, ev, logger)
	case models.EventAdmin:
		c.handleAdmin(ctx, ev)
	case models.EventMenu:
		c.handleMenu(ctx, ev)
	default:
		metrics.EventsDropped.Inc()
		logger.Warn().Msg("malformed event dropped: unknown kind")
	}
}

func (c *relayController) handleStart(ctx context.Context, ev models.Event) {
	switch c.gateway.RequestAccess(ctx, ev.From) {
	case accesssvc.AlreadyApproved:
		text, actions := menu.Main()
		c.send(ctx, ev.From.ID, text, actions...)
	case accesssvc.AlreadyBanned:
		c.send(ctx, ev.From.ID, msgBanned)
	default: // RequestCreated, AlreadyPending
		c.send(ctx, ev.From.ID, msgAwaitingApproval)
	}
}

func (c *relayController) handleDecision(ctx context.Context, ev models.Event, logger zerolog.Logger) {
	if ev.Target == 0 || ev.Decision == "" {
		metrics.EventsDropped.Inc()
		logger.Warn().Msg("malformed decision event dropped")
		return
	}

	// Authorization is the gateway's call; the relay forwards regardless
	// of sender.
	outcome := c.gateway.Decide(ctx, ev.From.ID, ev.Target, ev.Decision, ev.Prompt)

	// Always answer the callback so the button stops spinning. An
	// unauthorized press gets a toast and nothing else; a press on an
	// already-resolved request is silently inert.
	toast := ""
	if outcome == accesssvc.DecisionUnauthorized {
		toast = "Not allowed"
	}
	c.answer(ctx, ev.CallbackID, toast)
}

func (c *relayController) handleText(ctx context.Context, ev models.Event, logger zerolog.Logger) {
	u, ok := c.users.Get(ctx, ev.From.ID)
	if !ok || u.State != accessmodels.StateApproved {
		if ok && u.State == accessmodels.StateBanned {
			c.send(ctx, ev.From.ID, msgBanned)
			return
		}
		c.send(ctx, ev.From.ID, msgNotApproved)
		return
	}

	verdict := c.engine.Classify(ev.Text)
	if !verdict.Violation {
		// The actual consultation reply is produced out of band by the
		// lawyers; the bot only confirms receipt.
		c.send(ctx, ev.From.ID, msgReceived)
		return
	}

	out, err := c.engine.OnViolation(ctx, ev.From.ID)
	if err != nil {
		logger.Error().Err(err).Msg("violation could not be recorded")
		return
	}

	if out.Banned {
		c.send(ctx, ev.From.ID, msgPermanentBan)
		c.send(ctx, c.approverChatID, fmt.Sprintf(
			"🚨 User %d banned after repeated violations.\nLast message: …%s",
			ev.From.ID, excerpt(ev.Text),
		))
		return
	}

	c.send(ctx, ev.From.ID, fmt.Sprintf(
		"⚠️ Warning (%d/%d): posting links or abusive language is not allowed.",
		out.Warnings, c.engine.Threshold(),
	))
	c.send(ctx, c.approverChatID, fmt.Sprintf(
		"⚠️ Violation from user %d (warning %d/%d)",
		ev.From.ID, out.Warnings, c.engine.Threshold(),
	))
}

func (c *relayController) handleAdmin(ctx context.Context, ev models.Event) {
	if ev.Target == 0 {
		// Bad argument. Only the approver gets told; anyone else attempting
		// the command learns nothing.
		if ev.From.ID == c.approverChatID {
			c.send(ctx, ev.From.ID, "❌ Invalid user id.")
		} else {
			metrics.EventsDropped.Inc()
			log.Warn().Int64("from", ev.From.ID).Msg("admin command with bad target dropped")
		}
		return
	}

	switch c.gateway.Override(ctx, ev.From.ID, ev.Target, ev.Admin) {
	case accesssvc.DecisionApplied:
		verb := "banned"
		if ev.Admin == accessmodels.OverrideUnban {
			verb = "unbanned"
		}
		c.send(ctx, ev.From.ID, fmt.Sprintf("✅ User %d %s", ev.Target, verb))
	case accesssvc.DecisionUnauthorized:
		// Fail closed, silently.
	}
}

func (c *relayController) handleMenu(ctx context.Context, ev models.Event) {
	u, ok := c.users.Get(ctx, ev.From.ID)
	if !ok || u.State != accessmodels.StateApproved {
		c.answer(ctx, ev.CallbackID, "Not approved yet")
		return
	}

	c.answer(ctx, ev.CallbackID, "")
	text, ok := menu.Section(ev.MenuItem)
	if !ok {
		metrics.EventsDropped.Inc()
		log.Warn().Str("item", ev.MenuItem).Msg("unknown menu item dropped")
		return
	}
	if ev.Prompt.IsZero() {
		return
	}
	if err := c.msgr.EditMessage(ctx, ev.Prompt, text); err != nil {
		metrics.DeliveryFailures.Inc()
		log.Error().Err(err).Int64("chat", ev.Prompt.ChatID).Msg("menu update failed")
	}
}

// send delivers best-effort: a failure is logged and counted, never
// propagated, because any state change was already committed.
func (c *relayController) send(ctx context.Context, chatID int64, text string, actions ...transport.Action) {
	if _, err := c.msgr.SendMessage(ctx, chatID, text, actions...); err != nil {
		metrics.DeliveryFailures.Inc()
		log.Error().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

func (c *relayController) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := c.msgr.AnswerCallback(ctx, callbackID, text); err != nil {
		metrics.DeliveryFailures.Inc()
		log.Error().Err(err).Msg("callback answer failed")
	}
}

// excerpt returns the trailing runes of the offending text for the
// approver's audit notification.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return string(runes)
	}
	return string(runes[len(runes)-excerptRunes:])
}
