package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/common/metrics"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/repository"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

type approvalGateway struct {
	users          repository.UserRegistry
	msgr           transport.Messenger
	approverChatID int64
}

func NewApprovalGateway(users repository.UserRegistry, msgr transport.Messenger, approverChatID int64) ApprovalGateway {
	return &approvalGateway{
		users:          users,
		msgr:           msgr,
		approverChatID: approverChatID,
	}
}

// RequestAccess handles first contact. The state check and the pending
// record commit in one registry operation, and the approver prompt is only
// attempted afterwards; a failed prompt send is logged and the state
// stands. Repeating the request while pending is a no-op and never
// produces a second prompt.
func (g *approvalGateway) RequestAccess(ctx context.Context, p models.Profile) RequestOutcome {
	u, created := g.users.BeginPending(ctx, p)

	switch u.State {
	case models.StateApproved:
		metrics.AccessRequests.WithLabelValues(string(AlreadyApproved)).Inc()
		return AlreadyApproved
	case models.StateBanned:
		metrics.AccessRequests.WithLabelValues(string(AlreadyBanned)).Inc()
		return AlreadyBanned
	}

	if !created {
		metrics.AccessRequests.WithLabelValues(string(AlreadyPending)).Inc()
		return AlreadyPending
	}

	log.Info().Int64("user_id", p.ID).Msg("access request created")
	metrics.AccessRequests.WithLabelValues(string(RequestCreated)).Inc()

	if _, err := g.msgr.SendMessage(ctx, g.approverChatID, promptText(p),
		transport.Action{Label: "✅ Approve", Token: models.ApproveToken(p.ID)},
		transport.Action{Label: "❌ Reject", Token: models.RejectToken(p.ID)},
	); err != nil {
		metrics.DeliveryFailures.Inc()
		log.Error().Err(err).Int64("user_id", p.ID).Msg("approval prompt delivery failed")
	}

	return RequestCreated
}

// Decide applies the approver's decision to a pending request. A decision
// from anyone but the configured approver fails closed. A decision for a
// request that was already resolved is silently absorbed so double button
// presses never duplicate notifications.
func (g *approvalGateway) Decide(ctx context.Context, approverID, targetID int64, decision models.Decision, prompt transport.MessageRef) DecideOutcome {
	if approverID != g.approverChatID {
		log.Warn().Int64("by", approverID).Int64("target", targetID).Msg("decision from non-approver rejected")
		return DecisionUnauthorized
	}

	req, ok := g.users.TakePending(ctx, targetID)
	if !ok {
		log.Info().Int64("target", targetID).Msg("decision for already-resolved request ignored")
		return DecisionNotFound
	}

	if _, err := g.users.Update(ctx, targetID, func(u *models.User) {
		if decision == models.DecisionApprove {
			u.State = models.StateApproved
			u.Warnings = 0
		} else {
			u.State = models.StateBanned
		}
	}); err != nil {
		// The record must exist: TakePending just succeeded for it.
		log.Error().Err(err).Int64("target", targetID).Msg("decision could not be applied")
		return DecisionNotFound
	}

	log.Info().Int64("target", targetID).Str("decision", string(decision)).Msg("decision applied")
	if decision == models.DecisionReject {
		metrics.Bans.Inc()
	}

	g.notifyTarget(ctx, targetID, decision)
	g.resolvePrompt(ctx, prompt, targetID, req, decision)

	return DecisionApplied
}

// Override forces a user's state independent of the moderation counters.
// Banning consumes any live pending request so the one-request-per-user
// invariant holds; unbanning re-approves and clears the warning counter.
func (g *approvalGateway) Override(ctx context.Context, approverID, targetID int64, action models.OverrideAction) DecideOutcome {
	if approverID != g.approverChatID {
		log.Warn().Int64("by", approverID).Int64("target", targetID).Str("action", string(action)).Msg("override from non-approver rejected")
		return DecisionUnauthorized
	}

	// The target may never have contacted the bot; create the record so
	// the override sticks.
	g.users.GetOrCreate(ctx, models.Profile{ID: targetID})
	g.users.TakePending(ctx, targetID)

	if _, err := g.users.Update(ctx, targetID, func(u *models.User) {
		if action == models.OverrideBan {
			u.State = models.StateBanned
		} else {
			u.State = models.StateApproved
			u.Warnings = 0
		}
	}); err != nil {
		log.Error().Err(err).Int64("target", targetID).Msg("override could not be applied")
		return DecisionNotFound
	}

	log.Info().Int64("target", targetID).Str("action", string(action)).Msg("override applied")
	if action == models.OverrideBan {
		metrics.Bans.Inc()
	}
	return DecisionApplied
}

func (g *approvalGateway) notifyTarget(ctx context.Context, targetID int64, decision models.Decision) {
	text := "🎉 Your request was approved! You can now use all bot services.\nSend /start to begin."
	if decision == models.DecisionReject {
		text = "❌ Your request was rejected."
	}
	if _, err := g.msgr.SendMessage(ctx, targetID, text); err != nil {
		metrics.DeliveryFailures.Inc()
		log.Error().Err(err).Int64("target", targetID).Msg("decision notification delivery failed")
	}
}

func (g *approvalGateway) resolvePrompt(ctx context.Context, prompt transport.MessageRef, targetID int64, req *models.PendingRequest, decision models.Decision) {
	if prompt.IsZero() {
		return
	}
	name := req.FirstName
	if req.LastName != "" {
		name += " " + req.LastName
	}
	text := fmt.Sprintf("✅ User %s (%d) approved", name, targetID)
	if decision == models.DecisionReject {
		text = fmt.Sprintf("❌ User %s (%d) rejected", name, targetID)
	}
	if err := g.msgr.EditMessage(ctx, prompt, text); err != nil {
		metrics.DeliveryFailures.Inc()
		log.Error().Err(err).Int64("target", targetID).Msg("prompt update failed")
	}
}

func promptText(p models.Profile) string {
	username := p.Username
	if username == "" {
		username = "not set"
	}
	return fmt.Sprintf(
		"🆕 New access request:\n\n👤 %s %s\n📛 @%s\n🆔 %d\n\nChoose an action:",
		p.FirstName, p.LastName, username, p.ID,
	)
}

