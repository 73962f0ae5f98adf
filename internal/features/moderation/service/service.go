package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/common/metrics"
	accessmodels "github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/repository"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/moderation/models"
)

// Verdict is the classification result for one message.
type Verdict struct {
	Violation bool
	Term      string // matched forbidden term, empty when clean
}

// Outcome is the escalation result after a violation was recorded.
type Outcome struct {
	Banned   bool
	Warnings int
}

type ModerationEngine interface {
	Classify(text string) Verdict
	OnViolation(ctx context.Context, userID int64) (Outcome, error)
	Threshold() int
}

type moderationEngine struct {
	policy models.Policy
	users  repository.UserRegistry
}

func NewModerationEngine(policy models.Policy, users repository.UserRegistry) ModerationEngine {
	return &moderationEngine{
		policy: policy,
		users:  users,
	}
}

func (e *moderationEngine) Classify(text string) Verdict {
	term, ok := e.policy.Matches(text)
	return Verdict{Violation: ok, Term: term}
}

// OnViolation records one violation against the user. Warnings only
// accumulate while the user is approved; the increment and the threshold
// check run inside the registry's per-key lock, so two concurrent
// violations can never skip past the threshold.
func (e *moderationEngine) OnViolation(ctx context.Context, userID int64) (Outcome, error) {
	u, err := e.users.Update(ctx, userID, func(u *accessmodels.User) {
		if u.State != accessmodels.StateApproved {
			return
		}
		u.Warnings++
		if u.Warnings >= e.policy.Threshold() {
			u.State = accessmodels.StateBanned
		}
	})
	if err != nil {
		return Outcome{}, err
	}

	metrics.Violations.Inc()
	out := Outcome{
		Banned:   u.State == accessmodels.StateBanned,
		Warnings: u.Warnings,
	}
	if out.Banned {
		metrics.Bans.Inc()
		log.Warn().Int64("user_id", userID).Int("warnings", u.Warnings).Msg("user banned after repeated violations")
	} else {
		log.Info().Int64("user_id", userID).Int("warnings", u.Warnings).Msg("violation recorded")
	}
	return out, nil
}

func (e *moderationEngine) Threshold() int {
	return e.policy.Threshold()
}
