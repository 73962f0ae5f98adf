package service

import (
	"context"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

// RequestOutcome is the result of a first-contact access request.
type RequestOutcome string

const (
	RequestCreated  RequestOutcome = "created"
	AlreadyPending  RequestOutcome = "already_pending"
	AlreadyApproved RequestOutcome = "already_approved"
	AlreadyBanned   RequestOutcome = "already_banned"
)

// DecideOutcome is the result of an approver decision or override.
type DecideOutcome string

const (
	DecisionApplied      DecideOutcome = "applied"
	DecisionUnauthorized DecideOutcome = "unauthorized"
	DecisionNotFound     DecideOutcome = "not_found"
)

// ApprovalGateway decides whether a user may use the service and applies
// the approver's decisions. State transitions are authoritative even when
// the confirmation message fails to reach its recipient.
type ApprovalGateway interface {
	RequestAccess(ctx context.Context, p models.Profile) RequestOutcome
	Decide(ctx context.Context, approverID, targetID int64, decision models.Decision, prompt transport.MessageRef) DecideOutcome
	Override(ctx context.Context, approverID, targetID int64, action models.OverrideAction) DecideOutcome
}
