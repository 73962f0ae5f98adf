package models

import (
	"strconv"
	"strings"
)

// Decision is what the approver chose for a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// OverrideAction is an administrative state override, independent of the
// moderation counters.
type OverrideAction string

const (
	OverrideBan   OverrideAction = "ban"
	OverrideUnban OverrideAction = "unban"
)

// ApproveToken builds the opaque button token for approving the user.
func ApproveToken(userID int64) string {
	return string(DecisionApprove) + ":" + strconv.FormatInt(userID, 10)
}

// RejectToken builds the opaque button token for rejecting the user.
func RejectToken(userID int64) string {
	return string(DecisionReject) + ":" + strconv.FormatInt(userID, 10)
}

// ParseDecisionToken recovers the decision and target user id from a
// button token. Returns false for tokens from other button families.
func ParseDecisionToken(token string) (Decision, int64, bool) {
	decision, rest, ok := strings.Cut(token, ":")
	if !ok {
		return "", 0, false
	}
	d := Decision(decision)
	if d != DecisionApprove && d != DecisionReject {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	return d, id, true
}
