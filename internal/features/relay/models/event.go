package models

import (
	accessmodels "github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

// EventKind classifies a normalized inbound event.
type EventKind string

const (
	EventStart    EventKind = "start"    // first-contact command
	EventText     EventKind = "text"     // plain text from a user
	EventDecision EventKind = "decision" // approver pressed approve/reject
	EventAdmin    EventKind = "admin"    // approver-only ban/unban command
	EventMenu     EventKind = "menu"     // menu button press
)

// Event is an inbound message or button press, normalized so the relay is
// agnostic to whether it arrived by polling or webhook push.
type Event struct {
	ID   string // correlation id for log lines
	Kind EventKind
	From accessmodels.Profile

	// Plain text for text events; raw argument string for admin events.
	Text string

	// Decision events.
	Decision accessmodels.Decision
	Target   int64 // also set for admin events

	// Administrative override events.
	Admin accessmodels.OverrideAction

	// Button-press events.
	MenuItem   string
	CallbackID string
	Prompt     transport.MessageRef // message carrying the pressed button
}
