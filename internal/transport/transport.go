package transport

import "context"

// MessageRef identifies a message that was already delivered to a chat, so
// it can be edited later (e.g. resolving an approval prompt in place).
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 || r.MessageID == 0
}

// Action is a labeled button attached to an outbound message. The token is
// opaque to the transport; a press surfaces later as an inbound event
// carrying it.
type Action struct {
	Label string
	Token string
}

// Messenger is the outbound side of the chat platform. Implementations
// return an error on delivery failure; callers treat sends as best-effort
// relative to already-committed state.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, actions ...Action) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string, actions ...Action) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
