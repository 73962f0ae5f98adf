package models

import "time"

// ApprovalState определяет статус доступа пользователя
type ApprovalState string

const (
	StateUnknown  ApprovalState = "unknown"
	StatePending  ApprovalState = "pending"
	StateApproved ApprovalState = "approved"
	StateBanned   ApprovalState = "banned"
)

// User представляет пользователя в системе
type User struct {
	ID        int64         `json:"id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Username  string        `json:"username"`
	State     ApprovalState `json:"state"`
	Warnings  int           `json:"warnings"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DisplayName returns the best human-readable name available.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}

// Profile carries the identity fields the transport knows about a sender.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// PendingRequest links a not-yet-decided user to the approval prompt
// awaiting a decision. At most one exists per user.
type PendingRequest struct {
	UserID    int64     `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
