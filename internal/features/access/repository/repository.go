package repository

import (
	"context"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
)

// UserRegistry holds per-user approval state. All operations are atomic
// with respect to a single user id; operations on different ids do not
// block each other. Records are never deleted.
type UserRegistry interface {
	// Get returns a copy of the user record, if one exists.
	Get(ctx context.Context, id int64) (models.User, bool)

	// GetOrCreate returns the user record, creating it in the pending
	// state on first contact. The second result reports whether the
	// record was created by this call.
	GetOrCreate(ctx context.Context, p models.Profile) (models.User, bool)

	// Update runs fn against the live record under the per-key lock and
	// returns the updated copy. The mutation is all-or-nothing: fn either
	// runs to completion or the record is untouched.
	Update(ctx context.Context, id int64, fn func(*models.User)) (models.User, error)

	// BeginPending runs first contact as one atomic unit: the user record
	// is created in the pending state if absent, its profile fields are
	// refreshed, and a pending request is recorded unless the user is no
	// longer pending or a request already exists. The second result
	// reports whether this call created the pending request.
	BeginPending(ctx context.Context, p models.Profile) (models.User, bool)

	// TakePending removes and returns the pending request for the user.
	TakePending(ctx context.Context, id int64) (*models.PendingRequest, bool)

	// HasPending reports whether a pending request exists for the user.
	HasPending(ctx context.Context, id int64) bool
}
