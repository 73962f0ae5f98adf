package memory

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/Alqaedgcb/legal-telegram-bot/internal/common/errors"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/models"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/features/access/repository"
)

const shardCount = 16

// Store is an in-memory UserRegistry. State is sharded by user id so that
// a read-modify-write on one user never blocks traffic for another; within
// a shard the mutex serializes every operation on its users.
type Store struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	pending map[int64]*models.PendingRequest
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].users = make(map[int64]*models.User)
		s.shards[i].pending = make(map[int64]*models.PendingRequest)
	}
	return s
}

func (s *Store) shardFor(id int64) *shard {
	if id < 0 {
		id = -id
	}
	return &s.shards[id%shardCount]
}

func (s *Store) Get(_ context.Context, id int64) (models.User, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	u, ok := sh.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

func (s *Store) GetOrCreate(_ context.Context, p models.Profile) (models.User, bool) {
	sh := s.shardFor(p.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	u, created := getOrCreateLocked(sh, p)
	return *u, created
}

// getOrCreateLocked must be called with the shard mutex held.
func getOrCreateLocked(sh *shard, p models.Profile) (*models.User, bool) {
	if u, ok := sh.users[p.ID]; ok {
		// Refresh profile fields the transport may have updated.
		if u.FirstName != p.FirstName || u.LastName != p.LastName || u.Username != p.Username {
			u.FirstName = p.FirstName
			u.LastName = p.LastName
			u.Username = p.Username
			u.UpdatedAt = time.Now()
		}
		return u, false
	}

	now := time.Now()
	u := &models.User{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Username:  p.Username,
		State:     models.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sh.users[p.ID] = u
	return u, true
}

func (s *Store) Update(_ context.Context, id int64, fn func(*models.User)) (models.User, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	u, ok := sh.users[id]
	if !ok {
		return models.User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "user not found").WithUserID(id)
	}

	fn(u)
	u.UpdatedAt = time.Now()
	return *u, nil
}

// BeginPending holds the shard lock across the state check and the pending
// insert, so a concurrent decision for the same user can never interleave
// between them and leave an approved user with a live request.
func (s *Store) BeginPending(_ context.Context, p models.Profile) (models.User, bool) {
	sh := s.shardFor(p.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	u, _ := getOrCreateLocked(sh, p)
	if u.State != models.StatePending {
		return *u, false
	}
	if _, ok := sh.pending[p.ID]; ok {
		return *u, false
	}

	sh.pending[p.ID] = &models.PendingRequest{
		UserID:    p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Username:  p.Username,
		CreatedAt: time.Now(),
	}
	return *u, true
}

func (s *Store) TakePending(_ context.Context, id int64) (*models.PendingRequest, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	req, ok := sh.pending[id]
	if !ok {
		return nil, false
	}
	delete(sh.pending, id)
	return req, true
}

func (s *Store) HasPending(_ context.Context, id int64) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ok := sh.pending[id]
	return ok
}

var _ repository.UserRegistry = (*Store)(nil)
