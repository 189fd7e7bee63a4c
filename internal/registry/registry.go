// Package registry tracks live sessions by id.
package registry

import (
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/session"
)

type tombstone struct {
	sess      *session.Session
	retiredAt time.Time
}

// Registry is the concurrent map of live sessions. Finalized sessions are moved to a
// retired set so that their ids cannot be reused and their status remains queryable.
type Registry struct {
	live    *xsync.MapOf[string, *session.Session]
	retired *xsync.MapOf[string, tombstone]
	now     func() time.Time
}

func New() *Registry {
	return &Registry{
		live:    xsync.NewMapOf[string, *session.Session](),
		retired: xsync.NewMapOf[string, tombstone](),
		now:     time.Now,
	}
}

// Create registers s under its id. The id must not be live or retired.
func (r *Registry) Create(s *session.Session) error {
	conflict := false
	r.live.Compute(s.ID, func(old *session.Session, loaded bool) (*session.Session, bool) {
		if loaded {
			conflict = true
			return old, false
		}
		if _, ok := r.retired.Load(s.ID); ok {
			conflict = true
			return nil, true
		}
		return s, false
	})
	if conflict {
		return fmt.Errorf("%w: session %s already exists", domain.ErrConflict, s.ID)
	}
	return nil
}

// Get returns a live session.
func (r *Registry) Get(id string) (*session.Session, error) {
	s, ok := r.live.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return s, nil
}

// Lookup returns a session whether it is live or retired.
func (r *Registry) Lookup(id string) (*session.Session, error) {
	if s, ok := r.live.Load(id); ok {
		return s, nil
	}
	if t, ok := r.retired.Load(id); ok {
		return t.sess, nil
	}
	return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
}

// Retire removes a session from the live set and keeps a tombstone for it.
func (r *Registry) Retire(id string) {
	s, ok := r.live.Load(id)
	if !ok {
		return
	}
	// Tombstone goes in first so Create never sees the id free.
	r.retired.Store(id, tombstone{sess: s, retiredAt: r.now()})
	r.live.Delete(id)
}

// Range calls fn for every live session until fn returns false.
func (r *Registry) Range(fn func(s *session.Session) bool) {
	r.live.Range(func(_ string, s *session.Session) bool {
		return fn(s)
	})
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return r.live.Size()
}

// EvictRetired drops tombstones older than ttl and returns how many were removed.
func (r *Registry) EvictRetired(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	evicted := 0
	r.retired.Range(func(id string, t tombstone) bool {
		if t.retiredAt.Before(cutoff) {
			r.retired.Delete(id)
			evicted++
		}
		return true
	})
	return evicted
}
