// Package session implements the per-user conversation state machine:
// which hotel context is active, the session-scoped conversation
// memory, and the routing of inbound turns to the model, the catalog
// list, or the manual-mode placeholder.
package session

import (
	"sync"
	"time"

	"github.com/hoteldesk/conciergebot/internal/conversation"
)

// Session is the per-user conversation state: the currently selected
// hotel (empty means no context selected, awaiting hotel choice) and
// the user's own conversation engine.
//
// The embedded mutex serializes turns for one user so their messages
// are processed strictly in arrival order; distinct users never contend.
type Session struct {
	mu sync.Mutex

	Username   string
	Hotel      string
	Engine     *conversation.Engine
	LastActive time.Time

	// rehydrated is set once history-based reconstruction has run, so a
	// user with no persisted context isn't re-queried on every turn.
	rehydrated bool
}

// Registry holds all live sessions keyed by user identifier. Lookups
// for different users proceed in parallel; only map access itself is
// guarded.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	client   conversation.ModelClient
}

// NewRegistry creates an empty session registry bound to a model client.
func NewRegistry(client conversation.ModelClient) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		client:   client,
	}
}

// GetOrCreate returns the session for a user, creating an empty one
// (no hotel selected) on first sight.
func (r *Registry) GetOrCreate(username string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[username]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[username]; ok {
		return s
	}
	s = &Session{
		Username: username,
		Engine:   conversation.NewEngine(r.client),
	}
	r.sessions[username] = s
	return s
}

// Acquire returns the user's session with its lock held. Membership is
// rechecked after locking: a sweep that evicted the session between
// lookup and lock would otherwise strand the turn on a detached session
// while the next message mints a second one.
func (r *Registry) Acquire(username string) *Session {
	for {
		s := r.GetOrCreate(username)
		s.mu.Lock()
		r.mu.RLock()
		current := r.sessions[username]
		r.mu.RUnlock()
		if current == s {
			return s
		}
		s.mu.Unlock()
	}
}

// HasModel reports whether a model client is bound. Turns that would
// need the model are rejected up front when it is absent.
func (r *Registry) HasModel() bool {
	return r.client != nil
}

// Peek returns the session for a user without creating one.
func (r *Registry) Peek(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[username]
	return s, ok
}

// Remove drops a user's session entirely. The next turn starts from a
// fresh NO_CONTEXT session (history-based rehydration will then see the
// reset entry and find no active hotel).
func (r *Registry) Remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, username)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepIdle evicts sessions whose last activity is older than maxIdle
// and returns how many were removed. Evicted users lose only in-memory
// state; their context is rebuilt from history on their next message.
//
// LastActive is written under the per-session mutex, so the sweep takes
// that mutex too. A session whose lock is held has a turn in flight and
// is skipped outright; evicting it would let the next message mint a
// second live session for the same user.
func (r *Registry) SweepIdle(maxIdle time.Duration, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for username, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		idle := !s.LastActive.IsZero() && now.Sub(s.LastActive) > maxIdle
		s.mu.Unlock()
		if idle {
			delete(r.sessions, username)
			removed++
		}
	}
	return removed
}
