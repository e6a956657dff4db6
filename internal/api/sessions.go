package api

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
)

var (
	// ErrMatchNotFound is returned for unknown or deleted session ids.
	ErrMatchNotFound = errors.New("match not found")
	// ErrSessionLimit is returned when the registry is full.
	ErrSessionLimit = errors.New("too many active matches")
	// ErrChaosPending is returned when a new play is submitted while the
	// previous one still waits for its chaos die.
	ErrChaosPending = errors.New("previous play is waiting for a d20")
	// ErrNoChaosPending is returned when a d20 arrives with nothing to complete.
	ErrNoChaosPending = errors.New("no play is waiting for a d20")
)

// Session owns the single committed state of one match. The committed state is
// only replaced by a fully resolved play; a play waiting on chaos keeps its dice
// here until the d20 arrives.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu      sync.Mutex
	state   match.State
	pending *play.Dice
	plays   int
}

// SessionSnapshot is a consistent copy of a session.
type SessionSnapshot struct {
	ID        uuid.UUID
	CreatedAt time.Time
	State     match.State
	Pending   *play.Dice
	Plays     int
}

// Phase reports whether the session waits on a chaos die.
func (s SessionSnapshot) Phase() play.Phase {
	if s.Pending != nil {
		return play.PhaseAwaitingChaos
	}
	return play.PhaseResolved
}

// Snapshot copies the session under its lock.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SessionSnapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		State:     s.state.Clone(),
		Plays:     s.plays,
	}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	return snap
}

// Play resolves dice against the committed state. When the resolver asks for
// chaos the dice are parked and the committed state is left alone.
func (s *Session) Play(r play.Resolver, dice play.Dice) (play.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return play.Result{}, ErrChaosPending
	}
	res, err := r.Resolve(s.state, dice)
	if err != nil {
		return play.Result{}, err
	}
	if res.ChaosPending() {
		parked := dice
		parked.D20 = nil
		s.pending = &parked
		return res, nil
	}
	s.commit(res)
	return res, nil
}

// Chaos completes the parked play with its d20, resubmitting the same
// committed state and dice.
func (s *Session) Chaos(r play.Resolver, d20 int) (play.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return play.Result{}, ErrNoChaosPending
	}
	res, err := r.Resolve(s.state, s.pending.WithD20(d20))
	if err != nil {
		return play.Result{}, err
	}
	s.pending = nil
	s.commit(res)
	return res, nil
}

func (s *Session) commit(res play.Result) {
	s.state = res.State
	s.plays++
}

// Registry holds the live sessions of the host.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	max      int
	now      func() time.Time
}

// NewRegistry creates a registry holding at most max sessions.
func NewRegistry(max int) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		max:      max,
		now:      time.Now,
	}
}

// Create registers a new session starting from state.
func (r *Registry) Create(state match.State) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, ErrSessionLimit
	}
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: r.now().UTC(),
		state:     state,
	}
	r.sessions[s.ID] = s
	return s, nil
}

// Get looks a session up by id.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return s, nil
}

// Delete drops a session.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrMatchNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns snapshots of every session, oldest first.
func (r *Registry) List() []SessionSnapshot {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
