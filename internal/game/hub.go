package game

import (
	"context"
	"log/slog"
	"sync"
)

// SessionFactory builds a session for id starting from st.
type SessionFactory func(id string, st State) *Session

// Hub owns the running sessions of a server process. Each open session has
// its scheduler running on its own goroutine until Close.
type Hub struct {
	log     *slog.Logger
	factory SessionFactory

	mu       sync.Mutex
	sessions map[string]*hubEntry
}

type hubEntry struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(logger *slog.Logger, factory SessionFactory) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:      logger,
		factory:  factory,
		sessions: make(map[string]*hubEntry),
	}
}

// Open starts a session. If id is already running the existing session is
// returned and st is ignored.
func (h *Hub) Open(id string, st State) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.sessions[id]; ok {
		return e.session
	}
	sess := h.factory(id, st)
	ctx, cancel := context.WithCancel(context.Background())
	e := &hubEntry{session: sess, cancel: cancel, done: make(chan struct{})}
	h.sessions[id] = e
	go func() {
		defer close(e.done)
		if err := sess.Run(ctx); err != nil {
			h.log.Error("session scheduler stopped", "session_id", id, "err", err)
		}
	}()
	h.log.Info("session opened", "session_id", id)
	return sess
}

func (h *Hub) Get(id string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Close stops the session's timers, waits for them to drain and returns
// the final state.
func (h *Hub) Close(id string) (State, error) {
	h.mu.Lock()
	e, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if !ok {
		return State{}, ErrSessionNotFound
	}
	e.cancel()
	<-e.done
	h.log.Info("session closed", "session_id", id)
	return e.session.Store().State(), nil
}

// CloseAll stops every session and returns their final states by id.
func (h *Hub) CloseAll() map[string]State {
	h.mu.Lock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	out := make(map[string]State, len(ids))
	for _, id := range ids {
		st, err := h.Close(id)
		if err != nil {
			continue
		}
		out[id] = st
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Snapshot returns the current state of every open session without
// stopping any of them.
func (h *Hub) Snapshot() map[string]State {
	h.mu.Lock()
	entries := make(map[string]*Session, len(h.sessions))
	for id, e := range h.sessions {
		entries[id] = e.session
	}
	h.mu.Unlock()

	out := make(map[string]State, len(entries))
	for id, sess := range entries {
		out[id] = sess.Store().State()
	}
	return out
}
