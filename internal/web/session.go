package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"assocal/internal/calview"
	"assocal/internal/modal"
	"assocal/internal/widget"
)

// command is one modal transition the page script has to apply.
type command struct {
	Op      string         `json:"op"` // "show" or "hide"
	Content *modal.Content `json:"content,omitempty"`
}

// pageRenderer queues modal transitions until the next API response.
type pageRenderer struct {
	pending []command
}

func (r *pageRenderer) Show(c modal.Content) {
	r.pending = append(r.pending, command{Op: "show", Content: &c})
}

func (r *pageRenderer) Hide() {
	r.pending = append(r.pending, command{Op: "hide"})
}

func (r *pageRenderer) drain() []command {
	out := r.pending
	r.pending = nil
	if out == nil {
		out = []command{}
	}
	return out
}

// pageEngine stands in for the browser calendar: it keeps the
// configuration for the page template and records refetch requests.
type pageEngine struct {
	cfg        calview.EngineConfig
	configured bool
	refetch    bool
}

func (e *pageEngine) Configure(cfg calview.EngineConfig) error {
	e.cfg = cfg
	e.configured = true
	return nil
}

func (e *pageEngine) RefetchEvents() {
	e.refetch = true
}

// takeRefetch reports and clears a pending refetch.
func (e *pageEngine) takeRefetch() bool {
	r := e.refetch
	e.refetch = false
	return r
}

// session is the widget state behind one rendered page.
type session struct {
	mu sync.Mutex

	id       string
	variant  string
	widget   *widget.Widget
	engine   *pageEngine
	renderer *pageRenderer
	lastUsed time.Time
}

// sessionStore holds live page sessions keyed by id.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (st *sessionStore) add(variant string, w *widget.Widget, e *pageEngine, r *pageRenderer) *session {
	s := &session{
		id:       uuid.NewString(),
		variant:  variant,
		widget:   w,
		engine:   e,
		renderer: r,
		lastUsed: st.now(),
	}
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	return s, ok
}

// with runs fn with the session locked and marks it as used.
func (st *sessionStore) with(id string, fn func(s *session)) bool {
	s, ok := st.get(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = st.now()
	fn(s)
	return true
}

// prune drops sessions idle for longer than ttl and returns how many went.
func (st *sessionStore) prune(ttl time.Duration) int {
	cutoff := st.now().Add(-ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
