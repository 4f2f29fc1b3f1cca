package dashboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

// DefaultSessionTTL bounds how long an untouched session is kept.
const DefaultSessionTTL = 12 * time.Hour

// Sessions maps browser session ids to their workflows.
type Sessions struct {
	deps  Deps
	ids   audit.IDGenerator
	clock audit.Clock
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]*session
}

type session struct {
	workflow *Workflow
	lastSeen time.Time
}

// NewSessions builds a registry whose workflows share deps.
func NewSessions(deps Deps, ids audit.IDGenerator, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	wf := NewWorkflow(deps)
	return &Sessions{
		deps:    wf.deps,
		ids:     ids,
		clock:   wf.deps.Clock,
		ttl:     ttl,
		entries: make(map[string]*session),
	}
}

// Get returns the workflow for id and marks it as used.
func (s *Sessions) Get(id string) (*Workflow, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	now := s.clock.Now()
	if now.Sub(entry.lastSeen) > s.ttl {
		delete(s.entries, id)
		return nil, false
	}
	entry.lastSeen = now
	return entry.workflow, true
}

// Create registers a fresh workflow and prunes expired sessions.
func (s *Sessions) Create() (string, *Workflow, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return "", nil, fmt.Errorf("generate session id: %w", err)
	}
	wf := NewWorkflow(s.deps)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for key, entry := range s.entries {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.entries, key)
		}
	}
	s.entries[id] = &session{workflow: wf, lastSeen: now}
	return id, wf, nil
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
