package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/render"
)

// Manager owns the open sessions.
type Manager struct {
	log       *slog.Logger
	renderer  *render.Renderer
	minScreen float64
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(log *slog.Logger, renderer *render.Renderer, minScreen float64) *Manager {
	return &Manager{
		log:       log,
		renderer:  renderer,
		minScreen: minScreen,
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Open starts a fresh session for a document with the given page count.
// Sessions never share state, so reopening a document starts clean.
func (m *Manager) Open(docID uuid.UUID, pages int) *Session {
	s := newSession(m.log, docID, pages, m.renderer, m.minScreen, m.now)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.log.Info("session opened", "session_id", s.ID, "document_id", docID, "pages", pages)
	return s
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session and releases its state.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	m.log.Info("session closed", "session_id", id)
	return nil
}

// CloseDocument ends every session viewing docID.
func (m *Manager) CloseDocument(docID uuid.UUID) int {
	m.mu.Lock()
	var closing []*Session
	for id, s := range m.sessions {
		if s.DocumentID == docID {
			closing = append(closing, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range closing {
		s.close()
	}
	return len(closing)
}

// Reap closes sessions idle for longer than idle and returns how many.
func (m *Manager) Reap(now time.Time, idle time.Duration) int {
	m.mu.RLock()
	var stale []uuid.UUID
	for id, s := range m.sessions {
		if now.Sub(s.LastUsed()) > idle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range stale {
		if m.Close(id) == nil {
			closed++
		}
	}
	if closed > 0 {
		m.log.Info("idle sessions reaped", "count", closed, "idle", idle)
	}
	return closed
}

// RunReaper reaps idle sessions every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			m.Reap(t, idle)
		}
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
