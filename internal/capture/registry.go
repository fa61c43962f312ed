package capture

import (
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("scan session not found")

// Registry holds the open sessions of a server process, keyed by session ID.
type Registry struct {
	extractor Extractor
	sink      Sink
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(extractor Extractor, sink Sink, logger *slog.Logger) *Registry {
	return &Registry{
		extractor: extractor,
		sink:      sink,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Start opens a new session for ownerID.
func (r *Registry) Start(ownerID string) *Session {
	s := NewSession(ownerID, r.extractor, r.sink, r.logger)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	r.logger.Debug("scan session started", "session_id", s.ID(), "owner_id", ownerID)
	return s
}

// Get returns the session with id if it belongs to ownerID.
func (r *Registry) Get(id, ownerID string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok || s.OwnerID() != ownerID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End discards the session and everything it holds.
func (r *Registry) End(id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.OwnerID() != ownerID {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Prune drops sessions idle for longer than maxIdle and returns how many were
// removed. Sessions mid-extraction are kept. Session state is read without
// holding the registry lock, so a slow confirm never blocks Get or Start.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	snapshot := make(map[string]*Session, len(r.sessions))
	maps.Copy(snapshot, r.sessions)
	r.mu.Unlock()

	var stale []string
	for id, s := range snapshot {
		if _, busy := s.State().(Processing); busy {
			continue
		}
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for _, id := range stale {
		// Skip ids that were ended or replaced while the lock was released.
		if r.sessions[id] != snapshot[id] {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}
