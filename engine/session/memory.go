package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. A janitor goroutine wakes
// every cleanup interval and drops sessions idle longer than the TTL. The
// mutex covers map operations only; callers mutate session objects outside
// the lock (last-writer-wins).
type MemoryStore struct {
	ttl             time.Duration
	cleanupInterval time.Duration

	mu         sync.Mutex
	sessions   map[string]*Session
	lastAccess map[string]time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryStore creates the store and starts its janitor.
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		sessions:        make(map[string]*Session),
		lastAccess:      make(map[string]time.Time),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	defer close(s.done)
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, last := range s.lastAccess {
		if now.Sub(last) > s.ttl {
			delete(s.sessions, id)
			delete(s.lastAccess, id)
		}
	}
}

func (s *MemoryStore) Create(_ context.Context, firstModuleID, lang string) (*Session, error) {
	session := NewSession(firstModuleID, lang)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.lastAccess[session.ID] = time.Now()
	return session, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastAccess[id] = time.Now()
	return session, nil
}

func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.lastAccess[session.ID] = time.Now()
	return nil
}

// Close stops the janitor. Stored sessions stay readable until the process
// exits.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}
