package session

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session_not_found")

// Session is the per-user mutable state. CurrentModuleID is empty once the
// questionnaire reached a terminal result.
type Session struct {
	ID              string         `json:"id"`
	Answers         map[string]any `json:"answers"`
	Parameters      map[string]any `json:"parameters"`
	CurrentModuleID string         `json:"current_module_id"`
	Lang            string         `json:"lang"`
	Conclusion      map[string]any `json:"conclusion,omitempty"`
}

// NewSession creates a session positioned at the given module.
func NewSession(firstModuleID, lang string) *Session {
	return &Session{
		ID:              newSessionID(),
		Answers:         make(map[string]any),
		Parameters:      make(map[string]any),
		CurrentModuleID: firstModuleID,
		Lang:            lang,
	}
}

// normalize backfills maps after deserialisation so callers never index a
// nil map.
func (s *Session) normalize() {
	if s.Answers == nil {
		s.Answers = make(map[string]any)
	}
	if s.Parameters == nil {
		s.Parameters = make(map[string]any)
	}
}

func newSessionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Store is the session lifecycle interface. Get refreshes the session's
// TTL; Save persists with last-writer-wins semantics.
type Store interface {
	Create(ctx context.Context, firstModuleID, lang string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Close() error
}
