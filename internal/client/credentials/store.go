// Package credentials persists the dealer session between runs.
//
// The session is one JSON document stored under SessionKey in the local
// metadata table, optionally sealed with a passphrase (see cryptox). Stores
// are safe for concurrent use.
package credentials

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
)

const (
	// SessionKey is the metadata key the serialized session lives under.
	SessionKey = "session"
	// LastUsernameKey remembers the last login name; it survives Clear.
	LastUsernameKey = "last_username"
)

var ErrNilSession = errors.New("nil session")

// Store is the credential store. Load returns (nil, nil) when nobody is
// logged in. Returned sessions are copies.
type Store interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu      sync.Mutex
	session *models.Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(initial *models.Session) *MemoryStore {
	return &MemoryStore{session: initial.Clone()}
}

func (m *MemoryStore) Load(context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	if s == nil {
		return ErrNilSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s.Clone()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
