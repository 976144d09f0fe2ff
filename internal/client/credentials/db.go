package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dealerclient/internal/cryptox"
	"github.com/dmitrijs2005/dealerclient/internal/dbx"
)

// DBStore keeps the session in the metadata table and caches it in memory
// after the first Load.
type DBStore struct {
	db         *sql.DB
	passphrase []byte

	mu     sync.Mutex
	loaded bool
	cached *models.Session
}

var _ Store = (*DBStore)(nil)

// NewDBStore returns a store over db. When passphrase is non-empty the
// session is sealed before it is written.
func NewDBStore(db *sql.DB, passphrase []byte) *DBStore {
	return &DBStore{db: db, passphrase: passphrase}
}

func (s *DBStore) Load(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.cached.Clone(), nil
	}

	raw, err := metadata.NewSQLiteRepository(s.db).Get(ctx, SessionKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		s.loaded, s.cached = true, nil
		return nil, nil
	}

	session, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	s.loaded, s.cached = true, session
	return session.Clone(), nil
}

// Save writes the session and remembers its display name as the last used
// login in one transaction.
func (s *DBStore) Save(ctx context.Context, session *models.Session) error {
	if session == nil {
		return ErrNilSession
	}

	raw, err := s.encode(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, SessionKey, raw); err != nil {
			return err
		}
		if session.DisplayName != "" {
			return repo.Set(ctx, LastUsernameKey, []byte(session.DisplayName))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.loaded, s.cached = true, session.Clone()
	return nil
}

func (s *DBStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded, s.cached = true, nil
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// LastUsername returns the login name of the most recent session, if any.
func (s *DBStore) LastUsername(ctx context.Context) (string, error) {
	raw, err := metadata.NewSQLiteRepository(s.db).Get(ctx, LastUsernameKey)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *DBStore) encode(session *models.Session) ([]byte, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if len(s.passphrase) == 0 {
		return raw, nil
	}
	sealed, err := cryptox.Seal(s.passphrase, raw)
	if err != nil {
		return nil, fmt.Errorf("seal session: %w", err)
	}
	return sealed, nil
}

func (s *DBStore) decode(raw []byte) (*models.Session, error) {
	if len(s.passphrase) > 0 {
		opened, err := cryptox.Open(s.passphrase, raw)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		raw = opened
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
