// Package session persists append-only conversation logs, one JSON record
// per session.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// Store owns the sessions directory. Appends are guarded by a per-session
// lock so concurrent appends within this process cannot lose messages; the
// record write itself is a full rewrite, so cross-process writers remain
// last-writer-wins.
type Store struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a session store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With(zap.String("component", "session_store")),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Create allocates a fresh session id, persists an empty record, and
// returns the id.
func (s *Store) Create() (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := s.CreateWithID(id); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID creates an empty record under the given id. Idempotent:
// an existing record is left untouched so caller-supplied ids never
// clobber history.
func (s *Store) CreateWithID(id string) (string, error) {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	if _, err := os.Stat(s.path(id)); err == nil {
		return id, nil
	}

	sess := &types.Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Messages:  []types.Message{},
	}
	if err := s.write(sess); err != nil {
		return "", err
	}
	return id, nil
}

// Load returns the session record for id, or types.ErrSessionNotFound.
func (s *Store) Load(id string) (*types.Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewError(types.ErrSessionNotFound, fmt.Sprintf("session %s not found", id))
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Append adds one message to the session and rewrites the full record. A
// missing session is recreated first, which heals stale client-supplied
// ids instead of failing the request.
func (s *Store) Append(id string, role types.Role, text string, meta map[string]any) error {
	if _, err := os.Stat(s.path(id)); os.IsNotExist(err) {
		s.logger.Warn("append to unknown session, creating it", zap.String("session_id", id))
		if _, err := s.CreateWithID(id); err != nil {
			return err
		}
	}

	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	sess, err := s.Load(id)
	if err != nil {
		return err
	}

	sess.Messages = append(sess.Messages, types.NewMessage(role, text, meta))
	return s.write(sess)
}

func (s *Store) write(sess *types.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := os.WriteFile(s.path(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}
