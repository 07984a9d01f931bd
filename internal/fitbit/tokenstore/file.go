package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// FileStore keeps the whole mapping in memory and mirrors it into a single
// JSON document on every mutation. The file is overwritten wholesale, so
// concurrent processes writing the same file race with last-save-wins over
// the entire document. Known limitation, fine for single-process deployment.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	tokens map[string]TokenRecord
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		tokens: make(map[string]TokenRecord),
	}
}

func (s *FileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("tokens file [%s] not found, starting with empty store", s.path)
			s.tokens = make(map[string]TokenRecord)
			return nil
		}
		return fmt.Errorf("read tokens file: %w", err)
	}

	tokens := make(map[string]TokenRecord)
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return fmt.Errorf("unmarshal tokens file: %w", err)
	}

	for userID, record := range tokens {
		record.UserID = userID
		tokens[userID] = record
	}
	s.tokens = tokens

	log.Debugf("loaded %d token record(s) from [%s]", len(s.tokens), s.path)

	return nil
}

func (s *FileStore) Save(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save()
}

// save expects the lock to be held by the caller.
func (s *FileStore) save() error {
	raw, err := json.Marshal(s.tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write tokens file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, userID string) (TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tokens[userID]
	if !ok {
		return TokenRecord{}, ErrUnknownUser
	}
	record.UserID = userID
	return record, nil
}

func (s *FileStore) Put(_ context.Context, record TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[record.UserID] = record
	return s.save()
}

func (s *FileStore) All(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userIDs := make([]string, 0, len(s.tokens))
	for userID := range s.tokens {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	return userIDs, nil
}
