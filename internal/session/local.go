package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sowfeehealth/wellness/internal/models"
)

// Storage is the keyed string store backing LocalStore. It models
// browser sessionStorage: scoped to one browsing session, surviving
// navigation within it, gone when the session ends.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
}

// MemoryStorage is the in-process Storage used for anonymous sessions.
// Concurrent tabs on the same template are last-write-wins; this is a
// convenience cache, not a system of record.
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: map[string]string{}}
}

func (m *MemoryStorage) GetItem(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *MemoryStorage) SetItem(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

func (m *MemoryStorage) RemoveItem(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// LocalStore keeps snapshots in session-local storage, keyed by
// template id within the kind's namespace.
type LocalStore struct {
	storage Storage
	kind    models.SnapshotKind
}

func NewLocalStore(storage Storage, kind models.SnapshotKind) *LocalStore {
	return &LocalStore{storage: storage, kind: kind}
}

func (s *LocalStore) key(templateID string) string {
	return fmt.Sprintf("wellness:autosave:%s:%s", s.kind, templateID)
}

func (s *LocalStore) Save(_ context.Context, templateID string, snap models.AutosaveSnapshot) error {
	snap.TemplateID = templateID
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.storage.SetItem(s.key(templateID), string(b))
	return nil
}

func (s *LocalStore) Load(_ context.Context, templateID string) (*models.AutosaveSnapshot, error) {
	raw, ok := s.storage.GetItem(s.key(templateID))
	if !ok {
		return nil, nil
	}
	var snap models.AutosaveSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt entry is unreadable forever; drop it so the session
		// starts clean instead of failing every restore.
		s.storage.RemoveItem(s.key(templateID))
		return nil, nil
	}
	return &snap, nil
}

func (s *LocalStore) Clear(ctx context.Context, templateID string) error {
	return clearVerified(ctx, s, templateID)
}

func (s *LocalStore) deleteOnce(_ context.Context, templateID string) error {
	s.storage.RemoveItem(s.key(templateID))
	return nil
}
