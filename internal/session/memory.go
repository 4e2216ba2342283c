package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore — реестр сессий в памяти процесса для запуска без
// redis. Семантика та же: набор соединений на пользователя со
// скользящим окном в SessionTTL.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	connections map[string]bool
	expiresAt   time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) AddSession(_ context.Context, userID, connectionID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		entry = &memoryEntry{connections: make(map[string]bool)}
		s.entries[userID] = entry
	}

	entry.connections[connectionID] = true
	entry.expiresAt = time.Now().Add(SessionTTL)

	return int64(len(entry.connections))
}

func (s *MemoryStore) RemoveSession(_ context.Context, userID, connectionID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return 0
	}

	delete(entry.connections, connectionID)
	if len(entry.connections) == 0 {
		delete(s.entries, userID)
		return 0
	}

	return int64(len(entry.connections))
}

func (s *MemoryStore) SessionCount(_ context.Context, userID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		return 0
	}
	return int64(len(entry.connections))
}

func (s *MemoryStore) IsOnline(ctx context.Context, userID string) bool {
	return s.SessionCount(ctx, userID) > 0
}
