package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"yonmai/core/domain/entity"
	"yonmai/core/domain/repository"
)

// MemoryMatchStore 单进程内存实现，用于测试和不依赖外部存储的单机部署
type MemoryMatchStore struct {
	mu      sync.RWMutex
	live    map[string]*entity.MatchRecord
	history map[string]*entity.MatchRecord
}

func NewMemoryMatchStore() *MemoryMatchStore {
	return &MemoryMatchStore{
		live:    make(map[string]*entity.MatchRecord),
		history: make(map[string]*entity.MatchRecord),
	}
}

func (s *MemoryMatchStore) Read(_ context.Context, id string) (*entity.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.live[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryMatchStore) WriteIfVersion(_ context.Context, record *entity.MatchRecord, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.live[record.ID]
	switch {
	case expectedVersion == 0 && exists:
		return repository.ErrVersionConflict
	case expectedVersion == 0:
		if _, archived := s.history[record.ID]; archived {
			return repository.ErrVersionConflict
		}
	case !exists || cur.Version != expectedVersion:
		return repository.ErrVersionConflict
	}

	record.Version = expectedVersion + 1
	record.Status = entity.MatchLive
	s.live[record.ID] = record.Clone()
	return nil
}

func (s *MemoryMatchStore) Archive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.live[id]
	if !ok {
		if _, done := s.history[id]; done {
			return nil
		}
		return repository.ErrNotFound
	}
	now := time.Now()
	archived := rec.Clone()
	archived.Status = entity.MatchArchived
	archived.ArchivedAt = &now
	s.history[id] = archived
	delete(s.live, id)
	return nil
}

func (s *MemoryMatchStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
	return nil
}

func (s *MemoryMatchStore) ListLive(_ context.Context) ([]*entity.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.MatchRecord, 0, len(s.live))
	for _, rec := range s.live {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryMatchStore) ReadArchived(_ context.Context, id string) (*entity.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.history[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.Clone(), nil
}
