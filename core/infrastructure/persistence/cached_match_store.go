package persistence

import (
	"context"

	"yonmai/common/cache"
	"yonmai/core/domain/entity"
	"yonmai/core/domain/repository"
)

// CachedMatchStore 在任意存储前加一层本地读缓存；写入成功后刷新，冲突时失效
type CachedMatchStore struct {
	inner repository.MatchStore
	cache *cache.GeneralCache
}

func NewCachedMatchStore(inner repository.MatchStore, c *cache.GeneralCache) *CachedMatchStore {
	return &CachedMatchStore{inner: inner, cache: c}
}

func cacheKey(id string) string {
	return "match:" + id
}

func recordCost(rec *entity.MatchRecord) int64 {
	return int64(len(rec.Snapshot)) + 256
}

func (s *CachedMatchStore) Read(ctx context.Context, id string) (*entity.MatchRecord, error) {
	if v, ok := s.cache.Get(cacheKey(id)); ok {
		if rec, ok := v.(*entity.MatchRecord); ok {
			return rec.Clone(), nil
		}
	}
	rec, err := s.inner.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey(id), rec.Clone(), recordCost(rec))
	return rec, nil
}

func (s *CachedMatchStore) WriteIfVersion(ctx context.Context, record *entity.MatchRecord, expectedVersion int64) error {
	key := cacheKey(record.ID)
	// 先删旧值，新值写入被丢弃时也不会读到过期版本
	s.cache.Delete(key)
	err := s.inner.WriteIfVersion(ctx, record, expectedVersion)
	if err != nil {
		return err
	}
	s.cache.Set(key, record.Clone(), recordCost(record))
	return nil
}

func (s *CachedMatchStore) Archive(ctx context.Context, id string) error {
	s.cache.Delete(cacheKey(id))
	return s.inner.Archive(ctx, id)
}

func (s *CachedMatchStore) Delete(ctx context.Context, id string) error {
	s.cache.Delete(cacheKey(id))
	return s.inner.Delete(ctx, id)
}

func (s *CachedMatchStore) ListLive(ctx context.Context) ([]*entity.MatchRecord, error) {
	return s.inner.ListLive(ctx)
}

func (s *CachedMatchStore) ReadArchived(ctx context.Context, id string) (*entity.MatchRecord, error) {
	return s.inner.ReadArchived(ctx, id)
}

var (
	_ repository.MatchStore = (*MemoryMatchStore)(nil)
	_ repository.MatchStore = (*MongoMatchStore)(nil)
	_ repository.MatchStore = (*RedisMatchStore)(nil)
	_ repository.MatchStore = (*PostgresMatchStore)(nil)
	_ repository.MatchStore = (*CachedMatchStore)(nil)
)

