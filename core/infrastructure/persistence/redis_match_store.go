package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"yonmai/common/database"
	"yonmai/common/log"
	"yonmai/core/domain/entity"
	"yonmai/core/domain/repository"
)

// 所有键共享一个 hash tag，保证集群模式下脚本涉及的键落在同一个槽
const (
	redisLiveSet       = "{yonmai}:matches:live"
	redisLivePrefix    = "{yonmai}:match:live:"
	redisHistoryPrefix = "{yonmai}:match:history:"
)

// KEYS[1] 记录  KEYS[2] 进行中集合  KEYS[3] 历史记录
// ARGV[1] 期望版本  ARGV[2] 新记录 JSON  ARGV[3] 对局 id
const casScript = `
local cur = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[1])
if cur == false then
  if expected ~= 0 or redis.call('EXISTS', KEYS[3]) == 1 then
    return 0
  end
else
  local v = tonumber(cjson.decode(cur)['version'])
  if v ~= expected then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
return 1
`

// KEYS[1] 记录  KEYS[2] 历史记录  KEYS[3] 进行中集合
// ARGV[1] 归档后的 JSON  ARGV[2] 对局 id
const archiveScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return redis.call('EXISTS', KEYS[2])
end
redis.call('SET', KEYS[2], ARGV[1])
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[3], ARGV[2])
return 1
`

// RedisMatchStore 记录以 JSON 存储，版本校验放在 Lua 脚本里原子完成
type RedisMatchStore struct {
	redis *database.RedisManager
}

func NewRedisMatchStore(redis *database.RedisManager) *RedisMatchStore {
	return &RedisMatchStore{redis: redis}
}

func (r *RedisMatchStore) Read(ctx context.Context, id string) (*entity.MatchRecord, error) {
	return r.get(ctx, redisLivePrefix+id)
}

func (r *RedisMatchStore) ReadArchived(ctx context.Context, id string) (*entity.MatchRecord, error) {
	return r.get(ctx, redisHistoryPrefix+id)
}

func (r *RedisMatchStore) get(ctx context.Context, key string) (*entity.MatchRecord, error) {
	raw, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		log.Error("读取对局失败 key=%s: %v", key, err)
		return nil, err
	}
	var rec entity.MatchRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("对局记录解析失败 key=%s: %w", key, err)
	}
	return &rec, nil
}

func (r *RedisMatchStore) WriteIfVersion(ctx context.Context, record *entity.MatchRecord, expectedVersion int64) error {
	next := record.Clone()
	next.Version = expectedVersion + 1
	next.Status = entity.MatchLive
	payload, err := json.Marshal(next)
	if err != nil {
		return err
	}

	keys := []string{redisLivePrefix + record.ID, redisLiveSet, redisHistoryPrefix + record.ID}
	res, err := r.redis.EvalScript(ctx, "match_cas", casScript, keys, expectedVersion, payload, record.ID)
	if err != nil {
		log.Error("写入对局失败 id=%s: %v", record.ID, err)
		return err
	}
	if ok, _ := res.(int64); ok != 1 {
		return repository.ErrVersionConflict
	}
	record.Version, record.Status = next.Version, next.Status
	return nil
}

func (r *RedisMatchStore) Archive(ctx context.Context, id string) error {
	rec, err := r.Read(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		if _, herr := r.ReadArchived(ctx, id); herr == nil {
			return nil
		}
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now()
	rec.Status = entity.MatchArchived
	rec.ArchivedAt = &now
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	keys := []string{redisLivePrefix + id, redisHistoryPrefix + id, redisLiveSet}
	res, err := r.redis.EvalScript(ctx, "match_archive", archiveScript, keys, payload, id)
	if err != nil {
		log.Error("归档对局失败 id=%s: %v", id, err)
		return err
	}
	if ok, _ := res.(int64); ok != 1 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RedisMatchStore) Delete(ctx context.Context, id string) error {
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	_, err = cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisLivePrefix+id)
		pipe.SRem(ctx, redisLiveSet, id)
		return nil
	})
	if err != nil {
		log.Error("删除对局失败 id=%s: %v", id, err)
	}
	return err
}

func (r *RedisMatchStore) ListLive(ctx context.Context) ([]*entity.MatchRecord, error) {
	cli, err := r.redis.GetClient()
	if err != nil {
		return nil, err
	}
	ids, err := cli.SMembers(ctx, redisLiveSet).Result()
	if err != nil {
		log.Error("列出进行中对局失败: %v", err)
		return nil, err
	}
	out := make([]*entity.MatchRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Read(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			// 集合与记录之间可能残留已删除的 id
			cli.SRem(ctx, redisLiveSet, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
