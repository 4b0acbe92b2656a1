package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"yonmai/common/config"
	"yonmai/common/log"
)

// RedisManager 单机与集群统一为 UniversalClient；集群模式下对局的 key 共用 {yonmai} 哈希槽
type RedisManager struct {
	Cli     redis.UniversalClient
	mu      sync.Mutex
	scripts map[string]*redis.Script
}

func NewRedis(redisConf config.RedisConf) (*RedisManager, error) {
	addrs := redisConf.ClusterAddrs
	if len(addrs) == 0 {
		switch {
		case redisConf.Addr != "":
			addrs = []string{redisConf.Addr}
		case redisConf.Host != "" && redisConf.Port > 0:
			addrs = []string{fmt.Sprintf("%s:%d", redisConf.Host, redisConf.Port)}
		default:
			return nil, errors.New("redis 配置出错: 缺少地址")
		}
	}

	var cli redis.UniversalClient
	// 配置了集群地址时即使只有一个也按集群连接
	if len(redisConf.ClusterAddrs) > 0 {
		cli = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        addrs,
			Password:     redisConf.Password,
			PoolSize:     redisConf.PoolSize,
			MinIdleConns: redisConf.MinIdleConns,
		})
	} else {
		cli = redis.NewClient(&redis.Options{
			Addr:         addrs[0],
			Password:     redisConf.Password,
			PoolSize:     redisConf.PoolSize,
			MinIdleConns: redisConf.MinIdleConns,
		})
	}
	m := NewRedisWithClient(cli)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Cli.Ping(ctx).Err(); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("redis 连接错误: %w", err)
	}
	log.Info("redis 已连接 addrs=%v cluster=%v", addrs, len(redisConf.ClusterAddrs) > 0)
	return m, nil
}

// NewRedisWithClient 复用已有客户端
func NewRedisWithClient(cli redis.UniversalClient) *RedisManager {
	return &RedisManager{Cli: cli, scripts: make(map[string]*redis.Script)}
}

func (r *RedisManager) GetClient() (redis.Cmdable, error) {
	if r == nil || r.Cli == nil {
		return nil, errors.New("redis 客户端未初始化")
	}
	return r.Cli, nil
}

func (r *RedisManager) Get(ctx context.Context, key string) *redis.StringCmd {
	return r.Cli.Get(ctx, key)
}

// EvalScript 按名字缓存脚本；先 EVALSHA，服务端脚本缓存丢失时自动回退为 EVAL
func (r *RedisManager) EvalScript(ctx context.Context, scriptName, script string, keys []string, args ...any) (any, error) {
	if r == nil || r.Cli == nil {
		return nil, errors.New("redis 客户端未初始化")
	}
	r.mu.Lock()
	s, ok := r.scripts[scriptName]
	if !ok {
		s = redis.NewScript(script)
		r.scripts[scriptName] = s
	}
	r.mu.Unlock()
	return s.Run(ctx, r.Cli, keys, args...).Result()
}

func (r *RedisManager) Close() error {
	if r == nil || r.Cli == nil {
		return nil
	}
	if err := r.Cli.Close(); err != nil {
		log.Error("redis 关闭出错: %v", err)
		return err
	}
	return nil
}
