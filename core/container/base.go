package container

import (
	"context"
	"fmt"

	"yonmai/common/config"
	"yonmai/common/database"
	"yonmai/common/log"
)

// BaseContainer 管理数据库连接，只打开存储后端需要的那一个
type BaseContainer struct {
	mongo    *database.MongoManager
	redis    *database.RedisManager
	postgres *database.PostgresManager
}

func NewBase(ctx context.Context, conf config.DatabaseConf, backend string) (*BaseContainer, error) {
	base := &BaseContainer{}
	var err error
	switch backend {
	case "mongo":
		base.mongo, err = database.NewMongo(conf.MongoConf)
	case "redis":
		base.redis, err = database.NewRedis(conf.RedisConf)
	case "postgres":
		base.postgres, err = database.NewPostgres(ctx, conf.PostgresConf)
	case "memory", "":
		log.Warn("使用内存存储，进程重启后对局丢失")
		return base, nil
	default:
		return nil, fmt.Errorf("未知的存储后端: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s 数据库初始化失败: %w", backend, err)
	}
	log.Info("%s 数据库服务启动成功", backend)
	return base, nil
}

func (c *BaseContainer) GetMongo() *database.MongoManager {
	return c.mongo
}

func (c *BaseContainer) GetRedis() *database.RedisManager {
	return c.redis
}

func (c *BaseContainer) GetPostgres() *database.PostgresManager {
	return c.postgres
}

// Close 关闭所有已打开的连接
func (c *BaseContainer) Close() error {
	var first error
	if c.mongo != nil {
		if err := c.mongo.Close(); err != nil {
			log.Error("mongo 关闭失败: %v", err)
			first = err
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Error("redis 关闭失败: %v", err)
			if first == nil {
				first = err
			}
		}
	}
	if c.postgres != nil {
		_ = c.postgres.Close()
	}
	return first
}
