package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"yonmai/common/config"
	"yonmai/common/log"
)

type PostgresManager struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, conf config.PostgresConf) (*PostgresManager, error) {
	poolConfig, err := pgxpool.ParseConfig(conf.Dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn 解析失败: %w", err)
	}
	if conf.MaxConns > 0 {
		poolConfig.MaxConns = conf.MaxConns
	}
	if conf.MinConns > 0 {
		poolConfig.MinConns = conf.MinConns
	}
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres 连接错误: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres Ping 错误: %w", err)
	}
	log.Info("postgres 已连接 maxConns=%d", poolConfig.MaxConns)
	return &PostgresManager{Pool: pool}, nil
}

func (p *PostgresManager) Close() error {
	if p == nil || p.Pool == nil {
		return nil
	}
	p.Pool.Close()
	return nil
}
