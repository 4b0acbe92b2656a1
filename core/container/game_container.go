package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"yonmai/common/cache"
	"yonmai/common/config"
	"yonmai/common/discovery"
	"yonmai/common/http"
	"yonmai/common/log"
	"yonmai/core/domain/repository"
	"yonmai/core/infrastructure/message/node"
	"yonmai/core/infrastructure/persistence"
	"yonmai/game/api"
	"yonmai/runtime/conn"
	"yonmai/runtime/game"
	"yonmai/runtime/game/application/service"
	"yonmai/runtime/game/application/service/impl"
	"yonmai/runtime/game/engines/mahjong"
)

// GameContainer game 节点的全部依赖
type GameContainer struct {
	*BaseContainer
	Conf         *config.GameConfiguration
	Engine       *mahjong.Engine
	Store        repository.MatchStore
	Broadcaster  node.Broadcaster
	Matches      *game.MatchRegistry
	MatchService service.MatchService
	GameWorker   *game.Worker
	Gateway      *conn.Worker
	HttpServer   *http.HttpServer

	cache  *cache.GeneralCache
	seeker *discovery.Seeker
	closed bool
	mu     sync.Mutex
}

func NewGameContainer(ctx context.Context, conf *config.GameConfiguration) (*GameContainer, error) {
	base, err := NewBase(ctx, conf.DatabaseConf, conf.StoreConf.Backend)
	if err != nil {
		return nil, err
	}
	c := &GameContainer{BaseContainer: base, Conf: conf}

	if err := c.buildStore(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.buildBroadcaster(); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Engine = mahjong.NewEngine(EngineTiming(conf.TimingConf), uint64(time.Now().UnixNano()))
	c.Matches = game.NewMatchRegistry(c.Engine, c.Store, c.Broadcaster, EngineRule(conf.RuleConf), game.Options{
		MailboxSize:  conf.StoreConf.MailboxSize,
		SaveTimeout:  config.Millis(conf.StoreConf.SaveTimeout),
		ArchiveRetry: config.Seconds(conf.StoreConf.ArchiveRetry),
	})
	c.MatchService = impl.NewMatchService(c.Matches)
	c.GameWorker = game.NewWorker(conf.ID, c.Matches, config.Seconds(conf.StoreConf.MonitorPeriod))
	c.Gateway = conn.NewWorker(conf.ID, conf.WsConf, conf.JwtConf.Secret, c.MatchService, c.Broadcaster)

	// 未配置 etcd 时 /nodes 接口不可用
	var lister api.ServerLister
	if len(conf.EtcdConf.Addrs) > 0 {
		c.seeker, err = discovery.NewSeeker(conf.EtcdConf)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		lister = c.seeker
	}
	c.HttpServer = http.NewHttpServer(http.WithPort(conf.HttpPort), http.WithMode("release"))
	api.NewHandlers(conf.ID, conf.EtcdConf.Register.Domain, conf.JwtConf, c.MatchService, lister).RegisterRoutes(c.HttpServer)

	log.Info("GameContainer 初始化完成 store=%s", conf.StoreConf.Backend)
	return c, nil
}

// buildStore 按配置选择存储后端，cacheTTL > 0 时外包一层本地缓存
func (c *GameContainer) buildStore(ctx context.Context) error {
	switch c.Conf.StoreConf.Backend {
	case "mongo":
		s := persistence.NewMongoMatchStore(c.mongo)
		if err := s.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("创建 mongo 索引失败: %w", err)
		}
		c.Store = s
	case "redis":
		c.Store = persistence.NewRedisMatchStore(c.redis)
	case "postgres":
		s := persistence.NewPostgresMatchStore(c.postgres.Pool)
		if err := s.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("创建 postgres 表失败: %w", err)
		}
		c.Store = s
	default:
		c.Store = persistence.NewMemoryMatchStore()
	}

	if ttl := c.Conf.StoreConf.CacheTTL; ttl > 0 {
		gc, err := cache.NewGeneralCache(c.Conf.StoreConf.CacheMaxCost, config.Seconds(ttl))
		if err != nil {
			return err
		}
		c.cache = gc
		c.Store = persistence.NewCachedMatchStore(c.Store, gc)
	}
	return nil
}

// buildBroadcaster 配置了 nats 时跨节点广播，否则进程内广播
func (c *GameContainer) buildBroadcaster() error {
	if c.Conf.NatsConf.URL == "" {
		c.Broadcaster = node.NewLocalHub()
		return nil
	}
	b, err := node.NewNatsBroadcaster(c.Conf.NatsConf.URL, c.Conf.AppName+"-"+c.Conf.ID)
	if err != nil {
		return err
	}
	c.Broadcaster = b
	return nil
}

func EngineTiming(t config.TimingConf) mahjong.Timing {
	return mahjong.Timing{
		Turn:     config.Millis(t.Turn),
		Discard:  config.Millis(t.Discard),
		Response: config.Millis(t.Response),
		Stock:    config.Millis(t.Stock),
		RoundEnd: config.Millis(t.RoundEnd),
		AutoPlay: config.Millis(t.AutoPlay),
	}
}

func EngineRule(r config.RuleConf) mahjong.Rule {
	rule := mahjong.DefaultRule()
	if r.Deck == "standard" {
		rule.Deck = mahjong.StandardDeck()
	}
	if r.StartingScore > 0 {
		rule.StartingScore = r.StartingScore
	}
	// 东南西北各四局，超过后场风无法表示
	if r.MaxRounds > 0 {
		rule.MaxRounds = min(r.MaxRounds, 16)
	}
	rule.StockEnabled = r.StockEnabled
	return rule
}

// Close 幂等；先停网关与对局，再关闭广播和数据库
func (c *GameContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if c.HttpServer != nil {
		if err := c.HttpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Gateway != nil {
		if err := c.Gateway.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.GameWorker != nil {
		c.GameWorker.Close()
	}
	if c.Broadcaster != nil {
		if err := c.Broadcaster.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.seeker != nil {
		_ = c.seeker.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
	if c.BaseContainer != nil {
		if err := c.BaseContainer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("关闭资源时发生 %d 个错误: %w", len(errs), errors.Join(errs...))
	}
	log.Info("GameContainer 已关闭")
	return nil
}
