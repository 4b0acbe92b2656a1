package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GameConfiguration 对局节点的全部配置
type GameConfiguration struct {
	ID           string       `mapstructure:"id"`
	AppName      string       `mapstructure:"appName"`
	MetricPort   int          `mapstructure:"metricPort"`
	HttpPort     int          `mapstructure:"httpPort"`
	LogConf      LogConf      `mapstructure:"log"`
	WsConf       WsConf       `mapstructure:"ws"`
	EtcdConf     EtcdConf     `mapstructure:"etcd"`
	DatabaseConf DatabaseConf `mapstructure:"database"`
	NatsConf     NatsConf     `mapstructure:"nats"`
	JwtConf      JwtConf      `mapstructure:"jwt"`
	StoreConf    StoreConf    `mapstructure:"store"`
	RuleConf     RuleConf     `mapstructure:"rule"`
	TimingConf   TimingConf   `mapstructure:"timing"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
}

type WsConf struct {
	Port          int `mapstructure:"port"`
	ReadLimit     int `mapstructure:"readLimit"`     // 单条消息最大字节数
	PongWait      int `mapstructure:"pongWait"`      // 秒
	SendQueueSize int `mapstructure:"sendQueueSize"` // 每个连接的发送缓冲
	RateLimit     int `mapstructure:"rateLimit"`     // 每秒最多意图数
}

type EtcdConf struct {
	Addrs       []string       `mapstructure:"addrs"`
	DialTimeout int            `mapstructure:"dialTimeout"`
	Register    RegisterServer `mapstructure:"register"`
}

type RegisterServer struct {
	Addr    string `mapstructure:"addr"`
	Domain  string `mapstructure:"domain"`
	Version string `mapstructure:"version"`
	Weight  int    `mapstructure:"weight"`
	Ttl     int    `mapstructure:"ttl"`
}

type JwtConf struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // 秒
	// AllowDevToken 开放 /dev/token 签发测试令牌
	AllowDevToken bool `mapstructure:"allowDevToken"`
}

type DatabaseConf struct {
	MongoConf    MongoConf    `mapstructure:"mongo"`
	RedisConf    RedisConf    `mapstructure:"redis"`
	PostgresConf PostgresConf `mapstructure:"postgres"`
}

type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

type RedisConf struct {
	Addr         string   `mapstructure:"addr"`
	ClusterAddrs []string `mapstructure:"clusterAddrs"`
	Password     string   `mapstructure:"password"`
	PoolSize     int      `mapstructure:"poolSize"`
	MinIdleConns int      `mapstructure:"minIdleConns"`
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
}

type PostgresConf struct {
	Dsn      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"maxConns"`
	MinConns int32  `mapstructure:"minConns"`
}

type NatsConf struct {
	URL string `mapstructure:"url"`
}

// StoreConf 持久化后端：memory / mongo / redis / postgres
type StoreConf struct {
	Backend       string `mapstructure:"backend"`
	CacheMaxCost  int64  `mapstructure:"cacheMaxCost"`
	CacheTTL      int    `mapstructure:"cacheTTL"`      // 秒，0 表示不启用缓存
	ArchiveRetry  int    `mapstructure:"archiveRetry"`  // 秒
	SaveTimeout   int    `mapstructure:"saveTimeout"`   // 毫秒
	MailboxSize   int    `mapstructure:"mailboxSize"`   // 每个对局的意图队列长度
	MonitorPeriod int    `mapstructure:"monitorPeriod"` // 秒
}

type RuleConf struct {
	Deck          string `mapstructure:"deck"` // compact / standard
	StartingScore int    `mapstructure:"startingScore"`
	MaxRounds     int    `mapstructure:"maxRounds"`
	StockEnabled  bool   `mapstructure:"stockEnabled"`
}

// TimingConf 各阶段限时，单位毫秒
type TimingConf struct {
	Turn     int `mapstructure:"turn"`
	Discard  int `mapstructure:"discard"`
	Response int `mapstructure:"response"`
	Stock    int `mapstructure:"stock"`
	RoundEnd int `mapstructure:"roundEnd"`
	AutoPlay int `mapstructure:"autoPlay"`
}

func Millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Load 读取配置文件，环境变量优先；NODE_ID 覆盖配置中的 id
func Load(configFile string) (*viper.Viper, *GameConfiguration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("读取配置文件出错: %w", err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return v, cfg, nil
}

func decode(v *viper.Viper) (*GameConfiguration, error) {
	var cfg GameConfiguration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件出错: %w", err)
	}
	if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
		cfg.ID = nodeID
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("节点 id 为空，请配置 id 或设置 NODE_ID")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "game")
	v.SetDefault("log.level", "info")
	v.SetDefault("ws.readLimit", 4096)
	v.SetDefault("ws.pongWait", 60)
	v.SetDefault("ws.sendQueueSize", 64)
	v.SetDefault("ws.rateLimit", 20)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.cacheMaxCost", 1<<26)
	v.SetDefault("store.archiveRetry", 5)
	v.SetDefault("store.saveTimeout", 3000)
	v.SetDefault("store.mailboxSize", 64)
	v.SetDefault("store.monitorPeriod", 10)
	v.SetDefault("rule.deck", "compact")
	v.SetDefault("rule.startingScore", 25000)
	v.SetDefault("rule.maxRounds", 4)
	v.SetDefault("rule.stockEnabled", true)
	v.SetDefault("timing.turn", 10000)
	v.SetDefault("timing.discard", 20000)
	v.SetDefault("timing.response", 8000)
	v.SetDefault("timing.stock", 5000)
	v.SetDefault("timing.roundEnd", 6000)
	v.SetDefault("timing.autoPlay", 1000)
	v.SetDefault("etcd.dialTimeout", 3)
	v.SetDefault("etcd.register.ttl", 10)
	v.SetDefault("jwt.expire", 86400)
}
