package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"yonmai/common/config"
	"yonmai/common/log"
)

/*
etcd 注册器
	1.game 节点注册到 etcd，携带负载供客户端选择节点
	2.租约过期或断开时自动重新注册
*/

type Registry struct {
	etcdCli     *clientv3.Client
	leaseID     clientv3.LeaseID
	DialTimeout int
	keepAliveCh <-chan *clientv3.LeaseKeepAliveResponse
	mu          sync.Mutex
	info        Server
	closeCh     chan struct{}
	closeOnce   sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		DialTimeout: 3,
	}
}

func (r *Registry) Register(conf config.EtcdConf, nodeID string) error {
	if nodeID == "" {
		return fmt.Errorf("nodeID 不能为空")
	}
	if conf.DialTimeout > 0 {
		r.DialTimeout = conf.DialTimeout
	}
	ttl := conf.Register.Ttl
	if ttl <= 0 {
		ttl = 10
	}
	r.info = Server{
		Domain:  conf.Register.Domain,
		Addr:    conf.Register.Addr,
		Weight:  conf.Register.Weight,
		Version: conf.Register.Version,
		Ttl:     ttl,
		NodeID:  nodeID,
	}

	var err error
	r.etcdCli, err = clientv3.New(clientv3.Config{
		Endpoints:   conf.Addrs,
		DialTimeout: time.Duration(r.DialTimeout) * time.Second,
	})
	if err != nil {
		return err
	}
	if err = r.doRegister(); err != nil {
		_ = r.etcdCli.Close()
		return err
	}

	r.closeCh = make(chan struct{})
	go r.watch()
	return nil
}

func (r *Registry) doRegister() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.DialTimeout)*time.Second)
	defer cancel()

	lease, err := r.etcdCli.Grant(ctx, int64(r.info.Ttl))
	if err != nil {
		return err
	}
	r.leaseID = lease.ID

	if err = r.put(ctx); err != nil {
		return err
	}
	log.Info("etcd 注册信息: %s", r.info.buildKey())

	// keepAlive 需要长期运行
	r.keepAliveCh, err = r.etcdCli.KeepAlive(context.Background(), r.leaseID)
	if err != nil {
		log.Error("租约续期失败: %v", err)
		return err
	}
	return nil
}

func (r *Registry) put(ctx context.Context) error {
	r.mu.Lock()
	data, err := json.Marshal(r.info)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if _, err = r.etcdCli.Put(ctx, r.info.buildKey(), string(data), clientv3.WithLease(r.leaseID)); err != nil {
		log.Error("租约绑定失败: %v", err)
		return err
	}
	return nil
}

func (r *Registry) watch() {
	// TTL 的一半做兜底检查
	ticker := time.NewTicker(time.Duration(r.info.Ttl) * time.Second / 2)
	defer ticker.Stop()

	for {
		select {
		case res, ok := <-r.keepAliveCh:
			if !ok || res == nil {
				log.Warn("keepAlive 连接断开，重新注册服务")
				r.keepAliveCh = nil
				if err := r.doRegister(); err != nil {
					log.Error("重新注册失败: %v", err)
				} else {
					log.Info("重新注册成功")
				}
			}
		case <-ticker.C:
			if r.keepAliveCh == nil {
				if err := r.doRegister(); err != nil {
					log.Error("定时器重新注册失败: %v", err)
				}
			}
		case <-r.closeCh:
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.DialTimeout)*time.Second)
			if _, err := r.etcdCli.Delete(ctx, r.info.buildKey()); err != nil {
				log.Error("注销服务失败: %v", err)
			}
			if _, err := r.etcdCli.Revoke(ctx, r.leaseID); err != nil {
				log.Error("撤销租约失败: %v", err)
			}
			cancel()
			_ = r.etcdCli.Close()
			log.Info("关闭租约续期")
			return
		}
	}
}

// UpdateLoad 更新负载信息，沿用现有租约
func (r *Registry) UpdateLoad(ctx context.Context, load float64, matches, players int) error {
	r.mu.Lock()
	r.info.Load = load
	r.info.Matches = matches
	r.info.Players = players
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.DialTimeout)*time.Second)
	defer cancel()
	return r.put(ctx)
}

func (r *Registry) Close() {
	if r.closeCh == nil {
		return
	}
	r.closeOnce.Do(func() { close(r.closeCh) })
}
