package discovery

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"yonmai/common/config"
	"yonmai/common/log"
)

// Seeker 主动拉取节点列表，供 HTTP 接口按负载挑选 game 节点
type Seeker struct {
	etcdCli     *clientv3.Client
	DialTimeout int
}

func NewSeeker(conf config.EtcdConf) (*Seeker, error) {
	etcdCli, err := clientv3.New(clientv3.Config{
		Endpoints:   conf.Addrs,
		DialTimeout: time.Duration(conf.DialTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 etcd 客户端失败: %w", err)
	}
	return &Seeker{etcdCli: etcdCli, DialTimeout: conf.DialTimeout}, nil
}

// GetServers domain 下的全部节点
func (s *Seeker) GetServers(ctx context.Context, domain string) ([]Server, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.DialTimeout)*time.Second)
	defer cancel()

	res, err := s.etcdCli.Get(ctx, domain+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("从 etcd 获取服务列表失败: %w", err)
	}
	servers := make([]Server, 0, len(res.Kvs))
	for _, kv := range res.Kvs {
		server, err := ParseValue(kv.Value)
		if err != nil {
			log.Error("解析服务信息失败, key=%s, err=%v", string(kv.Key), err)
			continue
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func (s *Seeker) Close() error {
	if s.etcdCli != nil {
		return s.etcdCli.Close()
	}
	return nil
}
