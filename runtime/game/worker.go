package game

import (
	"context"
	"fmt"
	"time"

	"yonmai/common/config"
	"yonmai/common/discovery"
	"yonmai/common/log"
)

/*
	1.启动时从存储恢复进行中的对局
	2.上报 etcd，让客户端按负载选择 game 节点
	3.定期采集负载
*/

type Worker struct {
	Matches  *MatchRegistry
	Monitor  *Monitor
	Registry *discovery.Registry
	NodeID   string
}

func NewWorker(nodeID string, matches *MatchRegistry, monitorPeriod time.Duration) *Worker {
	registry := discovery.NewRegistry()
	return &Worker{
		Matches:  matches,
		Monitor:  NewMonitor(matches, registry, monitorPeriod),
		Registry: registry,
		NodeID:   nodeID,
	}
}

// Start 未配置 etcd 时以单机模式运行，不注册也不上报负载
func (w *Worker) Start(ctx context.Context, etcdConf config.EtcdConf) error {
	if _, err := w.Matches.Recover(ctx); err != nil {
		return err
	}

	if len(etcdConf.Addrs) == 0 {
		log.Warn("Game Worker[%s] 未配置 etcd，跳过服务注册", w.NodeID)
		return nil
	}
	if err := w.Registry.Register(etcdConf, w.NodeID); err != nil {
		return fmt.Errorf("注册到 etcd 失败: %w", err)
	}
	log.Info("Game Worker[%s] 注册到 etcd 成功", w.NodeID)

	go w.Monitor.Start(ctx)
	log.Info("Game Worker[%s] 启动成功", w.NodeID)
	return nil
}

func (w *Worker) Close() {
	w.Monitor.Stop()
	w.Registry.Close()
	w.Matches.Close()
	log.Info("Game Worker[%s] 已关闭", w.NodeID)
}
