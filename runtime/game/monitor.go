package game

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"yonmai/common/log"
)

type statsSource interface {
	Stats() (matches, players int)
}

type loadReporter interface {
	UpdateLoad(ctx context.Context, load float64, matches, players int) error
}

// Monitor 定期采集负载并上报给 etcd
type Monitor struct {
	source         statsSource
	reporter       loadReporter
	updateInterval time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once
}

func NewMonitor(source statsSource, reporter loadReporter, updateInterval time.Duration) *Monitor {
	if updateInterval <= 0 {
		updateInterval = 10 * time.Second
	}
	return &Monitor{
		source:         source,
		reporter:       reporter,
		updateInterval: updateInterval,
		stopCh:         make(chan struct{}),
	}
}

// Start 阻塞运行，ctx 取消或 Stop 后退出
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	m.reportLoad(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-m.stopCh:
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-ticker.C:
			m.reportLoad(ctx)
		}
	}
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) reportLoad(ctx context.Context) {
	info := m.collectLoadInfo(ctx)
	load := info.CalculateLoad()

	if err := m.reporter.UpdateLoad(ctx, load, info.MatchCount, info.PlayerCount); err != nil {
		log.Error("Monitor 上报负载信息失败: %v", err)
		return
	}
	log.Debug("Monitor 上报负载: Load=%.2f, Matches=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%",
		load, info.MatchCount, info.PlayerCount, info.CPUUsage, info.MemUsage)
}

func (m *Monitor) collectLoadInfo(ctx context.Context) *LoadInfo {
	matches, players := m.source.Stats()
	info := &LoadInfo{MatchCount: matches, PlayerCount: players}

	// interval 为 0 时与上次调用比较，不阻塞
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		info.CPUUsage = percents[0]
	} else if err != nil {
		log.Warn("Monitor 读取 CPU 使用率失败: %v", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemUsage = vm.UsedPercent
	} else {
		log.Warn("Monitor 读取内存使用率失败: %v", err)
	}
	return info
}
