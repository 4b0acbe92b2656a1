package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"yonmai/common/log"
	"yonmai/core/domain/repository"
	"yonmai/core/infrastructure/message/node"
	"yonmai/core/infrastructure/message/transfer"
	"yonmai/runtime/game/engines/mahjong"
)

type Options struct {
	MailboxSize  int
	SaveTimeout  time.Duration
	ArchiveRetry time.Duration
}

func (o Options) withDefaults() Options {
	if o.MailboxSize <= 0 {
		o.MailboxSize = 64
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = 3 * time.Second
	}
	if o.ArchiveRetry <= 0 {
		o.ArchiveRetry = 5 * time.Second
	}
	return o
}

// Summary 对局列表项
type Summary struct {
	ID        string        `json:"id"`
	Phase     mahjong.Phase `json:"phase"`
	Players   []string      `json:"players"`
	Round     mahjong.Round `json:"round"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"createdAt"`
}

// MatchRegistry 持有本节点所有对局 actor；未命中时从存储懒加载
type MatchRegistry struct {
	engine      *mahjong.Engine
	store       repository.MatchStore
	broadcaster node.Broadcaster
	rule        mahjong.Rule
	opts        Options

	mu     sync.RWMutex
	actors map[string]*matchActor
	closed bool
}

func NewMatchRegistry(engine *mahjong.Engine, store repository.MatchStore, broadcaster node.Broadcaster, rule mahjong.Rule, opts Options) *MatchRegistry {
	return &MatchRegistry{
		engine:      engine,
		store:       store,
		broadcaster: broadcaster,
		rule:        rule,
		opts:        opts.withDefaults(),
		actors:      make(map[string]*matchActor),
	}
}

// Create 新建等待开始的对局并写入版本 1
func (r *MatchRegistry) Create(ctx context.Context) (*mahjong.Match, error) {
	m := mahjong.CreateDefaultGameState(uuid.NewString(), r.rule)
	rec, err := toRecord(m, 1)
	if err != nil {
		return nil, err
	}
	if err := r.store.WriteIfVersion(ctx, rec, 0); err != nil {
		return nil, fmt.Errorf("创建对局失败: %w", err)
	}
	m.Version = rec.Version

	if _, err := r.spawn(m); err != nil {
		return nil, err
	}
	log.Info("创建对局 %s", m.ID)
	return m, nil
}

// Submit 把意图交给对应 actor 串行处理，返回提交后的状态
func (r *MatchRegistry) Submit(ctx context.Context, matchID string, in mahjong.Intent) (*mahjong.Match, error) {
	a, err := r.actor(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return a.submit(ctx, command{kind: cmdIntent, intent: in})
}

// Snapshot 进行中的对局取 actor 内存状态，已结束的从历史表读取
func (r *MatchRegistry) Snapshot(ctx context.Context, matchID string) (*mahjong.Match, error) {
	a, err := r.actor(ctx, matchID)
	if err == nil {
		m, err := a.submit(ctx, command{kind: cmdSnapshot})
		if !errors.Is(err, transfer.ErrMatchClosed) {
			return m, err
		}
	} else if !errors.Is(err, transfer.ErrMatchNotFound) {
		return nil, err
	}
	rec, err := r.store.ReadArchived(ctx, matchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, transfer.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRecord(rec)
}

// List 本节点内存中的对局
func (r *MatchRegistry) List(ctx context.Context) []Summary {
	r.mu.RLock()
	actors := make([]*matchActor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(actors))
	for _, a := range actors {
		m, err := a.submit(ctx, command{kind: cmdSnapshot})
		if err != nil {
			continue
		}
		ids := make([]string, 0, len(m.Players))
		for _, p := range m.Players {
			ids = append(ids, p.ID)
		}
		out = append(out, Summary{
			ID:        m.ID,
			Phase:     m.Phase,
			Players:   ids,
			Round:     m.Round,
			Version:   m.Version,
			CreatedAt: m.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Recover 启动时为存储中所有进行中的对局重建 actor
func (r *MatchRegistry) Recover(ctx context.Context) (int, error) {
	recs, err := r.store.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("恢复对局失败: %w", err)
	}
	n := 0
	for _, rec := range recs {
		m, err := fromRecord(rec)
		if err != nil {
			log.Error("跳过无法解析的对局: %v", err)
			continue
		}
		if _, err := r.spawn(m); err != nil {
			return n, err
		}
		n++
	}
	log.Info("已恢复 %d 个进行中的对局", n)
	return n, nil
}

// Stats 对局数与在座玩家数，用于负载上报
func (r *MatchRegistry) Stats() (matches, players int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actors {
		matches++
		players += a.seats()
	}
	return matches, players
}

func (r *MatchRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	actors := make([]*matchActor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()

	for _, a := range actors {
		a.stop()
	}
	log.Info("MatchRegistry 已关闭 %d 个对局", len(actors))
}

func (r *MatchRegistry) actor(ctx context.Context, matchID string) (*matchActor, error) {
	r.mu.RLock()
	a, ok := r.actors[matchID]
	r.mu.RUnlock()
	if ok {
		return a, nil
	}

	// 懒加载：进程重启或迁移后第一次访问
	rec, err := r.store.Read(ctx, matchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, transfer.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	m, err := fromRecord(rec)
	if err != nil {
		return nil, err
	}
	log.Info("从存储恢复对局 %s version=%d", matchID, m.Version)
	return r.spawn(m)
}

// spawn 已存在同 id 的 actor 时返回已有的
func (r *MatchRegistry) spawn(m *mahjong.Match) (*matchActor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, transfer.ErrMatchClosed
	}
	if a, ok := r.actors[m.ID]; ok {
		return a, nil
	}
	a := newMatchActor(m, r)
	r.actors[m.ID] = a
	a.start()
	return a, nil
}

func (r *MatchRegistry) remove(a *matchActor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.actors[a.id]; ok && cur == a {
		delete(r.actors, a.id)
	}
}
