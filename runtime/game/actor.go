package game

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"yonmai/common/log"
	"yonmai/core/domain/repository"
	"yonmai/core/infrastructure/message/node"
	"yonmai/core/infrastructure/message/transfer"
	"yonmai/runtime/game/engines/mahjong"
)

type commandKind int

const (
	cmdIntent commandKind = iota
	cmdSnapshot
)

type command struct {
	kind   commandKind
	intent mahjong.Intent
	reply  chan reply
}

type reply struct {
	match *mahjong.Match
	err   error
}

// matchActor 一个对局一个协程，意图与超时都经由它串行处理
type matchActor struct {
	id          string
	engine      *mahjong.Engine
	store       repository.MatchStore
	broadcaster node.Broadcaster
	opts        Options
	log         log.Scoped

	// match 为最近一次持久化成功的状态，只在 run 协程内替换，不原地修改
	match  *mahjong.Match
	seated atomic.Int32

	mailbox chan command
	timerCh chan uint64
	retryCh chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	onExit  func(*matchActor)

	timer      *time.Timer
	retryTimer *time.Timer
	archiving  bool
}

func newMatchActor(m *mahjong.Match, r *MatchRegistry) *matchActor {
	a := &matchActor{
		id:          m.ID,
		engine:      r.engine,
		store:       r.store,
		broadcaster: r.broadcaster,
		opts:        r.opts,
		log:         log.With(fmt.Sprintf("Match[%s]", m.ID)),
		mailbox:     make(chan command, r.opts.MailboxSize),
		timerCh:     make(chan uint64, 4),
		retryCh:     make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
		onExit:      r.remove,
	}
	a.setMatch(m)
	return a
}

func (a *matchActor) setMatch(m *mahjong.Match) {
	a.match = m
	a.seated.Store(int32(len(m.Players)))
}

// seats 可在其他协程读取
func (a *matchActor) seats() int {
	return int(a.seated.Load())
}

func (a *matchActor) start() {
	go a.run()
}

// submit 投递命令并等待结果；邮箱满时立即失败，不阻塞调用方
func (a *matchActor) submit(ctx context.Context, cmd command) (*mahjong.Match, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case a.mailbox <- cmd:
	case <-a.done:
		return nil, transfer.ErrMatchClosed
	default:
		return nil, transfer.ErrMailboxFull
	}
	select {
	case r := <-cmd.reply:
		return r.match, r.err
	case <-a.done:
		// 退出前已处理的命令仍会回复
		select {
		case r := <-cmd.reply:
			return r.match, r.err
		default:
			return nil, transfer.ErrMatchClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *matchActor) stop() {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
	<-a.done
}

func (a *matchActor) run() {
	defer func() {
		a.stopTimer()
		if a.retryTimer != nil {
			a.retryTimer.Stop()
		}
		close(a.done)
		a.onExit(a)
	}()

	if a.match.Phase == mahjong.PhaseGameOver {
		// 恢复出来的已结束对局只差归档
		if a.archive() {
			return
		}
	}
	a.schedule()

	for {
		var finished bool
		select {
		case cmd := <-a.mailbox:
			finished = a.handle(cmd)
		case seq := <-a.timerCh:
			finished = a.onTimer(seq)
		case <-a.retryCh:
			finished = a.archive()
		case <-a.stopCh:
			a.log.Debug("actor 已停止")
			return
		}
		if finished {
			return
		}
	}
}

func (a *matchActor) handle(cmd command) bool {
	switch cmd.kind {
	case cmdSnapshot:
		cmd.reply <- reply{match: a.match}
		return false
	}

	if a.archiving {
		cmd.reply <- reply{err: fmt.Errorf("%w: %s", mahjong.ErrWrongPhase, a.match.Phase)}
		return false
	}
	next, out, err := a.engine.Handle(a.match, cmd.intent)
	if err != nil {
		a.log.Debug("拒绝意图 %s by %s: %v", cmd.intent.Kind, cmd.intent.PlayerID, err)
		cmd.reply <- reply{err: err}
		return false
	}
	finished, err := a.commit(next, out)
	if err != nil {
		cmd.reply <- reply{err: err}
		return finished
	}
	cmd.reply <- reply{match: a.match}
	return finished
}

func (a *matchActor) onTimer(seq uint64) bool {
	next, out, err := a.engine.HandleTimer(a.match, seq)
	if err != nil {
		if !errors.Is(err, mahjong.ErrStaleTimer) && !errors.Is(err, mahjong.ErrNoDeadline) {
			a.log.Warn("超时处理失败 seq=%d: %v", seq, err)
		}
		return false
	}
	a.log.Debug("超时自动处理 phase=%s seq=%d", a.match.Phase, seq)
	finished, _ := a.commit(next, out)
	return finished
}

// commit 带版本号写入存储，成功后才替换内存状态并广播
func (a *matchActor) commit(next *mahjong.Match, out *mahjong.Outcome) (bool, error) {
	if out.Abandoned {
		return a.abandon(next, out)
	}

	expected := a.match.Version
	rec, err := toRecord(next, expected+1)
	if err != nil {
		a.log.Error("%v", err)
		return false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.SaveTimeout)
	err = a.store.WriteIfVersion(ctx, rec, expected)
	cancel()
	if errors.Is(err, repository.ErrVersionConflict) {
		a.log.Warn("写入版本冲突 expected=%d，重新加载", expected)
		// 重载成功时本次意图视为被覆盖，提交者随广播拿到最新状态
		finished, rerr := a.reload()
		if rerr != nil {
			return finished, err
		}
		return finished, nil
	}
	if err != nil {
		a.log.Error("写入对局失败 version=%d: %v", expected, err)
		// 状态未变，重新挂上超时避免对局停住
		a.schedule()
		return false, err
	}

	next.Version = rec.Version
	a.setMatch(next)
	a.publish(out.Events)
	if out.GameOver {
		a.log.Info("对局结束，开始归档")
		return a.archive(), nil
	}
	a.schedule()
	return false, nil
}

// abandon 开局前所有玩家离开，删除记录并退出
func (a *matchActor) abandon(next *mahjong.Match, out *mahjong.Outcome) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.SaveTimeout)
	defer cancel()
	if err := a.store.Delete(ctx, a.id); err != nil {
		a.log.Error("删除被放弃的对局失败: %v", err)
		return false, err
	}
	a.setMatch(next)
	a.publish(out.Events)
	a.log.Info("对局已放弃并删除")
	return true, nil
}

// reload 冲突后以存储中的状态为准；读取失败时广播失步错误
func (a *matchActor) reload() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.SaveTimeout)
	defer cancel()
	rec, err := a.store.Read(ctx, a.id)
	if err == nil {
		var m *mahjong.Match
		if m, err = fromRecord(rec); err == nil {
			a.setMatch(m)
			a.publish(nil)
			a.schedule()
			return false, nil
		}
	}
	a.log.Error("冲突后重新加载失败: %v", err)
	a.publishDesync(err)
	// 记录已不存在说明对局被其他节点结束或删除
	return errors.Is(err, repository.ErrNotFound), err
}

// archive 返回 true 表示已归档，actor 可以退出；失败时按间隔重试
func (a *matchActor) archive() bool {
	a.archiving = true
	a.stopTimer()
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.SaveTimeout)
	err := a.store.Archive(ctx, a.id)
	cancel()
	if err == nil {
		a.log.Info("对局已归档 version=%d", a.match.Version)
		return true
	}
	a.log.Warn("归档失败，%s 后重试: %v", a.opts.ArchiveRetry, err)
	a.retryTimer = time.AfterFunc(a.opts.ArchiveRetry, func() {
		select {
		case a.retryCh <- struct{}{}:
		default:
		}
	})
	return false
}

func (a *matchActor) schedule() {
	a.stopTimer()
	d, ok := a.engine.Deadline(a.match)
	if !ok {
		return
	}
	seq := a.match.ActionSeq
	a.timer = time.AfterFunc(d, func() {
		select {
		case a.timerCh <- seq:
		case <-a.done:
		}
	})
}

func (a *matchActor) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *matchActor) publish(events []mahjong.Event) {
	payload, err := transfer.NewStatePacket(a.match, events)
	if err != nil {
		a.log.Error("序列化广播失败: %v", err)
		return
	}
	if err := a.broadcaster.Publish(a.id, payload); err != nil {
		a.log.Warn("广播失败 version=%d: %v", a.match.Version, err)
	}
}

func (a *matchActor) publishDesync(cause error) {
	payload, err := transfer.NewDesyncPacket(a.id, cause)
	if err != nil {
		return
	}
	if err := a.broadcaster.Publish(a.id, payload); err != nil {
		a.log.Warn("广播失步错误失败: %v", err)
	}
}
