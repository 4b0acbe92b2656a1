package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yonmai/common/log"
	"yonmai/core/infrastructure/message/transfer"
	"yonmai/runtime/game/engines/mahjong"
)

const submitTimeout = 5 * time.Second

// handleFrame 上行帧：type 为事件名，data 为 IntentData
func (w *Worker) handleFrame(con *LongConnection, message []byte) {
	w.stats.messageProcessed.Add(1)
	if err := w.dispatch(con, message); err != nil {
		w.stats.messageErrors.Add(1)
		log.Debug("客户端[%s] 意图被拒绝: %v", con.ConnID, err)
		_ = con.SendMessage(transfer.ErrorFrame(err))
	}
}

func (w *Worker) dispatch(con *LongConnection, message []byte) error {
	if !w.isBound(con) {
		return transfer.ErrConnectionClosed
	}
	var env transfer.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrInvalidMessage, err)
	}
	kind, ok := transfer.IntentFor(env.Type)
	if !ok {
		return fmt.Errorf("%w: %s", transfer.ErrInvalidRoute, env.Type)
	}
	var data transfer.IntentData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("%w: %v", transfer.ErrInvalidMessage, err)
		}
	}
	if data.MatchID == "" {
		return fmt.Errorf("%w: 缺少 matchId", transfer.ErrInvalidMessage)
	}
	if !con.limiter.Allow() {
		return transfer.ErrRateLimited
	}

	intent := mahjong.Intent{
		Kind:     kind,
		PlayerID: con.UserID,
		Name:     data.Name,
		TileID:   data.TileID,
		Bank:     data.Bank,
		Call:     data.Call,
	}
	if kind == mahjong.IntentJoin {
		return w.join(con, data.MatchID, intent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	m, err := w.matches.Submit(ctx, data.MatchID, intent)
	if err != nil {
		return err
	}
	if kind == mahjong.IntentLeave && m.Seat(con.UserID) < 0 {
		w.leaveRoom(data.MatchID, con)
	}
	return nil
}

// join 先订阅房间再提交，保证能收到本次加入的广播；已入座时直接补发一次全量视图
func (w *Worker) join(con *LongConnection, matchID string, intent mahjong.Intent) error {
	if err := w.joinRoom(matchID, con); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	_, err := w.matches.Submit(ctx, matchID, intent)
	if errors.Is(err, mahjong.ErrAlreadySeated) {
		return w.resync(ctx, con, matchID)
	}
	if err != nil {
		w.leaveRoom(matchID, con)
		return err
	}
	return nil
}

func (w *Worker) resync(ctx context.Context, con *LongConnection, matchID string) error {
	view, err := w.matches.GetMatch(ctx, matchID, con.UserID)
	if err != nil {
		return err
	}
	frame, err := transfer.NewFrame(transfer.TypeState, &transfer.ViewFrame{
		MatchID: matchID,
		Version: view.Version,
		View:    view,
	})
	if err != nil {
		return err
	}
	return con.SendMessage(frame)
}

// submitLeave 连接断开：开局前离座，对局中转为托管
func (w *Worker) submitLeave(matchID, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	_, err := w.matches.Submit(ctx, matchID, mahjong.Intent{Kind: mahjong.IntentLeave, PlayerID: userID})
	if err != nil {
		log.Debug("断线离开 match=%s user=%s: %v", matchID, userID, err)
	}
}
