package conn

import (
	"encoding/json"

	"yonmai/common/log"
	"yonmai/core/infrastructure/message/transfer"
	"yonmai/runtime/game/engines/mahjong"
)

// room 本网关上关注同一对局的连接，每个对局只订阅一次
type room struct {
	members     map[string]*LongConnection
	unsubscribe func()
}

func (w *Worker) joinRoom(matchID string, con *LongConnection) error {
	w.roomsLock.Lock()
	defer w.roomsLock.Unlock()
	r, ok := w.rooms[matchID]
	if !ok {
		cancel, err := w.broadcaster.Subscribe(matchID, func(payload []byte) {
			w.fanOut(matchID, payload)
		})
		if err != nil {
			return err
		}
		r = &room{members: make(map[string]*LongConnection), unsubscribe: cancel}
		w.rooms[matchID] = r
	}
	r.members[con.ConnID] = con
	con.addRoom(matchID)
	return nil
}

func (w *Worker) leaveRoom(matchID string, con *LongConnection) {
	con.removeRoom(matchID)
	w.roomsLock.Lock()
	defer w.roomsLock.Unlock()
	r, ok := w.rooms[matchID]
	if !ok {
		return
	}
	delete(r.members, con.ConnID)
	if len(r.members) == 0 {
		r.unsubscribe()
		delete(w.rooms, matchID)
	}
}

func (w *Worker) members(matchID string) []*LongConnection {
	w.roomsLock.Lock()
	defer w.roomsLock.Unlock()
	r, ok := w.rooms[matchID]
	if !ok {
		return nil
	}
	out := make([]*LongConnection, 0, len(r.members))
	for _, c := range r.members {
		out = append(out, c)
	}
	return out
}

// fanOut 快照只解码一次，再按连接的座位裁剪；失步消息原样转发
func (w *Worker) fanOut(matchID string, payload []byte) {
	conns := w.members(matchID)
	if len(conns) == 0 {
		return
	}
	var packet transfer.StatePacket
	if err := json.Unmarshal(payload, &packet); err != nil {
		log.Warn("广播解码失败 match=%s: %v", matchID, err)
		return
	}

	if packet.Type == transfer.TypeDesync {
		frame, err := transfer.NewFrame(transfer.TypeDesync, packet.Error)
		if err != nil {
			return
		}
		for _, c := range conns {
			_ = c.SendMessage(frame)
		}
		return
	}

	var m mahjong.Match
	if err := json.Unmarshal(packet.Snapshot, &m); err != nil {
		log.Warn("快照解码失败 match=%s version=%d: %v", matchID, packet.Version, err)
		return
	}
	for _, c := range conns {
		view := mahjong.ViewFor(&m, c.UserID)
		frame, err := transfer.NewFrame(transfer.TypeState, &transfer.ViewFrame{
			MatchID: matchID,
			Version: packet.Version,
			Events:  mahjong.EventsFor(packet.Events, view.ViewerSeat),
			View:    view,
		})
		if err != nil {
			log.Error("视图序列化失败 match=%s: %v", matchID, err)
			continue
		}
		_ = c.SendMessage(frame)
	}
}
