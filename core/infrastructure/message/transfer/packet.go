package transfer

import (
	"encoding/json"

	"yonmai/runtime/game/engines/mahjong"
)

// Envelope 客户端与网关之间的帧
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IntentData 上行意图的参数，牌以 id 指定
type IntentData struct {
	MatchID string           `json:"matchId"`
	Name    string           `json:"name,omitempty"`
	TileID  int16            `json:"tileId"`
	Bank    bool             `json:"bank,omitempty"`
	Call    mahjong.CallKind `json:"call,omitempty"`
}

// StatePacket 对局广播的内容，每次都是完整快照
type StatePacket struct {
	Type     string          `json:"type"`
	MatchID  string          `json:"matchId"`
	Version  int64           `json:"version"`
	Events   []mahjong.Event `json:"events,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Error    *ErrorBody      `json:"error,omitempty"`
}

func NewStatePacket(m *mahjong.Match, events []mahjong.Event) ([]byte, error) {
	snap, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&StatePacket{
		Type:     TypeState,
		MatchID:  m.ID,
		Version:  m.Version,
		Events:   events,
		Snapshot: snap,
	})
}

func NewDesyncPacket(matchID string, cause error) ([]byte, error) {
	body := NewErrorBody(ErrStateDesync)
	if cause != nil {
		body.Message += ": " + cause.Error()
	}
	return json.Marshal(&StatePacket{
		Type:    TypeDesync,
		MatchID: matchID,
		Error:   body,
	})
}

// ErrorFrame 只发给发起意图的连接
func ErrorFrame(err error) []byte {
	data, _ := json.Marshal(NewErrorBody(err))
	frame, _ := json.Marshal(&Envelope{Type: TypeError, Data: data})
	return frame
}

// ViewFrame 网关按座位裁剪后下发给单个连接
type ViewFrame struct {
	MatchID string          `json:"matchId"`
	Version int64           `json:"version"`
	Events  []mahjong.Event `json:"events,omitempty"`
	View    *mahjong.View   `json:"view"`
}

func NewFrame(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Envelope{Type: typ, Data: raw})
}
