package transfer

import (
	"fmt"

	"yonmai/runtime/game/engines/mahjong"
)

// 下行消息类型
const (
	TypeState  = "state"
	TypeError  = "error"
	TypeDesync = "desync"
)

// 上行事件名与意图一一对应
var inboundEvents = map[string]mahjong.IntentKind{
	string(mahjong.IntentJoin):      mahjong.IntentJoin,
	string(mahjong.IntentStart):     mahjong.IntentStart,
	string(mahjong.IntentDraw):      mahjong.IntentDraw,
	string(mahjong.IntentUseStock):  mahjong.IntentUseStock,
	string(mahjong.IntentDiscard):   mahjong.IntentDiscard,
	string(mahjong.IntentCall):      mahjong.IntentCall,
	string(mahjong.IntentRiichi):    mahjong.IntentRiichi,
	string(mahjong.IntentClosedKan): mahjong.IntentClosedKan,
	string(mahjong.IntentAddedKan):  mahjong.IntentAddedKan,
	string(mahjong.IntentTsumo):     mahjong.IntentTsumo,
	string(mahjong.IntentLeave):     mahjong.IntentLeave,
}

func IntentFor(event string) (mahjong.IntentKind, bool) {
	k, ok := inboundEvents[event]
	return k, ok
}

// StateSubject 对局状态广播的 nats 主题
func StateSubject(matchID string) string {
	return fmt.Sprintf("match.state.%s", matchID)
}
