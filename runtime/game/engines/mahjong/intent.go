package mahjong

import "sort"

// Intent 玩家意图，牌一律以 TileID 指定
type Intent struct {
	Kind     IntentKind `json:"kind"`
	PlayerID string     `json:"playerId"`
	Name     string     `json:"name,omitempty"` // join
	TileID   int16      `json:"tileId"`         // discard / 杠
	Bank     bool       `json:"bank,omitempty"` // discard 时存入 stock
	Call     CallKind   `json:"call,omitempty"` // declare-call
}

// IntentKind 玩家意图
type IntentKind string

const (
	IntentJoin      IntentKind = "join"
	IntentStart     IntentKind = "request-start"
	IntentDraw      IntentKind = "draw"
	IntentUseStock  IntentKind = "use-stock"
	IntentDiscard   IntentKind = "discard"
	IntentCall      IntentKind = "declare-call"
	IntentRiichi    IntentKind = "declare-riichi"
	IntentClosedKan IntentKind = "declare-closed-kan"
	IntentAddedKan  IntentKind = "declare-added-kan"
	IntentTsumo     IntentKind = "declare-tsumo"
	IntentLeave     IntentKind = "leave"
)

// LegalMoves 指定玩家当前合法的意图集合（排序后返回）
func LegalMoves(m *Match, playerID string) []IntentKind {
	p := m.Player(playerID)
	if m.Phase == PhaseWaitingToStart {
		if p == nil {
			if len(m.Players) < PlayerCount {
				return []IntentKind{IntentJoin}
			}
			return nil
		}
		return []IntentKind{IntentLeave, IntentStart}
	}
	if p == nil {
		return nil
	}
	moves := []IntentKind{IntentLeave}
	if m.Phase == PhaseGameOver {
		return moves
	}
	e := p.Eligibility
	if p.Disconnected {
		moves = append(moves, IntentJoin)
	}
	if e.CanDraw {
		moves = append(moves, IntentDraw)
	}
	if e.CanUseStock {
		moves = append(moves, IntentUseStock)
	}
	if e.CanDiscard {
		moves = append(moves, IntentDiscard)
	}
	if e.CanTsumo {
		moves = append(moves, IntentTsumo)
	}
	if e.CanRiichi && m.Phase == PhaseAwaitingDiscard {
		moves = append(moves, IntentRiichi)
	}
	if len(e.ClosedKans) > 0 {
		moves = append(moves, IntentClosedKan)
	}
	if len(e.AddedKans) > 0 {
		moves = append(moves, IntentAddedKan)
	}
	if m.ActiveResponder == playerID {
		moves = append(moves, IntentCall)
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i] < moves[j] })
	return moves
}

