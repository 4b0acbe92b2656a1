package mahjong

import "fmt"

// openArbitration 对舍牌或加杠牌做资格检查，有人可响应时进入响应阶段并返回 true
//
// 响应按行动者下家、对家、上家的顺序逐个收集，同一时刻只有一个 ActiveResponder
func openArbitration(m *Match, actorSeat int, t Tile, final, kakan bool) bool {
	m.PendingResponses = make(map[string]Options)
	m.ResponseQueue = nil
	m.ActiveResponder = ""
	for d := 1; d < PlayerCount; d++ {
		p := m.Players[(actorSeat+d)%PlayerCount]
		if opts := responseOptions(p, m, t, final, kakan); opts.Any() {
			m.PendingResponses[p.ID] = opts
		}
	}
	if len(m.PendingResponses) == 0 {
		m.PendingResponses = nil
		return false
	}
	if kakan {
		m.Phase = PhaseAwaitingKakan
	} else {
		m.Phase = PhaseAwaitingAction
	}
	m.ActiveResponder = nextResponder(m, actorSeat)
	return true
}

// nextResponder 按座位顺序找下一个尚未响应的玩家
func nextResponder(m *Match, actorSeat int) string {
	answered := make(map[string]bool, len(m.ResponseQueue))
	for _, r := range m.ResponseQueue {
		answered[r.PlayerID] = true
	}
	for d := 1; d < PlayerCount; d++ {
		p := m.Players[(actorSeat+d)%PlayerCount]
		if _, ok := m.PendingResponses[p.ID]; ok && !answered[p.ID] {
			return p.ID
		}
	}
	return ""
}

func arbitrationActor(m *Match) (int, Tile) {
	if m.Phase == PhaseAwaitingKakan {
		return m.PendingKakan.Seat, m.PendingKakan.Tile
	}
	return m.LastDiscard.Seat, m.LastDiscard.Tile
}

func (e *Engine) call(m *Match, in Intent, out *Outcome) error {
	p, err := seated(m, in.PlayerID)
	if err != nil {
		return err
	}
	if m.Phase != PhaseAwaitingAction && m.Phase != PhaseAwaitingKakan {
		return fmt.Errorf("%w: %s", ErrWrongPhase, m.Phase)
	}
	if m.ActiveResponder != p.ID {
		return fmt.Errorf("%w: active responder is %s", ErrNotYourTurn, m.ActiveResponder)
	}
	opts := m.PendingResponses[p.ID]
	if !opts.Allows(in.Call) {
		return fmt.Errorf("%w: %s", ErrNotEligible, in.Call)
	}

	// 放弃可荣和的牌：立直中永久振听，否则同巡振听
	if opts.CanRon && in.Call != CallRon {
		if p.IsRiichi {
			p.IsFuriten = true
		} else {
			p.IsTemporaryFuriten = true
		}
	}
	m.ResponseQueue = append(m.ResponseQueue, Response{
		PlayerID: p.ID,
		Seat:     p.Seat,
		Kind:     in.Call,
		Priority: in.Call.Priority(),
	})
	if in.Call == CallSkip {
		out.emit(EventSkip, p.Seat, nil)
	}

	actorSeat, _ := arbitrationActor(m)
	if next := nextResponder(m, actorSeat); next != "" {
		m.ActiveResponder = next
		return nil
	}
	resolveArbitration(m, out)
	return nil
}

// selectResponse 最高优先级者胜出；同为荣和时取离行动者最近的一家（头跳），其余荣和记入 dropped
func selectResponse(queue []Response, actorSeat int) (Response, []int) {
	best := Response{Kind: CallSkip}
	bestDist := PlayerCount
	var rons []Response
	for _, r := range queue {
		if r.Kind == CallRon {
			rons = append(rons, r)
		}
		dist := relativeSeat(actorSeat, r.Seat)
		if r.Priority > best.Priority || (r.Priority == best.Priority && r.Priority > 0 && dist < bestDist) {
			best, bestDist = r, dist
		}
	}
	var dropped []int
	if best.Kind == CallRon {
		for _, r := range rons {
			if r.Seat != best.Seat {
				dropped = append(dropped, r.Seat)
			}
		}
	}
	return best, dropped
}

func resolveArbitration(m *Match, out *Outcome) {
	actorSeat, t := arbitrationActor(m)
	best, dropped := selectResponse(m.ResponseQueue, actorSeat)
	kakan := m.Phase == PhaseAwaitingKakan
	m.PendingResponses = nil
	m.ResponseQueue = nil
	m.ActiveResponder = ""

	if best.Kind == CallRon {
		winner := m.Players[best.Seat]
		concealed := append(append([]Tile{}, winner.Hand...), t)
		w := winContext(m, winner, concealed, t)
		w.Chankan = kakan
		w.Houtei = !kakan && m.LastDiscard.Final
		w.Renhou = !winner.IsDealer && !winner.Acted && !m.CallsMade
		// 资格检查已确认和牌形，评估失败时按无人响应处理
		if ev, ok := Evaluate(w); ok {
			// 立直宣言牌被荣和，立直棒不入场
			m.Players[actorSeat].RiichiPending = false
			m.PendingKakan = nil
			settleWin(m, ResultRon, best.Seat, actorSeat, t, ev, dropped, out)
			return
		}
		best = Response{Kind: CallSkip}
	}

	if kakan {
		completeAddedKan(m, out)
		return
	}

	switch best.Kind {
	case CallKan:
		depositRiichi(m)
		caller := m.Players[best.Seat]
		rest, tiles, _ := removeKind(caller.Hand, t.Kind(), 3)
		caller.Hand = rest
		caller.Melds = append(caller.Melds, Meld{
			Kind:         MeldOpenKan,
			Tiles:        append(tiles, t),
			SourcePlayer: m.Players[actorSeat].ID,
			RelativeSeat: relativeSeat(caller.Seat, actorSeat),
		})
		breakFirstGoAround(m)
		out.emit(EventKan, caller.Seat, &t)
		drawRinshan(m, caller, out)
	case CallPon:
		depositRiichi(m)
		caller := m.Players[best.Seat]
		rest, tiles, _ := removeKind(caller.Hand, t.Kind(), 2)
		caller.Hand = rest
		caller.Melds = append(caller.Melds, Meld{
			Kind:         MeldPon,
			Tiles:        append(tiles, t),
			SourcePlayer: m.Players[actorSeat].ID,
			RelativeSeat: relativeSeat(caller.Seat, actorSeat),
		})
		breakFirstGoAround(m)
		m.CurrentTurn = caller.Seat
		m.DrawnTile = nil
		m.DrawnFromDeadWall = false
		m.DrawnFromStock = false
		m.Phase = PhaseAwaitingDiscard
		out.emit(EventPon, caller.Seat, &t)
	default:
		afterDiscardPassed(m, out)
	}
}

// afterDiscardPassed 舍牌无人响应：立直成立，海底打出后流局，否则轮到下家
func afterDiscardPassed(m *Match, out *Outcome) {
	depositRiichi(m)
	if m.LastDiscard.Final {
		exhaustiveDraw(m, out)
		return
	}
	nextTurn(m, (m.LastDiscard.Seat+1)%PlayerCount)
}

// depositRiichi 立直宣言牌未被荣和，扣除立直棒入场
func depositRiichi(m *Match) {
	for _, p := range m.Players {
		if p.RiichiPending {
			p.RiichiPending = false
			p.Score -= RiichiCost
			m.RiichiSticks++
		}
	}
}
