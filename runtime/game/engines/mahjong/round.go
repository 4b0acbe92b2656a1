package mahjong

import (
	"fmt"
	"sort"
)

// startRound 洗牌、切王牌、发牌、翻开首张宝牌指示牌，庄家先摸
func (e *Engine) startRound(m *Match, out *Outcome) error {
	tiles := BuildTileSet(m.Rule.Deck)
	e.shuffle(tiles)
	wall, err := NewWall(tiles)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDealShortfall, err)
	}
	hands, shortfall := Deal(PlayerCount, HandSize, wall)
	if shortfall > 0 {
		return fmt.Errorf("%w: short by %d tiles", ErrDealShortfall, shortfall)
	}
	wall.RevealDoraIndicator()

	m.Wall = wall
	m.DoraIndicators = wall.DoraIndicators()
	m.UraDoraIndicators = nil
	for seat, p := range m.Players {
		p.Hand = hands[seat]
		SortTiles(p.Hand)
		p.Discards = nil
		p.Melds = nil
		p.SeatWind = Wind(East + relativeSeat(m.DealerIndex, seat))
		p.IsDealer = seat == m.DealerIndex
		p.IsRiichi = false
		p.IsDoubleRiichi = false
		p.IsTemporaryFuriten = false
		p.Ippatsu = false
		p.RiichiPending = false
		p.Acted = false
		p.Stock = nil
	}
	m.LastDiscard = nil
	m.PendingResponses = nil
	m.ResponseQueue = nil
	m.ActiveResponder = ""
	m.PendingKakan = nil
	m.CallsMade = false
	m.LastResult = nil
	out.emit(EventRoundStart, m.DealerIndex, nil)
	nextTurn(m, m.DealerIndex)
	return nil
}

// nextTurn 轮到 seat 摸牌；持有 stock 时先进入选择阶段
func nextTurn(m *Match, seat int) {
	m.CurrentTurn = seat
	m.DrawnTile = nil
	m.DrawnFromDeadWall = false
	m.DrawnFromStock = false
	if m.Rule.StockEnabled && m.Players[seat].Stock != nil {
		m.Phase = PhaseAwaitingStockSelection
		return
	}
	m.Phase = PhasePlayerTurn
}

// settleWin 和牌结算；无役时转为罚符
func settleWin(m *Match, kind string, winner, loser int, t Tile, ev *Evaluation, dropped []int, out *Outcome) {
	if !ev.HasYaku {
		penalty(m, winner, t, out)
		return
	}
	var deltas [4]int
	if kind == ResultTsumo {
		deltas = TsumoPayments(ev.Points, winner, m.DealerIndex, m.Honba)
		out.emit(EventTsumo, winner, &t)
	} else {
		deltas = RonPayments(ev.Points, winner, loser, m.Honba)
		out.emit(EventRon, winner, &t)
	}
	deltas[winner] += m.RiichiSticks * RiichiCost
	m.RiichiSticks = 0
	if m.Players[winner].IsRiichi {
		m.UraDoraIndicators = m.Wall.UraDoraIndicators()
	}

	dealerWin := winner == m.DealerIndex
	result := &RoundResult{
		Kind:       kind,
		WinnerSeat: winner,
		LoserSeat:  loser,
		WinTile:    &t,
		Yaku:       ev.Yaku,
		Fan:        ev.Fan,
		Yakuman:    ev.Yakuman,
		Points:     ev.Points,
		Deltas:     deltas,
		Dropped:    dropped,
	}
	if dealerWin {
		endRound(m, result, true, m.Honba+1, out)
	} else {
		endRound(m, result, false, 0, out)
	}
}

// penalty 无役和牌：申报者支付罚点，庄家连庄，本场与供托不变
func penalty(m *Match, offender int, t Tile, out *Outcome) {
	result := &RoundResult{
		Kind:       ResultPenalty,
		WinnerSeat: -1,
		LoserSeat:  offender,
		WinTile:    &t,
		Deltas:     PenaltyPayments(offender, m.DealerIndex),
	}
	out.emit(EventPenalty, offender, &t)
	endRound(m, result, true, m.Honba, out)
}

// exhaustiveDraw 荒牌流局：按听牌人数支付听牌料，庄家听牌连庄
func exhaustiveDraw(m *Match, out *Outcome) {
	depositRiichi(m)
	var tenpai [4]bool
	var seats []int
	universe := m.Universe()
	for seat, p := range m.Players {
		if len(Waits(p.Hand, p.Melds, universe)) > 0 {
			tenpai[seat] = true
			seats = append(seats, seat)
		}
	}
	result := &RoundResult{
		Kind:       ResultExhaustive,
		WinnerSeat: -1,
		LoserSeat:  -1,
		Tenpai:     seats,
		Deltas:     ExhaustiveDrawPayments(tenpai),
	}
	out.emit(EventExhaustive, -1, nil)
	if tenpai[m.DealerIndex] {
		endRound(m, result, true, m.Honba+1, out)
	} else {
		endRound(m, result, false, 0, out)
	}
}

// endRound 记账、轮庄、判断终局
func endRound(m *Match, result *RoundResult, dealerRepeats bool, honba int, out *Outcome) {
	for seat, d := range result.Deltas {
		m.Players[seat].Score += d
	}
	finalRound := m.Round.Index() >= m.Rule.MaxRounds-1
	dealerWin := (result.Kind == ResultRon || result.Kind == ResultTsumo) && result.WinnerSeat == m.DealerIndex

	m.Honba = honba
	if !dealerRepeats {
		m.DealerIndex = (m.DealerIndex + 1) % PlayerCount
		m.Round.Number++
		if m.Round.Number > 4 {
			m.Round.Number = 1
			m.Round.Wind++
		}
	}
	result.NextDealer = m.DealerIndex
	result.Honba = m.Honba

	m.LastResult = result
	m.DrawnTile = nil
	m.DrawnFromDeadWall = false
	m.DrawnFromStock = false
	m.PendingResponses = nil
	m.ResponseQueue = nil
	m.ActiveResponder = ""
	m.PendingKakan = nil
	m.CurrentTurn = -1
	m.Phase = PhaseRoundEnd

	standings := Standings(m)
	over := false
	for _, p := range m.Players {
		if p.Score < 0 {
			over = true
		}
	}
	if finalRound && dealerWin && standings[0].Seat == result.WinnerSeat {
		over = true
	}
	if m.Round.Index() >= m.Rule.MaxRounds {
		over = true
	}
	if over {
		m.Phase = PhaseGameOver
		m.Standings = standings
		out.emit(EventGameOver, standings[0].Seat, nil)
	}
}

// Standings 按点数降序排名，同分时座位靠前者在前
func Standings(m *Match) []Standing {
	out := make([]Standing, 0, len(m.Players))
	for _, p := range m.Players {
		out = append(out, Standing{PlayerID: p.ID, Seat: p.Seat, Score: p.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Seat < out[j].Seat
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
