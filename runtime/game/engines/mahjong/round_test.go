package mahjong

import "testing"

func TestExhaustiveDraw_TwoTenpai(t *testing.T) {
	e, m := startedMatch(t)
	setHands(m, nil, "1p 2p 3p 1z", "2m 2m 2m 2p", "1m 3p 5z 1z", "1s 3m 6z 2z")

	m, out := mustHandle(t, e, m, Intent{Kind: IntentDraw, PlayerID: "p0"})
	r := m.LastResult
	if r == nil || r.Kind != ResultExhaustive {
		t.Fatalf("draw from empty wall expected exhaustive draw, got %+v", r)
	}
	want := [4]int{1500, 1500, -1500, -1500}
	if r.Deltas != want {
		t.Fatalf("deltas expected %v, got %v", want, r.Deltas)
	}
	if sum(r.Deltas) != 0 {
		t.Fatalf("deltas expected to sum to 0, got %d", sum(r.Deltas))
	}
	if m.Players[0].Score != 26500 || m.Players[3].Score != 23500 {
		t.Fatalf("scores not applied: %d %d", m.Players[0].Score, m.Players[3].Score)
	}
	if m.DealerIndex != 0 || m.Honba != 1 || m.Phase != PhaseRoundEnd {
		t.Fatalf("dealer tenpai expected repeat with honba 1, got dealer=%d honba=%d phase=%s", m.DealerIndex, m.Honba, m.Phase)
	}
	if len(out.Events) == 0 || out.Events[len(out.Events)-1].Kind != EventExhaustive {
		t.Fatalf("expected exhaustive-draw event, got %+v", out.Events)
	}
}

// 本场只在闲家和牌与庄家未听流局时归零
func TestRoundSettlement_HonbaInvariant(t *testing.T) {
	_, m := startedMatch(t)
	won := &Evaluation{HasYaku: true, Points: 1000, Yaku: []YakuScore{{Yaku: YakuTanyao, Fan: 2}}}
	tenpaiDealer := []string{"1p 2p 3p 1z", "1m 3p 5z 1z", "1s 3m 6z 2z", "1s 3m 6z 2z"}
	notenAll := []string{"1m 3p 5z 1z", "1s 3m 6z 2z", "1m 3p 5z 1z", "1s 3m 6z 2z"}

	steps := []struct {
		name   string
		run    func()
		honba  int
		dealer int
	}{
		{"dealer ron", func() { settleWin(m, ResultRon, 0, 1, tl("2p"), won, nil, &Outcome{}) }, 1, 0},
		{"dealer tenpai draw", func() { setHands(m, nil, tenpaiDealer...); exhaustiveDraw(m, &Outcome{}) }, 2, 0},
		{"penalty", func() { penalty(m, 2, tl("2p"), &Outcome{}) }, 2, 0},
		{"dealer tsumo", func() { settleWin(m, ResultTsumo, 0, -1, tl("2p"), won, nil, &Outcome{}) }, 3, 0},
		{"non-dealer ron", func() { settleWin(m, ResultRon, 2, 3, tl("2p"), won, nil, &Outcome{}) }, 0, 1},
		{"dealer noten draw", func() { setHands(m, nil, notenAll...); exhaustiveDraw(m, &Outcome{}) }, 0, 2},
	}
	for _, s := range steps {
		s.run()
		if m.Phase == PhaseGameOver {
			t.Fatalf("%s: unexpected game over", s.name)
		}
		if m.Honba != s.honba || m.DealerIndex != s.dealer {
			t.Fatalf("%s: expected honba=%d dealer=%d, got honba=%d dealer=%d", s.name, s.honba, s.dealer, m.Honba, m.DealerIndex)
		}
		if m.Honba < 0 || m.RiichiSticks < 0 {
			t.Fatalf("%s: counters went negative", s.name)
		}
	}
}

func TestSettleWin_RiichiSticksAndHonba(t *testing.T) {
	_, m := startedMatch(t)
	m.Honba = 2
	m.RiichiSticks = 2
	won := &Evaluation{HasYaku: true, Points: 8000}
	settleWin(m, ResultRon, 1, 3, tl("2p"), won, nil, &Outcome{})
	r := m.LastResult
	if r.Deltas[1] != 8000+600+2000 || r.Deltas[3] != -8600 {
		t.Fatalf("expected +10600/-8600, got %v", r.Deltas)
	}
	if m.RiichiSticks != 0 {
		t.Fatalf("sticks expected collected, got %d", m.RiichiSticks)
	}
}

func TestSettleWin_NoYakuBecomesPenalty(t *testing.T) {
	_, m := startedMatch(t)
	m.RiichiSticks = 1
	m.Honba = 1
	doraOnly := &Evaluation{HasYaku: false, Dora: 2, Fan: 2}
	settleWin(m, ResultRon, 2, 0, tl("2p"), doraOnly, nil, &Outcome{})
	r := m.LastResult
	if r.Kind != ResultPenalty {
		t.Fatalf("dora-only win expected penalty, got %s", r.Kind)
	}
	if r.Deltas[2] >= 0 {
		t.Fatalf("declarer must not gain from a dora-only win, delta %d", r.Deltas[2])
	}
	if r.Deltas != [4]int{4000, 2000, -8000, 2000} {
		t.Fatalf("penalty deltas expected [4000 2000 -8000 2000], got %v", r.Deltas)
	}
	if m.RiichiSticks != 1 || m.Honba != 1 || m.DealerIndex != 0 {
		t.Fatalf("penalty must keep sticks, honba and dealer, got %d/%d/%d", m.RiichiSticks, m.Honba, m.DealerIndex)
	}
}

func TestEndRound_NegativeScoreEndsMatch(t *testing.T) {
	_, m := startedMatch(t)
	m.Players[3].Score = 500
	settleWin(m, ResultRon, 1, 3, tl("2p"), &Evaluation{HasYaku: true, Points: 8000}, nil, &Outcome{})
	if m.Phase != PhaseGameOver {
		t.Fatalf("negative score expected game over, got %s", m.Phase)
	}
	if len(m.Standings) != 4 || m.Standings[0].Seat != 1 || m.Standings[3].Seat != 3 {
		t.Fatalf("unexpected standings %+v", m.Standings)
	}
	if m.Standings[0].Rank != 1 || m.Standings[3].Rank != 4 {
		t.Fatalf("ranks expected 1..4, got %+v", m.Standings)
	}
}

func TestEndRound_MaxRounds(t *testing.T) {
	_, m := startedMatch(t)
	m.Round = Round{Wind: East, Number: 4}
	m.DealerIndex = 3
	out := &Outcome{}
	settleWin(m, ResultRon, 1, 2, tl("2p"), &Evaluation{HasYaku: true, Points: 1000}, nil, out)
	if m.Phase != PhaseGameOver {
		t.Fatalf("rotation past the last round expected game over, got %s round %+v", m.Phase, m.Round)
	}
	if m.Round.Index() != 4 {
		t.Fatalf("round index expected 4, got %d", m.Round.Index())
	}
}

func TestEndRound_FinalDealerWinWhileFirst(t *testing.T) {
	_, m := startedMatch(t)
	m.Round = Round{Wind: East, Number: 4}
	m.DealerIndex = 3
	m.Players[3].Score = 30000
	settleWin(m, ResultTsumo, 3, -1, tl("2p"), &Evaluation{HasYaku: true, Points: 1200}, nil, &Outcome{})
	if m.Phase != PhaseGameOver {
		t.Fatalf("final dealer win while first expected game over, got %s", m.Phase)
	}

	_, m = startedMatch(t)
	m.Round = Round{Wind: East, Number: 4}
	m.DealerIndex = 3
	m.Players[0].Score = 40000
	settleWin(m, ResultTsumo, 3, -1, tl("2p"), &Evaluation{HasYaku: true, Points: 1200}, nil, &Outcome{})
	if m.Phase != PhaseRoundEnd || m.DealerIndex != 3 {
		t.Fatalf("final dealer win while not first expected renchan, got %s dealer %d", m.Phase, m.DealerIndex)
	}
}

func TestNextRound_AfterRoundEndTimer(t *testing.T) {
	e, m := startedMatch(t)
	settleWin(m, ResultRon, 1, 0, tl("2p"), &Evaluation{HasYaku: true, Points: 1000}, nil, &Outcome{})
	m.refreshEligibility()
	next, _, err := e.HandleTimer(m, m.ActionSeq)
	if err != nil {
		t.Fatalf("round-end timer: %v", err)
	}
	if next.Phase != PhasePlayerTurn || next.CurrentTurn != 1 {
		t.Fatalf("expected new dealer 1 to draw, got %s seat %d", next.Phase, next.CurrentTurn)
	}
	if !next.Players[1].IsDealer || next.Players[1].SeatWind != East || next.Players[0].SeatWind != North {
		t.Fatalf("seat winds expected rotated, got dealer=%v p1=%s p0=%s", next.Players[1].IsDealer, next.Players[1].SeatWind, next.Players[0].SeatWind)
	}
	for _, p := range next.Players {
		if len(p.Hand) != HandSize {
			t.Fatalf("seat %d expected %d tiles, got %d", p.Seat, HandSize, len(p.Hand))
		}
	}
	if next.Wall.Remaining() != 64-DeadWallSize-16 || len(next.DoraIndicators) != 1 {
		t.Fatalf("fresh wall expected, remaining %d indicators %d", next.Wall.Remaining(), len(next.DoraIndicators))
	}
}
