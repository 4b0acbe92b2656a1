package mahjong

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestHandle_ScenarioA_DealerTsumo(t *testing.T) {
	e, m := startedMatch(t)
	winTile := tl("1p")
	setHands(m, append([]Tile{winTile}, fillerLive(10)...), "1p 1p 2p 3p", "2m 3m 5z 6z", "1s 2s 7z 4z", "3s 3s 1z 2z")

	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDraw, PlayerID: "p0"})
	if m.Phase != PhaseAwaitingDiscard || m.DrawnTile == nil || m.DrawnTile.ID != winTile.ID {
		t.Fatalf("expected dealer holding drawn 1p, got phase %s drawn %v", m.Phase, m.DrawnTile)
	}
	if !m.Players[0].Eligibility.CanTsumo {
		t.Fatalf("1p1p1p2p3p expected isWin=true")
	}
	moves := LegalMoves(m, "p0")
	if !reflect.DeepEqual(moves, []IntentKind{IntentRiichi, IntentTsumo, IntentDiscard, IntentLeave}) {
		t.Fatalf("unexpected legal moves %v", moves)
	}

	m, _ = mustHandle(t, e, m, Intent{Kind: IntentTsumo, PlayerID: "p0"})
	r := m.LastResult
	if r.Kind != ResultTsumo || r.WinnerSeat != 0 {
		t.Fatalf("expected dealer tsumo, got %+v", r)
	}
	// 庄家第一巡自摸即天和
	if r.Yakuman != 1 || r.Points != BaseDealer*4 {
		t.Fatalf("expected tenhou for %d, got yakuman=%d points=%d", BaseDealer*4, r.Yakuman, r.Points)
	}
	if r.Deltas != [4]int{48000, -16000, -16000, -16000} {
		t.Fatalf("unexpected deltas %v", r.Deltas)
	}
	if m.Honba != 1 || m.DealerIndex != 0 {
		t.Fatalf("dealer win expected renchan with honba 1, got dealer=%d honba=%d", m.DealerIndex, m.Honba)
	}
}

func TestHandle_RejectedIntentLeavesStateUntouched(t *testing.T) {
	e, m := startedMatch(t)
	before, _ := json.Marshal(m)

	cases := []struct {
		in   Intent
		want error
	}{
		{Intent{Kind: IntentDraw, PlayerID: "p1"}, ErrNotYourTurn},
		{Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: m.Players[0].Hand[0].ID}, ErrWrongPhase},
		{Intent{Kind: IntentCall, PlayerID: "p2", Call: CallRon}, ErrWrongPhase},
		{Intent{Kind: IntentDraw, PlayerID: "ghost"}, ErrNotSeated},
		{Intent{Kind: IntentJoin, PlayerID: "p9"}, ErrMatchFull},
		{Intent{Kind: "shout", PlayerID: "p0"}, ErrUnknownIntent},
	}
	for _, c := range cases {
		next, out, err := e.Handle(m, c.in)
		if !errors.Is(err, c.want) {
			t.Fatalf("%s by %s expected %v, got %v", c.in.Kind, c.in.PlayerID, c.want, err)
		}
		if next != nil || out != nil {
			t.Fatalf("rejected intent must not return a state")
		}
		if !IsIllegalIntent(err) {
			t.Fatalf("%v expected classified as illegal intent", err)
		}
	}
	after, _ := json.Marshal(m)
	if string(before) != string(after) {
		t.Fatalf("rejected intents mutated the match")
	}
}

func TestHandle_DiscardWrongTile(t *testing.T) {
	e, m := startedMatch(t)
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDraw, PlayerID: "p0"})
	if _, _, err := e.Handle(m, Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: -5}); !errors.Is(err, ErrTileNotInHand) {
		t.Fatalf("expected ErrTileNotInHand, got %v", err)
	}
}

func TestHandle_JoinStartLeave(t *testing.T) {
	e := NewEngine(DefaultTiming(), 1)
	m := CreateDefaultGameState("lobby", DefaultRule())
	var err error
	for _, id := range []string{"a", "b", "c"} {
		m, _ = mustHandle(t, e, m, Intent{Kind: IntentJoin, PlayerID: id, Name: "n-" + id})
	}
	if _, _, err = e.Handle(m, Intent{Kind: IntentJoin, PlayerID: "a"}); !errors.Is(err, ErrAlreadySeated) {
		t.Fatalf("second join expected ErrAlreadySeated, got %v", err)
	}
	if _, _, err = e.Handle(m, Intent{Kind: IntentStart, PlayerID: "a"}); !errors.Is(err, ErrInsufficientPlayers) {
		t.Fatalf("start with 3 expected ErrInsufficientPlayers, got %v", err)
	}
	if m.Phase != PhaseWaitingToStart {
		t.Fatalf("failed start must stay in WaitingToStart, got %s", m.Phase)
	}

	m, _ = mustHandle(t, e, m, Intent{Kind: IntentLeave, PlayerID: "a"})
	if len(m.Players) != 2 || m.Players[0].ID != "b" || m.Players[0].Seat != 0 {
		t.Fatalf("leave expected reseat, got %+v", m.Players)
	}
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentLeave, PlayerID: "b"})
	m, out := mustHandle(t, e, m, Intent{Kind: IntentLeave, PlayerID: "c"})
	if !out.Abandoned || len(m.Players) != 0 {
		t.Fatalf("last leave expected abandoned, got %+v", out)
	}
}

func TestHandle_DisconnectAndReconnect(t *testing.T) {
	e, m := startedMatch(t)
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentLeave, PlayerID: "p0"})
	if !m.Players[0].Disconnected || m.Phase != PhasePlayerTurn {
		t.Fatalf("mid-round leave expected disconnected, phase unchanged")
	}
	d, ok := e.Deadline(m)
	if !ok || d != DefaultTiming().AutoPlay {
		t.Fatalf("disconnected actor expected auto-play delay, got %v", d)
	}
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentJoin, PlayerID: "p0"})
	if m.Players[0].Disconnected {
		t.Fatalf("rejoin expected to clear disconnected")
	}
	if d, _ := e.Deadline(m); d != DefaultTiming().Turn {
		t.Fatalf("connected actor expected turn deadline, got %v", d)
	}
}

func TestHandleTimer_StaleAndAutoPlay(t *testing.T) {
	e, m := startedMatch(t)
	seq := m.ActionSeq
	if _, _, err := e.HandleTimer(m, seq-1); !errors.Is(err, ErrStaleTimer) {
		t.Fatalf("old seq expected ErrStaleTimer, got %v", err)
	}

	m, _ = mustTimer(t, e, m)
	if m.Phase != PhaseAwaitingDiscard || m.CurrentTurn != 0 {
		t.Fatalf("turn timeout expected auto-draw, got %s", m.Phase)
	}
	drawn := *m.DrawnTile
	m, _ = mustTimer(t, e, m)
	if m.Players[0].Discards[len(m.Players[0].Discards)-1].ID != drawn.ID {
		t.Fatalf("discard timeout expected drawn tile discarded")
	}
	if m.ActionSeq <= seq {
		t.Fatalf("action seq expected to increase")
	}

	idle := CreateDefaultGameState("idle", DefaultRule())
	if _, ok := e.Deadline(idle); ok {
		t.Fatalf("waiting match expected no deadline")
	}
	if _, _, err := e.HandleTimer(idle, idle.ActionSeq); !errors.Is(err, ErrNoDeadline) {
		t.Fatalf("waiting match timer expected ErrNoDeadline, got %v", err)
	}
}

func mustTimer(t *testing.T, e *Engine, m *Match) (*Match, *Outcome) {
	t.Helper()
	next, out, err := e.HandleTimer(m, m.ActionSeq)
	if err != nil {
		t.Fatalf("timer in %s: %v", m.Phase, err)
	}
	return next, out
}

func TestHandle_SetTimingHotReload(t *testing.T) {
	e, m := startedMatch(t)
	timing := DefaultTiming()
	timing.Turn = 3 * time.Second
	e.SetTiming(timing)
	if d, _ := e.Deadline(m); d != 3*time.Second {
		t.Fatalf("expected reloaded turn deadline, got %v", d)
	}
}

func TestHandle_BankAndUseStock(t *testing.T) {
	e, m := dealerToDiscard(t, "1m 1m 3s 1z 7z", "2m 2m 2p 3p", "2s 2s 7z 7z", "3m 3m 5z 6z")
	bank := findTile(t, m.Players[0].Hand, "7z")
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: bank.ID, Bank: true})
	if m.Players[0].Stock == nil || m.Players[0].Stock.ID != bank.ID {
		t.Fatalf("expected 7z banked")
	}
	if m.Phase != PhasePlayerTurn || m.CurrentTurn != 1 || m.PendingResponses != nil {
		t.Fatalf("bank expected to pass the turn without arbitration, got %s seat %d", m.Phase, m.CurrentTurn)
	}
	if len(m.Players[0].Discards) != 0 {
		t.Fatalf("banked tile must not enter the river")
	}

	// 再次轮到 0 号位时进入 stock 选择
	nextTurn(m, 0)
	m.refreshEligibility()
	if m.Phase != PhaseAwaitingStockSelection || !m.Players[0].Eligibility.CanUseStock {
		t.Fatalf("expected stock selection, got %s", m.Phase)
	}
	if d, _ := e.Deadline(m); d != DefaultTiming().Stock {
		t.Fatalf("expected stock deadline, got %v", d)
	}
	if _, _, err := e.Handle(m, Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: bank.ID, Bank: true}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("discard during stock selection expected ErrWrongPhase, got %v", err)
	}
	used, _ := mustHandle(t, e, m, Intent{Kind: IntentUseStock, PlayerID: "p0"})
	if used.Players[0].Stock != nil || !used.DrawnFromStock || used.DrawnTile.ID != bank.ID {
		t.Fatalf("use-stock expected stock tile drawn")
	}
	if len(used.Players[0].Hand) != HandSize+1 || used.Phase != PhaseAwaitingDiscard {
		t.Fatalf("use-stock expected a 5-tile hand awaiting discard, got %d tiles", len(used.Players[0].Hand))
	}

	timedOut, _ := mustTimer(t, e, m)
	if timedOut.Players[0].Stock == nil || timedOut.DrawnFromStock {
		t.Fatalf("stock timeout expected a plain draw keeping the stock")
	}
}

func TestHandle_RiichiDeclaration(t *testing.T) {
	e, m := dealerToDiscard(t, "1p 2p 3p 1z 5z", "2m 2m 2p 3m", "2s 2s 7z 3p", "3m 3s 1s 6z")
	p0 := m.Players[0]
	if !p0.Eligibility.CanRiichi || !reflect.DeepEqual(p0.Eligibility.RiichiDiscards, []Kind{kind("1z"), kind("5z")}) {
		t.Fatalf("expected riichi on 1z/5z, got %+v", p0.Eligibility)
	}
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentRiichi, PlayerID: "p0"})
	if m.Phase != PhaseAwaitingRiichiDiscard {
		t.Fatalf("expected AwaitingRiichiDiscard, got %s", m.Phase)
	}
	bad := findTile(t, m.Players[0].Hand, "1p")
	if _, _, err := e.Handle(m, Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: bad.ID}); !errors.Is(err, ErrIllegalRiichi) {
		t.Fatalf("non-tenpai discard expected ErrIllegalRiichi, got %v", err)
	}
	good := findTile(t, m.Players[0].Hand, "5z")
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: good.ID})
	p0 = m.Players[0]
	if !p0.IsRiichi || !p0.IsDoubleRiichi || !p0.Ippatsu || p0.RiichiPending {
		t.Fatalf("expected double riichi with ippatsu, got %+v", p0)
	}
	if p0.Score != 24000 || m.RiichiSticks != 1 {
		t.Fatalf("stick expected deposited, score=%d sticks=%d", p0.Score, m.RiichiSticks)
	}
	if m.CurrentTurn != 1 {
		t.Fatalf("expected turn to pass, got seat %d", m.CurrentTurn)
	}
}

func TestHandle_RiichiDeclarationRonnedKeepsStick(t *testing.T) {
	e, m := dealerToDiscard(t, "1p 2p 3p 1z 5z", "2m 2m 5z 5z", "2s 2s 7z 3p", "3m 3s 1s 6z")
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentRiichi, PlayerID: "p0"})
	good := findTile(t, m.Players[0].Hand, "5z")
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: good.ID})
	if m.ActiveResponder != "p1" {
		t.Fatalf("expected p1 to respond, got %q", m.ActiveResponder)
	}
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentCall, PlayerID: "p1", Call: CallRon})
	if m.RiichiSticks != 0 || m.LastResult.Deltas[0] >= 0 {
		t.Fatalf("ronned declaration must not deposit a stick, sticks=%d", m.RiichiSticks)
	}
	if m.Players[0].Score != 25000+m.LastResult.Deltas[0] || m.Players[0].RiichiPending {
		t.Fatalf("declarer must not pay the stick, score %d", m.Players[0].Score)
	}
}

func TestHandle_ClosedKanDrawsRinshan(t *testing.T) {
	e, m := dealerToDiscard(t, "1m 1m 1m 2p 1m", "2m 2m 2p 3m", "2s 2s 7z 6z", "3m 3s 1s 6z")
	if !reflect.DeepEqual(m.Players[0].Eligibility.ClosedKans, []Kind{kind("1m")}) {
		t.Fatalf("expected closed kan on 1m, got %v", m.Players[0].Eligibility.ClosedKans)
	}
	quad := findTile(t, m.Players[0].Hand, "1m")
	live := m.Wall.Remaining()
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentClosedKan, PlayerID: "p0", TileID: quad.ID})
	p0 := m.Players[0]
	if len(p0.Melds) != 1 || p0.Melds[0].Kind != MeldClosedKan || len(p0.Melds[0].Tiles) != 4 {
		t.Fatalf("expected closed kan meld, got %+v", p0.Melds)
	}
	if len(p0.Hand) != 2 || !m.DrawnFromDeadWall || m.Phase != PhaseAwaitingDiscard {
		t.Fatalf("expected rinshan draw into 2-tile hand, got %d tiles phase %s", len(p0.Hand), m.Phase)
	}
	if len(m.DoraIndicators) != 2 || m.Wall.Remaining() != live-1 {
		t.Fatalf("expected second indicator and shorter live wall, got %d / %d", len(m.DoraIndicators), m.Wall.Remaining())
	}
	if !p0.IsConcealed() || !m.CallsMade {
		t.Fatalf("closed kan keeps hand concealed and breaks the first go-around")
	}
}

func TestHandle_AddedKanChankan(t *testing.T) {
	e, m := dealerToDiscard(t, "1z 2m", "1m 3m 3z 3z", "2s 2s 7z 6z", "3m 3s 1s 6z")
	m.Players[0].Melds = []Meld{{Kind: MeldPon, Tiles: tiles("2m 2m 2m"), SourcePlayer: "p2", RelativeSeat: 2}}
	d := findTile(t, m.Players[0].Hand, "2m")
	m.DrawnTile = &d
	m.refreshEligibility()
	if !reflect.DeepEqual(m.Players[0].Eligibility.AddedKans, []Kind{kind("2m")}) {
		t.Fatalf("expected added kan on 2m, got %v", m.Players[0].Eligibility.AddedKans)
	}

	noRob := m.Clone()
	noRob.Players[1].Hand = tiles("1s 3s 3z 3z")
	noRob.refreshEligibility()
	done, _ := mustHandle(t, e, noRob, Intent{Kind: IntentAddedKan, PlayerID: "p0", TileID: d.ID})
	if done.Players[0].Melds[0].Kind != MeldAddedKan || len(done.Players[0].Melds[0].Tiles) != 4 {
		t.Fatalf("expected pon upgraded in place, got %+v", done.Players[0].Melds)
	}
	if !done.DrawnFromDeadWall || done.Phase != PhaseAwaitingDiscard {
		t.Fatalf("expected rinshan draw after added kan")
	}

	m, _ = mustHandle(t, e, m, Intent{Kind: IntentAddedKan, PlayerID: "p0", TileID: d.ID})
	if m.Phase != PhaseAwaitingKakan || m.ActiveResponder != "p1" {
		t.Fatalf("expected chankan window for p1, got %s %q", m.Phase, m.ActiveResponder)
	}
	if opts := m.PendingResponses["p1"]; opts.CanPon || opts.CanKan || !opts.CanRon {
		t.Fatalf("chankan window expected ron only, got %+v", opts)
	}
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentCall, PlayerID: "p1", Call: CallRon})
	r := m.LastResult
	if r.Kind != ResultRon || r.WinnerSeat != 1 || r.LoserSeat != 0 {
		t.Fatalf("expected chankan ron by seat 1, got %+v", r)
	}
	chankan := false
	for _, y := range r.Yaku {
		if y.Yaku == YakuChankan {
			chankan = true
		}
	}
	if !chankan {
		t.Fatalf("expected chankan yaku, got %+v", r.Yaku)
	}
	if m.Players[0].Melds[0].Kind != MeldPon {
		t.Fatalf("robbed kan must leave the pon untouched")
	}
}
