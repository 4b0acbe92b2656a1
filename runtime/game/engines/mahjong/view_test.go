package mahjong

import (
	"encoding/json"
	"testing"
)

func TestViewFor_HidesOtherSeats(t *testing.T) {
	e, m := startedMatch(t)
	setHands(m, fillerLive(10), "1p 1p 2p 3p", "2m 2m 2m 2p", "2s 2s 2s 3p", "3m 3m 5z 6z")
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDraw, PlayerID: "p0"})

	v := ViewFor(m, "p1")
	if v.ViewerSeat != 1 {
		t.Fatalf("viewer seat expected 1, got %d", v.ViewerSeat)
	}
	if v.Wall != nil {
		t.Fatalf("wall should be hidden")
	}
	if v.WallRemaining != m.Wall.Remaining() {
		t.Fatalf("wall remaining expected %d, got %d", m.Wall.Remaining(), v.WallRemaining)
	}
	if len(v.Players[1].Hand) != 4 {
		t.Fatalf("own hand expected 4 tiles, got %d", len(v.Players[1].Hand))
	}
	if v.Players[0].Hand != nil || v.HandCounts[0] != 5 {
		t.Fatalf("dealer hand expected hidden with count 5, got %v count %d", v.Players[0].Hand, v.HandCounts[0])
	}
	if v.DrawnTile != nil {
		t.Fatalf("drawn tile leaked to non-acting seat")
	}
	if v.Players[0].Eligibility.CanDiscard {
		t.Fatalf("other seat eligibility leaked")
	}
	if len(v.UraDoraIndicators) != 0 {
		t.Fatalf("ura dora leaked during play")
	}

	// 视图是副本，不影响权威状态
	if len(m.Players[0].Hand) != 5 || m.Wall == nil {
		t.Fatalf("authoritative match mutated by view")
	}

	own := ViewFor(m, "p0")
	if own.DrawnTile == nil || len(own.Players[0].Hand) != 5 {
		t.Fatalf("acting seat should see its drawn tile and hand")
	}
	if len(own.LegalMoves) == 0 {
		t.Fatalf("acting seat expected legal moves")
	}
}

func TestViewFor_Spectator(t *testing.T) {
	_, m := startedMatch(t)
	v := ViewFor(m, "someone")
	if v.ViewerSeat != -1 {
		t.Fatalf("spectator seat expected -1, got %d", v.ViewerSeat)
	}
	for _, p := range v.Players {
		if p.Hand != nil {
			t.Fatalf("spectator sees seat %d hand", p.Seat)
		}
	}
	if len(v.LegalMoves) != 0 {
		t.Fatalf("spectator legal moves expected none, got %v", v.LegalMoves)
	}
}

func TestEventsFor_HidesStockTile(t *testing.T) {
	tile := Tile{Suit: Circles, Rank: 3, ID: 3}
	events := []Event{
		{Kind: EventUseStock, Seat: 2, Tile: &tile},
		{Kind: EventDiscard, Seat: 2, Tile: &tile},
	}
	other := EventsFor(events, 0)
	if other[0].Tile != nil {
		t.Fatalf("stock tile leaked to seat 0")
	}
	if other[1].Tile == nil {
		t.Fatalf("discard tile expected public")
	}
	own := EventsFor(events, 2)
	if own[0].Tile == nil {
		t.Fatalf("owner expected to see its stock tile")
	}
	if events[0].Tile == nil {
		t.Fatalf("source events mutated")
	}
}

func TestViewFor_HidesEarlierResponses(t *testing.T) {
	e, m := dealerToDiscard(t, "1m 1m 3s 1z 2p", "2m 2m 2m 2p", "2s 2s 2s 2p", "3m 3m 5z 6z")
	discard := findTile(t, m.Players[0].Hand, "2p")
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDiscard, PlayerID: "p0", TileID: discard.ID})
	m, _ = mustHandle(t, e, m, Intent{Kind: IntentCall, PlayerID: "p1", Call: CallRon})
	if m.ActiveResponder != "p2" || len(m.ResponseQueue) != 1 {
		t.Fatalf("expected p1 ron queued with p2 active, got queue=%v active=%s", m.ResponseQueue, m.ActiveResponder)
	}

	if v := ViewFor(m, "p2"); len(v.ResponseQueue) != 0 {
		t.Fatalf("next responder sees earlier declarations: %v", v.ResponseQueue)
	}
	if v := ViewFor(m, "spectator"); len(v.ResponseQueue) != 0 {
		t.Fatalf("spectator sees declarations: %v", v.ResponseQueue)
	}
	own := ViewFor(m, "p1")
	if len(own.ResponseQueue) != 1 || own.ResponseQueue[0].Kind != CallRon {
		t.Fatalf("declarer expected to see its own ron, got %v", own.ResponseQueue)
	}
	if len(m.ResponseQueue) != 1 {
		t.Fatalf("authoritative queue mutated by view")
	}
}

func TestPresentation_SurvivesHandleAndReload(t *testing.T) {
	e, m := startedMatch(t)
	m.Presentation = map[string]any{"popup": "riichi", "highlight": []any{"12", "40"}}

	m, _ = mustHandle(t, e, m, Intent{Kind: IntentDraw, PlayerID: "p0"})
	if m.Presentation["popup"] != "riichi" {
		t.Fatalf("presentation lost after handle, got %v", m.Presentation)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var reloaded Match
	if err := json.Unmarshal(data, &reloaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	hl, ok := reloaded.Presentation["highlight"].([]any)
	if reloaded.Presentation["popup"] != "riichi" || !ok || len(hl) != 2 || hl[1] != "40" {
		t.Fatalf("presentation expected to survive reload, got %v", reloaded.Presentation)
	}
	if v := ViewFor(&reloaded, "p1"); v.Presentation["popup"] != "riichi" {
		t.Fatalf("presentation expected in view, got %v", v.Presentation)
	}
}
