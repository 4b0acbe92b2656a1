package mahjong

import (
	"fmt"
	"strings"
	"testing"
)

var nextTestID int16 = 1000

// tl 解析 "1p" / "3m" / "2s" / "5z" 形式的牌，ID 自增保证唯一
func tl(s string) Tile {
	var suit Suit
	switch s[1] {
	case 'm':
		suit = Characters
	case 'p':
		suit = Circles
	case 's':
		suit = Bamboo
	case 'z':
		suit = Honor
	default:
		panic(fmt.Sprintf("bad tile %q", s))
	}
	nextTestID++
	return Tile{Suit: suit, Rank: int8(s[0] - '0'), ID: nextTestID}
}

func tiles(text string) []Tile {
	fields := strings.Fields(text)
	out := make([]Tile, 0, len(fields))
	for _, f := range fields {
		out = append(out, tl(f))
	}
	return out
}

func kind(s string) Kind {
	return tl(s).Kind()
}

// testWall 指定牌山，王牌全为北（宝牌为东），已翻开一张指示牌
func testWall(live []Tile) *Wall {
	return &Wall{Live: live, Dead: tiles("4z 4z 4z 4z 4z 4z 4z 4z 4z 4z 4z 4z 4z 4z"), Revealed: 1}
}

// fillerLive n 张与测试手牌无关的牌
func fillerLive(n int) []Tile {
	out := make([]Tile, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, tl("6z"))
	}
	return out
}

// startedMatch 四人入座并开局，返回引擎和处于庄家摸牌阶段的对局
func startedMatch(t *testing.T) (*Engine, *Match) {
	t.Helper()
	e := NewEngine(DefaultTiming(), 7)
	m := CreateDefaultGameState("m1", DefaultRule())
	var err error
	for _, id := range []string{"p0", "p1", "p2", "p3"} {
		m, _, err = e.Handle(m, Intent{Kind: IntentJoin, PlayerID: id})
		if err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	m, _, err = e.Handle(m, Intent{Kind: IntentStart, PlayerID: "p0"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Phase != PhasePlayerTurn || m.CurrentTurn != 0 {
		t.Fatalf("after start expected dealer PlayerTurn, got %s seat %d", m.Phase, m.CurrentTurn)
	}
	return e, m
}

// setHands 覆盖四家手牌与牌山并刷新资格
func setHands(m *Match, live []Tile, hands ...string) {
	for seat, h := range hands {
		m.Players[seat].Hand = tiles(h)
		SortTiles(m.Players[seat].Hand)
	}
	m.Wall = testWall(live)
	m.DoraIndicators = m.Wall.DoraIndicators()
	m.refreshEligibility()
}

func mustHandle(t *testing.T, e *Engine, m *Match, in Intent) (*Match, *Outcome) {
	t.Helper()
	next, out, err := e.Handle(m, in)
	if err != nil {
		t.Fatalf("%s by %s: %v", in.Kind, in.PlayerID, err)
	}
	return next, out
}

func findTile(t *testing.T, hand []Tile, s string) Tile {
	t.Helper()
	k := kind(s)
	for _, x := range hand {
		if x.Kind() == k {
			return x
		}
	}
	t.Fatalf("tile %s not in hand %v", s, hand)
	return Tile{}
}
