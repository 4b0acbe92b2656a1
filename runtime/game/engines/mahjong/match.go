package mahjong

import (
	"encoding/json"
	"time"
)

const (
	PlayerCount = 4
	HandSize    = 4
	RiichiCost  = 1000
)

// Phase 对局阶段
type Phase string

const (
	PhaseWaitingToStart         Phase = "WaitingToStart"
	PhasePlayerTurn             Phase = "PlayerTurn"
	PhaseAwaitingStockSelection Phase = "AwaitingStockSelectionTimer"
	PhaseAwaitingDiscard        Phase = "AwaitingDiscard"
	PhaseAwaitingRiichiDiscard  Phase = "AwaitingRiichiDiscard"
	PhaseAwaitingAction         Phase = "AwaitingActionResponse"
	PhaseAwaitingKakan          Phase = "AwaitingKakanResponse"
	PhaseRoundEnd               Phase = "RoundEnd"
	PhaseGameOver               Phase = "GameOver"
)

// MeldKind 副露类型
type MeldKind string

const (
	MeldPon       MeldKind = "pon"
	MeldOpenKan   MeldKind = "open-kan"
	MeldClosedKan MeldKind = "closed-kan"
	MeldAddedKan  MeldKind = "added-kan"
)

type Meld struct {
	Kind         MeldKind `json:"kind"`
	Tiles        []Tile   `json:"tiles"`
	SourcePlayer string   `json:"sourcePlayer,omitempty"`
	RelativeSeat int      `json:"relativeSeat"` // 1 下家 2 对家 3 上家，暗杠为 0
}

func (m Meld) TileKind() Kind {
	return m.Tiles[0].Kind()
}

func (m Meld) IsConcealed() bool {
	return m.Kind == MeldClosedKan
}

func (m Meld) IsKan() bool {
	return m.Kind != MeldPon
}

func (m Meld) Group() Group {
	g := Group{Kind: GroupTriplet, First: m.TileKind(), Open: !m.IsConcealed()}
	if m.IsKan() {
		g.Kind = GroupQuad
	}
	return g
}

// Eligibility 当前可执行操作，由 RecomputeEligibility 统一生成
type Eligibility struct {
	CanDraw        bool   `json:"canDraw,omitempty"`
	CanUseStock    bool   `json:"canUseStock,omitempty"`
	CanDiscard     bool   `json:"canDiscard,omitempty"`
	CanBank        bool   `json:"canBank,omitempty"`
	CanTsumo       bool   `json:"canTsumo,omitempty"`
	CanRiichi      bool   `json:"canRiichi,omitempty"`
	RiichiDiscards []Kind `json:"riichiDiscards,omitempty"`
	ClosedKans     []Kind `json:"closedKans,omitempty"`
	AddedKans      []Kind `json:"addedKans,omitempty"`
	CanRon         bool   `json:"canRon,omitempty"`
	CanPon         bool   `json:"canPon,omitempty"`
	CanKan         bool   `json:"canKan,omitempty"`
	Waits          []Kind `json:"waits,omitempty"`
}

type Player struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Seat               int         `json:"seat"`
	Hand               []Tile      `json:"hand"`
	Discards           []Tile      `json:"discards"`
	Melds              []Meld      `json:"melds"`
	Score              int         `json:"score"`
	SeatWind           Wind        `json:"seatWind"`
	IsDealer           bool        `json:"isDealer"`
	IsRiichi           bool        `json:"isRiichi"`
	IsDoubleRiichi     bool        `json:"isDoubleRiichi"`
	IsFuriten          bool        `json:"isFuriten"`
	IsTemporaryFuriten bool        `json:"isTemporaryFuriten"`
	Ippatsu            bool        `json:"ippatsu"`
	RiichiPending      bool        `json:"riichiPending,omitempty"`
	Acted              bool        `json:"acted"` // 本局是否已打出过牌，判断天和/地和/人和/两立直
	Stock              *Tile       `json:"stock,omitempty"`
	Disconnected       bool        `json:"disconnected"`
	Eligibility        Eligibility `json:"eligibility"`
}

// IsConcealed 门清（暗杠不破坏门清）
func (p *Player) IsConcealed() bool {
	for _, m := range p.Melds {
		if !m.IsConcealed() {
			return false
		}
	}
	return true
}

type Round struct {
	Wind   Wind `json:"wind"`
	Number int  `json:"number"`
}

// Index 东一局为 0
func (r Round) Index() int {
	return (int(r.Wind)-East)*4 + r.Number - 1
}

type Discard struct {
	Seat  int  `json:"seat"`
	Tile  Tile `json:"tile"`
	Final bool `json:"final"` // 牌山已空时打出的最后一张
}

type CallKind string

const (
	CallRon  CallKind = "ron"
	CallKan  CallKind = "kan"
	CallPon  CallKind = "pon"
	CallSkip CallKind = "skip"
)

func (c CallKind) Priority() int {
	switch c {
	case CallRon:
		return 3
	case CallKan:
		return 2
	case CallPon:
		return 1
	}
	return 0
}

// Options 某位玩家对当前舍牌/加杠可选的响应
type Options struct {
	CanRon bool `json:"canRon"`
	CanPon bool `json:"canPon"`
	CanKan bool `json:"canKan"`
}

func (o Options) Allows(c CallKind) bool {
	switch c {
	case CallRon:
		return o.CanRon
	case CallPon:
		return o.CanPon
	case CallKan:
		return o.CanKan
	case CallSkip:
		return true
	}
	return false
}

type Response struct {
	PlayerID string   `json:"playerId"`
	Seat     int      `json:"seat"`
	Kind     CallKind `json:"kind"`
	Priority int      `json:"priority"`
}

// PendingKakan 等待抢杠响应的加杠
type PendingKakan struct {
	Seat int  `json:"seat"`
	Tile Tile `json:"tile"`
}

// RoundResult 一局的结算结果
type RoundResult struct {
	Kind       string      `json:"kind"` // ron / tsumo / exhaustive / penalty
	WinnerSeat int         `json:"winnerSeat"`
	LoserSeat  int         `json:"loserSeat"`
	WinTile    *Tile       `json:"winTile,omitempty"`
	Yaku       []YakuScore `json:"yaku,omitempty"`
	Fan        int         `json:"fan"`
	Yakuman    int         `json:"yakuman"`
	Points     int         `json:"points"`
	Tenpai     []int       `json:"tenpai,omitempty"`
	Deltas     [4]int      `json:"deltas"`
	Dropped    []int       `json:"dropped,omitempty"` // 被头跳的荣和座位
	NextDealer int         `json:"nextDealer"`
	Honba      int         `json:"honba"`
}

const (
	ResultRon        = "ron"
	ResultTsumo      = "tsumo"
	ResultExhaustive = "exhaustive"
	ResultPenalty    = "penalty"
)

type Standing struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// Rule 对局规则，随快照一起持久化
type Rule struct {
	Deck          DeckRule `json:"deck"`
	StartingScore int      `json:"startingScore"`
	MaxRounds     int      `json:"maxRounds"`
	StockEnabled  bool     `json:"stockEnabled"`
}

func DefaultRule() Rule {
	return Rule{
		Deck:          CompactDeck(),
		StartingScore: 25000,
		MaxRounds:     4,
		StockEnabled:  true,
	}
}

// Match 对局的完整权威状态
type Match struct {
	ID                string             `json:"id"`
	Phase             Phase              `json:"phase"`
	Rule              Rule               `json:"rule"`
	Players           []*Player          `json:"players"`
	Wall              *Wall              `json:"wall,omitempty"`
	DealerIndex       int                `json:"dealerIndex"`
	Round             Round              `json:"round"`
	Honba             int                `json:"honba"`
	RiichiSticks      int                `json:"riichiSticks"`
	DoraIndicators    []Tile             `json:"doraIndicators"`
	UraDoraIndicators []Tile             `json:"uraDoraIndicators"`
	CurrentTurn       int                `json:"currentTurn"`
	DrawnTile         *Tile              `json:"drawnTile,omitempty"`
	DrawnFromDeadWall bool               `json:"drawnFromDeadWall,omitempty"`
	DrawnFromStock    bool               `json:"drawnFromStock,omitempty"`
	LastDiscard       *Discard           `json:"lastDiscard,omitempty"`
	PendingResponses  map[string]Options `json:"pendingResponses,omitempty"`
	ResponseQueue     []Response         `json:"responseQueue,omitempty"`
	ActiveResponder   string             `json:"activeResponder,omitempty"`
	PendingKakan      *PendingKakan      `json:"pendingKakan,omitempty"`
	CallsMade         bool               `json:"callsMade"` // 本局是否有人鸣牌/杠，打断第一巡
	LastResult        *RoundResult       `json:"lastResult,omitempty"`
	Standings         []Standing         `json:"standings,omitempty"`
	Version           int64              `json:"version"`
	ActionSeq         uint64             `json:"actionSeq"`
	Presentation      map[string]any     `json:"presentation,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// CreateDefaultGameState 新建一局等待开始的对局
func CreateDefaultGameState(id string, rule Rule) *Match {
	now := time.Now()
	return &Match{
		ID:          id,
		Phase:       PhaseWaitingToStart,
		Rule:        rule,
		Players:     make([]*Player, 0, PlayerCount),
		Round:       Round{Wind: East, Number: 1},
		CurrentTurn: -1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (m *Match) Player(id string) *Player {
	for _, p := range m.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Seat 玩家座位，不在对局中返回 -1
func (m *Match) Seat(id string) int {
	if p := m.Player(id); p != nil {
		return p.Seat
	}
	return -1
}

func (m *Match) Current() *Player {
	if m.CurrentTurn < 0 || m.CurrentTurn >= len(m.Players) {
		return nil
	}
	return m.Players[m.CurrentTurn]
}

func (m *Match) Dealer() *Player {
	return m.Players[m.DealerIndex]
}

// Universe 牌库中存在的所有牌种
func (m *Match) Universe() []Kind {
	kinds := make([]Kind, 0, KindCount)
	for _, s := range []Suit{Characters, Circles, Bamboo} {
		for _, r := range m.Rule.Deck.Ranks {
			kinds = append(kinds, Kind{Suit: s, Rank: r})
		}
	}
	if m.Rule.Deck.Honors {
		for r := int8(East); r <= Red; r++ {
			kinds = append(kinds, Kind{Suit: Honor, Rank: r})
		}
	}
	return kinds
}

// Clone 深拷贝，引擎在副本上处理意图，失败时丢弃副本
func (m *Match) Clone() *Match {
	data, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	var out Match
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// relativeSeat 从 from 看 to 的相对位置：1 下家，2 对家，3 上家
func relativeSeat(from, to int) int {
	return (to - from + PlayerCount) % PlayerCount
}
