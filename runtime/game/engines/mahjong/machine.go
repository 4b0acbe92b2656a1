package mahjong

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

var (
	ErrStaleTimer = errors.New("timer superseded by a later action")
	ErrNoDeadline = errors.New("phase has no deadline")
)

// Timing 各阶段的限时，超时后由引擎自动处理
type Timing struct {
	Turn     time.Duration // 摸牌
	Discard  time.Duration // 打牌
	Response time.Duration // 鸣牌/荣和响应
	Stock    time.Duration // stock 选择
	RoundEnd time.Duration // 结算展示
	AutoPlay time.Duration // 断线玩家的代打延迟
}

func DefaultTiming() Timing {
	return Timing{
		Turn:     10 * time.Second,
		Discard:  20 * time.Second,
		Response: 8 * time.Second,
		Stock:    5 * time.Second,
		RoundEnd: 6 * time.Second,
		AutoPlay: time.Second,
	}
}

// EventKind 状态变更的展示提示，引擎只产出不解读
type EventKind string

const (
	EventJoin       EventKind = "join"
	EventLeave      EventKind = "leave"
	EventReconnect  EventKind = "reconnect"
	EventRoundStart EventKind = "round-start"
	EventDraw       EventKind = "draw"
	EventUseStock   EventKind = "use-stock"
	EventDiscard    EventKind = "discard"
	EventBank       EventKind = "bank"
	EventRiichi     EventKind = "riichi"
	EventPon        EventKind = "pon"
	EventKan        EventKind = "kan"
	EventSkip       EventKind = "skip"
	EventRon        EventKind = "ron"
	EventTsumo      EventKind = "tsumo"
	EventPenalty    EventKind = "penalty"
	EventExhaustive EventKind = "exhaustive-draw"
	EventGameOver   EventKind = "game-over"
)

type Event struct {
	Kind EventKind `json:"kind"`
	Seat int       `json:"seat"`
	Tile *Tile     `json:"tile,omitempty"`
}

// Outcome 一次处理的附带结果
type Outcome struct {
	Events    []Event
	GameOver  bool
	Abandoned bool // 开局前所有玩家离开
}

func (o *Outcome) emit(kind EventKind, seat int, t *Tile) {
	var tile *Tile
	if t != nil {
		c := *t
		tile = &c
	}
	o.Events = append(o.Events, Event{Kind: kind, Seat: seat, Tile: tile})
}

// Engine 无状态规则引擎：输入快照与意图，输出新快照；共享的只有随机源与限时配置
type Engine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	timing Timing
	now    func() time.Time
}

func NewEngine(timing Timing, seed uint64) *Engine {
	return &Engine{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		timing: timing,
		now:    time.Now,
	}
}

// SetTiming 热更新限时配置，下一次调度生效
func (e *Engine) SetTiming(t Timing) {
	e.mu.Lock()
	e.timing = t
	e.mu.Unlock()
}

func (e *Engine) Timing() Timing {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timing
}

func (e *Engine) shuffle(tiles []Tile) {
	e.mu.Lock()
	Shuffle(tiles, e.rng)
	e.mu.Unlock()
}

// Handle 在副本上处理意图；出错时返回的快照为 nil，原快照不受影响
func (e *Engine) Handle(m *Match, in Intent) (*Match, *Outcome, error) {
	next := m.Clone()
	out := &Outcome{}
	if err := e.dispatch(next, in, out); err != nil {
		return nil, nil, err
	}
	e.commit(next, out)
	return next, out, nil
}

// HandleTimer 处理超时；seq 与当前 ActionSeq 不一致说明已被后续操作取代
func (e *Engine) HandleTimer(m *Match, seq uint64) (*Match, *Outcome, error) {
	if seq != m.ActionSeq {
		return nil, nil, ErrStaleTimer
	}
	in, ok := autoIntent(m)
	if !ok {
		return nil, nil, ErrNoDeadline
	}
	next := m.Clone()
	out := &Outcome{}
	var err error
	if m.Phase == PhaseRoundEnd {
		err = e.startRound(next, out)
	} else {
		err = e.dispatch(next, in, out)
	}
	if err != nil {
		return nil, nil, err
	}
	e.commit(next, out)
	return next, out, nil
}

func (e *Engine) commit(next *Match, out *Outcome) {
	next.ActionSeq++
	next.UpdatedAt = e.now()
	next.refreshEligibility()
	if next.Phase == PhaseGameOver {
		out.GameOver = true
	}
}

// Deadline 当前阶段的超时时长；无需计时时返回 false
func (e *Engine) Deadline(m *Match) (time.Duration, bool) {
	t := e.Timing()
	var d time.Duration
	var actor *Player
	switch m.Phase {
	case PhasePlayerTurn:
		d, actor = t.Turn, m.Current()
	case PhaseAwaitingStockSelection:
		d, actor = t.Stock, m.Current()
	case PhaseAwaitingDiscard, PhaseAwaitingRiichiDiscard:
		d, actor = t.Discard, m.Current()
	case PhaseAwaitingAction, PhaseAwaitingKakan:
		d, actor = t.Response, m.Player(m.ActiveResponder)
	case PhaseRoundEnd:
		return t.RoundEnd, true
	default:
		return 0, false
	}
	if actor != nil && actor.Disconnected && t.AutoPlay < d {
		d = t.AutoPlay
	}
	return d, true
}

// autoIntent 超时或断线代打时的默认操作
func autoIntent(m *Match) (Intent, bool) {
	switch m.Phase {
	case PhasePlayerTurn, PhaseAwaitingStockSelection:
		if p := m.Current(); p != nil {
			return Intent{Kind: IntentDraw, PlayerID: p.ID}, true
		}
	case PhaseAwaitingDiscard, PhaseAwaitingRiichiDiscard:
		if p := m.Current(); p != nil {
			return Intent{Kind: IntentDiscard, PlayerID: p.ID, TileID: autoDiscardTile(m, p).ID}, true
		}
	case PhaseAwaitingAction, PhaseAwaitingKakan:
		if m.ActiveResponder != "" {
			return Intent{Kind: IntentCall, PlayerID: m.ActiveResponder, Call: CallSkip}, true
		}
	case PhaseRoundEnd:
		return Intent{}, true
	}
	return Intent{}, false
}

// autoDiscardTile 优先打出刚摸的牌；立直宣言中从合法集合里选
func autoDiscardTile(m *Match, p *Player) Tile {
	if m.Phase == PhaseAwaitingRiichiDiscard {
		allowed := riichiDiscards(p, m, m.Universe())
		if m.DrawnTile != nil && containsKind(allowed, m.DrawnTile.Kind()) {
			return *m.DrawnTile
		}
		for _, t := range p.Hand {
			if containsKind(allowed, t.Kind()) {
				return t
			}
		}
	}
	if m.DrawnTile != nil {
		return *m.DrawnTile
	}
	return p.Hand[len(p.Hand)-1]
}

func (e *Engine) dispatch(m *Match, in Intent, out *Outcome) error {
	switch in.Kind {
	case IntentJoin:
		return e.join(m, in, out)
	case IntentLeave:
		return e.leave(m, in, out)
	case IntentStart:
		return e.requestStart(m, in, out)
	case IntentDraw:
		return e.draw(m, in, out)
	case IntentUseStock:
		return e.useStock(m, in, out)
	case IntentDiscard:
		return e.discard(m, in, out)
	case IntentRiichi:
		return e.declareRiichi(m, in, out)
	case IntentClosedKan:
		return e.closedKan(m, in, out)
	case IntentAddedKan:
		return e.addedKan(m, in, out)
	case IntentTsumo:
		return e.tsumo(m, in, out)
	case IntentCall:
		return e.call(m, in, out)
	}
	return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Kind)
}

func seated(m *Match, id string) (*Player, error) {
	p := m.Player(id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSeated, id)
	}
	return p, nil
}

// actingPlayer 校验阶段与行动者
func actingPlayer(m *Match, id string, phases ...Phase) (*Player, error) {
	p, err := seated(m, id)
	if err != nil {
		return nil, err
	}
	ok := false
	for _, ph := range phases {
		if m.Phase == ph {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWrongPhase, m.Phase)
	}
	if m.CurrentTurn != p.Seat {
		return nil, fmt.Errorf("%w: seat %d, current %d", ErrNotYourTurn, p.Seat, m.CurrentTurn)
	}
	return p, nil
}

func (e *Engine) join(m *Match, in Intent, out *Outcome) error {
	if p := m.Player(in.PlayerID); p != nil {
		if m.Phase == PhaseWaitingToStart {
			return fmt.Errorf("%w: %s", ErrAlreadySeated, in.PlayerID)
		}
		// 对局中重新加入视为重连，下一次广播即完成同步
		p.Disconnected = false
		out.emit(EventReconnect, p.Seat, nil)
		return nil
	}
	if m.Phase != PhaseWaitingToStart || len(m.Players) >= PlayerCount {
		return fmt.Errorf("%w: %s", ErrMatchFull, m.ID)
	}
	name := in.Name
	if name == "" {
		name = in.PlayerID
	}
	p := &Player{
		ID:    in.PlayerID,
		Name:  name,
		Seat:  len(m.Players),
		Score: m.Rule.StartingScore,
	}
	m.Players = append(m.Players, p)
	out.emit(EventJoin, p.Seat, nil)
	return nil
}

func (e *Engine) leave(m *Match, in Intent, out *Outcome) error {
	p, err := seated(m, in.PlayerID)
	if err != nil {
		return err
	}
	switch m.Phase {
	case PhaseWaitingToStart:
		players := make([]*Player, 0, len(m.Players))
		for _, q := range m.Players {
			if q.ID == p.ID {
				continue
			}
			q.Seat = len(players)
			players = append(players, q)
		}
		m.Players = players
		out.Abandoned = len(players) == 0
	case PhaseGameOver:
	default:
		p.Disconnected = true
	}
	out.emit(EventLeave, p.Seat, nil)
	return nil
}

func (e *Engine) requestStart(m *Match, in Intent, out *Outcome) error {
	if _, err := seated(m, in.PlayerID); err != nil {
		return err
	}
	if m.Phase != PhaseWaitingToStart {
		return fmt.Errorf("%w: %s", ErrWrongPhase, m.Phase)
	}
	if len(m.Players) < PlayerCount {
		return fmt.Errorf("%w: %d/%d", ErrInsufficientPlayers, len(m.Players), PlayerCount)
	}
	m.DealerIndex = 0
	m.Round = Round{Wind: East, Number: 1}
	m.Honba = 0
	m.RiichiSticks = 0
	for _, p := range m.Players {
		p.Score = m.Rule.StartingScore
		p.IsFuriten = false
	}
	return e.startRound(m, out)
}

func (e *Engine) draw(m *Match, in Intent, out *Outcome) error {
	p, err := actingPlayer(m, in.PlayerID, PhasePlayerTurn, PhaseAwaitingStockSelection)
	if err != nil {
		return err
	}
	t, ok := m.Wall.DrawLive()
	if !ok {
		exhaustiveDraw(m, out)
		return nil
	}
	p.IsTemporaryFuriten = false
	takeTile(m, p, t)
	out.emit(EventDraw, p.Seat, nil)
	return nil
}

func (e *Engine) useStock(m *Match, in Intent, out *Outcome) error {
	p, err := actingPlayer(m, in.PlayerID, PhaseAwaitingStockSelection)
	if err != nil {
		return err
	}
	if p.Stock == nil {
		return fmt.Errorf("%w: stock empty", ErrNotEligible)
	}
	t := *p.Stock
	p.Stock = nil
	p.IsTemporaryFuriten = false
	takeTile(m, p, t)
	m.DrawnFromStock = true
	out.emit(EventUseStock, p.Seat, &t)
	return nil
}

func takeTile(m *Match, p *Player, t Tile) {
	p.Hand = append(p.Hand, t)
	m.DrawnTile = &t
	m.DrawnFromDeadWall = false
	m.DrawnFromStock = false
	m.Phase = PhaseAwaitingDiscard
}

func (e *Engine) discard(m *Match, in Intent, out *Outcome) error {
	p, err := actingPlayer(m, in.PlayerID, PhaseAwaitingDiscard, PhaseAwaitingRiichiDiscard)
	if err != nil {
		return err
	}
	rest, t, ok := removeTileByID(p.Hand, in.TileID)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTileNotInHand, in.TileID)
	}
	if m.Phase == PhaseAwaitingRiichiDiscard {
		if in.Bank || !containsKind(p.Eligibility.RiichiDiscards, t.Kind()) {
			return fmt.Errorf("%w: %s does not keep tenpai", ErrIllegalRiichi, t)
		}
	}
	if p.IsRiichi && m.DrawnTile != nil && t.ID != m.DrawnTile.ID {
		return fmt.Errorf("%w: riichi hand must discard the drawn tile", ErrNotEligible)
	}
	if in.Bank && !p.Eligibility.CanBank {
		return fmt.Errorf("%w: stock unavailable", ErrNotEligible)
	}

	p.Hand = rest
	SortTiles(p.Hand)
	m.DrawnTile = nil
	m.DrawnFromDeadWall = false
	m.DrawnFromStock = false

	if in.Bank {
		p.Stock = &t
		p.Acted = true
		out.emit(EventBank, p.Seat, nil)
		nextTurn(m, (p.Seat+1)%PlayerCount)
		return nil
	}

	if p.RiichiPending {
		p.IsRiichi = true
		p.IsDoubleRiichi = !p.Acted && !m.CallsMade
		p.Ippatsu = true
		out.emit(EventRiichi, p.Seat, nil)
	} else if p.IsRiichi {
		p.Ippatsu = false
	}
	p.Acted = true
	p.Discards = append(p.Discards, t)
	final := m.Wall.Remaining() == 0
	m.LastDiscard = &Discard{Seat: p.Seat, Tile: t, Final: final}
	out.emit(EventDiscard, p.Seat, &t)

	if openArbitration(m, p.Seat, t, final, false) {
		return nil
	}
	afterDiscardPassed(m, out)
	return nil
}

func (e *Engine) declareRiichi(m *Match, in Intent, out *Outcome) error {
	p, err := actingPlayer(m, in.PlayerID, PhaseAwaitingDiscard)
	if err != nil {
		return err
	}
	if !p.Eligibility.CanRiichi {
		return fmt.Errorf("%w: seat %d", ErrIllegalRiichi, p.Seat)
	}
	p.RiichiPending = true
	m.Phase = PhaseAwaitingRiichiDiscard
	return nil
}

func (e *Engine) closedKan(m *Match, in Intent, out *Outcome) error {
	p, err := actingPlayer(m, in.PlayerID, PhaseAwaitingDiscard)
	if err != nil {
		return err
	}
	_, t, ok := removeTileByID(p.Hand, in.TileID)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTileNotInHand, in.TileID)
	}
	if !containsKind(p.Eligibility.ClosedKans, t.Kind()) {
		return fmt.Errorf("%w: closed kan %s", ErrNotEligible, t)
	}
	rest, quad, _ := removeKind(p.Hand, t.Kind(), 4)
	p.Hand = rest
	p.Melds = append(p.Melds, Meld{Kind: MeldClosedKan, Tiles: quad})
	breakFirstGoAround(m)
	out.emit(EventKan, p.Seat, &t)
	drawRinshan(m, p, out)
	return nil
}

func (e *Engine) addedKan(m *Match, in Intent, out *Outcome) error {
	p, err := actingPlayer(m, in.PlayerID, PhaseAwaitingDiscard)
	if err != nil {
		return err
	}
	rest, t, ok := removeTileByID(p.Hand, in.TileID)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTileNotInHand, in.TileID)
	}
	if !containsKind(p.Eligibility.AddedKans, t.Kind()) {
		return fmt.Errorf("%w: added kan %s", ErrNotEligible, t)
	}
	p.Hand = rest
	m.DrawnTile = nil
	m.PendingKakan = &PendingKakan{Seat: p.Seat, Tile: t}
	out.emit(EventKan, p.Seat, &t)
	if openArbitration(m, p.Seat, t, false, true) {
		return nil
	}
	completeAddedKan(m, out)
	return nil
}

// completeAddedKan 抢杠窗口无人荣和，碰升级为加杠并摸岭上牌
func completeAddedKan(m *Match, out *Outcome) {
	k := m.PendingKakan
	m.PendingKakan = nil
	p := m.Players[k.Seat]
	for i := range p.Melds {
		if p.Melds[i].Kind == MeldPon && p.Melds[i].TileKind() == k.Tile.Kind() {
			p.Melds[i].Kind = MeldAddedKan
			p.Melds[i].Tiles = append(p.Melds[i].Tiles, k.Tile)
			break
		}
	}
	breakFirstGoAround(m)
	m.CurrentTurn = p.Seat
	drawRinshan(m, p, out)
}

// drawRinshan 杠后摸岭上牌并翻开一张宝牌指示牌
func drawRinshan(m *Match, p *Player, out *Outcome) {
	t, ok := m.Wall.DrawDeadWall()
	if !ok {
		exhaustiveDraw(m, out)
		return
	}
	takeTile(m, p, t)
	m.DrawnFromDeadWall = true
	m.CurrentTurn = p.Seat
	if _, ok := m.Wall.RevealDoraIndicator(); ok {
		m.DoraIndicators = m.Wall.DoraIndicators()
	}
	out.emit(EventDraw, p.Seat, nil)
}

// breakFirstGoAround 鸣牌或开杠：第一巡结束，所有一发失效
func breakFirstGoAround(m *Match) {
	m.CallsMade = true
	for _, p := range m.Players {
		p.Ippatsu = false
	}
}

func (e *Engine) tsumo(m *Match, in Intent, out *Outcome) error {
	p, err := actingPlayer(m, in.PlayerID, PhaseAwaitingDiscard)
	if err != nil {
		return err
	}
	if !p.Eligibility.CanTsumo || m.DrawnTile == nil {
		return fmt.Errorf("%w: no winning shape", ErrNotEligible)
	}
	w := winContext(m, p, p.Hand, *m.DrawnTile)
	w.Tsumo = true
	w.Rinshan = m.DrawnFromDeadWall
	w.Haitei = !m.DrawnFromDeadWall && !m.DrawnFromStock && m.Wall.Remaining() == 0
	firstTurn := !p.Acted && !m.CallsMade
	w.Tenhou = firstTurn && p.IsDealer
	w.Chiihou = firstTurn && !p.IsDealer
	ev, ok := Evaluate(w)
	if !ok {
		return fmt.Errorf("%w: no winning shape", ErrNotEligible)
	}
	settleWin(m, ResultTsumo, p.Seat, -1, w.WinTile, ev, nil, out)
	return nil
}

// winContext concealed 为含和牌张的手牌
func winContext(m *Match, p *Player, concealed []Tile, win Tile) *WinContext {
	w := &WinContext{
		Concealed:      concealed,
		Melds:          p.Melds,
		WinTile:        win,
		Dealer:         p.IsDealer,
		SeatWind:       p.SeatWind,
		RoundWind:      m.Round.Wind,
		Riichi:         p.IsRiichi,
		DoubleRiichi:   p.IsDoubleRiichi,
		Ippatsu:        p.Ippatsu,
		DoraIndicators: m.Wall.DoraIndicators(),
		Ranks:          m.Rule.Deck.Ranks,
	}
	if p.IsRiichi {
		w.UraDoraIndicators = m.Wall.UraDoraIndicators()
	}
	return w
}
