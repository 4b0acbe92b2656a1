package mahjong

import "sort"

// RecomputeEligibility 根据阶段和玩家状态计算该玩家当前可执行的操作，纯函数
func RecomputeEligibility(p *Player, m *Match) Eligibility {
	var e Eligibility
	universe := m.Universe()
	if len(p.Hand)+3*len(p.Melds) == HandSize {
		e.Waits = Waits(p.Hand, p.Melds, universe)
	}

	isCurrent := m.CurrentTurn == p.Seat
	switch m.Phase {
	case PhasePlayerTurn:
		e.CanDraw = isCurrent
	case PhaseAwaitingStockSelection:
		e.CanDraw = isCurrent
		e.CanUseStock = isCurrent && p.Stock != nil
	case PhaseAwaitingDiscard:
		if !isCurrent {
			break
		}
		e.CanDiscard = true
		e.CanBank = m.Rule.StockEnabled && p.Stock == nil && !p.IsRiichi
		e.CanTsumo = m.DrawnTile != nil && IsWinningShape(p.Hand, p.Melds)
		e.RiichiDiscards = riichiDiscards(p, m, universe)
		e.CanRiichi = len(e.RiichiDiscards) > 0
		e.ClosedKans = closedKanKinds(p, m, universe)
		e.AddedKans = addedKanKinds(p, m)
	case PhaseAwaitingRiichiDiscard:
		if !isCurrent {
			break
		}
		e.CanDiscard = true
		e.RiichiDiscards = riichiDiscards(p, m, universe)
	case PhaseAwaitingAction, PhaseAwaitingKakan:
		if opts, ok := m.PendingResponses[p.ID]; ok {
			e.CanRon = opts.CanRon
			e.CanPon = opts.CanPon
			e.CanKan = opts.CanKan
		}
	}
	return e
}

// refreshEligibility 每次状态变更后统一刷新
func (m *Match) refreshEligibility() {
	for _, p := range m.Players {
		p.Eligibility = RecomputeEligibility(p, m)
	}
}

// riichiDiscards 打出后仍听牌的牌种；不满足立直前提时为空
func riichiDiscards(p *Player, m *Match, universe []Kind) []Kind {
	if p.IsRiichi || !p.IsConcealed() || p.Score < RiichiCost {
		return nil
	}
	if m.Wall == nil || m.Wall.Remaining() <= 3 {
		return nil
	}
	var out []Kind
	seen := make(map[Kind]bool)
	for _, t := range p.Hand {
		k := t.Kind()
		if seen[k] {
			continue
		}
		seen[k] = true
		rest, _, _ := removeKind(p.Hand, k, 1)
		if len(Waits(rest, p.Melds, universe)) > 0 {
			out = append(out, k)
		}
	}
	sortKinds(out)
	return out
}

// closedKanKinds 手中四张同种；立直中只允许摸到的牌开杠且听牌不变
func closedKanKinds(p *Player, m *Match, universe []Kind) []Kind {
	if m.Wall == nil || !m.Wall.CanDrawDeadWall() {
		return nil
	}
	c := CountTiles(p.Hand)
	var out []Kind
	for i, n := range c {
		if n < 4 {
			continue
		}
		k := KindAt(i)
		if p.IsRiichi && !riichiKanKeepsWaits(p, m, k, universe) {
			continue
		}
		out = append(out, k)
	}
	return out
}

func riichiKanKeepsWaits(p *Player, m *Match, k Kind, universe []Kind) bool {
	if m.DrawnTile == nil || m.DrawnTile.Kind() != k {
		return false
	}
	before, _, _ := removeKind(p.Hand, k, 1)
	after, quad, ok := removeKind(p.Hand, k, 4)
	if !ok {
		return false
	}
	melds := append(append([]Meld{}, p.Melds...), Meld{Kind: MeldClosedKan, Tiles: quad})
	return sameKinds(Waits(before, p.Melds, universe), Waits(after, melds, universe))
}

func addedKanKinds(p *Player, m *Match) []Kind {
	if p.IsRiichi || m.Wall == nil || !m.Wall.CanDrawDeadWall() {
		return nil
	}
	var out []Kind
	for _, meld := range p.Melds {
		if meld.Kind == MeldPon && countKind(p.Hand, meld.TileKind()) > 0 {
			out = append(out, meld.TileKind())
		}
	}
	return out
}

// responseOptions 非行动玩家对一张舍牌（或加杠牌）的可选响应
func responseOptions(p *Player, m *Match, t Tile, final, kakan bool) Options {
	var o Options
	probe := append(append([]Tile{}, p.Hand...), t)
	o.CanRon = IsWinningShape(probe, p.Melds) && !inFuriten(p, m)
	if kakan || final || p.IsRiichi {
		return o
	}
	n := countKind(p.Hand, t.Kind())
	o.CanPon = n >= 2
	o.CanKan = n >= 3 && m.Wall != nil && m.Wall.CanDrawDeadWall() && m.Wall.Remaining() > 0
	return o
}

func (o Options) Any() bool {
	return o.CanRon || o.CanPon || o.CanKan
}

// inFuriten 永久振听、同巡振听、或舍牌中含有自己的听牌
func inFuriten(p *Player, m *Match) bool {
	if p.IsFuriten || p.IsTemporaryFuriten {
		return true
	}
	if len(p.Hand)+3*len(p.Melds) != HandSize {
		return false
	}
	for _, w := range Waits(p.Hand, p.Melds, m.Universe()) {
		for _, d := range p.Discards {
			if d.Kind() == w {
				return true
			}
		}
	}
	return false
}

func sortKinds(kinds []Kind) {
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Index() < kinds[j].Index() })
}

func sameKinds(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}
