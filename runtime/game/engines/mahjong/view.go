package mahjong

// View 发给单个座位的裁剪快照
type View struct {
	*Match
	ViewerSeat    int          `json:"viewerSeat"`
	WallRemaining int          `json:"wallRemaining"`
	HandCounts    []int        `json:"handCounts"`
	HasStock      []bool       `json:"hasStock"`
	LegalMoves    []IntentKind `json:"legalMoves"`
}

// ViewFor 隐藏他人手牌与 stock、牌山和未翻开的指示牌；viewerID 不在对局中时按旁观处理
func ViewFor(m *Match, viewerID string) *View {
	c := m.Clone()
	viewer := c.Seat(viewerID)
	reveal := c.Phase == PhaseRoundEnd || c.Phase == PhaseGameOver

	v := &View{
		Match:      c,
		ViewerSeat: viewer,
		HandCounts: make([]int, len(c.Players)),
		HasStock:   make([]bool, len(c.Players)),
		LegalMoves: LegalMoves(m, viewerID),
	}
	if c.Wall != nil {
		v.WallRemaining = c.Wall.Remaining()
		c.Wall = nil
	}
	if !reveal {
		c.UraDoraIndicators = nil
	}

	for _, p := range c.Players {
		v.HandCounts[p.Seat] = len(p.Hand)
		v.HasStock[p.Seat] = p.Stock != nil
		if p.Seat == viewer {
			continue
		}
		if !reveal {
			p.Hand = nil
		}
		p.Stock = nil
		p.Eligibility = Eligibility{}
	}

	if c.DrawnTile != nil && c.CurrentTurn != viewer {
		c.DrawnTile = nil
	}
	if opts, ok := c.PendingResponses[viewerID]; ok {
		c.PendingResponses = map[string]Options{viewerID: opts}
	} else {
		c.PendingResponses = nil
	}
	// 响应逐个收集，其他人已做出的声明在结算前不公开
	own := c.ResponseQueue[:0]
	for _, r := range c.ResponseQueue {
		if r.Seat == viewer && viewer >= 0 {
			own = append(own, r)
		}
	}
	c.ResponseQueue = nil
	if len(own) > 0 {
		c.ResponseQueue = own
	}
	return v
}

// EventsFor 他人从 stock 取出的牌不公开
func EventsFor(events []Event, viewerSeat int) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	for i := range out {
		if out[i].Kind == EventUseStock && out[i].Seat != viewerSeat {
			out[i].Tile = nil
		}
	}
	return out
}
