package mahjong

// Yaku 役种
type Yaku string

const (
	YakuRiichi        Yaku = "riichi"
	YakuDoubleRiichi  Yaku = "double-riichi"
	YakuIppatsu       Yaku = "ippatsu"
	YakuMenzenTsumo   Yaku = "menzen-tsumo"
	YakuPinfu         Yaku = "pinfu"
	YakuTanyao        Yaku = "tanyao"
	YakuDragon        Yaku = "yakuhai-dragon"
	YakuSeatWind      Yaku = "yakuhai-seat-wind"
	YakuRoundWind     Yaku = "yakuhai-round-wind"
	YakuToitoi        Yaku = "toitoi"
	YakuChanta        Yaku = "chanta"
	YakuHonroutou     Yaku = "honroutou"
	YakuHonitsu       Yaku = "honitsu"
	YakuChinitsu      Yaku = "chinitsu"
	YakuSameRankSuits Yaku = "sanshoku-doukou"
	YakuRinshan       Yaku = "rinshan-kaihou"
	YakuChankan       Yaku = "chankan"
	YakuHaitei        Yaku = "haitei"
	YakuHoutei        Yaku = "houtei"

	// 役满
	YakuTenhou       Yaku = "tenhou"
	YakuChiihou      Yaku = "chiihou"
	YakuRenhou       Yaku = "renhou"
	YakuThreeDragons Yaku = "daisangen"
	YakuFourWinds    Yaku = "suushiihou"
	YakuAllHonors    Yaku = "tsuuiisou"
	YakuAllTerminals Yaku = "chinroutou"

	// 宝牌不算役，只加番
	YakuDora    Yaku = "dora"
	YakuUraDora Yaku = "uradora"
)

// WinContext 和牌时的全部判定输入
type WinContext struct {
	Concealed         []Tile // 含和牌张
	Melds             []Meld
	WinTile           Tile
	Tsumo             bool
	Dealer            bool
	SeatWind          Wind
	RoundWind         Wind
	Riichi            bool
	DoubleRiichi      bool
	Ippatsu           bool
	Chankan           bool
	Haitei            bool
	Houtei            bool
	Rinshan           bool
	Tenhou            bool
	Chiihou           bool
	Renhou            bool
	DoraIndicators    []Tile
	UraDoraIndicators []Tile
	Ranks             []int8
}

// YakuContext 单一拆解下的役判定上下文
type YakuContext struct {
	Win    *WinContext
	Decomp Decomposition
	Kinds  []Kind // 手牌与副露的全部牌种（含重复）
}

type YakuChecker interface {
	ID() Yaku
	Check(ctx *YakuContext) (int, int)
}

type yakuCheckerFunc struct {
	id    Yaku
	check func(ctx *YakuContext) (int, int)
}

func (f yakuCheckerFunc) ID() Yaku { return f.id }

func (f yakuCheckerFunc) Check(ctx *YakuContext) (int, int) { return f.check(ctx) }

func fan(n int, ok bool) (int, int) {
	if ok {
		return n, 0
	}
	return 0, 0
}

func yakuman(n int, ok bool) (int, int) {
	if ok {
		return 0, n
	}
	return 0, 0
}

// YakumanRegistry 先于普通役判定，命中任意一个则普通役与宝牌全部不计
var YakumanRegistry = []YakuChecker{
	yakuCheckerFunc{id: YakuTenhou, check: func(ctx *YakuContext) (int, int) {
		return yakuman(1, ctx.Win.Tenhou)
	}},
	yakuCheckerFunc{id: YakuChiihou, check: func(ctx *YakuContext) (int, int) {
		return yakuman(1, ctx.Win.Chiihou)
	}},
	yakuCheckerFunc{id: YakuRenhou, check: func(ctx *YakuContext) (int, int) {
		return yakuman(1, ctx.Win.Renhou)
	}},
	yakuCheckerFunc{id: YakuThreeDragons, check: func(ctx *YakuContext) (int, int) {
		return yakuman(1, ctx.Decomp.Shape == ShapeThreeDragons)
	}},
	yakuCheckerFunc{id: YakuFourWinds, check: func(ctx *YakuContext) (int, int) {
		return yakuman(2, ctx.Decomp.Shape == ShapeFourWinds)
	}},
	yakuCheckerFunc{id: YakuAllHonors, check: func(ctx *YakuContext) (int, int) {
		return yakuman(1, allKinds(ctx.Kinds, Kind.IsHonor))
	}},
	yakuCheckerFunc{id: YakuAllTerminals, check: func(ctx *YakuContext) (int, int) {
		return yakuman(1, allKinds(ctx.Kinds, Kind.IsTerminal))
	}},
}

// YakuRegistry 普通役，顺序即结算展示顺序
var YakuRegistry = []YakuChecker{
	yakuCheckerFunc{id: YakuRiichi, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Win.Riichi && !ctx.Win.DoubleRiichi)
	}},
	yakuCheckerFunc{id: YakuDoubleRiichi, check: func(ctx *YakuContext) (int, int) {
		return fan(4, ctx.Win.DoubleRiichi)
	}},
	yakuCheckerFunc{id: YakuIppatsu, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Win.Riichi && ctx.Win.Ippatsu)
	}},
	yakuCheckerFunc{id: YakuMenzenTsumo, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Win.Tsumo && meldsConcealed(ctx.Win.Melds))
	}},
	yakuCheckerFunc{id: YakuPinfu, check: func(ctx *YakuContext) (int, int) {
		return fan(2, checkPinfu(ctx))
	}},
	yakuCheckerFunc{id: YakuTanyao, check: func(ctx *YakuContext) (int, int) {
		return fan(2, allKinds(ctx.Kinds, func(k Kind) bool { return !k.IsTerminalOrHonor() }))
	}},
	yakuCheckerFunc{id: YakuDragon, check: func(ctx *YakuContext) (int, int) {
		return fan(2, tripletOf(ctx, Kind.IsDragon))
	}},
	yakuCheckerFunc{id: YakuSeatWind, check: func(ctx *YakuContext) (int, int) {
		seat := Kind{Suit: Honor, Rank: int8(ctx.Win.SeatWind)}
		return fan(2, tripletOf(ctx, func(k Kind) bool { return k == seat }))
	}},
	yakuCheckerFunc{id: YakuRoundWind, check: func(ctx *YakuContext) (int, int) {
		round := Kind{Suit: Honor, Rank: int8(ctx.Win.RoundWind)}
		return fan(2, tripletOf(ctx, func(k Kind) bool { return k == round }))
	}},
	yakuCheckerFunc{id: YakuToitoi, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Decomp.Shape == ShapeGeneric && ctx.Decomp.Group.Kind != GroupRun)
	}},
	yakuCheckerFunc{id: YakuChanta, check: func(ctx *YakuContext) (int, int) {
		return fan(2, checkChanta(ctx))
	}},
	yakuCheckerFunc{id: YakuHonroutou, check: func(ctx *YakuContext) (int, int) {
		ok := allKinds(ctx.Kinds, Kind.IsTerminalOrHonor) &&
			anyKind(ctx.Kinds, Kind.IsHonor) && anyKind(ctx.Kinds, Kind.IsTerminal)
		return fan(4, ok)
	}},
	yakuCheckerFunc{id: YakuHonitsu, check: func(ctx *YakuContext) (int, int) {
		return fan(4, singleSuit(ctx.Kinds) && anyKind(ctx.Kinds, Kind.IsHonor) &&
			!allKinds(ctx.Kinds, Kind.IsHonor))
	}},
	yakuCheckerFunc{id: YakuChinitsu, check: func(ctx *YakuContext) (int, int) {
		return fan(6, singleSuit(ctx.Kinds) && !anyKind(ctx.Kinds, Kind.IsHonor))
	}},
	yakuCheckerFunc{id: YakuSameRankSuits, check: func(ctx *YakuContext) (int, int) {
		return fan(4, ctx.Decomp.Shape == ShapeTripleAcrossSuits)
	}},
	yakuCheckerFunc{id: YakuRinshan, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Win.Rinshan && ctx.Win.Tsumo)
	}},
	yakuCheckerFunc{id: YakuChankan, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Win.Chankan && !ctx.Win.Tsumo)
	}},
	yakuCheckerFunc{id: YakuHaitei, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Win.Haitei && ctx.Win.Tsumo)
	}},
	yakuCheckerFunc{id: YakuHoutei, check: func(ctx *YakuContext) (int, int) {
		return fan(2, ctx.Win.Houtei && !ctx.Win.Tsumo)
	}},
}

func meldsConcealed(melds []Meld) bool {
	for _, m := range melds {
		if !m.IsConcealed() {
			return false
		}
	}
	return true
}

// checkPinfu 门清、顺子、非役牌雀头、两面听
func checkPinfu(ctx *YakuContext) bool {
	w := ctx.Win
	d := ctx.Decomp
	if len(w.Melds) > 0 || d.Shape != ShapeGeneric || d.Group.Kind != GroupRun {
		return false
	}
	if isValuePair(d.Pair, w.SeatWind, w.RoundWind) {
		return false
	}
	return IsTwoSidedWait(d.Group, w.WinTile.Kind(), w.Ranks)
}

func isValuePair(k Kind, seat, round Wind) bool {
	if k.IsDragon() {
		return true
	}
	return k.Suit == Honor && (k.Rank == int8(seat) || k.Rank == int8(round))
}

// checkChanta 顺子含幺九且雀头为幺九字牌
func checkChanta(ctx *YakuContext) bool {
	d := ctx.Decomp
	if d.Shape != ShapeGeneric || d.Group.Kind != GroupRun {
		return false
	}
	g := d.Group
	hasTerminal := g.First.Rank == 1 || g.First.Rank+2 == 9
	return hasTerminal && d.Pair.IsTerminalOrHonor()
}

func tripletOf(ctx *YakuContext, pred func(Kind) bool) bool {
	d := ctx.Decomp
	return d.Shape == ShapeGeneric && d.Group.Kind != GroupRun && pred(d.Group.First)
}

func allKinds(kinds []Kind, pred func(Kind) bool) bool {
	for _, k := range kinds {
		if !pred(k) {
			return false
		}
	}
	return len(kinds) > 0
}

func anyKind(kinds []Kind, pred func(Kind) bool) bool {
	for _, k := range kinds {
		if pred(k) {
			return true
		}
	}
	return false
}

// singleSuit 数牌只有一门（字牌不计）
func singleSuit(kinds []Kind) bool {
	suit := Suit(-1)
	for _, k := range kinds {
		if k.IsHonor() {
			continue
		}
		if suit >= 0 && k.Suit != suit {
			return false
		}
		suit = k.Suit
	}
	return true
}
