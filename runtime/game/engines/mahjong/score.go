package mahjong

const (
	BaseNonDealer = 8000
	BaseDealer    = 12000
	HonbaUnit     = 300
)

type YakuScore struct {
	Yaku    Yaku `json:"yaku"`
	Fan     int  `json:"fan,omitempty"`
	Yakuman int  `json:"yakuman,omitempty"`
}

// Evaluation 和牌评估结果
type Evaluation struct {
	Decomposition Decomposition `json:"decomposition"`
	Yaku          []YakuScore   `json:"yaku"`
	Fan           int           `json:"fan"`
	Dora          int           `json:"dora"`
	UraDora       int           `json:"uraDora"`
	Yakuman       int           `json:"yakuman"`
	HasYaku       bool          `json:"hasYaku"`
	Counted       bool          `json:"counted"` // 累计役满
	Points        int           `json:"points"`
}

// Evaluate 判断和牌形并计算役、番与点数；不成和牌形时返回 false
// 多种拆解时取点数最高者
func Evaluate(w *WinContext) (*Evaluation, bool) {
	ds := Decompose(w.Concealed, w.Melds)
	if len(ds) == 0 {
		return nil, false
	}
	kinds := handKinds(w.Concealed, w.Melds)
	var best *Evaluation
	for _, d := range ds {
		ev := evaluateDecomposition(w, d, kinds)
		if best == nil || betterEvaluation(ev, best) {
			best = ev
		}
	}
	return best, true
}

func betterEvaluation(a, b *Evaluation) bool {
	if a.HasYaku != b.HasYaku {
		return a.HasYaku
	}
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.Yakuman != b.Yakuman {
		return a.Yakuman > b.Yakuman
	}
	return a.Fan > b.Fan
}

func evaluateDecomposition(w *WinContext, d Decomposition, kinds []Kind) *Evaluation {
	ctx := &YakuContext{Win: w, Decomp: d, Kinds: kinds}
	ev := &Evaluation{Decomposition: d}

	for _, checker := range YakumanRegistry {
		if _, mult := checker.Check(ctx); mult > 0 {
			ev.Yaku = append(ev.Yaku, YakuScore{Yaku: checker.ID(), Yakuman: mult})
			ev.Yakuman += mult
		}
	}
	if ev.Yakuman > 0 {
		ev.HasYaku = true
		ev.Points = ScoreFor(0, ev.Yakuman, false, w.Dealer)
		return ev
	}

	for _, checker := range YakuRegistry {
		if han, _ := checker.Check(ctx); han > 0 {
			ev.Yaku = append(ev.Yaku, YakuScore{Yaku: checker.ID(), Fan: han})
			ev.Fan += han
		}
	}
	ev.HasYaku = len(ev.Yaku) > 0
	tsumoPinfuOnly := onlyYaku(ev.Yaku, YakuMenzenTsumo, YakuPinfu)

	ev.Dora = countDora(kinds, w.DoraIndicators, w.Ranks)
	if ev.Dora > 0 {
		ev.Yaku = append(ev.Yaku, YakuScore{Yaku: YakuDora, Fan: ev.Dora})
	}
	if w.Riichi {
		ev.UraDora = countDora(kinds, w.UraDoraIndicators, w.Ranks)
		if ev.UraDora > 0 {
			ev.Yaku = append(ev.Yaku, YakuScore{Yaku: YakuUraDora, Fan: ev.UraDora})
		}
	}
	ev.Fan += ev.Dora + ev.UraDora
	ev.Counted = ev.Fan >= 13
	ev.Points = ScoreFor(ev.Fan, 0, tsumoPinfuOnly, w.Dealer)
	return ev
}

func onlyYaku(list []YakuScore, want ...Yaku) bool {
	if len(list) != len(want) {
		return false
	}
	seen := make(map[Yaku]bool, len(list))
	for _, y := range list {
		seen[y.Yaku] = true
	}
	for _, y := range want {
		if !seen[y] {
			return false
		}
	}
	return true
}

// ScoreFor 固定阈值计分，无符计算
func ScoreFor(fan, yakumanPower int, tsumoPinfuOnly, dealer bool) int {
	base := BaseNonDealer
	if dealer {
		base = BaseDealer
	}
	switch {
	case yakumanPower > 0:
		return base * 4 * yakumanPower
	case fan >= 13:
		return base * 4
	case fan >= 11:
		return base * 3
	case fan >= 8:
		return base * 2
	case fan >= 6:
		if dealer {
			return 18000
		}
		return 12000
	case fan >= 4:
		if tsumoPinfuOnly {
			return 0
		}
		return base
	}
	return 0
}

func handKinds(concealed []Tile, melds []Meld) []Kind {
	kinds := make([]Kind, 0, len(concealed)+4*len(melds))
	for _, t := range concealed {
		kinds = append(kinds, t.Kind())
	}
	for _, m := range melds {
		for _, t := range m.Tiles {
			kinds = append(kinds, t.Kind())
		}
	}
	return kinds
}

func countDora(kinds []Kind, indicators []Tile, ranks []int8) int {
	n := 0
	for _, ind := range indicators {
		dora := doraFromIndicator(ind.Kind(), ranks)
		for _, k := range kinds {
			if k == dora {
				n++
			}
		}
	}
	return n
}

func roundUpTo100(x int) int {
	return (x + 99) / 100 * 100
}

// TsumoPayments 自摸分摊：庄家和各家付 1/3；闲家和庄付 1/2、闲付 1/4，分别向上取整到 100，本场每家 100
func TsumoPayments(points, winner, dealer, honba int) [4]int {
	var deltas [4]int
	for seat := 0; seat < PlayerCount; seat++ {
		if seat == winner {
			continue
		}
		var pay int
		switch {
		case winner == dealer:
			pay = roundUpTo100((points + 2) / 3)
		case seat == dealer:
			pay = roundUpTo100((points + 1) / 2)
		default:
			pay = roundUpTo100((points + 3) / 4)
		}
		pay += honba * HonbaUnit / 3
		deltas[seat] -= pay
		deltas[winner] += pay
	}
	return deltas
}

// RonPayments 放铳者全额支付
func RonPayments(points, winner, loser, honba int) [4]int {
	var deltas [4]int
	pay := points + honba*HonbaUnit
	deltas[loser] -= pay
	deltas[winner] += pay
	return deltas
}

// PenaltyPayments 无役和牌罚符：申报者按庄闲关系支付一份基本点
func PenaltyPayments(offender, dealer int) [4]int {
	var deltas [4]int
	base := BaseNonDealer
	if offender == dealer {
		base = BaseDealer
	}
	for seat := 0; seat < PlayerCount; seat++ {
		if seat == offender {
			continue
		}
		var pay int
		switch {
		case offender == dealer:
			pay = roundUpTo100((base + 2) / 3)
		case seat == dealer:
			pay = roundUpTo100((base + 1) / 2)
		default:
			pay = roundUpTo100((base + 3) / 4)
		}
		deltas[seat] += pay
		deltas[offender] -= pay
	}
	return deltas
}

// ExhaustiveDrawPayments 流局听牌料：1 家听 3000/1000，2 家 1500/1500，3 家 1000/3000
func ExhaustiveDrawPayments(tenpai [4]bool) [4]int {
	var deltas [4]int
	n := 0
	for _, t := range tenpai {
		if t {
			n++
		}
	}
	if n == 0 || n == PlayerCount {
		return deltas
	}
	receive := 3000 / n
	pay := 3000 / (PlayerCount - n)
	for seat, t := range tenpai {
		if t {
			deltas[seat] = receive
		} else {
			deltas[seat] = -pay
		}
	}
	return deltas
}
