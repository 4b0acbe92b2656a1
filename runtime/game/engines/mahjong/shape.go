package mahjong

// GroupKind 面子类型
type GroupKind int8

const (
	GroupRun GroupKind = iota
	GroupTriplet
	GroupQuad
)

// Group 面子；顺子以最小牌表示
type Group struct {
	Kind  GroupKind `json:"kind"`
	First Kind      `json:"first"`
	Open  bool      `json:"open"`
}

func (g Group) Contains(k Kind) bool {
	if g.Kind != GroupRun {
		return g.First == k
	}
	return k.Suit == g.First.Suit && k.Rank >= g.First.Rank && k.Rank <= g.First.Rank+2
}

func (g Group) Kinds() []Kind {
	if g.Kind != GroupRun {
		return []Kind{g.First}
	}
	return []Kind{g.First, {Suit: g.First.Suit, Rank: g.First.Rank + 1}, {Suit: g.First.Suit, Rank: g.First.Rank + 2}}
}

// ShapeKind 和牌形
type ShapeKind int8

const (
	ShapeGeneric           ShapeKind = iota // 一面子一雀头
	ShapeThreeDragons                       // 白发中各一 + 雀头
	ShapeFourWinds                          // 东南西北各一 + 任一风牌
	ShapeTripleAcrossSuits                  // 同点数三门各一 + 雀头
)

func (s ShapeKind) String() string {
	switch s {
	case ShapeThreeDragons:
		return "three-dragons"
	case ShapeFourWinds:
		return "four-winds"
	case ShapeTripleAcrossSuits:
		return "triple-across-suits"
	}
	return "generic"
}

// Decomposition 一种拆解方式
type Decomposition struct {
	Shape   ShapeKind `json:"shape"`
	Pair    Kind      `json:"pair"`
	Group   Group     `json:"group"`
	Singles []Kind    `json:"singles,omitempty"`
}

// Decompose 枚举 5 张手牌（或 2 张 + 1 副露）的全部和牌拆解
func Decompose(concealed []Tile, melds []Meld) []Decomposition {
	switch {
	case len(melds) == 1 && len(concealed) == 2:
		if concealed[0].Kind() != concealed[1].Kind() {
			return nil
		}
		return []Decomposition{{
			Shape: ShapeGeneric,
			Pair:  concealed[0].Kind(),
			Group: melds[0].Group(),
		}}
	case len(melds) == 0 && len(concealed) == 5:
		c := CountTiles(concealed)
		out := decomposeGeneric(c)
		return append(out, decomposeSpecial(c)...)
	}
	return nil
}

// BasicShape 通用拆解优先，再尝试特殊形，取第一个成功的
func BasicShape(concealed []Tile, melds []Meld) (Decomposition, bool) {
	ds := Decompose(concealed, melds)
	if len(ds) == 0 {
		return Decomposition{}, false
	}
	return ds[0], true
}

func IsWinningShape(concealed []Tile, melds []Meld) bool {
	_, ok := BasicShape(concealed, melds)
	return ok
}

func decomposeGeneric(c Counts) []Decomposition {
	var out []Decomposition
	for p := 0; p < KindCount; p++ {
		if c[p] < 2 {
			continue
		}
		c[p] -= 2
		if g, ok := singleGroup(c); ok {
			out = append(out, Decomposition{Shape: ShapeGeneric, Pair: KindAt(p), Group: g})
		}
		c[p] += 2
	}
	return out
}

// singleGroup 剩余 3 张是否恰为一个刻子或顺子
func singleGroup(c Counts) (Group, bool) {
	first := -1
	for i := 0; i < KindCount; i++ {
		if c[i] > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return Group{}, false
	}
	if c[first] == 3 {
		return Group{Kind: GroupTriplet, First: KindAt(first)}, true
	}
	k := KindAt(first)
	if c[first] != 1 || k.IsHonor() || k.Rank > 7 {
		return Group{}, false
	}
	if c[first+1] == 1 && c[first+2] == 1 {
		return Group{Kind: GroupRun, First: k}, true
	}
	return Group{}, false
}

func decomposeSpecial(c Counts) []Decomposition {
	var out []Decomposition

	dragons := []Kind{{Honor, White}, {Honor, Green}, {Honor, Red}}
	if rest, ok := takeOneEach(c, dragons); ok {
		if pair, ok := onlyPair(rest); ok {
			out = append(out, Decomposition{Shape: ShapeThreeDragons, Pair: pair, Singles: dragons})
		}
	}

	winds := []Kind{{Honor, East}, {Honor, South}, {Honor, West}, {Honor, North}}
	if rest, ok := takeOneEach(c, winds); ok {
		for _, w := range winds {
			if rest[w.Index()] == 1 {
				out = append(out, Decomposition{Shape: ShapeFourWinds, Pair: w, Singles: winds})
			}
		}
	}

	for r := int8(1); r <= 9; r++ {
		across := []Kind{{Characters, r}, {Circles, r}, {Bamboo, r}}
		if rest, ok := takeOneEach(c, across); ok {
			if pair, ok := onlyPair(rest); ok {
				out = append(out, Decomposition{Shape: ShapeTripleAcrossSuits, Pair: pair, Singles: across})
			}
		}
	}
	return out
}

func takeOneEach(c Counts, kinds []Kind) (Counts, bool) {
	for _, k := range kinds {
		if c[k.Index()] == 0 {
			return c, false
		}
		c[k.Index()]--
	}
	return c, true
}

func onlyPair(c Counts) (Kind, bool) {
	for i, v := range c {
		if v == 0 {
			continue
		}
		if v == 2 && c.Total() == 2 {
			return KindAt(i), true
		}
		return Kind{}, false
	}
	return Kind{}, false
}

// Waits 听牌：在给定牌种范围内，加一张即可和牌的牌种
func Waits(concealed []Tile, melds []Meld, universe []Kind) []Kind {
	if len(concealed)+3*len(melds) != 4 {
		return nil
	}
	probe := make([]Tile, len(concealed)+1)
	copy(probe, concealed)
	var waits []Kind
	for _, k := range universe {
		probe[len(concealed)] = Tile{Suit: k.Suit, Rank: k.Rank, ID: -1}
		if IsWinningShape(probe, melds) {
			waits = append(waits, k)
		}
	}
	return waits
}

// IsTwoSidedWait 和牌张处于顺子两端且另一端的牌在牌库内存在
func IsTwoSidedWait(g Group, win Kind, ranks []int8) bool {
	if g.Kind != GroupRun || win.Suit != g.First.Suit {
		return false
	}
	switch win.Rank {
	case g.First.Rank:
		return hasRank(ranks, g.First.Rank+3)
	case g.First.Rank + 2:
		return hasRank(ranks, g.First.Rank-1)
	}
	return false
}

func hasRank(ranks []int8, r int8) bool {
	for _, v := range ranks {
		if v == r {
			return true
		}
	}
	return false
}
