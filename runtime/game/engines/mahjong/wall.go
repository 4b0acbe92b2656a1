package mahjong

import (
	"errors"
	"math/rand/v2"
)

const (
	DeadWallSize      = 14 // 王牌
	MaxRinshanDraws   = 4  // 岭上牌槽位
	MaxDoraIndicators = 4
	doraOffset        = 4 // 王牌中宝牌指示牌起始偏移，里宝牌紧随其后
)

var ErrWallTooSmall = errors.New("tile set smaller than dead wall")

// DeckRule 牌库规则，点数集合与张数由调用方决定
type DeckRule struct {
	Ranks  []int8 `json:"ranks" mapstructure:"ranks"`
	Copies int    `json:"copies" mapstructure:"copies"`
	Honors bool   `json:"honors" mapstructure:"honors"`
}

// CompactDeck 四枚变体的牌库：3 门 × 点数 1-3 × 4 张 + 字牌 7 × 4 张 = 64 张
func CompactDeck() DeckRule {
	return DeckRule{Ranks: []int8{1, 2, 3}, Copies: 4, Honors: true}
}

// StandardDeck 标准 136 张
func StandardDeck() DeckRule {
	return DeckRule{Ranks: []int8{1, 2, 3, 4, 5, 6, 7, 8, 9}, Copies: 4, Honors: true}
}

// BuildTileSet 生成整副牌，ID 从 0 连续编号
func BuildTileSet(rule DeckRule) []Tile {
	copies := rule.Copies
	if copies <= 0 {
		copies = 4
	}
	size := 3 * len(rule.Ranks) * copies
	if rule.Honors {
		size += 7 * copies
	}
	tiles := make([]Tile, 0, size)
	var id int16
	for _, s := range []Suit{Characters, Circles, Bamboo} {
		for _, r := range rule.Ranks {
			for c := 0; c < copies; c++ {
				tiles = append(tiles, Tile{Suit: s, Rank: r, ID: id})
				id++
			}
		}
	}
	if rule.Honors {
		for r := int8(East); r <= Red; r++ {
			for c := 0; c < copies; c++ {
				tiles = append(tiles, Tile{Suit: Honor, Rank: r, ID: id})
				id++
			}
		}
	}
	return tiles
}

// Shuffle Fisher–Yates 洗牌
func Shuffle(tiles []Tile, rng *rand.Rand) {
	for i := len(tiles) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		tiles[i], tiles[j] = tiles[j], tiles[i]
	}
}

// Wall 牌山：Live 从头部摸牌，Dead 为固定 14 张王牌
//
// 王牌布局：0-3 岭上牌；4/6/8/10 宝牌指示牌；5/7/9/11 里宝牌指示牌；12-13 不使用
type Wall struct {
	Live         []Tile `json:"live"`
	Dead         []Tile `json:"dead"`
	RinshanDrawn int    `json:"rinshanDrawn"`
	Revealed     int    `json:"revealed"`
}

// NewWall 末尾 14 张切为王牌
func NewWall(tiles []Tile) (*Wall, error) {
	if len(tiles) < DeadWallSize {
		return nil, ErrWallTooSmall
	}
	split := len(tiles) - DeadWallSize
	live := make([]Tile, split)
	copy(live, tiles[:split])
	dead := make([]Tile, DeadWallSize)
	copy(dead, tiles[split:])
	return &Wall{Live: live, Dead: dead}, nil
}

func (w *Wall) Remaining() int {
	return len(w.Live)
}

// Deal 轮流发牌，牌不够时返回缺口数且不修改牌山
func Deal(playerCount, handSize int, w *Wall) ([][]Tile, int) {
	need := playerCount * handSize
	if len(w.Live) < need {
		return nil, need - len(w.Live)
	}
	hands := make([][]Tile, playerCount)
	for i := range hands {
		hands[i] = make([]Tile, 0, handSize+1)
	}
	for r := 0; r < handSize; r++ {
		for p := 0; p < playerCount; p++ {
			hands[p] = append(hands[p], w.Live[0])
			w.Live = w.Live[1:]
		}
	}
	return hands, 0
}

// DrawLive 从牌山头部摸牌，牌山为空时返回 false
func (w *Wall) DrawLive() (Tile, bool) {
	if len(w.Live) == 0 {
		return Tile{}, false
	}
	t := w.Live[0]
	w.Live = w.Live[1:]
	return t, true
}

// DrawDeadWall 摸岭上牌，同时牌山尾部少一张（海底前移）
func (w *Wall) DrawDeadWall() (Tile, bool) {
	if w.RinshanDrawn >= MaxRinshanDraws {
		return Tile{}, false
	}
	t := w.Dead[w.RinshanDrawn]
	w.RinshanDrawn++
	if len(w.Live) > 0 {
		w.Live = w.Live[:len(w.Live)-1]
	}
	return t, true
}

func (w *Wall) CanDrawDeadWall() bool {
	return w.RinshanDrawn < MaxRinshanDraws
}

// RevealDoraIndicator 翻开下一张宝牌指示牌，最多 4 张
func (w *Wall) RevealDoraIndicator() (Tile, bool) {
	if w.Revealed >= MaxDoraIndicators {
		return Tile{}, false
	}
	t := w.Dead[doraOffset+2*w.Revealed]
	w.Revealed++
	return t, true
}

func (w *Wall) DoraIndicators() []Tile {
	out := make([]Tile, 0, w.Revealed)
	for i := 0; i < w.Revealed; i++ {
		out = append(out, w.Dead[doraOffset+2*i])
	}
	return out
}

// UraDoraIndicators 与已翻开的宝牌指示牌一一对应
func (w *Wall) UraDoraIndicators() []Tile {
	out := make([]Tile, 0, w.Revealed)
	for i := 0; i < w.Revealed; i++ {
		out = append(out, w.Dead[doraOffset+2*i+1])
	}
	return out
}
