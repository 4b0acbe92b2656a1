package mahjong

import (
	"fmt"
	"sort"
)

// Suit 花色
type Suit int8

const (
	Characters Suit = iota // 万
	Circles                // 筒
	Bamboo                 // 索
	Honor                  // 字
)

func (s Suit) String() string {
	switch s {
	case Characters:
		return "m"
	case Circles:
		return "p"
	case Bamboo:
		return "s"
	case Honor:
		return "z"
	}
	return "?"
}

// 字牌点数：1-4 为东南西北，5-7 为白发中
const (
	East  = 1
	South = 2
	West  = 3
	North = 4
	White = 5
	Green = 6
	Red   = 7
)

// Wind 风位，取值同字牌点数 East..North
type Wind int8

func (w Wind) String() string {
	switch w {
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	case North:
		return "north"
	}
	return fmt.Sprintf("wind(%d)", int8(w))
}

// Kind 牌种，规则判断只看 (Suit, Rank)
type Kind struct {
	Suit Suit `json:"suit"`
	Rank int8 `json:"rank"`
}

// Tile 一张实体牌，ID 区分同种牌的四张
type Tile struct {
	Suit Suit  `json:"suit"`
	Rank int8  `json:"rank"`
	ID   int16 `json:"id"`
}

func (t Tile) Kind() Kind {
	return Kind{Suit: t.Suit, Rank: t.Rank}
}

func (t Tile) String() string {
	return t.Kind().String()
}

func (k Kind) String() string {
	return fmt.Sprintf("%d%s", k.Rank, k.Suit)
}

func (k Kind) IsHonor() bool {
	return k.Suit == Honor
}

func (k Kind) IsDragon() bool {
	return k.Suit == Honor && k.Rank >= White
}

func (k Kind) IsWind() bool {
	return k.Suit == Honor && k.Rank >= East && k.Rank <= North
}

// IsTerminal 数牌 1 或 9
func (k Kind) IsTerminal() bool {
	return k.Suit != Honor && (k.Rank == 1 || k.Rank == 9)
}

func (k Kind) IsTerminalOrHonor() bool {
	return k.IsHonor() || k.IsTerminal()
}

// KindCount 牌种槽位数：3 门数牌各 9 + 字牌 7
const KindCount = 34

// Index 牌种在计数数组中的下标
func (k Kind) Index() int {
	return int(k.Suit)*9 + int(k.Rank) - 1
}

// KindAt Index 的逆运算
func KindAt(idx int) Kind {
	return Kind{Suit: Suit(idx / 9), Rank: int8(idx%9 + 1)}
}

// Counts 手牌按牌种计数
type Counts [KindCount]int

func CountTiles(tiles []Tile) Counts {
	var c Counts
	for _, t := range tiles {
		c[t.Kind().Index()]++
	}
	return c
}

func (c *Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// less 展示排序：万 < 筒 < 索 < 字，再按点数，最后按 ID 保证稳定
func less(a, b Tile) bool {
	if a.Suit != b.Suit {
		return a.Suit < b.Suit
	}
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	return a.ID < b.ID
}

// SortTiles 原地排序，同一手牌总是得到同一序列
func SortTiles(tiles []Tile) {
	sort.SliceStable(tiles, func(i, j int) bool {
		return less(tiles[i], tiles[j])
	})
}

// removeTileByID 返回移除后的切片和被移除的牌
func removeTileByID(tiles []Tile, id int16) ([]Tile, Tile, bool) {
	for i, t := range tiles {
		if t.ID == id {
			out := make([]Tile, 0, len(tiles)-1)
			out = append(out, tiles[:i]...)
			out = append(out, tiles[i+1:]...)
			return out, t, true
		}
	}
	return tiles, Tile{}, false
}

// removeKind 移除 n 张指定牌种，不足时返回 false
func removeKind(tiles []Tile, k Kind, n int) ([]Tile, []Tile, bool) {
	out := make([]Tile, 0, len(tiles))
	removed := make([]Tile, 0, n)
	for _, t := range tiles {
		if len(removed) < n && t.Kind() == k {
			removed = append(removed, t)
			continue
		}
		out = append(out, t)
	}
	if len(removed) < n {
		return tiles, nil, false
	}
	return out, removed, true
}

func countKind(tiles []Tile, k Kind) int {
	n := 0
	for _, t := range tiles {
		if t.Kind() == k {
			n++
		}
	}
	return n
}

// doraFromIndicator 指示牌的下一张为宝牌，数牌按牌库点数循环，风牌东南西北循环，三元牌白发中循环
func doraFromIndicator(ind Kind, ranks []int8) Kind {
	switch {
	case ind.IsWind():
		return Kind{Suit: Honor, Rank: ind.Rank%4 + 1}
	case ind.IsDragon():
		return Kind{Suit: Honor, Rank: (ind.Rank-White+1)%3 + White}
	}
	for i, r := range ranks {
		if r == ind.Rank {
			return Kind{Suit: ind.Suit, Rank: ranks[(i+1)%len(ranks)]}
		}
	}
	return Kind{Suit: ind.Suit, Rank: ind.Rank%9 + 1}
}
