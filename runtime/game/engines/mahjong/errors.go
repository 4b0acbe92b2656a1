package mahjong

import "errors"

// 非法意图，调用方据此映射错误码；返回这些错误时对局状态不变
var (
	ErrWrongPhase          = errors.New("intent not allowed in current phase")
	ErrNotYourTurn         = errors.New("not the acting player")
	ErrNotEligible         = errors.New("action not eligible")
	ErrTileNotInHand       = errors.New("tile not in hand")
	ErrIllegalRiichi       = errors.New("illegal riichi")
	ErrMatchFull           = errors.New("match is full")
	ErrAlreadySeated       = errors.New("player already seated")
	ErrNotSeated           = errors.New("player not in match")
	ErrInsufficientPlayers = errors.New("insufficient players")
	ErrUnknownIntent       = errors.New("unknown intent")
	ErrDealShortfall       = errors.New("wall underflow while dealing")
)

// IsIllegalIntent 判断错误是否属于玩家意图被拒绝
func IsIllegalIntent(err error) bool {
	for _, e := range []error{
		ErrWrongPhase, ErrNotYourTurn, ErrNotEligible, ErrTileNotInHand, ErrIllegalRiichi,
		ErrMatchFull, ErrAlreadySeated, ErrNotSeated, ErrInsufficientPlayers, ErrUnknownIntent,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
