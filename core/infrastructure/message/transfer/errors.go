package transfer

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"yonmai/core/domain/repository"
	"yonmai/runtime/game/engines/mahjong"
)

// 连接相关错误
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendChanFull     = errors.New("send channel full")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrRateLimited      = errors.New("too many intents")
)

// 消息相关错误
var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrInvalidRoute   = errors.New("invalid route")
)

// 对局运行时错误
var (
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchClosed   = errors.New("match actor closed")
	ErrMailboxFull   = errors.New("match mailbox full")
	ErrStateDesync   = errors.New("state desync")
)

// MapError 规则引擎与存储错误映射为 grpc 状态码
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mahjong.ErrNotYourTurn), errors.Is(err, mahjong.ErrNotSeated):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, mahjong.ErrWrongPhase), errors.Is(err, mahjong.ErrNotEligible),
		errors.Is(err, mahjong.ErrIllegalRiichi), errors.Is(err, mahjong.ErrInsufficientPlayers),
		errors.Is(err, mahjong.ErrStaleTimer):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, mahjong.ErrTileNotInHand), errors.Is(err, mahjong.ErrUnknownIntent),
		errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrInvalidRoute):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, mahjong.ErrMatchFull), errors.Is(err, mahjong.ErrAlreadySeated):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrMatchNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, ErrStateDesync):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrMailboxFull):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrMatchClosed), errors.Is(err, ErrConnectionClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// ErrorBody 发给客户端的错误帧内容
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorBody(err error) *ErrorBody {
	st, _ := status.FromError(MapError(err))
	return &ErrorBody{Code: st.Code().String(), Message: st.Message()}
}
