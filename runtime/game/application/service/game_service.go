package service

import (
	"context"

	"yonmai/runtime/game"
	"yonmai/runtime/game/engines/mahjong"
)

// MatchService 对局应用服务，HTTP 与网关都经由它访问对局
type MatchService interface {
	CreateMatch(ctx context.Context, req *CreateMatchReq) (*CreateMatchResp, error)
	ListMatches(ctx context.Context) []game.Summary
	// GetMatch 按观察者裁剪后的视图
	GetMatch(ctx context.Context, matchID, viewerID string) (*mahjong.View, error)
	Submit(ctx context.Context, matchID string, in mahjong.Intent) (*mahjong.Match, error)
}

type CreateMatchReq struct {
	// CreatorID 非空时创建者直接入座
	CreatorID string `json:"creatorId"`
	Name      string `json:"name"`
}

type CreateMatchResp struct {
	MatchID string `json:"matchId"`
	Version int64  `json:"version"`
	Seat    int    `json:"seat"`
}
