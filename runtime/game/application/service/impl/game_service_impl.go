package impl

import (
	"context"

	"yonmai/common/log"
	"yonmai/runtime/game"
	"yonmai/runtime/game/application/service"
	"yonmai/runtime/game/engines/mahjong"
)

type MatchServiceImpl struct {
	matches *game.MatchRegistry
}

func NewMatchService(matches *game.MatchRegistry) service.MatchService {
	return &MatchServiceImpl{matches: matches}
}

func (s *MatchServiceImpl) CreateMatch(ctx context.Context, req *service.CreateMatchReq) (*service.CreateMatchResp, error) {
	m, err := s.matches.Create(ctx)
	if err != nil {
		log.Error("MatchService 创建对局失败: %v", err)
		return nil, err
	}
	resp := &service.CreateMatchResp{MatchID: m.ID, Version: m.Version, Seat: -1}
	if req == nil || req.CreatorID == "" {
		return resp, nil
	}

	m, err = s.matches.Submit(ctx, m.ID, mahjong.Intent{Kind: mahjong.IntentJoin, PlayerID: req.CreatorID, Name: req.Name})
	if err != nil {
		return nil, err
	}
	resp.Version = m.Version
	resp.Seat = m.Seat(req.CreatorID)
	log.Info("MatchService 创建对局 %s，创建者 %s", m.ID, req.CreatorID)
	return resp, nil
}

func (s *MatchServiceImpl) ListMatches(ctx context.Context) []game.Summary {
	return s.matches.List(ctx)
}

func (s *MatchServiceImpl) GetMatch(ctx context.Context, matchID, viewerID string) (*mahjong.View, error) {
	m, err := s.matches.Snapshot(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return mahjong.ViewFor(m, viewerID), nil
}

func (s *MatchServiceImpl) Submit(ctx context.Context, matchID string, in mahjong.Intent) (*mahjong.Match, error) {
	return s.matches.Submit(ctx, matchID, in)
}
