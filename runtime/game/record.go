package game

import (
	"encoding/json"
	"fmt"

	"yonmai/core/domain/entity"
	"yonmai/runtime/game/engines/mahjong"
)

// toRecord 快照中的 Version 为本次写入成功后的版本
func toRecord(m *mahjong.Match, nextVersion int64) (*entity.MatchRecord, error) {
	c := *m
	c.Version = nextVersion
	snap, err := json.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("序列化对局快照失败: %w", err)
	}
	ids := make([]string, 0, len(m.Players))
	for _, p := range m.Players {
		ids = append(ids, p.ID)
	}
	return &entity.MatchRecord{
		ID:        m.ID,
		Phase:     string(m.Phase),
		PlayerIDs: ids,
		Snapshot:  snap,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

func fromRecord(rec *entity.MatchRecord) (*mahjong.Match, error) {
	var m mahjong.Match
	if err := json.Unmarshal(rec.Snapshot, &m); err != nil {
		return nil, fmt.Errorf("解析对局快照失败 id=%s: %w", rec.ID, err)
	}
	m.Version = rec.Version
	return &m, nil
}
