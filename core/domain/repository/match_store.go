package repository

import (
	"context"
	"errors"

	"yonmai/core/domain/entity"
)

var (
	ErrVersionConflict = errors.New("match version conflict")
	ErrNotFound        = errors.New("match not found")
)

// MatchStore 对局持久化契约，写入以版本号做乐观并发控制
type MatchStore interface {
	// Read 读取进行中的对局
	Read(ctx context.Context, id string) (*entity.MatchRecord, error)

	// WriteIfVersion 仅当当前版本等于 expectedVersion 时写入；expectedVersion 为 0 表示记录必须不存在。
	// 成功后 record.Version 被置为 expectedVersion+1
	WriteIfVersion(ctx context.Context, record *entity.MatchRecord, expectedVersion int64) error

	// Archive 将已结束的对局从进行中表移入历史表；重复归档视为成功
	Archive(ctx context.Context, id string) error

	// Delete 删除被放弃的对局，记录不存在时不报错
	Delete(ctx context.Context, id string) error

	// ListLive 列出所有进行中的对局，用于崩溃恢复
	ListLive(ctx context.Context) ([]*entity.MatchRecord, error)

	// ReadArchived 读取历史对局
	ReadArchived(ctx context.Context, id string) (*entity.MatchRecord, error)
}
