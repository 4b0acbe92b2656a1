package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yonmai/common/log"
	"yonmai/core/domain/entity"
	"yonmai/core/domain/repository"
)

const matchSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id          TEXT PRIMARY KEY,
	version     BIGINT NOT NULL,
	phase       TEXT NOT NULL,
	player_ids  TEXT[] NOT NULL DEFAULT '{}',
	snapshot    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS match_history (
	id          TEXT PRIMARY KEY,
	version     BIGINT NOT NULL,
	phase       TEXT NOT NULL,
	player_ids  TEXT[] NOT NULL DEFAULT '{}',
	snapshot    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL
);
`

const matchColumns = `id, version, phase, player_ids, snapshot, created_at, updated_at`

// PostgresMatchStore 以 UPDATE ... WHERE version 实现 CAS
type PostgresMatchStore struct {
	db *pgxpool.Pool
}

func NewPostgresMatchStore(db *pgxpool.Pool) *PostgresMatchStore {
	return &PostgresMatchStore{db: db}
}

// EnsureSchema 建表，可重复执行
func (r *PostgresMatchStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, matchSchema); err != nil {
		return fmt.Errorf("创建对局表失败: %w", err)
	}
	return nil
}

func (r *PostgresMatchStore) Read(ctx context.Context, id string) (*entity.MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	rec.Status = entity.MatchLive
	return rec, nil
}

func (r *PostgresMatchStore) ReadArchived(ctx context.Context, id string) (*entity.MatchRecord, error) {
	query := `SELECT ` + matchColumns + `, archived_at FROM match_history WHERE id = $1`
	rec := &entity.MatchRecord{}
	var archivedAt time.Time
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Version,
		&rec.Phase,
		&rec.PlayerIDs,
		&rec.Snapshot,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&archivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	rec.Status = entity.MatchArchived
	rec.ArchivedAt = &archivedAt
	return rec, nil
}

func scanRecord(row pgx.Row) (*entity.MatchRecord, error) {
	rec := &entity.MatchRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.Version,
		&rec.Phase,
		&rec.PlayerIDs,
		&rec.Snapshot,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *PostgresMatchStore) WriteIfVersion(ctx context.Context, record *entity.MatchRecord, expectedVersion int64) error {
	next := expectedVersion + 1
	playerIDs := record.PlayerIDs
	if playerIDs == nil {
		playerIDs = []string{}
	}

	var query string
	var args []any
	if expectedVersion == 0 {
		query = `
			INSERT INTO matches (` + matchColumns + `)
			SELECT $1::text, $2::bigint, $3::text, $4::text[], $5::jsonb, $6::timestamptz, $7::timestamptz
			WHERE NOT EXISTS (SELECT 1 FROM match_history WHERE id = $1::text)
			ON CONFLICT (id) DO NOTHING
		`
		args = []any{record.ID, next, record.Phase, playerIDs, record.Snapshot, record.CreatedAt, record.UpdatedAt}
	} else {
		query = `
			UPDATE matches
			SET version = $2, phase = $3, player_ids = $4, snapshot = $5, updated_at = $6
			WHERE id = $1 AND version = $7
		`
		args = []any{record.ID, next, record.Phase, playerIDs, record.Snapshot, record.UpdatedAt, expectedVersion}
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		log.Error("写入对局失败 id=%s: %v", record.ID, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}
	record.Version = next
	record.Status = entity.MatchLive
	return nil
}

// Archive 在一个事务中复制到历史表并删除进行中记录
func (r *PostgresMatchStore) Archive(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO match_history (`+matchColumns+`, archived_at)
		SELECT `+matchColumns+`, NOW() FROM matches WHERE id = $1
		ON CONFLICT (id) DO NOTHING
	`, id)
	if err != nil {
		log.Error("写入历史对局失败 id=%s: %v", id, err)
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		log.Error("删除进行中对局失败 id=%s: %v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM match_history WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresMatchStore) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id); err != nil {
		log.Error("删除对局失败 id=%s: %v", id, err)
		return err
	}
	return nil
}

func (r *PostgresMatchStore) ListLive(ctx context.Context) ([]*entity.MatchRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY created_at`)
	if err != nil {
		log.Error("列出进行中对局失败: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.MatchRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		rec.Status = entity.MatchLive
		out = append(out, rec)
	}
	return out, rows.Err()
}
