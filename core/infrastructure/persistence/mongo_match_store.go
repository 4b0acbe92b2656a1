package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"yonmai/common/database"
	"yonmai/common/log"
	"yonmai/core/domain/entity"
	"yonmai/core/domain/repository"
)

const (
	liveCollection    = "matches"
	historyCollection = "match_history"
)

// MongoMatchStore 以 {_id, version} 为条件更新实现 CAS
type MongoMatchStore struct {
	mongo *database.MongoManager
}

func NewMongoMatchStore(mongo *database.MongoManager) *MongoMatchStore {
	return &MongoMatchStore{mongo: mongo}
}

func (r *MongoMatchStore) live() *mongo.Collection {
	return r.mongo.Collection(liveCollection)
}

func (r *MongoMatchStore) history() *mongo.Collection {
	return r.mongo.Collection(historyCollection)
}

// EnsureIndexes 恢复时按创建时间扫描进行中的对局
func (r *MongoMatchStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.live().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("创建 matches 索引失败: %w", err)
	}
	return nil
}

func (r *MongoMatchStore) Read(ctx context.Context, id string) (*entity.MatchRecord, error) {
	return r.findOne(ctx, r.live(), id)
}

func (r *MongoMatchStore) ReadArchived(ctx context.Context, id string) (*entity.MatchRecord, error) {
	return r.findOne(ctx, r.history(), id)
}

func (r *MongoMatchStore) findOne(ctx context.Context, coll *mongo.Collection, id string) (*entity.MatchRecord, error) {
	var rec entity.MatchRecord
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		log.Error("查询对局失败 id=%s: %v", id, err)
		return nil, err
	}
	return &rec, nil
}

func (r *MongoMatchStore) WriteIfVersion(ctx context.Context, record *entity.MatchRecord, expectedVersion int64) error {
	next := record.Clone()
	next.Version = expectedVersion + 1
	next.Status = entity.MatchLive

	if expectedVersion == 0 {
		if n, err := r.history().CountDocuments(ctx, bson.M{"_id": record.ID}); err == nil && n > 0 {
			return repository.ErrVersionConflict
		}
		_, err := r.live().InsertOne(ctx, next)
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrVersionConflict
		}
		if err != nil {
			log.Error("插入对局失败 id=%s: %v", record.ID, err)
			return err
		}
		record.Version, record.Status = next.Version, next.Status
		return nil
	}

	res, err := r.live().ReplaceOne(ctx, bson.M{"_id": record.ID, "version": expectedVersion}, next)
	if err != nil {
		log.Error("更新对局失败 id=%s: %v", record.ID, err)
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrVersionConflict
	}
	record.Version, record.Status = next.Version, next.Status
	return nil
}

// Archive 先写历史再删进行中，中途失败时重试是幂等的
func (r *MongoMatchStore) Archive(ctx context.Context, id string) error {
	rec, err := r.Read(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		if _, herr := r.ReadArchived(ctx, id); herr == nil {
			return nil
		}
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now()
	rec.Status = entity.MatchArchived
	rec.ArchivedAt = &now
	_, err = r.history().ReplaceOne(ctx, bson.M{"_id": id}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		log.Error("写入历史对局失败 id=%s: %v", id, err)
		return err
	}
	if _, err = r.live().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		log.Error("删除进行中对局失败 id=%s: %v", id, err)
		return err
	}
	return nil
}

func (r *MongoMatchStore) Delete(ctx context.Context, id string) error {
	if _, err := r.live().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		log.Error("删除对局失败 id=%s: %v", id, err)
		return err
	}
	return nil
}

func (r *MongoMatchStore) ListLive(ctx context.Context) ([]*entity.MatchRecord, error) {
	cur, err := r.live().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		log.Error("列出进行中对局失败: %v", err)
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*entity.MatchRecord
	for cur.Next(ctx) {
		var rec entity.MatchRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, cur.Err()
}
