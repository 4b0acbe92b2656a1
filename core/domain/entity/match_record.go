package entity

import "time"

// MatchStatus 记录所在的表：live 为进行中，archived 为历史
type MatchStatus string

const (
	MatchLive     MatchStatus = "live"
	MatchArchived MatchStatus = "archived"
)

// MatchRecord 对局的持久化形式，快照为完整对局状态的 JSON
type MatchRecord struct {
	ID         string      `bson:"_id" json:"id"`
	Version    int64       `bson:"version" json:"version"`
	Phase      string      `bson:"phase" json:"phase"`
	PlayerIDs  []string    `bson:"player_ids" json:"playerIds"`
	Snapshot   []byte      `bson:"snapshot" json:"snapshot"`
	Status     MatchStatus `bson:"status" json:"status"`
	CreatedAt  time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `bson:"updated_at" json:"updatedAt"`
	ArchivedAt *time.Time  `bson:"archived_at,omitempty" json:"archivedAt,omitempty"`
}

// Clone 存储实现之间传递时避免共享快照切片
func (r *MatchRecord) Clone() *MatchRecord {
	c := *r
	c.PlayerIDs = append([]string(nil), r.PlayerIDs...)
	c.Snapshot = append([]byte(nil), r.Snapshot...)
	if r.ArchivedAt != nil {
		t := *r.ArchivedAt
		c.ArchivedAt = &t
	}
	return &c
}
