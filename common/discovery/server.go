package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Server 注册到 etcd 的节点信息，key 为 <domain>/<nodeID>
type Server struct {
	Domain  string  `json:"domain"`
	NodeID  string  `json:"nodeId"`
	Addr    string  `json:"addr"`
	Version string  `json:"version"`
	Weight  int     `json:"weight"`
	Ttl     int     `json:"ttl"`
	Load    float64 `json:"load"`
	Matches int     `json:"matches"`
	Players int     `json:"players"`
}

func (s Server) buildKey() string {
	return fmt.Sprintf("%s/%s", s.Domain, s.NodeID)
}

func ParseValue(v []byte) (Server, error) {
	var s Server
	if err := json.Unmarshal(v, &s); err != nil {
		return s, err
	}
	return s, nil
}

var ErrNoServer = errors.New("服务列表为空")

// LeastLoaded 负载最低的节点，负载相同时权重高者优先
func LeastLoaded(servers []Server) (Server, error) {
	if len(servers) == 0 {
		return Server{}, ErrNoServer
	}
	best := servers[0]
	for _, s := range servers[1:] {
		if s.Load < best.Load || (s.Load == best.Load && s.Weight > best.Weight) {
			best = s
		}
	}
	return best, nil
}
