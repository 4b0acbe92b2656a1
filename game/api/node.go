package api

import (
	"errors"

	"google.golang.org/grpc/codes"

	"yonmai/common/discovery"
	"yonmai/common/http"
	"yonmai/common/log"
)

// LeastLoadedHandler 客户端据此选择要连接的 game 节点
func (h *Handlers) LeastLoadedHandler(c *http.Context) error {
	if h.seeker == nil {
		c.NotFound("未启用服务发现")
		return nil
	}
	servers, err := h.seeker.GetServers(c.Ctx(), h.domain)
	if err != nil {
		log.Warn("查询节点列表失败: %v", err)
		c.Fail(codes.Unavailable, "服务发现不可用")
		return nil
	}
	best, err := discovery.LeastLoaded(servers)
	if errors.Is(err, discovery.ErrNoServer) {
		c.NotFound("没有可用节点")
		return nil
	}
	if err != nil {
		return err
	}
	c.Success(best)
	return nil
}
