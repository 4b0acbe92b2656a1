package api

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"yonmai/common/http"
	"yonmai/common/log"
	"yonmai/core/infrastructure/message/transfer"
)

// PingHandler ping 检查
func (h *Handlers) PingHandler(c *http.Context) error {
	c.Success(map[string]any{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
		"service":   "game",
		"node":      h.nodeID,
	})
	return nil
}

// writeError 领域错误按 grpc 状态码转成 HTTP 响应
func writeError(c *http.Context, err error) {
	st := status.Convert(transfer.MapError(err))
	switch st.Code() {
	case codes.Internal, codes.Unknown, codes.DeadlineExceeded, codes.Canceled:
		log.Error("HTTP 请求失败 path=%s err=%v", c.Path(), err)
	}
	c.FailStatus(st)
}
