package api

import (
	"yonmai/common/http"
	"yonmai/runtime/game/application/service"
)

// CreateMatchHandler 创建对局，创建者直接入座
func (h *Handlers) CreateMatchHandler(c *http.Context) error {
	userID := c.UserID()
	if userID == "" {
		c.Unauthorized("用户未认证")
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	// 请求体可以为空
	_ = c.BindJSON(&req)

	resp, err := h.matches.CreateMatch(c.Ctx(), &service.CreateMatchReq{CreatorID: userID, Name: req.Name})
	if err != nil {
		writeError(c, err)
		return nil
	}
	c.SuccessWithMessage("对局创建成功", resp)
	return nil
}

func (h *Handlers) ListMatchesHandler(c *http.Context) error {
	matches := h.matches.ListMatches(c.Ctx())
	c.Success(map[string]any{
		"matches": matches,
		"total":   len(matches),
	})
	return nil
}

// GetMatchHandler 返回当前用户视角的快照，已结束的对局从历史中读取
func (h *Handlers) GetMatchHandler(c *http.Context) error {
	matchID := c.GetParam("id")
	if matchID == "" {
		c.BadRequest("对局ID不能为空")
		return nil
	}
	view, err := h.matches.GetMatch(c.Ctx(), matchID, c.UserID())
	if err != nil {
		writeError(c, err)
		return nil
	}
	c.Success(view)
	return nil
}
