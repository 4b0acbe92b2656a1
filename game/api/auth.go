package api

import (
	"time"

	"yonmai/common/http"
	"yonmai/common/jwts"
)

// DevTokenHandler 签发测试令牌，仅在 jwt.allowDevToken 开启时注册
func (h *Handlers) DevTokenHandler(c *http.Context) error {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("请求参数错误")
		return nil
	}

	expire := time.Duration(h.jwt.Expire) * time.Second
	token, err := jwts.GetToken(jwts.NewClaims(req.UserID, expire), h.jwt.Secret)
	if err != nil {
		return err
	}
	c.Success(map[string]any{
		"token":    token,
		"expireAt": time.Now().Add(expire).Unix(),
	})
	return nil
}
