package http

import (
	"context"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "userID"
	ctxRequestID = "requestID"
)

// Context 对 handler 只暴露本服务用到的请求与响应操作
type Context struct {
	ginCtx *gin.Context
}

func newContext(c *gin.Context) *Context {
	return &Context{ginCtx: c}
}

func (c *Context) GetParam(key string) string {
	return c.ginCtx.Param(key)
}

func (c *Context) GetHeader(key string) string {
	return c.ginCtx.GetHeader(key)
}

func (c *Context) SetHeader(key, value string) {
	c.ginCtx.Header(key, value)
}

func (c *Context) BindJSON(obj any) error {
	return c.ginCtx.ShouldBindJSON(obj)
}

func (c *Context) JSON(code int, obj any) {
	c.ginCtx.JSON(code, obj)
}

func (c *Context) ClientIP() string {
	return c.ginCtx.ClientIP()
}

func (c *Context) Method() string {
	return c.ginCtx.Request.Method
}

func (c *Context) Path() string {
	return c.ginCtx.Request.URL.Path
}

func (c *Context) Set(key string, value any) {
	c.ginCtx.Set(key, value)
}

// UserID 认证中间件写入，未认证的路由为空
func (c *Context) UserID() string {
	return c.ginCtx.GetString(ctxUserID)
}

func (c *Context) RequestID() string {
	return c.ginCtx.GetString(ctxRequestID)
}

// Ctx 请求级 context，客户端断开时取消
func (c *Context) Ctx() context.Context {
	return c.ginCtx.Request.Context()
}

func (c *Context) Abort() {
	c.ginCtx.Abort()
}

func (c *Context) AbortWithStatus(code int) {
	c.ginCtx.AbortWithStatus(code)
}
