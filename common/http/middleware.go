package http

import (
	"strings"

	"github.com/google/uuid"

	"yonmai/common/jwts"
	"yonmai/common/log"
)

// CorsMiddleware 跨域
func CorsMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		if c.GetHeader("Origin") != "" {
			c.SetHeader("Access-Control-Allow-Origin", "*")
			c.SetHeader("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			c.SetHeader("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		}
		if c.Method() == "OPTIONS" {
			c.AbortWithStatus(204)
		}
		return nil
	}
}

// LoggerMiddleware 请求日志，debug 级别
func LoggerMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		log.Debug("HTTP %s %s from %s request=%s", c.Method(), c.Path(), c.ClientIP(), c.RequestID())
		return nil
	}
}

// RequestIDMiddleware 透传或生成 X-Request-ID
func RequestIDMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxRequestID, requestID)
		c.SetHeader("X-Request-ID", requestID)
		return nil
	}
}

// AuthMiddleware 校验 Bearer JWT，用户 ID 写入上下文
func AuthMiddleware(secret string) MiddlewareFunc {
	return func(c *Context) error {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Unauthorized("Missing authorization token")
			c.Abort()
			return nil
		}
		userID, err := jwts.ParseToken(token, secret)
		if err != nil {
			c.Unauthorized("Invalid token")
			c.Abort()
			return nil
		}
		c.Set(ctxUserID, userID)
		return nil
	}
}

func BearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
