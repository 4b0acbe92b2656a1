package api

import (
	"context"

	"yonmai/common/config"
	"yonmai/common/discovery"
	"yonmai/common/http"
	"yonmai/runtime/game/application/service"
)

// ServerLister 由 discovery.Seeker 实现
type ServerLister interface {
	GetServers(ctx context.Context, domain string) ([]discovery.Server, error)
}

type Handlers struct {
	nodeID  string
	domain  string
	jwt     config.JwtConf
	matches service.MatchService
	seeker  ServerLister
}

// NewHandlers seeker 为 nil 时 /nodes 接口返回 404
func NewHandlers(nodeID, domain string, jwt config.JwtConf, matches service.MatchService, seeker ServerLister) *Handlers {
	return &Handlers{
		nodeID:  nodeID,
		domain:  domain,
		jwt:     jwt,
		matches: matches,
		seeker:  seeker,
	}
}

// RegisterRoutes 注册所有路由
func (h *Handlers) RegisterRoutes(server *http.HttpServer) {
	server.Use(http.RequestIDMiddleware(), http.LoggerMiddleware(), http.CorsMiddleware())
	server.GET("/ping", h.PingHandler)

	v1 := server.Group("/api/v1")
	{
		v1.GET("/matches", h.ListMatchesHandler)
		v1.GET("/nodes/least-loaded", h.LeastLoadedHandler)
		if h.jwt.AllowDevToken {
			v1.POST("/dev/token", h.DevTokenHandler)
		}
	}

	auth := server.Group("/api/v1", http.AuthMiddleware(h.jwt.Secret))
	{
		auth.POST("/matches", h.CreateMatchHandler)
		auth.GET("/matches/:id", h.GetMatchHandler)
	}
}
