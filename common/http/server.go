package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HandlerFunc func(*Context) error

// MiddlewareFunc 返回错误或调用 Abort 都会中断后续处理
type MiddlewareFunc func(*Context) error

// HttpServer 基于 gin 的 HTTP 服务
type HttpServer struct {
	*RouterGroup
	engine *gin.Engine
	server *http.Server
	port   int
}

type ServerOption func(*HttpServer)

func WithPort(port int) ServerOption {
	return func(s *HttpServer) {
		s.port = port
	}
}

// WithMode gin 运行模式：debug / release / test
func WithMode(mode string) ServerOption {
	return func(*HttpServer) {
		gin.SetMode(mode)
	}
}

func NewHttpServer(opts ...ServerOption) *HttpServer {
	s := &HttpServer{port: 8080}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.RouterGroup = &RouterGroup{group: &s.engine.RouterGroup}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// RouterGroup 路由组，同组中间件按注册顺序执行
type RouterGroup struct {
	group *gin.RouterGroup
}

func (rg *RouterGroup) GET(path string, handler HandlerFunc) {
	rg.group.GET(path, wrapHandler(handler))
}

func (rg *RouterGroup) POST(path string, handler HandlerFunc) {
	rg.group.POST(path, wrapHandler(handler))
}

func (rg *RouterGroup) Use(middlewares ...MiddlewareFunc) {
	for _, m := range middlewares {
		rg.group.Use(wrapMiddleware(m))
	}
}

func (rg *RouterGroup) Group(relativePath string, middlewares ...MiddlewareFunc) *RouterGroup {
	sub := &RouterGroup{group: rg.group.Group(relativePath)}
	sub.Use(middlewares...)
	return sub
}

// wrapHandler handler 返回的错误按 500 处理，业务错误由 handler 自行响应
func wrapHandler(handler HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := newContext(c)
		if err := handler(ctx); err != nil {
			ctx.InternalServerError(err.Error())
		}
	}
}

func wrapMiddleware(middleware MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := newContext(c)
		if err := middleware(ctx); err != nil {
			ctx.InternalServerError(err.Error())
			c.Abort()
			return
		}
		if !c.IsAborted() {
			c.Next()
		}
	}
}

// Handler 供 httptest 直接驱动
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

func (s *HttpServer) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
