package metrics

import (
	"net/http"
	"time"

	"github.com/arl/statsviz"
)

// Serve 在 addr 上提供 /debug/statsviz/ 运行时监控页面，阻塞直到出错
func Serve(addr string) error {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
