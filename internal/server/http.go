// Package server 组装 HTTP 传输层：中间件、健康检查与业务路由。
package server

import (
	stdhttp "net/http"

	"github.com/ytpm/services-export/internal/controllers"
	"github.com/ytpm/services-export/internal/infrastructure/config"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer 构造 HTTP 服务并挂载全部路由。
func NewHTTPServer(
	c config.ServerConfig,
	export *controllers.ExportHandler,
	autoResume *controllers.AutoResumeHandler,
	cron *controllers.CronHandler,
	logger log.Logger,
) *http.Server {
	opts := []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if timeout := config.Duration(c.HTTP.Timeout); timeout > 0 {
		opts = append(opts, http.Timeout(timeout))
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))
	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		// 预留 readiness 校验钩子：若需要检查数据库等依赖，可在此处扩展。
		w.WriteHeader(stdhttp.StatusOK)
	}))

	r := srv.Route("/api")
	r.POST("/export/init", export.InitExport)
	r.POST("/export/batch", export.ProcessBatch)
	r.GET("/export/status", export.ExportStatus)
	r.GET("/export/videos", export.ListVideos)
	r.POST("/export/auto-resume", autoResume.Enable)
	r.DELETE("/export/auto-resume", autoResume.Disable)
	r.GET("/export/auto-resume", autoResume.Status)
	r.POST("/cron/auto-resume", cron.RunAutoResume)

	return srv
}
