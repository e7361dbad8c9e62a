package controllers

import "github.com/google/wire"

// ProviderSet 暴露 HTTP Handler 构造器供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	DefaultHandlerTimeouts,
	NewBaseHandler,
	NewExportHandler,
	NewAutoResumeHandler,
	NewCronHandler,
)
