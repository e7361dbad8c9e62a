package autoresume

import (
	"github.com/ytpm/services-export/internal/infrastructure/config"
	"github.com/ytpm/services-export/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// RunOnce 标记单次执行模式，由命令行入口按启动参数提供。
type RunOnce bool

// ProvideRunner 装配自动续抓 Runner。
func ProvideRunner(
	svc *services.AutoResumeService,
	bc *config.Bootstrap,
	once RunOnce,
	logger log.Logger,
) (*Runner, error) {
	return NewRunner(RunnerParams{
		Service:  svc,
		Interval: config.Duration(bc.AutoResume.TickInterval),
		RunOnce:  bool(once),
		Logger:   logger,
	})
}
