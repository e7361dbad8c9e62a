// Package autoresume 提供自动续抓调度的任务入口。
package autoresume

import (
	"context"
	"fmt"
	"time"

	"github.com/ytpm/services-export/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// defaultTickInterval 是常驻模式下两轮调度的默认间隔。
const defaultTickInterval = 30 * time.Minute

// Runner 周期性执行自动续抓调度，或在单次模式下执行一轮后退出。
type Runner struct {
	svc      *services.AutoResumeService
	interval time.Duration
	once     bool
	log      *log.Helper
}

// RunnerParams 注入构建 Runner 所需的依赖。
type RunnerParams struct {
	Service  *services.AutoResumeService
	Interval time.Duration // 常驻模式的调度间隔；<= 0 使用默认值
	RunOnce  bool          // true 时执行一轮后退出（外部调度方驱动）
	Logger   log.Logger
}

// NewRunner 构造自动续抓 Runner。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Service == nil {
		return nil, fmt.Errorf("autoresume: service is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("autoresume: logger is required")
	}
	if params.Interval <= 0 {
		params.Interval = defaultTickInterval
	}
	return &Runner{
		svc:      params.Service,
		interval: params.Interval,
		once:     params.RunOnce,
		log:      log.NewHelper(params.Logger),
	}, nil
}

// Run 启动调度循环。常驻模式下启动即执行一轮，之后按固定间隔推进，
// 单轮失败只记日志、不终止循环。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if r.once {
		return r.step(ctx)
	}

	if err := r.step(ctx); err != nil {
		r.log.WithContext(ctx).Errorf("auto-resume run failed: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.step(ctx); err != nil {
				r.log.WithContext(ctx).Errorf("auto-resume run failed: %v", err)
			}
		}
	}
}

func (r *Runner) step(ctx context.Context) error {
	_, err := r.svc.RunAll(ctx)
	return err
}
