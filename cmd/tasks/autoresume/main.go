// Package main 提供自动续抓调度器的独立进程入口。
// 支持常驻模式（内置定时器）与单次模式（由外部调度方驱动）。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ytpm/services-export/internal/infrastructure/config"
	autoresume "github.com/ytpm/services-export/internal/tasks/autoresume"

	"github.com/go-kratos/kratos/v2/log"

	_ "go.uber.org/automaxprocs"
)

type autoResumeTaskApp struct {
	Runner *autoresume.Runner
	Logger log.Logger
}

func newAutoResumeTaskApp(logger log.Logger, runner *autoresume.Runner) (*autoResumeTaskApp, error) {
	if runner == nil {
		return nil, fmt.Errorf("auto-resume runner not initialized")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return &autoResumeTaskApp{
		Runner: runner,
		Logger: logger,
	}, nil
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path, eg: -conf configs/config.yaml")
	onceFlag := flag.Bool("once", false, "run a single scheduling round and exit")
	flag.Parse()

	params := config.Params{ConfPath: *confFlag}
	app, cleanup, err := wireAutoResumeTask(ctx, params, autoresume.RunOnce(*onceFlag))
	if err != nil {
		panic(err)
	}
	defer cleanup()

	logger := app.Logger
	if logger == nil {
		logger = log.NewStdLogger(os.Stdout)
	}
	helper := log.NewHelper(logger)

	helper.Info("starting auto-resume scheduler")

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		helper.Errorf("auto-resume scheduler stopped unexpectedly: %v", err)
		os.Exit(1)
	}

	helper.Info("auto-resume scheduler stopped")
}
