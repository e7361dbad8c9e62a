//go:build wireinject
// +build wireinject

// Package main 为自动续抓任务 CLI 提供 Wire 依赖注入定义。
package main

import (
	"context"

	"github.com/ytpm/services-export/internal/clients"
	"github.com/ytpm/services-export/internal/infrastructure/config"
	"github.com/ytpm/services-export/internal/infrastructure/database"
	"github.com/ytpm/services-export/internal/infrastructure/logger"
	"github.com/ytpm/services-export/internal/repositories"
	"github.com/ytpm/services-export/internal/services"
	autoresume "github.com/ytpm/services-export/internal/tasks/autoresume"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireAutoResumeTask(context.Context, config.Params, autoresume.RunOnce) (*autoResumeTaskApp, func(), error) {
	panic(wire.Build(
		config.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		txmanager.ProviderSet,
		repositories.ProviderSet,
		services.ProviderSet,
		clients.ProviderSet,
		autoresume.ProvideRunner,
		newAutoResumeTaskApp,
	))
}
