//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/ytpm/services-export/internal/clients"
	"github.com/ytpm/services-export/internal/controllers"
	"github.com/ytpm/services-export/internal/infrastructure/config"
	"github.com/ytpm/services-export/internal/infrastructure/database"
	"github.com/ytpm/services-export/internal/infrastructure/logger"
	"github.com/ytpm/services-export/internal/repositories"
	"github.com/ytpm/services-export/internal/server"
	"github.com/ytpm/services-export/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireApp 装配 HTTP 服务进程。
func wireApp(context.Context, config.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		config.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		txmanager.ProviderSet,
		repositories.ProviderSet,
		services.ProviderSet,
		clients.ProviderSet,
		controllers.ProviderSet,
		server.ProviderSet,
		newApp,
	))
}
