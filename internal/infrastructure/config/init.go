package config

import "github.com/google/wire"

// ProviderSet 暴露配置加载与派生配置片段供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewBootstrap,
	ProvideServiceMetadata,
	ProvideServerConfig,
	ProvideDataConfig,
	ProvideCronAuth,
	ProvideTxConfig,
	ProvideLoggerConfig,
	ProvideQuotaConfig,
	ProvideAutoResumeConfig,
	ProvideClientConfig,
)
