package config

import (
	"github.com/ytpm/services-export/internal/clients"
	"github.com/ytpm/services-export/internal/controllers"
	"github.com/ytpm/services-export/internal/infrastructure/logger"
	"github.com/ytpm/services-export/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
)

// ProvideServiceMetadata 返回解析后的服务元信息。
func ProvideServiceMetadata(bc *Bootstrap) ServiceMetadata {
	if bc == nil {
		return ServiceMetadata{}
	}
	return bc.Service
}

// ProvideServerConfig 返回服务端传输层配置片段。
func ProvideServerConfig(bc *Bootstrap) ServerConfig {
	if bc == nil {
		return ServerConfig{}
	}
	return bc.Server
}

// ProvideDataConfig 返回数据层配置片段。
func ProvideDataConfig(bc *Bootstrap) DataConfig {
	if bc == nil {
		return DataConfig{}
	}
	return bc.Data
}

// ProvideCronAuth 将定时任务密钥转换为控制器鉴权参数。
func ProvideCronAuth(bc *Bootstrap) controllers.CronAuth {
	if bc == nil {
		return controllers.CronAuth{}
	}
	return controllers.CronAuth{Secret: bc.Cron.Secret}
}

// ProvideLoggerConfig 将服务元信息转换为日志组件配置。
func ProvideLoggerConfig(meta ServiceMetadata) logger.Config {
	return logger.Config{
		Service: meta.Name,
		Version: meta.Version,
		HostID:  meta.InstanceID,
		Env:     meta.Environment,
	}
}

// ProvideTxConfig 返回事务管理器配置；当前全部使用库默认值。
func ProvideTxConfig(_ *Bootstrap) txmanager.Config {
	return txmanager.Config{}
}

// ProvideQuotaConfig 将配额配置转换为用例层参数。
func ProvideQuotaConfig(bc *Bootstrap) services.QuotaConfig {
	if bc == nil {
		return services.QuotaConfig{}
	}
	return services.QuotaConfig{DailyLimit: bc.Quota.DailyLimit}
}

// ProvideAutoResumeConfig 将自动续抓配置转换为用例层参数。
// 时长解析失败按零值处理，由用例层套用默认值。
func ProvideAutoResumeConfig(bc *Bootstrap) services.AutoResumeConfig {
	if bc == nil {
		return services.AutoResumeConfig{}
	}
	return services.AutoResumeConfig{
		Cooldown:        Duration(bc.AutoResume.Cooldown),
		AttemptInterval: Duration(bc.AutoResume.AttemptInterval),
		MaxUsersPerRun:  bc.AutoResume.MaxUsersPerRun,
	}
}

// ProvideClientConfig 将 YouTube 客户端配置转换为客户端参数。
func ProvideClientConfig(bc *Bootstrap) clients.ClientConfig {
	if bc == nil {
		return clients.ClientConfig{}
	}
	return clients.ClientConfig{
		RequestsPerSecond: bc.YouTube.RequestsPerSecond,
		MaxRetries:        bc.YouTube.MaxRetries,
	}
}
