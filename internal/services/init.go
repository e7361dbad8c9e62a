package services

import (
	"github.com/ytpm/services-export/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

// ProviderSet 暴露用例层构造器及其依赖绑定供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewQuotaService,
	NewExportService,
	NewAutoResumeService,
	wire.Bind(new(QuotaRepo), new(*repositories.QuotaRepository)),
	wire.Bind(new(SourceRepo), new(*repositories.SourceRepository)),
	wire.Bind(new(ExportedVideoRepo), new(*repositories.VideoRepository)),
	wire.Bind(new(AutoResumeStateRepo), new(*repositories.AutoResumeRepository)),
	wire.Bind(new(TokenProvider), new(*repositories.AccountRepository)),
	wire.Bind(new(TxRunner), new(txmanager.Manager)),
	wire.Bind(new(BatchRunner), new(*ExportService)),
)
