//go:build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/integration/scholar"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/dao"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/internal/web"
	"github.com/lvow2022/research-assistant/ioc"
)

var integrationSet = wire.NewSet(
	ioc.InitLLM,
	ioc.InitNotion,
	ioc.InitDiscord,
)

func InitApp(cfg *config.Config) *App {
	wire.Build(
		// 第三方依赖
		ioc.InitState,
		ioc.InitDB,
		ioc.InitUploadStore,
		ioc.InitUploadOptions,
		ioc.InitArxiv,
		ioc.InitAggregator,
		ioc.InitEZProxy,
		ioc.InitJWTHandler,
		ioc.InitTaskCenter,
		integrationSet,
		wire.Bind(new(service.ArxivClient), new(*scholar.Arxiv)),

		// dao
		dao.NewPaperDAO,

		// repo
		repository.NewPaperRepository,

		// service
		ioc.InitAnalyzer,
		service.NewUploadService,
		service.NewPaperService,
		service.NewGapAgentService,
		service.NewHealthCheckService,
		ioc.InitScheduler,

		// controller
		ioc.InitPaperHandler,
		web.NewSearchHandler,
		web.NewSystemHandler,
		web.NewAuthHandler,

		// app
		ioc.InitGinMiddlewares,
		ioc.InitWebServer,
		wire.Struct(new(App), "*"),
	)
	return new(App)
}

// InitHealthCheck builds only what the -check flag needs.
func InitHealthCheck(cfg *config.Config) service.HealthCheckService {
	wire.Build(
		integrationSet,
		service.NewHealthCheckService,
	)
	return nil
}
