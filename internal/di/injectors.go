//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"spd/internal"
	"spd/internal/controllers"
	"spd/internal/providers"
	"spd/internal/services"
	"spd/internal/storage"
	"spd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewRateLimiter,

		storage.NewCompressor,
		storage.NewResponseEncoders,
		storage.NewFileManager,
		storage.NewInstrumentedStore,
		services.NewPostService,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewHandler,
		internal.NewApp,
	)

	return nil, nil
}
