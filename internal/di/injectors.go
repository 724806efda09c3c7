//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"iotdash/internal"
	"iotdash/internal/adafruit"
	"iotdash/internal/controllers"
	"iotdash/internal/monitor"
	"iotdash/internal/providers"
	"iotdash/internal/services"
	"iotdash/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		adafruit.NewClient,
		services.NewFeedService,
		monitor.NewMonitor,
		controllers.NewFeedsController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
