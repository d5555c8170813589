// Package di provides dependency injection configuration for linkstash.
package di

import (
	"github.com/samber/do/v2"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/di/providers"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/session"
)

// NewContainer creates and configures the DI container with all providers.
// overrides carries command-line flag values for config loading.
func NewContainer(overrides config.Overrides) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, overrides)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideSession)

	// Storage layer
	do.Provide(injector, providers.ProvideEventsManager)
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideEnricher)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideCaptureService)
	do.Provide(injector, providers.ProvideItemService)

	// Workers
	do.Provide(injector, providers.ProvideListingEngine)
	do.Provide(injector, providers.ProvideShareSource)
	do.Provide(injector, providers.ProvideShareIntake)

	return injector
}

// Bootstrap initializes the core services so configuration and storage
// errors surface before any command runs. Workers stay lazy.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*session.Context](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.CaptureService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.ItemService](injector); err != nil {
		return err
	}
	return nil
}
