// Package providers contains dependency injection providers for linkstash.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/logger"
)

// ProvideConfig provides the application configuration.
// Flag values arrive as a config.Overrides registered by the caller.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	overrides, err := do.Invoke[config.Overrides](i)
	if err != nil {
		overrides = config.Overrides{}
	}
	return config.Load(overrides)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
		NoColor:     cfg.Logger.NoColor,
	})

	log.Debug("linkstash starting",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store_backend", cfg.Store.Backend,
		"store_path", cfg.Store.Path,
	)

	return log, nil
}
