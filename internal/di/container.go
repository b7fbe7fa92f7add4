// Package di provides dependency injection configuration for the Talib reader server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/talibapp/talib-reader/internal/config"
	"github.com/talibapp/talib-reader/internal/di/providers"
	"github.com/talibapp/talib-reader/internal/logger"
	"github.com/talibapp/talib-reader/internal/service"
	"github.com/talibapp/talib-reader/internal/viewer"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Document layer
	do.Provide(injector, providers.ProvideRenderer)
	do.Provide(injector, providers.ProvideLibrary)

	// Business services
	do.Provide(injector, providers.ProvideAnnotationService)
	do.Provide(injector, providers.ProvideViewerManager)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// A bad configuration returns an error rather than panicking.
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.LibraryHandle](injector)
	_ = do.MustInvoke[*service.AnnotationService](injector)
	_ = do.MustInvoke[*viewer.Manager](injector)
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
