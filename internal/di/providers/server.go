package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/talibapp/talib-reader/internal/api"
	"github.com/talibapp/talib-reader/internal/config"
	"github.com/talibapp/talib-reader/internal/logger"
	"github.com/talibapp/talib-reader/internal/ratelimit"
	"github.com/talibapp/talib-reader/internal/service"
	"github.com/talibapp/talib-reader/internal/sse"
	"github.com/talibapp/talib-reader/internal/viewer"
)

// RateLimiterHandle wraps the mutation rate limiter with Shutdownable.
type RateLimiterHandle struct {
	*ratelimit.KeyedLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-client mutation rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &RateLimiterHandle{
		KeyedLimiter: ratelimit.New(cfg.Server.MutationRPS, cfg.Server.MutationBurst),
	}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	libraryHandle := do.MustInvoke[*LibraryHandle](i)
	annotations := do.MustInvoke[*service.AnnotationService](i)
	sessions := do.MustInvoke[*viewer.Manager](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger)

	handler := api.NewServer(
		libraryHandle.Library,
		annotations,
		sessions,
		sseHandler,
		limiterHandle.KeyedLimiter,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
