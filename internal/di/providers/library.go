package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/talibapp/talib-reader/internal/config"
	"github.com/talibapp/talib-reader/internal/library"
	"github.com/talibapp/talib-reader/internal/logger"
	"github.com/talibapp/talib-reader/internal/render"
)

// ProvideRenderer provides the PDF measurement renderer.
func ProvideRenderer(i do.Injector) (*render.PDFRenderer, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return render.NewPDFRenderer(log.Logger), nil
}

// LibraryHandle wraps the library with its watcher for lifecycle management.
type LibraryHandle struct {
	*library.Library
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *LibraryHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideLibrary provides the scanned document catalog. A change to a
// PDF on disk evicts the renderer's cached geometry for that file, so
// the next load measures the new version.
func ProvideLibrary(i do.Injector) (*LibraryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	renderer := do.MustInvoke[*render.PDFRenderer](i)

	lib, err := library.New(library.Options{
		Dir:      cfg.Library.BooksPath,
		OnChange: renderer.Evict,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	handle := &LibraryHandle{Library: lib}

	if cfg.Library.Watch {
		ctx, cancel := context.WithCancel(context.Background())
		handle.cancel = cancel
		go func() {
			if err := lib.Watch(ctx); err != nil {
				log.Error("Library watcher stopped", "error", err)
			}
		}()
	} else {
		log.Info("Library watching disabled by configuration")
	}

	return handle, nil
}
