package providers

import (
	"github.com/samber/do/v2"

	"github.com/talibapp/talib-reader/internal/config"
	"github.com/talibapp/talib-reader/internal/logger"
	"github.com/talibapp/talib-reader/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve annotation index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.SearchIndexPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Annotation search index initialized", "path", cfg.SearchIndexPath())

	return &SearchIndexHandle{Index: index}, nil
}
