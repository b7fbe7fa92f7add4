package providers

import (
	"github.com/samber/do/v2"

	"github.com/talibapp/talib-reader/internal/logger"
	"github.com/talibapp/talib-reader/internal/render"
	"github.com/talibapp/talib-reader/internal/service"
	"github.com/talibapp/talib-reader/internal/viewer"
)

// ProvideAnnotationService provides the annotation service.
func ProvideAnnotationService(i do.Injector) (*service.AnnotationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnnotationService(storeHandle.Store, indexHandle.Index, sseHandle.Manager, log.Logger), nil
}

// ProvideViewerManager provides the reader session manager.
func ProvideViewerManager(i do.Injector) (*viewer.Manager, error) {
	renderer := do.MustInvoke[*render.PDFRenderer](i)
	annotations := do.MustInvoke[*service.AnnotationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return viewer.NewManager(renderer, annotations, log.Logger), nil
}
