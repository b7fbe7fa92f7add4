package render

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/talibapp/talib-reader/internal/domain"
)

// Letter size in points, used when a page carries no dimensions.
const (
	defaultPageWidthPts  = 612.0
	defaultPageHeightPts = 792.0
)

type docInfo struct {
	pageCount int
	dims      []pageDim
}

type pageDim struct {
	width  float64
	height float64
}

// PDFRenderer measures PDF pages with pdfcpu. Page counts and
// dimensions are cached per path; books on disk do not change under a
// running server.
type PDFRenderer struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*docInfo
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer(logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PDFRenderer{
		logger: logger,
		cache:  make(map[string]*docInfo),
	}
}

// Measure implements Renderer. The page number clamps to the
// document's range and the height follows from the page's aspect
// ratio at the requested width.
func (r *PDFRenderer) Measure(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := r.docInfo(req.Path)
	if err != nil {
		return nil, err
	}

	page := domain.ClampPage(req.Page, info.pageCount)

	dim := pageDim{width: defaultPageWidthPts, height: defaultPageHeightPts}
	if page <= len(info.dims) {
		dim = info.dims[page-1]
	}

	width := req.WidthPx
	if width <= 0 {
		width = dim.width
	}
	height := width * dim.height / dim.width

	return &Result{
		TotalPages:   info.pageCount,
		Page:         page,
		PageWidthPx:  width,
		PageHeightPx: height,
	}, nil
}

func (r *PDFRenderer) docInfo(path string) (*docInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.cache[path]; ok {
		return info, nil
	}

	count, err := api.PageCountFile(path)
	if err != nil {
		return nil, classify(path, err)
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, classify(path, err)
	}

	info := &docInfo{pageCount: count, dims: make([]pageDim, len(dims))}
	for i, d := range dims {
		w, h := d.Width, d.Height
		if w <= 0 || h <= 0 {
			w, h = defaultPageWidthPts, defaultPageHeightPts
		}
		info.dims[i] = pageDim{width: w, height: h}
	}

	r.cache[path] = info
	r.logger.Debug("measured document", "path", path, "pages", count)
	return info, nil
}

// Evict drops the cached measurements for a path. Called when the
// library watcher sees the file change.
func (r *PDFRenderer) Evict(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, path)
}

func classify(path string, err error) *Error {
	if errors.Is(err, fs.ErrNotExist) {
		return newError(FailureNotFound, path, err)
	}
	return newError(FailureDecode, path, err)
}
