// Package viewer coordinates a reader session for one open book: the
// document load lifecycle, the active tool, page and zoom state, and
// the capture of selections and clicks into annotations.
package viewer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talibapp/talib-reader/internal/domain"
	domainerrors "github.com/talibapp/talib-reader/internal/errors"
	"github.com/talibapp/talib-reader/internal/geometry"
	"github.com/talibapp/talib-reader/internal/render"
	"github.com/talibapp/talib-reader/internal/service"
)

// State is the document lifecycle state of a session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Tool is the active annotation tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolHighlight Tool = "highlight"
	ToolComment   Tool = "comment"
)

// ValidTool reports whether t is a known tool.
func ValidTool(t Tool) bool {
	switch t {
	case ToolSelect, ToolHighlight, ToolComment:
		return true
	}
	return false
}

// Minimum selection size in pixels at 100% zoom. Anything smaller is
// treated as an accidental drag and ignored.
const (
	minSelectionWidthPx  = 10.0
	minSelectionHeightPx = 5.0
)

const loadTimeout = 30 * time.Second

// DefaultHighlightColor is used when a selection is captured without
// an explicit color.
const DefaultHighlightColor = "#ffeb3b"

// Coordinator is the state machine for one open book. All methods are
// safe for concurrent use.
//
// Document loads run in a goroutine tagged with an attempt token; a
// completion whose token no longer matches the current attempt is
// discarded, so a stale load can never clobber the state of a newer
// one.
type Coordinator struct {
	bookID      string
	path        string
	renderer    render.Renderer
	annotations *service.AnnotationService
	logger      *slog.Logger

	mu            sync.Mutex
	state         State
	tool          Tool
	attempt       string
	currentPage   int
	totalPages    int
	zoomPercent   int
	viewportWidth float64
	baseSize      geometry.PageSize
	failureReason string
	resumed       bool
	composer      Composer
}

// Options configure a Coordinator.
type Options struct {
	BookID      string
	Path        string
	Renderer    render.Renderer
	Annotations *service.AnnotationService
	Logger      *slog.Logger
}

// NewCoordinator creates an idle session for a book.
func NewCoordinator(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		bookID:      opts.BookID,
		path:        opts.Path,
		renderer:    opts.Renderer,
		annotations: opts.Annotations,
		logger:      logger.With("book_id", opts.BookID),
		state:       StateIdle,
		tool:        ToolSelect,
		currentPage: 1,
		zoomPercent: domain.ZoomDefault,
		composer:    closedComposer(),
	}
}

// Snapshot is a point-in-time view of the session for API responses.
type Snapshot struct {
	BookID        string            `json:"book_id"`
	State         State             `json:"state"`
	Tool          Tool              `json:"tool"`
	CurrentPage   int               `json:"current_page"`
	TotalPages    int               `json:"total_pages"`
	ZoomPercent   int               `json:"zoom_percent"`
	PageSize      geometry.PageSize `json:"page_size"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Resumed       bool              `json:"resumed"`
	Composer      Composer          `json:"composer"`
}

// Snapshot returns the current session state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		BookID:        c.bookID,
		State:         c.state,
		Tool:          c.tool,
		CurrentPage:   c.currentPage,
		TotalPages:    c.totalPages,
		ZoomPercent:   c.zoomPercent,
		PageSize:      c.pageSizeLocked(),
		FailureReason: c.failureReason,
		Resumed:       c.resumed,
		Composer:      c.composer,
	}
}

// pageSizeLocked returns the rendered page size at the current zoom.
// Zero until the document has been measured.
func (c *Coordinator) pageSizeLocked() geometry.PageSize {
	if !c.baseSize.Valid() {
		return geometry.PageSize{}
	}
	scale := float64(c.zoomPercent) / 100
	return geometry.PageSize{
		WidthPx:  c.baseSize.WidthPx * scale,
		HeightPx: c.baseSize.HeightPx * scale,
	}
}

// Open restores stored progress and starts loading the document.
// Reopening a session that is already loading or ready is a no-op.
func (c *Coordinator) Open(ctx context.Context, viewportWidth float64) (Snapshot, error) {
	c.mu.Lock()
	if c.state == StateLoading || c.state == StateReady {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	progress, err := c.annotations.Progress(ctx, c.bookID)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	c.currentPage = progress.CurrentPage
	c.totalPages = progress.TotalPages
	c.zoomPercent = progress.ZoomPercent
	c.resumed = progress.CurrentPage > 1
	if viewportWidth > 0 {
		c.viewportWidth = viewportWidth
	}
	c.startLoadLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	return snap, nil
}

// Retry restarts a failed load. Only valid in the error state.
func (c *Coordinator) Retry() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateError {
		return Snapshot{}, domainerrors.Conflict("nothing to retry")
	}
	c.startLoadLocked()
	return c.snapshotLocked(), nil
}

// startLoadLocked transitions to loading and spawns the measure
// goroutine. Caller holds the lock.
func (c *Coordinator) startLoadLocked() {
	c.state = StateLoading
	c.failureReason = ""
	c.attempt = uuid.NewString()

	token := c.attempt
	page := c.currentPage
	width := c.viewportWidth

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		res, err := c.renderer.Measure(ctx, render.Request{
			Path:    c.path,
			Page:    page,
			WidthPx: width,
		})
		c.completeLoad(token, res, err)
	}()
}

// completeLoad applies the result of a measure goroutine. Results from
// superseded attempts are dropped.
func (c *Coordinator) completeLoad(token string, res *render.Result, err error) {
	c.mu.Lock()

	if token != c.attempt {
		c.mu.Unlock()
		c.logger.Debug("discarding stale document load")
		return
	}

	if err != nil {
		c.state = StateError
		c.failureReason = failureReason(err)
		c.mu.Unlock()
		c.logger.Warn("document load failed", "error", err)
		return
	}

	c.state = StateReady
	c.totalPages = res.TotalPages
	c.currentPage = domain.ClampPage(c.currentPage, res.TotalPages)
	c.baseSize = geometry.PageSize{WidthPx: res.PageWidthPx, HeightPx: res.PageHeightPx}
	page := c.currentPage
	total := res.TotalPages
	c.mu.Unlock()

	c.persistProgress(context.Background(), domain.ProgressUpdate{
		CurrentPage: &page,
		TotalPages:  &total,
	})
	c.logger.Info("document ready", "pages", total, "page", page)
}

func failureReason(err error) string {
	var rerr *render.Error
	if domainerrors.As(err, &rerr) {
		return rerr.Reason()
	}
	return "The document could not be loaded."
}

// GoToPage navigates to a page, clamping to the document's range, and
// persists the new position. Pages within one document can differ in
// size, so changing page re-measures the geometry before the session
// is ready again.
func (c *Coordinator) GoToPage(ctx context.Context, page int) (Snapshot, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return Snapshot{}, domainerrors.Conflict("document is not ready")
	}
	target := domain.ClampPage(page, c.totalPages)
	if target == c.currentPage {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	c.currentPage = target
	c.startLoadLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.persistProgress(ctx, domain.ProgressUpdate{CurrentPage: &target})
	return snap, nil
}

// SetZoom changes the zoom level, clamping to the allowed range, and
// persists it. The rendered page size scales with the zoom, so stored
// annotations project onto the new geometry without rewriting.
func (c *Coordinator) SetZoom(ctx context.Context, pct int) (Snapshot, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return Snapshot{}, domainerrors.Conflict("document is not ready")
	}
	c.zoomPercent = domain.ClampZoom(pct)
	zoom := c.zoomPercent
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.persistProgress(ctx, domain.ProgressUpdate{ZoomPercent: &zoom})
	return snap, nil
}

// SetTool switches the active tool. Leaving the comment tool discards
// any open composer draft.
func (c *Coordinator) SetTool(tool Tool) (Snapshot, error) {
	if !ValidTool(tool) {
		return Snapshot{}, domainerrors.Validationf("unknown tool %q", tool)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tool == ToolComment && tool != ToolComment {
		c.composer = closedComposer()
	}
	c.tool = tool
	return c.snapshotLocked(), nil
}

// SetViewportWidth records a viewport resize and, when the document is
// ready, re-measures the page at the new width. Stored annotations are
// untouched; they re-project onto the new geometry.
func (c *Coordinator) SetViewportWidth(width float64) (Snapshot, error) {
	if width <= 0 {
		return Snapshot{}, domainerrors.Validation("viewport width must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportWidth = width
	// A resize during a load supersedes the in-flight attempt; its
	// completion will arrive with a stale token and be dropped.
	if c.state == StateReady || c.state == StateLoading {
		c.startLoadLocked()
	}
	return c.snapshotLocked(), nil
}

// Selection is a captured text selection in pixel coordinates against
// the rendered page.
type Selection struct {
	Rects []geometry.Rect `json:"rects"`
	Text  string          `json:"text"`
	Color string          `json:"color,omitempty"`
}

// CaptureSelection turns a selection into a highlight.
//
// Returns (nil, nil) when the selection is ignored: the highlight tool
// is not active, the selection is below the minimum size, or the page
// geometry is not measured yet. Ignoring is silent; accidental drags
// should not produce errors.
func (c *Coordinator) CaptureSelection(ctx context.Context, sel Selection) (*domain.Highlight, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, domainerrors.Conflict("document is not ready")
	}
	if c.tool != ToolHighlight || len(sel.Rects) == 0 {
		c.mu.Unlock()
		return nil, nil
	}

	pageSize := c.pageSizeLocked()
	scale := float64(c.zoomPercent) / 100
	page := c.currentPage
	c.mu.Unlock()

	if !pageSize.Valid() {
		return nil, nil
	}

	// The threshold is defined at 100% zoom; scale it so zooming in
	// does not make tiny drags pass.
	w, h := boundingSize(sel.Rects)
	if w <= minSelectionWidthPx*scale || h <= minSelectionHeightPx*scale {
		return nil, nil
	}

	regions := geometry.ToPercentRects(sel.Rects, pageSize)
	if len(regions) == 0 {
		return nil, nil
	}

	color := sel.Color
	if color == "" {
		color = DefaultHighlightColor
	}

	return c.annotations.CreateHighlight(ctx, c.bookID, service.CreateHighlightRequest{
		PageNumber: page,
		Text:       sel.Text,
		Color:      color,
		Regions:    regions,
	})
}

// CaptureClick handles a click with the comment tool: it anchors the
// composer at the clicked point. Clicks with other tools, or before
// the page is measured, are ignored.
func (c *Coordinator) CaptureClick(point geometry.Point, anchorText string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return Snapshot{}, domainerrors.Conflict("document is not ready")
	}
	if c.tool != ToolComment {
		return c.snapshotLocked(), nil
	}

	pos, ok := geometry.ToPercentPoint(point, c.pageSizeLocked())
	if !ok {
		return c.snapshotLocked(), nil
	}

	c.composer = Composer{
		State:      ComposerComposing,
		PageNumber: c.currentPage,
		AnchorText: strings.TrimSpace(anchorText),
		Position:   pos,
	}
	return c.snapshotLocked(), nil
}

// SubmitComment creates a comment from the open composer draft and
// closes it. The composer stays open when the body is rejected so the
// draft position is not lost.
func (c *Coordinator) SubmitComment(ctx context.Context, body string) (*domain.Comment, error) {
	c.mu.Lock()
	if !c.composer.open() {
		c.mu.Unlock()
		return nil, domainerrors.Conflict("no comment is being composed")
	}
	draft := c.composer
	c.mu.Unlock()

	comment, err := c.annotations.CreateComment(ctx, c.bookID, service.CreateCommentRequest{
		PageNumber: draft.PageNumber,
		AnchorText: draft.AnchorText,
		Body:       body,
		Position:   draft.Position,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.composer = closedComposer()
	c.mu.Unlock()
	return comment, nil
}

// CancelComposer discards the comment draft. Always succeeds.
func (c *Coordinator) CancelComposer() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.composer = closedComposer()
	return c.snapshotLocked()
}

// persistProgress writes progress through the annotation service.
// Failures are logged and swallowed; navigation must not fail because
// the write did.
func (c *Coordinator) persistProgress(ctx context.Context, update domain.ProgressUpdate) {
	if _, err := c.annotations.UpdateProgress(ctx, c.bookID, update); err != nil {
		c.logger.Error("failed to persist reading progress", "error", err)
	}
}

func boundingSize(rects []geometry.Rect) (width, height float64) {
	minX, minY := rects[0].X, rects[0].Y
	maxX, maxY := rects[0].X+rects[0].Width, rects[0].Y+rects[0].Height
	for _, r := range rects[1:] {
		minX = min(minX, r.X)
		minY = min(minY, r.Y)
		maxX = max(maxX, r.X+r.Width)
		maxY = max(maxY, r.Y+r.Height)
	}
	return maxX - minX, maxY - minY
}
