package viewer

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talibapp/talib-reader/internal/domain"
	domainerrors "github.com/talibapp/talib-reader/internal/errors"
	"github.com/talibapp/talib-reader/internal/geometry"
	"github.com/talibapp/talib-reader/internal/render"
	"github.com/talibapp/talib-reader/internal/service"
	"github.com/talibapp/talib-reader/internal/store"
)

// stubRenderer returns a fixed measurement, or a fixed error.
type stubRenderer struct {
	mu  sync.Mutex
	res render.Result
	err error
}

func (s *stubRenderer) Measure(_ context.Context, req render.Request) (*render.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	res := s.res
	res.Page = domain.ClampPage(req.Page, res.TotalPages)
	if req.WidthPx > 0 {
		res.PageHeightPx = req.WidthPx * s.res.PageHeightPx / s.res.PageWidthPx
		res.PageWidthPx = req.WidthPx
	}
	return &res, nil
}

func (s *stubRenderer) set(res render.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = res
	s.err = err
}

// gatedRenderer hands each Measure call to the test, which decides
// when and how it completes.
type measureReply struct {
	res *render.Result
	err error
}

type measureCall struct {
	req   render.Request
	reply chan measureReply
}

type gatedRenderer struct {
	calls chan measureCall
}

func (g *gatedRenderer) Measure(_ context.Context, req render.Request) (*render.Result, error) {
	reply := make(chan measureReply)
	g.calls <- measureCall{req: req, reply: reply}
	r := <-reply
	return r.res, r.err
}

func newTestAnnotations(t *testing.T) *service.AnnotationService {
	t.Helper()
	st, err := store.New(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return service.NewAnnotationService(st, service.NoopIndexer{}, store.NewNoopEmitter(), slog.New(slog.DiscardHandler))
}

func newTestCoordinator(t *testing.T, r render.Renderer) (*Coordinator, *service.AnnotationService) {
	t.Helper()
	annotations := newTestAnnotations(t)
	c := NewCoordinator(Options{
		BookID:      "book-1",
		Path:        "/library/book-1.pdf",
		Renderer:    r,
		Annotations: annotations,
		Logger:      slog.New(slog.DiscardHandler),
	})
	return c, annotations
}

func waitForState(t *testing.T, c *Coordinator, want State) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().State == want
	}, 2*time.Second, 5*time.Millisecond)
	return c.Snapshot()
}

func openReady(t *testing.T, c *Coordinator, viewportWidth float64) Snapshot {
	t.Helper()
	snap, err := c.Open(context.Background(), viewportWidth)
	require.NoError(t, err)
	require.Equal(t, StateLoading, snap.State)
	return waitForState(t, c, StateReady)
}

func tenPageRenderer() *stubRenderer {
	return &stubRenderer{res: render.Result{TotalPages: 10, PageWidthPx: 800, PageHeightPx: 1000}}
}

func TestOpen_LoadsDocument(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())

	snap := openReady(t, c, 800)
	assert.Equal(t, 10, snap.TotalPages)
	assert.Equal(t, 1, snap.CurrentPage)
	assert.Equal(t, domain.ZoomDefault, snap.ZoomPercent)
	assert.Equal(t, ToolSelect, snap.Tool)
	assert.False(t, snap.Resumed)
	assert.Equal(t, geometry.PageSize{WidthPx: 800, HeightPx: 1000}, snap.PageSize)
}

func TestOpen_RestoresProgress(t *testing.T) {
	annotations := newTestAnnotations(t)
	page, total, zoom := 7, 10, 150
	_, err := annotations.UpdateProgress(context.Background(), "book-1", domain.ProgressUpdate{
		CurrentPage: &page, TotalPages: &total, ZoomPercent: &zoom,
	})
	require.NoError(t, err)

	c := NewCoordinator(Options{
		BookID:      "book-1",
		Path:        "/library/book-1.pdf",
		Renderer:    tenPageRenderer(),
		Annotations: annotations,
		Logger:      slog.New(slog.DiscardHandler),
	})

	snap := openReady(t, c, 800)
	assert.Equal(t, 7, snap.CurrentPage)
	assert.Equal(t, 150, snap.ZoomPercent)
	assert.True(t, snap.Resumed)
}

func TestOpen_PageOneIsNotResumed(t *testing.T) {
	annotations := newTestAnnotations(t)
	page, total := 1, 10
	_, err := annotations.UpdateProgress(context.Background(), "book-1", domain.ProgressUpdate{
		CurrentPage: &page, TotalPages: &total,
	})
	require.NoError(t, err)

	c := NewCoordinator(Options{
		BookID:      "book-1",
		Path:        "/library/book-1.pdf",
		Renderer:    tenPageRenderer(),
		Annotations: annotations,
		Logger:      slog.New(slog.DiscardHandler),
	})

	// Saved state exists but the reader never left page one; there is
	// nothing to resume.
	snap := openReady(t, c, 800)
	assert.False(t, snap.Resumed)
}

func TestOpen_StoredPageBeyondDocumentClamps(t *testing.T) {
	annotations := newTestAnnotations(t)
	page := 999
	_, err := annotations.UpdateProgress(context.Background(), "book-1", domain.ProgressUpdate{CurrentPage: &page})
	require.NoError(t, err)

	c := NewCoordinator(Options{
		BookID:      "book-1",
		Path:        "/library/book-1.pdf",
		Renderer:    tenPageRenderer(),
		Annotations: annotations,
		Logger:      slog.New(slog.DiscardHandler),
	})

	snap := openReady(t, c, 800)
	assert.Equal(t, 10, snap.CurrentPage)
}

func TestOpen_FailureThenRetry(t *testing.T) {
	r := &stubRenderer{err: &render.Error{Kind: render.FailureNotFound, Path: "x"}}
	c, _ := newTestCoordinator(t, r)

	_, err := c.Open(context.Background(), 800)
	require.NoError(t, err)
	snap := waitForState(t, c, StateError)
	assert.NotEmpty(t, snap.FailureReason)

	// Navigation is unavailable until the load succeeds.
	_, err = c.GoToPage(context.Background(), 2)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	r.set(render.Result{TotalPages: 10, PageWidthPx: 800, PageHeightPx: 1000}, nil)
	_, err = c.Retry()
	require.NoError(t, err)
	snap = waitForState(t, c, StateReady)
	assert.Empty(t, snap.FailureReason)
	assert.Equal(t, 10, snap.TotalPages)
}

func TestRetry_OnlyFromErrorState(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	_, err := c.Retry()
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestGoToPage_ClampsAndPersists(t *testing.T) {
	c, annotations := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	snap, err := c.GoToPage(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.CurrentPage)
	assert.Equal(t, StateLoading, snap.State)
	waitForState(t, c, StateReady)

	snap, err = c.GoToPage(context.Background(), -3)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentPage)
	waitForState(t, c, StateReady)

	progress, err := annotations.Progress(context.Background(), "book-1")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CurrentPage)
	assert.Equal(t, 10, progress.TotalPages)
}

func TestGoToPage_SamePageStaysReady(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	snap, err := c.GoToPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 1, snap.CurrentPage)
}

// mixedSizeRenderer reports a different natural height per page, like
// a document with a landscape plate in the middle.
type mixedSizeRenderer struct {
	heights map[int]float64
}

func (m *mixedSizeRenderer) Measure(_ context.Context, req render.Request) (*render.Result, error) {
	page := domain.ClampPage(req.Page, len(m.heights))
	width := req.WidthPx
	if width <= 0 {
		width = 800
	}
	return &render.Result{
		TotalPages:   len(m.heights),
		Page:         page,
		PageWidthPx:  width,
		PageHeightPx: m.heights[page] * width / 800,
	}, nil
}

func TestGoToPage_RemeasuresPageGeometry(t *testing.T) {
	c, _ := newTestCoordinator(t, &mixedSizeRenderer{
		heights: map[int]float64{1: 1000, 2: 400},
	})

	snap := openReady(t, c, 800)
	assert.InDelta(t, 1000, snap.PageSize.HeightPx, 0.001)

	_, err := c.GoToPage(context.Background(), 2)
	require.NoError(t, err)
	snap = waitForState(t, c, StateReady)
	assert.Equal(t, 2, snap.CurrentPage)
	assert.InDelta(t, 400, snap.PageSize.HeightPx, 0.001)

	_, err = c.GoToPage(context.Background(), 1)
	require.NoError(t, err)
	snap = waitForState(t, c, StateReady)
	assert.InDelta(t, 1000, snap.PageSize.HeightPx, 0.001)
}

func TestSetZoom_ClampsAndScalesPage(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	snap, err := c.SetZoom(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, domain.ZoomMax, snap.ZoomPercent)

	snap, err = c.SetZoom(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 200, snap.ZoomPercent)
	assert.InDelta(t, 1600, snap.PageSize.WidthPx, 0.001)
	assert.InDelta(t, 2000, snap.PageSize.HeightPx, 0.001)
}

func TestCaptureSelection_CreatesHighlight(t *testing.T) {
	c, annotations := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	_, err := c.SetTool(ToolHighlight)
	require.NoError(t, err)

	hl, err := c.CaptureSelection(context.Background(), Selection{
		Rects: []geometry.Rect{{X: 80, Y: 200, Width: 240, Height: 50}},
		Text:  "selected passage",
	})
	require.NoError(t, err)
	require.NotNil(t, hl)
	require.Len(t, hl.Regions, 1)
	assert.InDelta(t, 10, hl.Regions[0].X, 0.001)
	assert.InDelta(t, 20, hl.Regions[0].Y, 0.001)
	assert.InDelta(t, 30, hl.Regions[0].Width, 0.001)
	assert.InDelta(t, 5, hl.Regions[0].Height, 0.001)
	assert.Equal(t, DefaultHighlightColor, hl.Color)

	bundle, err := annotations.Bundle(context.Background(), "book-1")
	require.NoError(t, err)
	require.Len(t, bundle.Highlights, 1)
}

func TestCaptureSelection_IgnoredWithoutHighlightTool(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	hl, err := c.CaptureSelection(context.Background(), Selection{
		Rects: []geometry.Rect{{X: 80, Y: 200, Width: 240, Height: 50}},
	})
	require.NoError(t, err)
	assert.Nil(t, hl)
}

func TestCaptureSelection_BelowThresholdIgnored(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)
	_, err := c.SetTool(ToolHighlight)
	require.NoError(t, err)

	hl, err := c.CaptureSelection(context.Background(), Selection{
		Rects: []geometry.Rect{{X: 80, Y: 200, Width: 8, Height: 40}},
	})
	require.NoError(t, err)
	assert.Nil(t, hl)

	hl, err = c.CaptureSelection(context.Background(), Selection{
		Rects: []geometry.Rect{{X: 80, Y: 200, Width: 40, Height: 4}},
	})
	require.NoError(t, err)
	assert.Nil(t, hl)
}

func TestCaptureSelection_ThresholdScalesWithZoom(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)
	_, err := c.SetTool(ToolHighlight)
	require.NoError(t, err)
	_, err = c.SetZoom(context.Background(), 200)
	require.NoError(t, err)

	// 12x6 pixels passes at 100% but is a tiny drag at 200%.
	hl, err := c.CaptureSelection(context.Background(), Selection{
		Rects: []geometry.Rect{{X: 80, Y: 200, Width: 12, Height: 6}},
	})
	require.NoError(t, err)
	assert.Nil(t, hl)
}

func TestCommentFlow(t *testing.T) {
	c, annotations := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	_, err := c.SetTool(ToolComment)
	require.NoError(t, err)

	snap, err := c.CaptureClick(geometry.Point{X: 400, Y: 500}, "  nearby text  ")
	require.NoError(t, err)
	require.Equal(t, ComposerComposing, snap.Composer.State)
	assert.Equal(t, 1, snap.Composer.PageNumber)
	assert.Equal(t, "nearby text", snap.Composer.AnchorText)
	assert.InDelta(t, 50, snap.Composer.Position.X, 0.001)
	assert.InDelta(t, 50, snap.Composer.Position.Y, 0.001)

	// A blank body is rejected and the draft survives.
	_, err = c.SubmitComment(context.Background(), "   ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, ComposerComposing, c.Snapshot().Composer.State)

	comment, err := c.SubmitComment(context.Background(), "worth a second look")
	require.NoError(t, err)
	assert.Equal(t, "worth a second look", comment.Body)
	assert.Equal(t, "nearby text", comment.AnchorText)
	assert.Equal(t, ComposerClosed, c.Snapshot().Composer.State)

	bundle, err := annotations.Bundle(context.Background(), "book-1")
	require.NoError(t, err)
	require.Len(t, bundle.Comments, 1)

	// With the draft gone there is nothing to submit.
	_, err = c.SubmitComment(context.Background(), "again")
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestCaptureClick_IgnoredWithSelectTool(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	snap, err := c.CaptureClick(geometry.Point{X: 10, Y: 10}, "")
	require.NoError(t, err)
	assert.Equal(t, ComposerClosed, snap.Composer.State)
}

func TestSwitchingToolDiscardsDraft(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	_, err := c.SetTool(ToolComment)
	require.NoError(t, err)
	_, err = c.CaptureClick(geometry.Point{X: 10, Y: 10}, "")
	require.NoError(t, err)

	snap, err := c.SetTool(ToolSelect)
	require.NoError(t, err)
	assert.Equal(t, ComposerClosed, snap.Composer.State)
}

func TestCancelComposer(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	openReady(t, c, 800)

	_, err := c.SetTool(ToolComment)
	require.NoError(t, err)
	_, err = c.CaptureClick(geometry.Point{X: 10, Y: 10}, "")
	require.NoError(t, err)

	snap := c.CancelComposer()
	assert.Equal(t, ComposerClosed, snap.Composer.State)
}

func TestSetTool_UnknownRejected(t *testing.T) {
	c, _ := newTestCoordinator(t, tenPageRenderer())
	_, err := c.SetTool(Tool("eraser"))
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestStaleLoadDiscarded(t *testing.T) {
	gated := &gatedRenderer{calls: make(chan measureCall, 4)}
	c, _ := newTestCoordinator(t, gated)

	_, err := c.Open(context.Background(), 800)
	require.NoError(t, err)
	first := <-gated.calls

	// A resize supersedes the in-flight load.
	_, err = c.SetViewportWidth(600)
	require.NoError(t, err)
	second := <-gated.calls
	assert.Equal(t, 600.0, second.req.WidthPx)

	// The superseding attempt completes first; its result sticks.
	second.reply <- measureReply{res: &render.Result{
		TotalPages: 10, Page: 1, PageWidthPx: 600, PageHeightPx: 750,
	}}
	snap := waitForState(t, c, StateReady)
	assert.InDelta(t, 600, snap.PageSize.WidthPx, 0.001)

	// The stale completion arrives late and is dropped.
	first.reply <- measureReply{res: &render.Result{
		TotalPages: 10, Page: 1, PageWidthPx: 800, PageHeightPx: 1000,
	}}
	time.Sleep(20 * time.Millisecond)
	snap = c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.InDelta(t, 600, snap.PageSize.WidthPx, 0.001)
}

func TestManager_SessionsAreReused(t *testing.T) {
	annotations := newTestAnnotations(t)
	m := NewManager(tenPageRenderer(), annotations, slog.New(slog.DiscardHandler))

	a := m.Session("book-1", "/library/book-1.pdf")
	b := m.Session("book-1", "/library/book-1.pdf")
	assert.Same(t, a, b)

	other := m.Session("book-2", "/library/book-2.pdf")
	assert.NotSame(t, a, other)

	assert.Same(t, a, m.Get("book-1"))
	m.Close("book-1")
	assert.Nil(t, m.Get("book-1"))
}
