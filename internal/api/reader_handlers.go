package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talibapp/talib-reader/internal/domain"
	domainerrors "github.com/talibapp/talib-reader/internal/errors"
	"github.com/talibapp/talib-reader/internal/geometry"
	"github.com/talibapp/talib-reader/internal/overlay"
	"github.com/talibapp/talib-reader/internal/viewer"
)

func (s *Server) registerReaderRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "openReader",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/reader/open",
		Summary:     "Open reader",
		Description: "Opens a reader session, restoring stored progress, and starts the document load",
		Tags:        []string{"Reader"},
	}, s.handleOpenReader)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReader",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/reader",
		Summary:     "Get reader state",
		Description: "Returns the current session snapshot",
		Tags:        []string{"Reader"},
	}, s.handleGetReader)

	huma.Register(s.api, huma.Operation{
		OperationID: "retryLoad",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/reader/retry",
		Summary:     "Retry document load",
		Description: "Restarts a failed document load",
		Tags:        []string{"Reader"},
	}, s.handleRetryLoad)

	huma.Register(s.api, huma.Operation{
		OperationID: "goToPage",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{bookID}/reader/page",
		Summary:     "Go to page",
		Description: "Navigates to a page; out-of-range targets clamp",
		Tags:        []string{"Reader"},
	}, s.handleGoToPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "setZoom",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{bookID}/reader/zoom",
		Summary:     "Set zoom",
		Description: "Changes the zoom level; out-of-range values clamp",
		Tags:        []string{"Reader"},
	}, s.handleSetZoom)

	huma.Register(s.api, huma.Operation{
		OperationID: "setTool",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{bookID}/reader/tool",
		Summary:     "Set tool",
		Description: "Switches the active annotation tool",
		Tags:        []string{"Reader"},
	}, s.handleSetTool)

	huma.Register(s.api, huma.Operation{
		OperationID: "setViewport",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{bookID}/reader/viewport",
		Summary:     "Set viewport width",
		Description: "Records a viewport resize and re-measures the page",
		Tags:        []string{"Reader"},
	}, s.handleSetViewport)

	huma.Register(s.api, huma.Operation{
		OperationID: "captureSelection",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/reader/selection",
		Summary:     "Capture selection",
		Description: "Turns a text selection into a highlight when the highlight tool is active",
		Tags:        []string{"Reader"},
	}, s.handleCaptureSelection)

	huma.Register(s.api, huma.Operation{
		OperationID: "captureClick",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/reader/click",
		Summary:     "Capture click",
		Description: "Anchors the comment composer at a clicked point when the comment tool is active",
		Tags:        []string{"Reader"},
	}, s.handleCaptureClick)

	huma.Register(s.api, huma.Operation{
		OperationID: "submitComment",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/reader/comment",
		Summary:     "Submit comment",
		Description: "Creates a comment from the open composer draft",
		Tags:        []string{"Reader"},
	}, s.handleSubmitComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelComposer",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{bookID}/reader/composer",
		Summary:     "Cancel composer",
		Description: "Discards the comment draft",
		Tags:        []string{"Reader"},
	}, s.handleCancelComposer)

	huma.Register(s.api, huma.Operation{
		OperationID: "getOverlay",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/reader/overlay",
		Summary:     "Get overlay",
		Description: "Projects the current page's annotations onto the rendered page geometry",
		Tags:        []string{"Reader"},
	}, s.handleGetOverlay)

	huma.Register(s.api, huma.Operation{
		OperationID: "closeReader",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{bookID}/reader",
		Summary:     "Close reader",
		Description: "Drops the session; stored annotations and progress are untouched",
		Tags:        []string{"Reader"},
	}, s.handleCloseReader)
}

// requireSession returns the open session for a book, or a conflict
// error when none exists. Sessions are only created by openReader.
func (s *Server) requireSession(bookID string) (*viewer.Coordinator, error) {
	session := s.sessions.Get(bookID)
	if session == nil {
		return nil, domainerrors.Conflict("book is not open")
	}
	return session, nil
}

// === DTOs ===

// OpenReaderRequest is the request body for opening a reader session.
type OpenReaderRequest struct {
	ViewportWidth float64 `json:"viewport_width,omitempty" minimum:"0" doc:"Viewport width in pixels"`
}

// OpenReaderInput wraps the open reader request for Huma.
type OpenReaderInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   OpenReaderRequest
}

// SnapshotOutput wraps a session snapshot.
type SnapshotOutput struct {
	Body viewer.Snapshot
}

// GoToPageRequest is the request body for page navigation.
type GoToPageRequest struct {
	Page int `json:"page" doc:"Target page, 1-based"`
}

// GoToPageInput wraps the page navigation request for Huma.
type GoToPageInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   GoToPageRequest
}

// SetZoomRequest is the request body for zoom changes.
type SetZoomRequest struct {
	ZoomPercent int `json:"zoom_percent" doc:"Zoom level in percent"`
}

// SetZoomInput wraps the zoom request for Huma.
type SetZoomInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   SetZoomRequest
}

// SetToolRequest is the request body for tool switches.
type SetToolRequest struct {
	Tool viewer.Tool `json:"tool" doc:"Tool: select, highlight, or comment"`
}

// SetToolInput wraps the tool request for Huma.
type SetToolInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   SetToolRequest
}

// SetViewportRequest is the request body for viewport resizes.
type SetViewportRequest struct {
	Width float64 `json:"width" doc:"Viewport width in pixels"`
}

// SetViewportInput wraps the viewport request for Huma.
type SetViewportInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   SetViewportRequest
}

// CaptureSelectionInput wraps a captured selection for Huma.
type CaptureSelectionInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   viewer.Selection
}

// SelectionResponse reports what a captured selection produced. Below
// the minimum size, or with the wrong tool active, nothing is created
// and that is not an error.
type SelectionResponse struct {
	Created   bool              `json:"created" doc:"Whether a highlight was created"`
	Highlight *domain.Highlight `json:"highlight,omitempty" doc:"The created highlight"`
}

// SelectionOutput wraps the selection response for Huma.
type SelectionOutput struct {
	Body SelectionResponse
}

// CaptureClickRequest is the request body for a page click.
type CaptureClickRequest struct {
	Point      geometry.Point `json:"point" doc:"Click position in pixels against the rendered page"`
	AnchorText string         `json:"anchor_text,omitempty" doc:"Text near the click, stored as the comment anchor"`
}

// CaptureClickInput wraps the click request for Huma.
type CaptureClickInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   CaptureClickRequest
}

// SubmitCommentRequest is the request body for submitting the composer.
type SubmitCommentRequest struct {
	Body string `json:"body" doc:"Comment body"`
}

// SubmitCommentInput wraps the submit request for Huma.
type SubmitCommentInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   SubmitCommentRequest
}

// OverlayResponse is the drawable overlay for the current page.
type OverlayResponse struct {
	PageNumber int               `json:"page_number" doc:"Page the shapes belong to"`
	PageSize   geometry.PageSize `json:"page_size" doc:"Rendered page size the shapes are projected against"`
	Shapes     []overlay.Shape   `json:"shapes" doc:"Shapes in draw order, highlights below markers"`
}

// OverlayOutput wraps the overlay response for Huma.
type OverlayOutput struct {
	Body OverlayResponse
}

// === Handlers ===

func (s *Server) handleOpenReader(ctx context.Context, input *OpenReaderInput) (*SnapshotOutput, error) {
	book, err := s.requireBook(input.BookID)
	if err != nil {
		return nil, err
	}

	session := s.sessions.Session(book.ID, book.Path)
	snap, err := session.Open(ctx, input.Body.ViewportWidth)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: snap}, nil
}

func (s *Server) handleGetReader(_ context.Context, input *BookInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: session.Snapshot()}, nil
}

func (s *Server) handleRetryLoad(_ context.Context, input *BookInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	snap, err := session.Retry()
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: snap}, nil
}

func (s *Server) handleGoToPage(ctx context.Context, input *GoToPageInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	snap, err := session.GoToPage(ctx, input.Body.Page)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: snap}, nil
}

func (s *Server) handleSetZoom(ctx context.Context, input *SetZoomInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	snap, err := session.SetZoom(ctx, input.Body.ZoomPercent)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: snap}, nil
}

func (s *Server) handleSetTool(_ context.Context, input *SetToolInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	snap, err := session.SetTool(input.Body.Tool)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: snap}, nil
}

func (s *Server) handleSetViewport(_ context.Context, input *SetViewportInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	snap, err := session.SetViewportWidth(input.Body.Width)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: snap}, nil
}

func (s *Server) handleCaptureSelection(ctx context.Context, input *CaptureSelectionInput) (*SelectionOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	highlight, err := session.CaptureSelection(ctx, input.Body)
	if err != nil {
		return nil, err
	}

	return &SelectionOutput{Body: SelectionResponse{
		Created:   highlight != nil,
		Highlight: highlight,
	}}, nil
}

func (s *Server) handleCaptureClick(_ context.Context, input *CaptureClickInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	snap, err := session.CaptureClick(input.Body.Point, input.Body.AnchorText)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: snap}, nil
}

func (s *Server) handleSubmitComment(ctx context.Context, input *SubmitCommentInput) (*CommentOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	comment, err := session.SubmitComment(ctx, input.Body.Body)
	if err != nil {
		return nil, err
	}

	return &CommentOutput{Body: *comment}, nil
}

func (s *Server) handleCancelComposer(_ context.Context, input *BookInput) (*SnapshotOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	return &SnapshotOutput{Body: session.CancelComposer()}, nil
}

func (s *Server) handleGetOverlay(ctx context.Context, input *BookInput) (*OverlayOutput, error) {
	session, err := s.requireSession(input.BookID)
	if err != nil {
		return nil, err
	}

	snap := session.Snapshot()
	page, err := s.annotations.ListForPage(ctx, input.BookID, snap.CurrentPage)
	if err != nil {
		return nil, err
	}

	shapes := overlay.Build(page.Highlights, page.Comments, snap.PageSize)
	if shapes == nil {
		shapes = []overlay.Shape{}
	}

	return &OverlayOutput{Body: OverlayResponse{
		PageNumber: snap.CurrentPage,
		PageSize:   snap.PageSize,
		Shapes:     shapes,
	}}, nil
}

func (s *Server) handleCloseReader(_ context.Context, input *BookInput) (*MessageOutput, error) {
	if _, err := s.requireSession(input.BookID); err != nil {
		return nil, err
	}

	s.sessions.Close(input.BookID)
	return &MessageOutput{Body: MessageResponse{Message: "Reader closed"}}, nil
}
