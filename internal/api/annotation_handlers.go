package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talibapp/talib-reader/internal/domain"
	"github.com/talibapp/talib-reader/internal/search"
	"github.com/talibapp/talib-reader/internal/service"
)

func (s *Server) registerAnnotationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getAnnotations",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/annotations",
		Summary:     "Get annotations",
		Description: "Returns the full annotation bundle for a book",
		Tags:        []string{"Annotations"},
	}, s.handleGetAnnotations)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetAnnotations",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{bookID}/annotations",
		Summary:     "Reset annotations",
		Description: "Deletes all annotations and reading progress for a book",
		Tags:        []string{"Annotations"},
	}, s.handleResetAnnotations)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPageAnnotations",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/pages/{page}/annotations",
		Summary:     "Get page annotations",
		Description: "Returns the highlights and comments on one page",
		Tags:        []string{"Annotations"},
	}, s.handleGetPageAnnotations)

	huma.Register(s.api, huma.Operation{
		OperationID: "createHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/highlights",
		Summary:     "Create highlight",
		Description: "Stores a highlight with its selection regions",
		Tags:        []string{"Annotations"},
	}, s.handleCreateHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{bookID}/highlights/{highlightID}",
		Summary:     "Delete highlight",
		Description: "Deletes a highlight, idempotently",
		Tags:        []string{"Annotations"},
	}, s.handleDeleteHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "createComment",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/comments",
		Summary:     "Create comment",
		Description: "Stores a positioned comment",
		Tags:        []string{"Annotations"},
	}, s.handleCreateComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateComment",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{bookID}/comments/{commentID}",
		Summary:     "Update comment",
		Description: "Replaces a comment's body",
		Tags:        []string{"Annotations"},
	}, s.handleUpdateComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{bookID}/comments/{commentID}",
		Summary:     "Delete comment",
		Description: "Deletes a comment, idempotently",
		Tags:        []string{"Annotations"},
	}, s.handleDeleteComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/progress",
		Summary:     "Get reading progress",
		Description: "Returns the stored reading position for a book",
		Tags:        []string{"Progress"},
	}, s.handleGetProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{bookID}/progress",
		Summary:     "Update reading progress",
		Description: "Merges a partial progress update; out-of-range values clamp",
		Tags:        []string{"Progress"},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchAnnotations",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/annotations/search",
		Summary:     "Search annotations",
		Description: "Full-text search over a book's highlights and comments",
		Tags:        []string{"Annotations"},
	}, s.handleSearchAnnotations)

	huma.Register(s.api, huma.Operation{
		OperationID: "continueReading",
		Method:      http.MethodGet,
		Path:        "/api/v1/continue-reading",
		Summary:     "Continue reading",
		Description: "Returns reading progress across all books, most recent first",
		Tags:        []string{"Progress"},
	}, s.handleContinueReading)
}

// requireBook resolves a book ID against the library catalog.
func (s *Server) requireBook(id string) (domain.Book, error) {
	return s.library.Get(id)
}

// === DTOs ===

// MessageResponse contains a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// BookInput identifies a book by path parameter.
type BookInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
}

// BundleOutput wraps a full annotation bundle.
type BundleOutput struct {
	Body domain.AnnotationBundle
}

// PageAnnotationsInput identifies one page of a book.
type PageAnnotationsInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Page   int    `path:"page" minimum:"1" doc:"Page number, 1-based"`
}

// PageAnnotationsOutput wraps a page's annotations.
type PageAnnotationsOutput struct {
	Body service.PageAnnotations
}

// CreateHighlightInput wraps the create highlight request for Huma.
type CreateHighlightInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   service.CreateHighlightRequest
}

// HighlightOutput wraps a highlight response.
type HighlightOutput struct {
	Body domain.Highlight
}

// DeleteHighlightInput identifies a highlight to delete.
type DeleteHighlightInput struct {
	BookID      string `path:"bookID" doc:"Book ID"`
	HighlightID string `path:"highlightID" doc:"Highlight ID"`
}

// CreateCommentInput wraps the create comment request for Huma.
type CreateCommentInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   service.CreateCommentRequest
}

// CommentOutput wraps a comment response.
type CommentOutput struct {
	Body domain.Comment
}

// UpdateCommentRequest is the request body for editing a comment.
type UpdateCommentRequest struct {
	Body string `json:"body" doc:"New comment body"`
}

// UpdateCommentInput wraps the update comment request for Huma.
type UpdateCommentInput struct {
	BookID    string `path:"bookID" doc:"Book ID"`
	CommentID string `path:"commentID" doc:"Comment ID"`
	Body      UpdateCommentRequest
}

// DeleteCommentInput identifies a comment to delete.
type DeleteCommentInput struct {
	BookID    string `path:"bookID" doc:"Book ID"`
	CommentID string `path:"commentID" doc:"Comment ID"`
}

// ProgressOutput wraps a reading progress response.
type ProgressOutput struct {
	Body domain.ReadingProgress
}

// UpdateProgressInput wraps a partial progress update for Huma.
type UpdateProgressInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   domain.ProgressUpdate
}

// SearchAnnotationsInput contains search parameters.
type SearchAnnotationsInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Query  string `query:"q" doc:"Search query"`
	Limit  int    `query:"limit" default:"20" maximum:"100" doc:"Maximum number of hits"`
}

// SearchAnnotationsResponse contains search hits.
type SearchAnnotationsResponse struct {
	Hits []search.Hit `json:"hits" doc:"Matching annotations, best first"`
}

// SearchAnnotationsOutput wraps the search response for Huma.
type SearchAnnotationsOutput struct {
	Body SearchAnnotationsResponse
}

// ContinueReadingResponse contains progress entries across books.
type ContinueReadingResponse struct {
	Books []domain.ReadingProgress `json:"books" doc:"Reading progress, most recently read first"`
}

// ContinueReadingOutput wraps the continue reading response for Huma.
type ContinueReadingOutput struct {
	Body ContinueReadingResponse
}

// === Handlers ===

func (s *Server) handleGetAnnotations(ctx context.Context, input *BookInput) (*BundleOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	bundle, err := s.annotations.Bundle(ctx, input.BookID)
	if err != nil {
		return nil, err
	}

	return &BundleOutput{Body: *bundle}, nil
}

func (s *Server) handleResetAnnotations(ctx context.Context, input *BookInput) (*MessageOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	if err := s.annotations.Reset(ctx, input.BookID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Annotations reset"}}, nil
}

func (s *Server) handleGetPageAnnotations(ctx context.Context, input *PageAnnotationsInput) (*PageAnnotationsOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	page, err := s.annotations.ListForPage(ctx, input.BookID, input.Page)
	if err != nil {
		return nil, err
	}

	return &PageAnnotationsOutput{Body: *page}, nil
}

func (s *Server) handleCreateHighlight(ctx context.Context, input *CreateHighlightInput) (*HighlightOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	highlight, err := s.annotations.CreateHighlight(ctx, input.BookID, input.Body)
	if err != nil {
		return nil, err
	}

	return &HighlightOutput{Body: *highlight}, nil
}

func (s *Server) handleDeleteHighlight(ctx context.Context, input *DeleteHighlightInput) (*MessageOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	if err := s.annotations.DeleteHighlight(ctx, input.BookID, input.HighlightID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Highlight deleted"}}, nil
}

func (s *Server) handleCreateComment(ctx context.Context, input *CreateCommentInput) (*CommentOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	comment, err := s.annotations.CreateComment(ctx, input.BookID, input.Body)
	if err != nil {
		return nil, err
	}

	return &CommentOutput{Body: *comment}, nil
}

func (s *Server) handleUpdateComment(ctx context.Context, input *UpdateCommentInput) (*CommentOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	comment, err := s.annotations.UpdateCommentBody(ctx, input.BookID, input.CommentID, input.Body.Body)
	if err != nil {
		return nil, err
	}

	return &CommentOutput{Body: *comment}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *DeleteCommentInput) (*MessageOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	if err := s.annotations.DeleteComment(ctx, input.BookID, input.CommentID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Comment deleted"}}, nil
}

func (s *Server) handleGetProgress(ctx context.Context, input *BookInput) (*ProgressOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	progress, err := s.annotations.Progress(ctx, input.BookID)
	if err != nil {
		return nil, err
	}

	return &ProgressOutput{Body: progress}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*ProgressOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	progress, err := s.annotations.UpdateProgress(ctx, input.BookID, input.Body)
	if err != nil {
		return nil, err
	}

	return &ProgressOutput{Body: progress}, nil
}

func (s *Server) handleSearchAnnotations(ctx context.Context, input *SearchAnnotationsInput) (*SearchAnnotationsOutput, error) {
	if _, err := s.requireBook(input.BookID); err != nil {
		return nil, err
	}

	hits, err := s.annotations.Search(ctx, input.BookID, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchAnnotationsOutput{Body: SearchAnnotationsResponse{Hits: hits}}, nil
}

func (s *Server) handleContinueReading(ctx context.Context, _ *struct{}) (*ContinueReadingOutput, error) {
	books, err := s.annotations.ContinueReading(ctx)
	if err != nil {
		return nil, err
	}

	return &ContinueReadingOutput{Body: ContinueReadingResponse{Books: books}}, nil
}
