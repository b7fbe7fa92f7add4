package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/talibapp/talib-reader/internal/domain"
	domainerrors "github.com/talibapp/talib-reader/internal/errors"
	"github.com/talibapp/talib-reader/internal/geometry"
	"github.com/talibapp/talib-reader/internal/id"
	"github.com/talibapp/talib-reader/internal/search"
	"github.com/talibapp/talib-reader/internal/sse"
	"github.com/talibapp/talib-reader/internal/store"
)

// Indexer is the search index as the annotation service sees it.
// Index writes are best-effort: a failed index write never fails the
// mutation that caused it.
type Indexer interface {
	IndexHighlight(h *domain.Highlight) error
	IndexComment(c *domain.Comment) error
	Delete(annotationID string) error
	DeleteBook(bookID string) error
	Search(bookID, queryText string, limit int) ([]search.Hit, error)
}

// NoopIndexer is an Indexer that does nothing, for tests and for
// running without a search index.
type NoopIndexer struct{}

func (NoopIndexer) IndexHighlight(*domain.Highlight) error { return nil }
func (NoopIndexer) IndexComment(*domain.Comment) error     { return nil }
func (NoopIndexer) Delete(string) error                    { return nil }
func (NoopIndexer) DeleteBook(string) error                { return nil }
func (NoopIndexer) Search(string, string, int) ([]search.Hit, error) {
	return []search.Hit{}, nil
}

// AnnotationService owns highlights, comments, and reading progress.
// Every mutation is written through to the store immediately; reads
// always load the stored bundle so concurrent sessions see each
// other's changes.
type AnnotationService struct {
	store  *store.Store
	search Indexer
	events store.EventEmitter
	logger *slog.Logger
}

// NewAnnotationService creates a new AnnotationService.
func NewAnnotationService(st *store.Store, search Indexer, events store.EventEmitter, logger *slog.Logger) *AnnotationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if search == nil {
		search = NoopIndexer{}
	}
	if events == nil {
		events = store.NewNoopEmitter()
	}
	return &AnnotationService{
		store:  st,
		search: search,
		events: events,
		logger: logger,
	}
}

// CreateHighlightRequest is the input for creating a highlight.
type CreateHighlightRequest struct {
	PageNumber int                    `json:"page_number" validate:"gte=1"`
	Text       string                 `json:"text"`
	Color      string                 `json:"color" validate:"required"`
	Regions    []geometry.PercentRect `json:"regions" validate:"required,min=1"`
}

// CreateHighlight validates and stores a new highlight, indexes its
// text, and broadcasts the change.
func (s *AnnotationService) CreateHighlight(ctx context.Context, bookID string, req CreateHighlightRequest) (*domain.Highlight, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	for _, r := range req.Regions {
		if !r.Valid() {
			return nil, domainerrors.Validation("regions must have components within 0 to 100")
		}
	}

	hlID, err := id.Generate("hl")
	if err != nil {
		return nil, domainerrors.Internal("failed to generate highlight ID", err)
	}

	highlight := domain.Highlight{
		ID:         hlID,
		BookID:     bookID,
		PageNumber: req.PageNumber,
		Text:       strings.TrimSpace(req.Text),
		Color:      req.Color,
		Regions:    req.Regions,
		CreatedAt:  time.Now(),
	}

	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return nil, err
	}
	bundle.Highlights = append(bundle.Highlights, highlight)
	s.persist(ctx, bookID, bundle)

	if ierr := s.search.IndexHighlight(&highlight); ierr != nil {
		s.logger.Warn("failed to index highlight", "highlight_id", highlight.ID, "error", ierr)
	}
	s.events.Emit(sse.NewHighlightCreatedEvent(&highlight))

	s.logger.Info("highlight created",
		"book_id", bookID,
		"highlight_id", highlight.ID,
		"page", highlight.PageNumber,
		"regions", len(highlight.Regions),
	)
	return &highlight, nil
}

// DeleteHighlight removes a highlight. Deleting an absent highlight is
// a no-op, so repeated clicks and replayed requests converge on the
// same state.
func (s *AnnotationService) DeleteHighlight(ctx context.Context, bookID, highlightID string) error {
	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return err
	}
	if !bundle.RemoveHighlight(highlightID) {
		return nil
	}
	s.persist(ctx, bookID, bundle)

	if ierr := s.search.Delete(highlightID); ierr != nil {
		s.logger.Warn("failed to deindex highlight", "highlight_id", highlightID, "error", ierr)
	}
	s.events.Emit(sse.NewHighlightDeletedEvent(bookID, highlightID))

	s.logger.Info("highlight deleted", "book_id", bookID, "highlight_id", highlightID)
	return nil
}

// CreateCommentRequest is the input for creating a comment.
type CreateCommentRequest struct {
	PageNumber int                   `json:"page_number" validate:"gte=1"`
	AnchorText string                `json:"anchor_text"`
	Body       string                `json:"body" validate:"required"`
	Position   geometry.PercentPoint `json:"position"`
}

// CreateComment validates and stores a new comment. Whitespace-only
// bodies are rejected; a comment always carries content.
func (s *AnnotationService) CreateComment(ctx context.Context, bookID string, req CreateCommentRequest) (*domain.Comment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, domainerrors.Validation("comment body cannot be empty")
	}
	if !req.Position.Valid() {
		return nil, domainerrors.Validation("position must have components within 0 to 100")
	}

	cmID, err := id.Generate("cm")
	if err != nil {
		return nil, domainerrors.Internal("failed to generate comment ID", err)
	}

	now := time.Now()
	comment := domain.Comment{
		ID:         cmID,
		BookID:     bookID,
		PageNumber: req.PageNumber,
		AnchorText: strings.TrimSpace(req.AnchorText),
		Body:       body,
		Position:   req.Position,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return nil, err
	}
	bundle.Comments = append(bundle.Comments, comment)
	s.persist(ctx, bookID, bundle)

	if ierr := s.search.IndexComment(&comment); ierr != nil {
		s.logger.Warn("failed to index comment", "comment_id", comment.ID, "error", ierr)
	}
	s.events.Emit(sse.NewCommentCreatedEvent(&comment))

	s.logger.Info("comment created",
		"book_id", bookID,
		"comment_id", comment.ID,
		"page", comment.PageNumber,
	)
	return &comment, nil
}

// UpdateCommentBody replaces a comment's body. Unknown comments return
// not-found; blank bodies are rejected without touching the stored
// comment.
func (s *AnnotationService) UpdateCommentBody(ctx context.Context, bookID, commentID, body string) (*domain.Comment, error) {
	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return nil, err
	}

	comment := bundle.FindComment(commentID)
	if comment == nil {
		return nil, domainerrors.NotFoundf("comment %s not found", commentID)
	}
	if !comment.SetBody(body) {
		return nil, domainerrors.Validation("comment body cannot be empty")
	}
	s.persist(ctx, bookID, bundle)

	if ierr := s.search.IndexComment(comment); ierr != nil {
		s.logger.Warn("failed to reindex comment", "comment_id", comment.ID, "error", ierr)
	}
	s.events.Emit(sse.NewCommentUpdatedEvent(comment))

	s.logger.Info("comment updated", "book_id", bookID, "comment_id", commentID)
	updated := *comment
	return &updated, nil
}

// DeleteComment removes a comment, idempotently.
func (s *AnnotationService) DeleteComment(ctx context.Context, bookID, commentID string) error {
	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return err
	}
	if !bundle.RemoveComment(commentID) {
		return nil
	}
	s.persist(ctx, bookID, bundle)

	if ierr := s.search.Delete(commentID); ierr != nil {
		s.logger.Warn("failed to deindex comment", "comment_id", commentID, "error", ierr)
	}
	s.events.Emit(sse.NewCommentDeletedEvent(bookID, commentID))

	s.logger.Info("comment deleted", "book_id", bookID, "comment_id", commentID)
	return nil
}

// Bundle returns the full reading state for a book.
func (s *AnnotationService) Bundle(ctx context.Context, bookID string) (*domain.AnnotationBundle, error) {
	return s.store.GetBundle(ctx, bookID)
}

// PageAnnotations is the set of annotations visible on one page.
type PageAnnotations struct {
	Highlights []domain.Highlight `json:"highlights"`
	Comments   []domain.Comment   `json:"comments"`
}

// ListForPage returns a page's highlights and comments in insertion
// order, which is also their stacking order in the overlay.
func (s *AnnotationService) ListForPage(ctx context.Context, bookID string, page int) (*PageAnnotations, error) {
	if page < 1 {
		return nil, domainerrors.Validation("page_number must be at least 1")
	}
	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return &PageAnnotations{
		Highlights: bundle.HighlightsForPage(page),
		Comments:   bundle.CommentsForPage(page),
	}, nil
}

// Progress returns the stored reading progress for a book, defaults
// included when nothing is stored yet.
func (s *AnnotationService) Progress(ctx context.Context, bookID string) (domain.ReadingProgress, error) {
	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return domain.ReadingProgress{}, err
	}
	return bundle.Progress, nil
}

// UpdateProgress merges a partial progress update into the stored
// progress. Page and zoom values clamp rather than fail.
func (s *AnnotationService) UpdateProgress(ctx context.Context, bookID string, update domain.ProgressUpdate) (domain.ReadingProgress, error) {
	bundle, err := s.store.GetBundle(ctx, bookID)
	if err != nil {
		return domain.ReadingProgress{}, err
	}
	bundle.Progress.Apply(update)
	s.persist(ctx, bookID, bundle)

	s.events.Emit(sse.NewProgressUpdatedEvent(bundle.Progress))
	return bundle.Progress, nil
}

// Reset wipes all stored state for a book: annotations, comments,
// progress, and the search index entries.
func (s *AnnotationService) Reset(ctx context.Context, bookID string) error {
	if err := s.store.ClearBundle(ctx, bookID); err != nil {
		return err
	}
	if ierr := s.search.DeleteBook(bookID); ierr != nil {
		s.logger.Warn("failed to deindex book", "book_id", bookID, "error", ierr)
	}
	s.events.Emit(sse.NewBookResetEvent(bookID))

	s.logger.Info("book annotations reset", "book_id", bookID)
	return nil
}

// ContinueReading returns reading progress across all books, most
// recently read first. Entries that never advanced past the defaults
// are included; the caller decides how to present them.
func (s *AnnotationService) ContinueReading(ctx context.Context) ([]domain.ReadingProgress, error) {
	return s.store.AllProgress(ctx)
}

// Search finds annotations in a book matching the query text.
func (s *AnnotationService) Search(ctx context.Context, bookID, query string, limit int) ([]search.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, domainerrors.Validation("query cannot be empty")
	}
	hits, err := s.search.Search(bookID, query, limit)
	if err != nil {
		return nil, domainerrors.Internal("search failed", err)
	}
	return hits, nil
}

// persist writes the bundle through to the store. A failed save is
// logged and swallowed: the in-memory state the caller just built is
// still returned, and the next successful mutation rewrites the full
// bundle anyway.
func (s *AnnotationService) persist(ctx context.Context, bookID string, bundle *domain.AnnotationBundle) {
	if err := s.store.SaveBundle(ctx, bookID, bundle); err != nil {
		s.logger.Error("failed to save annotation bundle",
			"book_id", bookID,
			"error", err,
		)
	}
}
