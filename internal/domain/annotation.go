// Package domain contains the core models for the Talib reader:
// highlights, comments, reading progress, and the per-book bundle they
// are persisted in.
package domain

import (
	"strings"
	"time"

	"github.com/talibapp/talib-reader/internal/geometry"
)

// Zoom bounds in percent. Out-of-range values clamp, they never fail.
const (
	ZoomMin     = 50
	ZoomMax     = 300
	ZoomDefault = 100
)

// Highlight is a reader highlight anchored to one page.
//
// Regions holds the selection in percentage coordinates. A selection
// that wraps a line break produces multiple disjoint regions; they are
// stored in order and never merged.
type Highlight struct {
	ID         string                 `json:"id"`
	BookID     string                 `json:"book_id"`
	PageNumber int                    `json:"page_number"`
	Text       string                 `json:"text,omitempty"`
	Color      string                 `json:"color"`
	Regions    []geometry.PercentRect `json:"regions"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Comment is a positioned note anchored to a point on a page.
type Comment struct {
	ID         string                `json:"id"`
	BookID     string                `json:"book_id"`
	PageNumber int                   `json:"page_number"`
	AnchorText string                `json:"anchor_text,omitempty"`
	Body       string                `json:"body"`
	Position   geometry.PercentPoint `json:"position"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// SetBody replaces the comment body and bumps UpdatedAt.
// Returns false for a blank body: edits cannot empty a comment,
// deletion is the only way to remove its content.
func (c *Comment) SetBody(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return false
	}
	c.Body = trimmed
	c.UpdatedAt = time.Now()
	return true
}

// ReadingProgress tracks where the reader left off in a book.
// TotalPages is 0 until the document has loaded at least once.
type ReadingProgress struct {
	BookID      string    `json:"book_id"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	ZoomPercent int       `json:"zoom_percent"`
	LastReadAt  time.Time `json:"last_read_at"`
}

// ProgressUpdate is a partial progress change. Nil fields are left as
// they are; LastReadAt always refreshes on apply.
type ProgressUpdate struct {
	CurrentPage *int `json:"current_page,omitempty"`
	TotalPages  *int `json:"total_pages,omitempty"`
	ZoomPercent *int `json:"zoom_percent,omitempty"`
}

// Apply merges an update into the progress. CurrentPage clamps to
// [1,TotalPages] once TotalPages is known, zoom clamps to the zoom
// bounds, and LastReadAt refreshes unconditionally.
func (p *ReadingProgress) Apply(u ProgressUpdate) {
	if u.TotalPages != nil && *u.TotalPages >= 0 {
		p.TotalPages = *u.TotalPages
	}
	if u.CurrentPage != nil {
		p.CurrentPage = *u.CurrentPage
	}
	if u.ZoomPercent != nil {
		p.ZoomPercent = ClampZoom(*u.ZoomPercent)
	}
	p.CurrentPage = ClampPage(p.CurrentPage, p.TotalPages)
	p.LastReadAt = time.Now()
}

// ClampPage bounds a page number to [1,totalPages]. With totalPages
// unknown (0) only the lower bound applies.
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if totalPages > 0 && page > totalPages {
		return totalPages
	}
	return page
}

// ClampZoom bounds a zoom percentage to [ZoomMin,ZoomMax].
func ClampZoom(pct int) int {
	if pct < ZoomMin {
		return ZoomMin
	}
	if pct > ZoomMax {
		return ZoomMax
	}
	return pct
}

// AnnotationBundle is the full persisted reading state for one book.
// It is the unit of durability: every mutation rewrites the whole
// bundle so the stored form is always self-consistent.
type AnnotationBundle struct {
	Highlights []Highlight     `json:"highlights"`
	Comments   []Comment       `json:"comments"`
	Progress   ReadingProgress `json:"progress"`
}

// NewAnnotationBundle returns the default bundle for a book that has
// no stored state yet.
func NewAnnotationBundle(bookID string) *AnnotationBundle {
	return &AnnotationBundle{
		Highlights: []Highlight{},
		Comments:   []Comment{},
		Progress: ReadingProgress{
			BookID:      bookID,
			CurrentPage: 1,
			TotalPages:  0,
			ZoomPercent: ZoomDefault,
			LastReadAt:  time.Now(),
		},
	}
}

// HighlightsForPage returns the page's highlights in insertion order.
func (b *AnnotationBundle) HighlightsForPage(page int) []Highlight {
	out := make([]Highlight, 0)
	for _, h := range b.Highlights {
		if h.PageNumber == page {
			out = append(out, h)
		}
	}
	return out
}

// CommentsForPage returns the page's comments in insertion order.
func (b *AnnotationBundle) CommentsForPage(page int) []Comment {
	out := make([]Comment, 0)
	for _, c := range b.Comments {
		if c.PageNumber == page {
			out = append(out, c)
		}
	}
	return out
}

// RemoveHighlight deletes a highlight by ID. Reports whether anything
// was removed; absence is not an error, deletion is idempotent.
func (b *AnnotationBundle) RemoveHighlight(id string) bool {
	for i, h := range b.Highlights {
		if h.ID == id {
			b.Highlights = append(b.Highlights[:i], b.Highlights[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveComment deletes a comment by ID, idempotently.
func (b *AnnotationBundle) RemoveComment(id string) bool {
	for i, c := range b.Comments {
		if c.ID == id {
			b.Comments = append(b.Comments[:i], b.Comments[i+1:]...)
			return true
		}
	}
	return false
}

// FindComment returns a pointer into the bundle's comment slice, or nil.
func (b *AnnotationBundle) FindComment(id string) *Comment {
	for i := range b.Comments {
		if b.Comments[i].ID == id {
			return &b.Comments[i]
		}
	}
	return nil
}
