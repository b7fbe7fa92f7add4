// Package overlay projects stored annotations onto the current page
// geometry: the pixel shapes the reader draws over the document, and
// hit testing for clicks on them.
package overlay

import (
	"github.com/talibapp/talib-reader/internal/domain"
	"github.com/talibapp/talib-reader/internal/geometry"
)

// ShapeKind is what a projected shape represents.
type ShapeKind string

const (
	// KindHighlightRegion is one rectangle of a highlight. A
	// line-wrapped highlight projects one shape per region.
	KindHighlightRegion ShapeKind = "highlight_region"
	// KindCommentMarker is the marker drawn at a comment's anchor.
	KindCommentMarker ShapeKind = "comment_marker"
)

// MarkerSizePx is the comment marker's rendered size. The marker is a
// fixed-size affordance centered on the anchor point; it does not
// scale with zoom.
const MarkerSizePx = 24.0

// Shape is one drawable element in pixel coordinates against the
// current rendered page.
type Shape struct {
	Kind         ShapeKind     `json:"kind"`
	AnnotationID string        `json:"annotation_id"`
	Color        string        `json:"color,omitempty"`
	Rect         geometry.Rect `json:"rect"`
}

// Build projects a page's annotations onto the given page size, in
// draw order: highlights first in insertion order, then comment
// markers on top. Returns nil when the page is not measured; there is
// nothing to draw against.
func Build(highlights []domain.Highlight, comments []domain.Comment, page geometry.PageSize) []Shape {
	if !page.Valid() {
		return nil
	}

	shapes := make([]Shape, 0, len(highlights)+len(comments))
	for _, h := range highlights {
		for _, region := range h.Regions {
			shapes = append(shapes, Shape{
				Kind:         KindHighlightRegion,
				AnnotationID: h.ID,
				Color:        h.Color,
				Rect:         geometry.ToPixelRect(region, page),
			})
		}
	}
	for _, c := range comments {
		anchor := geometry.ToPixelPoint(c.Position, page)
		shapes = append(shapes, Shape{
			Kind:         KindCommentMarker,
			AnnotationID: c.ID,
			Rect: geometry.Rect{
				X:      anchor.X - MarkerSizePx/2,
				Y:      anchor.Y - MarkerSizePx/2,
				Width:  MarkerSizePx,
				Height: MarkerSizePx,
			},
		})
	}
	return shapes
}

// HitTest returns the topmost shape containing the point, or nil.
// Later shapes draw on top, so the scan runs back to front.
func HitTest(shapes []Shape, p geometry.Point) *Shape {
	for i := len(shapes) - 1; i >= 0; i-- {
		if shapes[i].Rect.Contains(p) {
			return &shapes[i]
		}
	}
	return nil
}
