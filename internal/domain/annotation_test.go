package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talibapp/talib-reader/internal/geometry"
)

func intPtr(v int) *int { return &v }

func TestNewAnnotationBundle_Defaults(t *testing.T) {
	b := NewAnnotationBundle("book-1")

	assert.Empty(t, b.Highlights)
	assert.Empty(t, b.Comments)
	assert.Equal(t, "book-1", b.Progress.BookID)
	assert.Equal(t, 1, b.Progress.CurrentPage)
	assert.Equal(t, 0, b.Progress.TotalPages)
	assert.Equal(t, ZoomDefault, b.Progress.ZoomPercent)
	assert.WithinDuration(t, time.Now(), b.Progress.LastReadAt, time.Second)
}

func TestProgressApply_ClampsPageToKnownTotal(t *testing.T) {
	p := ReadingProgress{BookID: "book-1", CurrentPage: 1, ZoomPercent: 100}

	p.Apply(ProgressUpdate{TotalPages: intPtr(10), CurrentPage: intPtr(999)})
	assert.Equal(t, 10, p.CurrentPage)
	assert.Equal(t, 10, p.TotalPages)

	p.Apply(ProgressUpdate{CurrentPage: intPtr(0)})
	assert.Equal(t, 1, p.CurrentPage)

	p.Apply(ProgressUpdate{CurrentPage: intPtr(-5)})
	assert.Equal(t, 1, p.CurrentPage)
}

func TestProgressApply_UnknownTotalOnlyLowerBound(t *testing.T) {
	p := ReadingProgress{BookID: "book-1", CurrentPage: 1, ZoomPercent: 100}

	// TotalPages still 0: the upper bound is unknown, navigation forward
	// is allowed and clamps later once the document reports its size.
	p.Apply(ProgressUpdate{CurrentPage: intPtr(42)})
	assert.Equal(t, 42, p.CurrentPage)

	p.Apply(ProgressUpdate{TotalPages: intPtr(20)})
	assert.Equal(t, 20, p.CurrentPage)
}

func TestProgressApply_ClampsZoomAndRefreshesLastReadAt(t *testing.T) {
	p := ReadingProgress{BookID: "book-1", CurrentPage: 1, ZoomPercent: 100}
	before := p.LastReadAt

	p.Apply(ProgressUpdate{ZoomPercent: intPtr(500)})
	assert.Equal(t, ZoomMax, p.ZoomPercent)

	p.Apply(ProgressUpdate{ZoomPercent: intPtr(10)})
	assert.Equal(t, ZoomMin, p.ZoomPercent)

	p.Apply(ProgressUpdate{})
	assert.True(t, p.LastReadAt.After(before))
}

func TestCommentSetBody(t *testing.T) {
	c := Comment{ID: "cm-1", Body: "original", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	previous := c.UpdatedAt

	require.False(t, c.SetBody("   "))
	assert.Equal(t, "original", c.Body)

	require.True(t, c.SetBody("  edited  "))
	assert.Equal(t, "edited", c.Body)
	assert.False(t, c.UpdatedAt.Before(previous))
}

func TestBundleRemoveHighlight_Idempotent(t *testing.T) {
	b := NewAnnotationBundle("book-1")
	b.Highlights = append(b.Highlights, Highlight{ID: "hl-1", PageNumber: 1, Regions: []geometry.PercentRect{{Width: 10, Height: 5}}})

	assert.True(t, b.RemoveHighlight("hl-1"))
	assert.False(t, b.RemoveHighlight("hl-1"))
	assert.False(t, b.RemoveHighlight("hl-unknown"))
	assert.Empty(t, b.Highlights)
}

func TestBundlePageFiltering_InsertionOrder(t *testing.T) {
	b := NewAnnotationBundle("book-1")
	b.Highlights = append(b.Highlights,
		Highlight{ID: "hl-a", PageNumber: 1},
		Highlight{ID: "hl-b", PageNumber: 2},
		Highlight{ID: "hl-c", PageNumber: 2},
	)
	b.Comments = append(b.Comments,
		Comment{ID: "cm-a", PageNumber: 2, Body: "x"},
		Comment{ID: "cm-b", PageNumber: 3, Body: "y"},
	)

	hls := b.HighlightsForPage(2)
	require.Len(t, hls, 2)
	assert.Equal(t, "hl-b", hls[0].ID)
	assert.Equal(t, "hl-c", hls[1].ID)

	cms := b.CommentsForPage(2)
	require.Len(t, cms, 1)
	assert.Equal(t, "cm-a", cms[0].ID)

	assert.Empty(t, b.HighlightsForPage(99))
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, ZoomMin, ClampZoom(0))
	assert.Equal(t, 100, ClampZoom(100))
	assert.Equal(t, ZoomMax, ClampZoom(1000))
}
