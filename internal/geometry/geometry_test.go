package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func assertRectEqual(t *testing.T, want, got Rect) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, epsilon)
	assert.InDelta(t, want.Y, got.Y, epsilon)
	assert.InDelta(t, want.Width, got.Width, epsilon)
	assert.InDelta(t, want.Height, got.Height, epsilon)
}

func TestRoundTrip(t *testing.T) {
	pages := []PageSize{
		{WidthPx: 800, HeightPx: 1000},
		{WidthPx: 612, HeightPx: 792},
		{WidthPx: 1, HeightPx: 1},
		{WidthPx: 2400, HeightPx: 3000},
		{WidthPx: 333.33, HeightPx: 471.7},
	}
	rects := []Rect{
		{X: 0, Y: 0, Width: 0, Height: 0},
		{X: 10.5, Y: 20.25, Width: 30, Height: 5},
		{X: 0.001, Y: 0.002, Width: 0.003, Height: 0.004},
	}

	for _, page := range pages {
		for _, r := range rects {
			// Keep the rect inside the page so clamping does not kick in.
			scaled := Rect{
				X:      r.X / 800 * page.WidthPx,
				Y:      r.Y / 1000 * page.HeightPx,
				Width:  r.Width / 800 * page.WidthPx,
				Height: r.Height / 1000 * page.HeightPx,
			}
			pr, ok := ToPercentRect(scaled, page)
			require.True(t, ok)
			assertRectEqual(t, scaled, ToPixelRect(pr, page))
		}
	}
}

func TestToPercentRect_UnmeasuredPage(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 5, Height: 5}

	_, ok := ToPercentRect(r, PageSize{})
	assert.False(t, ok)

	_, ok = ToPercentRect(r, PageSize{WidthPx: 800})
	assert.False(t, ok)

	_, ok = ToPercentRect(r, PageSize{WidthPx: -800, HeightPx: 1000})
	assert.False(t, ok)

	_, ok = ToPercentPoint(Point{X: 1, Y: 1}, PageSize{HeightPx: 1000})
	assert.False(t, ok)
}

func TestToPercentRect_ClampsAtPageEdges(t *testing.T) {
	page := PageSize{WidthPx: 100, HeightPx: 100}

	// Selection dragged past the right and bottom edges.
	pr, ok := ToPercentRect(Rect{X: -5, Y: 95, Width: 120, Height: 30}, page)
	require.True(t, ok)
	assert.Equal(t, 0.0, pr.X)
	assert.Equal(t, 95.0, pr.Y)
	assert.Equal(t, 100.0, pr.Width)
	assert.Equal(t, 30.0, pr.Height)
	assert.True(t, pr.Valid())
}

func TestToPercentRects_MultiRectSelectionNormalizedIndependently(t *testing.T) {
	page := PageSize{WidthPx: 1000, HeightPx: 500}

	// A line-wrapped selection: end of one line plus start of the next.
	rects := []Rect{
		{X: 600, Y: 100, Width: 400, Height: 20},
		{X: 0, Y: 120, Width: 250, Height: 20},
	}

	prs := ToPercentRects(rects, page)
	require.Len(t, prs, 2)
	assert.Equal(t, PercentRect{X: 60, Y: 20, Width: 40, Height: 4}, prs[0])
	assert.Equal(t, PercentRect{X: 0, Y: 24, Width: 25, Height: 4}, prs[1])
}

func TestToPercentRects_UnmeasuredPageReturnsNil(t *testing.T) {
	assert.Nil(t, ToPercentRects([]Rect{{Width: 10, Height: 10}}, PageSize{}))
}

func TestReprojectionAcrossResize(t *testing.T) {
	// Highlight stored at 800x1000, re-projected after the window shrinks
	// to 400x500: percentages are preserved, pixels rescale exactly.
	original := PageSize{WidthPx: 800, HeightPx: 1000}
	resized := PageSize{WidthPx: 400, HeightPx: 500}

	pr, ok := ToPercentRect(Rect{X: 80, Y: 200, Width: 240, Height: 50}, original)
	require.True(t, ok)
	assert.Equal(t, PercentRect{X: 10, Y: 20, Width: 30, Height: 5}, pr)

	assertRectEqual(t, Rect{X: 40, Y: 100, Width: 120, Height: 25}, ToPixelRect(pr, resized))
}

func TestPointRoundTrip(t *testing.T) {
	page := PageSize{WidthPx: 640, HeightPx: 480}

	pp, ok := ToPercentPoint(Point{X: 320, Y: 120}, page)
	require.True(t, ok)
	assert.Equal(t, PercentPoint{X: 50, Y: 25}, pp)

	p := ToPixelPoint(pp, page)
	assert.InDelta(t, 320, p.X, epsilon)
	assert.InDelta(t, 120, p.Y, epsilon)
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 10}

	assert.True(t, r.Contains(Point{X: 10, Y: 10}))
	assert.True(t, r.Contains(Point{X: 30, Y: 20}))
	assert.True(t, r.Contains(Point{X: 15, Y: 15}))
	assert.False(t, r.Contains(Point{X: 9.999, Y: 15}))
	assert.False(t, r.Contains(Point{X: 15, Y: 20.001}))
}

func TestPercentRectValid(t *testing.T) {
	assert.True(t, PercentRect{X: 0, Y: 0, Width: 100, Height: 100}.Valid())
	assert.False(t, PercentRect{X: -1}.Valid())
	assert.False(t, PercentRect{X: 101}.Valid())
	assert.False(t, PercentRect{X: math.NaN()}.Valid())
	assert.False(t, PercentRect{Width: math.Inf(1)}.Valid())
}
