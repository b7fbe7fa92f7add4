// Package geometry converts between live pixel coordinates, measured
// against the currently rendered page element, and resolution-independent
// percentage coordinates used for stored annotations.
//
// All conversion arithmetic in the application lives here. Storing
// percentages of the page's intrinsic size is what lets annotations
// survive zoom changes, window resizes, and new sessions.
package geometry

import "math"

// Rect is an axis-aligned rectangle in pixel space, relative to the
// top-left corner of the rendered page element.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a single position in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PercentRect is a rectangle with every component expressed as a
// percentage of the page's width or height, each in [0,100].
type PercentRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PercentPoint is a position in percentage coordinates.
type PercentPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PageSize is the pixel dimensions of the rendered page element at the
// current zoom and viewport. A zero-valued PageSize means the page has
// not been measured yet.
type PageSize struct {
	WidthPx  float64 `json:"width_px"`
	HeightPx float64 `json:"height_px"`
}

// Valid reports whether the page has been measured.
func (p PageSize) Valid() bool {
	return p.WidthPx > 0 && p.HeightPx > 0 &&
		!math.IsInf(p.WidthPx, 0) && !math.IsInf(p.HeightPx, 0) &&
		!math.IsNaN(p.WidthPx) && !math.IsNaN(p.HeightPx)
}

// ToPercentRect converts a pixel rectangle to percentage coordinates.
// Returns false when the page has not been measured; callers must treat
// that as "defer the operation", never fabricate coordinates.
// Results are clamped to [0,100] so selections that spill past the page
// edge pin to the edge.
func ToPercentRect(r Rect, page PageSize) (PercentRect, bool) {
	if !page.Valid() {
		return PercentRect{}, false
	}
	pr := PercentRect{
		X:      clampPct(100 * r.X / page.WidthPx),
		Y:      clampPct(100 * r.Y / page.HeightPx),
		Width:  clampPct(100 * r.Width / page.WidthPx),
		Height: clampPct(100 * r.Height / page.HeightPx),
	}
	return pr, true
}

// ToPercentRects normalizes each rectangle of a multi-rect selection
// independently. Line-wrapped selections yield disjoint client rects;
// they are never merged, since a merged bounding box would overlap text
// that was not selected. Rects that cannot be normalized are dropped.
func ToPercentRects(rects []Rect, page PageSize) []PercentRect {
	if !page.Valid() {
		return nil
	}
	out := make([]PercentRect, 0, len(rects))
	for _, r := range rects {
		if pr, ok := ToPercentRect(r, page); ok {
			out = append(out, pr)
		}
	}
	return out
}

// ToPixelRect projects a stored percentage rectangle back onto the
// current page geometry. Exact inverse of ToPercentRect for values that
// did not clamp.
func ToPixelRect(pr PercentRect, page PageSize) Rect {
	return Rect{
		X:      pr.X * page.WidthPx / 100,
		Y:      pr.Y * page.HeightPx / 100,
		Width:  pr.Width * page.WidthPx / 100,
		Height: pr.Height * page.HeightPx / 100,
	}
}

// ToPercentPoint converts a pixel point to percentage coordinates.
func ToPercentPoint(p Point, page PageSize) (PercentPoint, bool) {
	if !page.Valid() {
		return PercentPoint{}, false
	}
	return PercentPoint{
		X: clampPct(100 * p.X / page.WidthPx),
		Y: clampPct(100 * p.Y / page.HeightPx),
	}, true
}

// ToPixelPoint projects a stored percentage point back to pixel space.
func ToPixelPoint(pp PercentPoint, page PageSize) Point {
	return Point{
		X: pp.X * page.WidthPx / 100,
		Y: pp.Y * page.HeightPx / 100,
	}
}

// Contains reports whether the pixel point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Valid reports whether all components are finite and within [0,100].
func (pr PercentRect) Valid() bool {
	for _, v := range []float64{pr.X, pr.Y, pr.Width, pr.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// Valid reports whether both components are finite and within [0,100].
func (pp PercentPoint) Valid() bool {
	for _, v := range []float64{pp.X, pp.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
			return false
		}
	}
	return true
}

func clampPct(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
