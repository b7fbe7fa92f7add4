// Package render loads PDF documents and measures their pages so the
// viewer can lay out a page at a requested width.
package render

import (
	"context"
	"fmt"
)

// FailureKind classifies why a document failed to load. The viewer
// shows a different message per kind and offers a retry.
type FailureKind string

const (
	FailureNotFound FailureKind = "not_found"
	FailureNetwork  FailureKind = "network"
	FailureDecode   FailureKind = "decode"
	FailureOther    FailureKind = "other"
)

// Error is a document load failure with a classification.
type Error struct {
	Kind  FailureKind
	Path  string
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %s: %v", e.Path, e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Reason returns a human-readable failure message for the viewer.
func (e *Error) Reason() string {
	switch e.Kind {
	case FailureNotFound:
		return "The document could not be found."
	case FailureNetwork:
		return "The document could not be fetched."
	case FailureDecode:
		return "The document is damaged or not a valid PDF."
	default:
		return "The document could not be loaded."
	}
}

func newError(kind FailureKind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, cause: cause}
}

// Request asks for one page of a document measured at a target width.
type Request struct {
	// Path is the document location on disk.
	Path string
	// Page is the 1-based page number. Out-of-range pages clamp.
	Page int
	// WidthPx is the target render width. The height follows from the
	// page's aspect ratio.
	WidthPx float64
}

// Result describes the measured document and page.
type Result struct {
	TotalPages   int
	Page         int
	PageWidthPx  float64
	PageHeightPx float64
}

// Renderer measures document pages. Implementations must be safe for
// concurrent use; the viewer calls Measure from per-session goroutines.
type Renderer interface {
	Measure(ctx context.Context, req Request) (*Result, error)
}
