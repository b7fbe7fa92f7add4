package viewer

import "github.com/talibapp/talib-reader/internal/geometry"

// ComposerState is the state of the comment composer.
type ComposerState string

const (
	// ComposerClosed means no comment is being written.
	ComposerClosed ComposerState = "closed"
	// ComposerComposing means a position has been captured and the
	// composer is waiting for a body.
	ComposerComposing ComposerState = "composing"
)

// Composer holds the in-flight comment draft. A click with the comment
// tool captures the anchor; the comment itself is created on submit,
// never on click.
type Composer struct {
	State      ComposerState         `json:"state"`
	PageNumber int                   `json:"page_number,omitempty"`
	AnchorText string                `json:"anchor_text,omitempty"`
	Position   geometry.PercentPoint `json:"position,omitzero"`
}

func closedComposer() Composer {
	return Composer{State: ComposerClosed}
}

func (c Composer) open() bool {
	return c.State == ComposerComposing
}
