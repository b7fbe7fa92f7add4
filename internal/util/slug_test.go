package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple title", "The Silent Library", "the-silent-library"},
		{"underscores", "intro_to_go", "intro-to-go"},
		{"mixed case", "DUNE-Part-One", "dune-part-one"},
		{"unicode and punctuation", "Café — Notes!", "caf-notes"},
		{"collapses dashes", "a -- b", "a-b"},
		{"trims dashes", "--leading--", "leading"},
		{"whitespace padding", "  multi   word ", "multi-word"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BookSlug(tt.input))
		})
	}
}
