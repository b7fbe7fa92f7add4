package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/talibapp/talib-reader/internal/domain"
)

// Annotation kinds indexed.
const (
	KindHighlight = "highlight"
	KindComment   = "comment"
)

// document is the indexed form of an annotation.
type document struct {
	Kind       string `json:"kind"`
	BookID     string `json:"book_id"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Hit is one search result.
type Hit struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	BookID     string  `json:"book_id"`
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// IndexHighlight adds or updates a highlight in the index.
// Highlights with no captured text are skipped; there is nothing to
// search for.
func (i *Index) IndexHighlight(h *domain.Highlight) error {
	if h.Text == "" {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Index(h.ID, document{
		Kind:       KindHighlight,
		BookID:     h.BookID,
		PageNumber: h.PageNumber,
		Text:       h.Text,
	})
}

// IndexComment adds or updates a comment in the index. Both the body
// and the anchor text are searchable.
func (i *Index) IndexComment(c *domain.Comment) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	text := c.Body
	if c.AnchorText != "" {
		text = c.AnchorText + " " + c.Body
	}
	return i.index.Index(c.ID, document{
		Kind:       KindComment,
		BookID:     c.BookID,
		PageNumber: c.PageNumber,
		Text:       text,
	})
}

// Delete removes an annotation from the index. Unknown IDs are fine.
func (i *Index) Delete(annotationID string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Delete(annotationID)
}

// DeleteBook removes every indexed annotation for a book.
// Used when a book's annotations are reset.
func (i *Index) DeleteBook(bookID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	tq := bleve.NewTermQuery(bookID)
	tq.SetField("book_id")
	req := bleve.NewSearchRequest(tq)
	req.Size = 1000

	res, err := i.index.Search(req)
	if err != nil {
		return fmt.Errorf("search book annotations: %w", err)
	}
	for _, hit := range res.Hits {
		if derr := i.index.Delete(hit.ID); derr != nil {
			return fmt.Errorf("delete %s: %w", hit.ID, derr)
		}
	}
	return nil
}

// Search finds annotations in one book matching the query text.
func (i *Index) Search(bookID, queryText string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 25
	}

	mq := bleve.NewMatchQuery(queryText)
	mq.SetField("text")

	tq := bleve.NewTermQuery(bookID)
	tq.SetField("book_id")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(mq, tq))
	req.Size = limit
	req.Fields = []string{"kind", "book_id", "page_number", "text"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search annotations: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["kind"].(string); ok {
			hit.Kind = v
		}
		if v, ok := h.Fields["book_id"].(string); ok {
			hit.BookID = v
		}
		if v, ok := h.Fields["page_number"].(float64); ok {
			hit.PageNumber = int(v)
		}
		if v, ok := h.Fields["text"].(string); ok {
			hit.Text = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
