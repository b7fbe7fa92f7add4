package domain

import "time"

// Book is a PDF document discovered in the library directory.
// The catalog is derived entirely from the filesystem scan; only the
// reading state (AnnotationBundle) is persisted.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	AddedAt   time.Time `json:"added_at"`
}
