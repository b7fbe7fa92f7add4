package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/talibapp/talib-reader/internal/domain"
)

// bundlePrefix namespaces all reading-state keys. One key per book:
// "reader:<bookID>" holds the complete AnnotationBundle.
const bundlePrefix = "reader:"

func bundleKey(bookID string) []byte {
	return []byte(bundlePrefix + bookID)
}

// GetBundle loads the annotation bundle for a book.
//
// A book with no stored state yields the default bundle, and so does a
// stored payload that fails to decode: corrupt data is treated as
// absent, never fatal, so a damaged entry can't lock a reader out of
// their book.
func (s *Store) GetBundle(ctx context.Context, bookID string) (*domain.AnnotationBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var bundle *domain.AnnotationBundle

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bundleKey(bookID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var b domain.AnnotationBundle
			if uerr := json.Unmarshal(val, &b); uerr != nil {
				s.logger.Warn("discarding corrupt annotation bundle",
					"book_id", bookID,
					"error", uerr,
				)
				return nil
			}
			bundle = &b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if bundle == nil {
		return domain.NewAnnotationBundle(bookID), nil
	}
	// Older payloads may have nil slices; normalize so callers can
	// append without nil checks and responses encode as [] not null.
	if bundle.Highlights == nil {
		bundle.Highlights = []domain.Highlight{}
	}
	if bundle.Comments == nil {
		bundle.Comments = []domain.Comment{}
	}
	return bundle, nil
}

// SaveBundle encodes and writes the full bundle for a book.
// Every mutation rewrites the whole bundle, so the stored form is
// always self-consistent; a crash loses at most the in-flight mutation.
func (s *Store) SaveBundle(ctx context.Context, bookID string, bundle *domain.AnnotationBundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bundleKey(bookID), data)
	})
}

// ClearBundle removes a book's reading state entirely.
func (s *Store) ClearBundle(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(bundleKey(bookID))
	})
}

// AllProgress scans every stored bundle and collects its progress,
// most recently read first. Used for the continue-reading view; runs
// per library visit, not per render, so the full scan is fine.
func (s *Store) AllProgress(ctx context.Context) ([]domain.ReadingProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(bundlePrefix)
	results := make([]domain.ReadingProgress, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var b domain.AnnotationBundle
				if uerr := json.Unmarshal(val, &b); uerr != nil {
					// Skip corrupt entries, same policy as GetBundle.
					return nil
				}
				results = append(results, b.Progress)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].LastReadAt.After(results[j].LastReadAt)
	})
	return results, nil
}
