// Package library maintains the catalog of PDF documents in the
// library directory. The catalog is derived from the filesystem and
// rebuilt on change; nothing about it is persisted.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/talibapp/talib-reader/internal/domain"
	domainerrors "github.com/talibapp/talib-reader/internal/errors"
	"github.com/talibapp/talib-reader/internal/util"
)

// settleDelay batches bursts of filesystem events into one rescan.
// Copying a large PDF in fires many writes; we rescan once it quiets.
const settleDelay = 500 * time.Millisecond

// Library is the scanned document catalog. Safe for concurrent use.
type Library struct {
	dir      string
	logger   *slog.Logger
	onChange func(path string)

	mu    sync.RWMutex
	books map[string]domain.Book
}

// Options configure a Library.
type Options struct {
	// Dir is the directory scanned for PDF documents.
	Dir string
	// OnChange, if set, is called with the path of each changed file
	// before the rescan. Used to evict render caches.
	OnChange func(path string)
	Logger   *slog.Logger
}

// New creates a Library and runs the initial scan.
func New(opts Options) (*Library, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Library{
		dir:      opts.Dir,
		logger:   logger,
		onChange: opts.OnChange,
		books:    make(map[string]domain.Book),
	}
	if err := l.Scan(); err != nil {
		return nil, err
	}
	return l, nil
}

// Scan rebuilds the catalog from the library directory. Subdirectories
// are included. Two files normalizing to the same slug would collide;
// the first one scanned wins and the other is skipped with a warning.
func (l *Library) Scan() error {
	books := make(map[string]domain.Book)

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			l.logger.Warn("skipping unreadable file", "path", path, "error", err)
			return nil
		}

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		id := util.BookSlug(base)
		if id == "" {
			l.logger.Warn("skipping file with empty slug", "path", path)
			return nil
		}
		if existing, ok := books[id]; ok {
			l.logger.Warn("duplicate book slug, keeping first",
				"slug", id,
				"kept", existing.Path,
				"skipped", path,
			)
			return nil
		}

		books[id] = domain.Book{
			ID:        id,
			Title:     base,
			Path:      path,
			SizeBytes: info.Size(),
			AddedAt:   info.ModTime(),
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan library %s: %w", l.dir, err)
	}

	l.mu.Lock()
	l.books = books
	l.mu.Unlock()

	l.logger.Info("library scanned", "dir", l.dir, "books", len(books))
	return nil
}

// Books returns the catalog sorted by title.
func (l *Library) Books() []domain.Book {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Book, 0, len(l.books))
	for _, b := range l.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// Get returns a book by ID.
func (l *Library) Get(id string) (domain.Book, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.books[id]
	if !ok {
		return domain.Book{}, domainerrors.NotFoundf("book %s not found", id)
	}
	return b, nil
}

// Watch rescans the catalog when the library directory changes.
// Blocks until the context is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := l.watchTree(watcher); err != nil {
		return err
	}
	l.logger.Info("watching library", "dir", l.dir)

	var settle *time.Timer
	rescan := make(chan struct{}, 1)
	schedule := func() {
		if settle != nil {
			settle.Stop()
		}
		settle = time.AfterFunc(settleDelay, func() {
			select {
			case rescan <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// A created directory gets its own watch; it may already
			// hold books if it was moved in whole, so rescan too.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						l.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					schedule()
					continue
				}
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			l.logger.Debug("library change", "path", event.Name, "op", event.Op.String())
			if l.onChange != nil {
				l.onChange(event.Name)
			}
			schedule()

		case <-rescan:
			if err := l.Scan(); err != nil {
				l.logger.Error("library rescan failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("library watcher error", "error", err)

		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			return nil
		}
	}
}

// watchTree adds the library directory and every subdirectory to the
// watcher. fsnotify watches are not recursive.
func (l *Library) watchTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unwatchable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
