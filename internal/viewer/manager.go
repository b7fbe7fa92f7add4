package viewer

import (
	"log/slog"
	"sync"

	"github.com/talibapp/talib-reader/internal/render"
	"github.com/talibapp/talib-reader/internal/service"
)

// Manager holds the open reader sessions, one per book. Sessions are
// created lazily on first open and live until closed or until the book
// leaves the library.
type Manager struct {
	renderer    render.Renderer
	annotations *service.AnnotationService
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Coordinator
}

// NewManager creates a session Manager.
func NewManager(renderer render.Renderer, annotations *service.AnnotationService, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		renderer:    renderer,
		annotations: annotations,
		logger:      logger,
		sessions:    make(map[string]*Coordinator),
	}
}

// Session returns the session for a book, creating one if needed.
func (m *Manager) Session(bookID, path string) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.sessions[bookID]; ok {
		return c
	}
	c := NewCoordinator(Options{
		BookID:      bookID,
		Path:        path,
		Renderer:    m.renderer,
		Annotations: m.annotations,
		Logger:      m.logger,
	})
	m.sessions[bookID] = c
	return c
}

// Get returns an existing session, or nil.
func (m *Manager) Get(bookID string) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[bookID]
}

// Close drops a book's session. Stored annotations and progress are
// unaffected; the next open starts a fresh session from them.
func (m *Manager) Close(bookID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, bookID)
}
