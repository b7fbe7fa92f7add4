package sse

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talibapp/talib-reader/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(slog.New(slog.DiscardHandler))
}

func TestManager_BroadcastsToConnectedClients(t *testing.T) {
	m := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	client := m.Connect()
	defer m.Disconnect(client.ID)

	m.Emit(NewHighlightCreatedEvent(&domain.Highlight{
		ID:     "hl-abc",
		BookID: "the-silent-library",
	}))

	select {
	case event := <-client.EventChan:
		assert.Equal(t, EventHighlightCreated, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestManager_EmitIgnoresNonEvents(t *testing.T) {
	m := newTestManager(t)

	// Must not panic or queue anything.
	m.Emit("not an event")
	assert.Equal(t, 0, len(m.events))
}

func TestManager_DisconnectRemovesClient(t *testing.T) {
	m := newTestManager(t)

	client := m.Connect()
	require.Equal(t, 1, m.ClientCount())

	m.Disconnect(client.ID)
	assert.Equal(t, 0, m.ClientCount())

	// Double disconnect is a no-op.
	m.Disconnect(client.ID)
	assert.Equal(t, 0, m.ClientCount())
}

func TestManager_ShutdownDropsEmits(t *testing.T) {
	m := newTestManager(t)
	m.Shutdown()

	m.Emit(NewBookResetEvent("the-silent-library"))
	assert.Equal(t, 0, len(m.events))
}
