package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"chat_back_end_go/db"
	"chat_back_end_go/models"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelError)
}

func newTestChatService(t *testing.T) *ChatService {
	t.Helper()
	store, err := db.OpenBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewChatService(store, testLogger())
}

// fakeConn records every frame it accepts.
type fakeConn struct {
	mu      sync.Mutex
	open    bool
	failing bool
	frames  [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (f *fakeConn) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("broken pipe")
	}
	f.frames = append(f.frames, payload)
	return nil
}

func (f *fakeConn) events(t *testing.T) []models.MessageEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]models.MessageEvent, 0, len(f.frames))
	for _, frame := range f.frames {
		var evt models.MessageEvent
		require.NoError(t, json.Unmarshal(frame, &evt))
		events = append(events, evt)
	}
	return events
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// panicConn blows up on delivery.
type panicConn struct{}

func (panicConn) Open() bool { return true }

func (panicConn) Send([]byte) error { panic("subscriber exploded") }
