package db

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// Runs against a live server when TEST_MONGO_URI is set. Each test gets its
// own database, dropped afterwards.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	runStoreSuite(t, func(t *testing.T) Store {
		t.Helper()
		ctx := context.Background()
		database := "chat_test_" + uuid.NewString()[:8]
		store, err := NewMongoStore(ctx, uri, database, logs.GetLoggerFromLevel(slog.LevelError))
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = store.client.Database(database).Drop(context.Background())
			_ = store.Close()
		})
		return store
	})
}
