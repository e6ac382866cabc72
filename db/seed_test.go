package db

import (
	"context"
	"log/slog"
	"testing"

	"chat_back_end_go/models"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestSeedChats_Empty_Store(t *testing.T) {
	req := require.New(t)
	store := newBadgerStore(t)
	ctx := context.Background()

	seeded, err := SeedChats(ctx, store, logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)
	req.True(seeded)

	chats, err := store.Find(ctx)
	req.NoError(err)
	req.Len(chats, 3)
	for _, chat := range chats {
		// Then every seeded chat satisfies the last message invariant
		req.Len(chat.Messages, 3)
		req.Equal(models.LastText(chat.Messages), chat.LastMessage)
	}
}

func TestSeedChats_Existing_Chats_Are_Kept(t *testing.T) {
	req := require.New(t)
	store := newBadgerStore(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelError)

	_, err := store.Create(ctx, models.Chat{FirstName: "A", LastName: "B"})
	req.NoError(err)

	seeded, err := SeedChats(ctx, store, log)
	req.NoError(err)
	req.False(seeded)

	chats, err := store.Find(ctx)
	req.NoError(err)
	req.Len(chats, 1)
}
