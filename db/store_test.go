package db

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"chat_back_end_go/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// runStoreSuite checks the behaviour every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("create derives last message", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()

		chat, err := store.Create(ctx, models.Chat{
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			Messages: []models.Message{
				{Text: "first", IsMe: false},
				{Text: "second", IsMe: true},
			},
		})
		req.NoError(err)
		req.NotEqual(uuid.Nil, chat.ID)
		req.Equal("second", chat.LastMessage)
		req.Len(chat.Messages, 2)
		for _, m := range chat.Messages {
			req.NotEqual(uuid.Nil, m.ID)
			req.False(m.CreatedAt.IsZero())
		}

		found, err := store.FindByID(ctx, chat.ID)
		req.NoError(err)
		req.Equal(chat, found)
	})

	t.Run("create without messages", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)

		chat, err := store.Create(context.Background(), models.Chat{FirstName: "A", LastName: "B"})
		req.NoError(err)
		req.Equal("", chat.LastMessage)
		req.NotNil(chat.Messages)
		req.Empty(chat.Messages)
	})

	t.Run("find returns created chats", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()

		first, err := store.Create(ctx, models.Chat{FirstName: "A", LastName: "B"})
		req.NoError(err)
		second, err := store.Create(ctx, models.Chat{FirstName: "C", LastName: "D", Messages: []models.Message{{Text: "hello"}}})
		req.NoError(err)

		chats, err := store.Find(ctx)
		req.NoError(err)
		byID := lo.KeyBy(chats, func(c models.Chat) uuid.UUID { return c.ID })
		req.Contains(byID, first.ID)
		req.Contains(byID, second.ID)
		req.Equal(*second, byID[second.ID])
	})

	t.Run("missing chat", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()
		id := uuid.New()

		_, err := store.FindByID(ctx, id)
		req.ErrorIs(err, ErrChatNotFound)
		_, err = store.AppendMessage(ctx, id, models.Message{Text: "x"})
		req.ErrorIs(err, ErrChatNotFound)
		_, err = store.UpdateProfile(ctx, id, models.ChatProfile{FirstName: "A", LastName: "B"})
		req.ErrorIs(err, ErrChatNotFound)
		_, err = store.Delete(ctx, id)
		req.ErrorIs(err, ErrChatNotFound)
		_, err = store.UpdateMessageText(ctx, id, uuid.New(), "x")
		req.ErrorIs(err, ErrChatNotFound)
	})

	t.Run("append keeps order and last message", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()

		chat, err := store.Create(ctx, models.Chat{FirstName: "A", LastName: "B"})
		req.NoError(err)

		for _, text := range []string{"one", "two", "three"} {
			chat, err = store.AppendMessage(ctx, chat.ID, models.Message{Text: text, IsMe: true})
			req.NoError(err)
			req.Equal(text, chat.LastMessage)
		}
		req.Equal([]string{"one", "two", "three"}, lo.Map(chat.Messages, func(m models.Message, _ int) string { return m.Text }))
	})

	t.Run("concurrent appends are not lost", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()

		chat, err := store.Create(ctx, models.Chat{FirstName: "A", LastName: "B", Messages: []models.Message{{Text: "seed"}}})
		req.NoError(err)

		const n = 200
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.AppendMessage(ctx, chat.ID, models.Message{Text: fmt.Sprintf("msg-%d", i)})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			req.NoError(err)
		}

		found, err := store.FindByID(ctx, chat.ID)
		req.NoError(err)
		req.Len(found.Messages, n+1)
		texts := lo.Map(found.Messages, func(m models.Message, _ int) string { return m.Text })
		req.Len(lo.Uniq(texts), n+1)
		for i := 0; i < n; i++ {
			req.Contains(texts, fmt.Sprintf("msg-%d", i))
		}
		req.Equal(models.LastText(found.Messages), found.LastMessage)
	})

	t.Run("update profile keeps messages", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()

		chat, err := store.Create(ctx, models.Chat{FirstName: "A", LastName: "B", Messages: []models.Message{{Text: "hi"}}})
		req.NoError(err)

		updated, err := store.UpdateProfile(ctx, chat.ID, models.ChatProfile{FirstName: "C", LastName: "D"})
		req.NoError(err)
		req.Equal("C", updated.FirstName)
		req.Equal("D", updated.LastName)
		req.Equal("hi", updated.LastMessage)
		req.Equal(chat.Messages, updated.Messages)
	})

	t.Run("edit message leaves last message alone", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()

		chat, err := store.Create(ctx, models.Chat{FirstName: "A", LastName: "B", Messages: []models.Message{{Text: "a"}, {Text: "b"}}})
		req.NoError(err)
		last := chat.Messages[1]

		updated, err := store.UpdateMessageText(ctx, chat.ID, last.ID, "edited")
		req.NoError(err)
		req.Equal("edited", updated.Messages[1].Text)
		req.Equal("b", updated.LastMessage)
		req.Equal("a", updated.Messages[0].Text)

		_, err = store.UpdateMessageText(ctx, chat.ID, uuid.New(), "x")
		req.ErrorIs(err, ErrMessageNotFound)
	})

	t.Run("delete removes chat", func(t *testing.T) {
		req := require.New(t)
		store := newStore(t)
		ctx := context.Background()

		chat, err := store.Create(ctx, models.Chat{FirstName: "A", LastName: "B", Messages: []models.Message{{Text: "hi"}}})
		req.NoError(err)

		deleted, err := store.Delete(ctx, chat.ID)
		req.NoError(err)
		req.Equal(chat.ID, deleted.ID)

		_, err = store.FindByID(ctx, chat.ID)
		req.ErrorIs(err, ErrChatNotFound)

		chats, err := store.Find(ctx)
		req.NoError(err)
		req.False(lo.ContainsBy(chats, func(c models.Chat) bool { return c.ID == chat.ID }))
	})
}
