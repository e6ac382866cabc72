package services

import (
	"context"
	"testing"
	"time"

	"chat_back_end_go/models"

	"github.com/stretchr/testify/require"
)

const testTickPeriod = 20 * time.Millisecond

func countMessages(t *testing.T, service *ChatService) int {
	t.Helper()
	chats, err := service.ListChats(context.Background())
	require.NoError(t, err)
	total := 0
	for _, chat := range chats {
		total += len(chat.Messages)
	}
	return total
}

func TestRandomMessenger_Defaults(t *testing.T) {
	req := require.New(t)
	messenger := NewRandomMessenger(nil, nil, 0, "", testLogger())
	req.Equal(5*time.Second, messenger.period)
	req.Equal("Random message!", messenger.text)
	req.False(messenger.Running())
}

func TestRandomMessenger_Start_Stop_Idempotent(t *testing.T) {
	req := require.New(t)
	messenger := NewRandomMessenger(newTestChatService(t), NewHub(testLogger()), time.Hour, "", testLogger())

	req.False(messenger.Stop())

	req.True(messenger.Start())
	req.False(messenger.Start())
	req.True(messenger.Running())

	req.True(messenger.Stop())
	req.False(messenger.Stop())
	req.False(messenger.Running())

	// Can be restarted after a stop
	req.True(messenger.Start())
	req.True(messenger.Stop())
}

func TestRandomMessenger_Tick_Empty_Store(t *testing.T) {
	req := require.New(t)
	hub := NewHub(testLogger())
	listener := newFakeConn()
	hub.Subscribe(listener)
	messenger := NewRandomMessenger(newTestChatService(t), hub, time.Hour, "", testLogger())

	req.False(messenger.Tick(context.Background()))
	req.Zero(listener.count())
}

func TestRandomMessenger_Tick_Appends_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	service := newTestChatService(t)
	hub := NewHub(testLogger())
	listener := newFakeConn()
	hub.Subscribe(listener)
	messenger := NewRandomMessenger(service, hub, time.Hour, "", testLogger())
	ctx := context.Background()

	chat, err := service.CreateChat(ctx, models.NewChat{FirstName: "A", LastName: "B", Messages: []models.NewMessage{{Text: "hello", IsMe: true}}})
	req.NoError(err)

	req.True(messenger.Tick(ctx))

	found, err := service.GetChat(ctx, chat.ID.String())
	req.NoError(err)
	req.Len(found.Messages, 2)
	last := found.Messages[1]
	req.Equal("Random message!", last.Text)
	req.False(last.IsMe)
	req.Equal("Random message!", found.LastMessage)

	events := listener.events(t)
	req.Len(events, 1)
	req.Equal(chat.ID, events[0].ChatID)
	req.Equal(last, events[0].Message)
}

func TestRandomMessenger_Ticks_While_Running(t *testing.T) {
	req := require.New(t)
	service := newTestChatService(t)
	hub := NewHub(testLogger())
	listener := newFakeConn()
	hub.Subscribe(listener)
	messenger := NewRandomMessenger(service, hub, testTickPeriod, "tick", testLogger())

	for i := 0; i < 2; i++ {
		_, err := service.CreateChat(context.Background(), models.NewChat{FirstName: "A", LastName: "B"})
		req.NoError(err)
	}

	req.True(messenger.Start())
	req.Eventually(func() bool { return listener.count() >= 2 }, time.Second, testTickPeriod/2)
	req.True(messenger.Stop())

	// No tick starts once Stop has returned
	stopped := countMessages(t, service)
	time.Sleep(5 * testTickPeriod)
	req.Equal(stopped, countMessages(t, service))
	req.Equal(stopped, listener.count())

	for _, evt := range listener.events(t) {
		req.Equal("tick", evt.Message.Text)
		req.False(evt.Message.IsMe)
	}
}
