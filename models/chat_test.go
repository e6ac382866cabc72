package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLastText(t *testing.T) {
	req := require.New(t)
	req.Equal("", LastText(nil))
	req.Equal("", LastText([]Message{}))
	req.Equal("b", LastText([]Message{{Text: "a"}, {Text: "b"}}))
}

func TestNewMessageFrom(t *testing.T) {
	req := require.New(t)

	m := NewMessageFrom(NewMessage{Text: "hi", IsMe: true})
	req.NotEqual(uuid.Nil, m.ID)
	req.Equal("hi", m.Text)
	req.True(m.IsMe)
	req.Equal(time.UTC, m.CreatedAt.Location())
	req.Equal(m.CreatedAt, m.CreatedAt.Truncate(time.Millisecond))
}

func TestSendMessage_NewMessage(t *testing.T) {
	text := ""
	m := SendMessage{Text: &text, IsMe: true}.NewMessage()
	require.Equal(t, NewMessage{Text: "", IsMe: true}, m)
}
