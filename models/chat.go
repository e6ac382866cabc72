package models

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID          uuid.UUID `json:"_id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	LastMessage string    `json:"lastMessage"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	ID        uuid.UUID `json:"_id"`
	Text      string    `json:"text"`
	IsMe      bool      `json:"isMe"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageEvent is the frame pushed to websocket subscribers.
type MessageEvent struct {
	ChatID  uuid.UUID `json:"chatId"`
	Message Message   `json:"message"`
}

type NewChat struct {
	FirstName string       `json:"firstName" validate:"required"`
	LastName  string       `json:"lastName" validate:"required"`
	Messages  []NewMessage `json:"messages"`
}

type NewMessage struct {
	Text string `json:"text"`
	IsMe bool   `json:"isMe"`
}

type ChatProfile struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

// SendMessage is the body of a message append. Text must be present, the
// empty string is a valid message.
type SendMessage struct {
	Text *string `json:"text" binding:"required"`
	IsMe bool    `json:"isMe"`
}

func (m SendMessage) NewMessage() NewMessage {
	return NewMessage{Text: *m.Text, IsMe: m.IsMe}
}

type MessageText struct {
	Text *string `json:"text" binding:"required"`
}

// LastText returns the text of the most recent message, or "" for an empty history.
func LastText(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Text
}

// Timestamp is the append time used for new messages. Millisecond precision
// keeps it identical across every store backend.
func Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewMessageFrom builds a message ready to be persisted.
func NewMessageFrom(m NewMessage) Message {
	return Message{
		ID:        uuid.New(),
		Text:      m.Text,
		IsMe:      m.IsMe,
		CreatedAt: Timestamp(),
	}
}
