package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chat_back_end_go/config"
	"chat_back_end_go/models"

	"github.com/google/uuid"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUnknownDriver   = errors.New("unknown store driver")
)

// Store is the chat document store. AppendMessage and UpdateMessageText are
// atomic per chat: concurrent calls on one chat serialize, calls on different
// chats never wait on each other.
type Store interface {
	Find(ctx context.Context) ([]models.Chat, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	Create(ctx context.Context, chat models.Chat) (*models.Chat, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, profile models.ChatProfile) (*models.Chat, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	AppendMessage(ctx context.Context, id uuid.UUID, message models.Message) (*models.Chat, error)
	UpdateMessageText(ctx context.Context, id, messageID uuid.UUID, text string) (*models.Chat, error)
	Close() error
}

// Open connects the backend selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := InitDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool, log), nil
	case config.DriverMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	case config.DriverBadger:
		return OpenBadgerStore(cfg.BadgerPath, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
}

// prepare assigns identifiers and timestamps the caller left empty and
// derives the last message summary.
func prepare(chat models.Chat) models.Chat {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	messages := make([]models.Message, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		messages = append(messages, stamp(m))
	}
	chat.Messages = messages
	chat.LastMessage = models.LastText(messages)
	return chat
}

func stamp(m models.Message) models.Message {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = models.Timestamp()
	}
	return m
}
