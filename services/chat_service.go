package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chat_back_end_go/db"
	"chat_back_end_go/logger"
	"chat_back_end_go/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ChatStore interface {
	Find(ctx context.Context) ([]models.Chat, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	Create(ctx context.Context, chat models.Chat) (*models.Chat, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, profile models.ChatProfile) (*models.Chat, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	AppendMessage(ctx context.Context, id uuid.UUID, message models.Message) (*models.Chat, error)
	UpdateMessageText(ctx context.Context, id, messageID uuid.UUID, text string) (*models.Chat, error)
}

type ChatService struct {
	store    ChatStore
	validate *validator.Validate
	log      *slog.Logger
}

func NewChatService(store ChatStore, log *slog.Logger) *ChatService {
	return &ChatService{
		store:    store,
		validate: validator.New(),
		log:      log,
	}
}

func (cs *ChatService) CreateChat(ctx context.Context, req models.NewChat) (*models.Chat, error) {
	const op = "services.chat.CreateChat"

	log := cs.log.With(
		slog.String("op", op),
	)

	if err := cs.validateStruct(req); err != nil {
		log.Warn("invalid chat", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	chat := models.Chat{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Messages:  lo.Map(req.Messages, func(m models.NewMessage, _ int) models.Message { return models.NewMessageFrom(m) }),
	}

	created, err := cs.store.Create(ctx, chat)
	if err != nil {
		return nil, cs.storeError(log, op, err)
	}

	log.Info("chat created", slog.String("chat_id", created.ID.String()))

	return created, nil
}

func (cs *ChatService) ListChats(ctx context.Context) ([]models.Chat, error) {
	const op = "services.chat.ListChats"

	log := cs.log.With(
		slog.String("op", op),
	)

	chats, err := cs.store.Find(ctx)
	if err != nil {
		return nil, cs.storeError(log, op, err)
	}

	log.Debug("got chats", slog.Int("count", len(chats)))

	return chats, nil
}

func (cs *ChatService) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	const op = "services.chat.GetChat"

	log := cs.log.With(
		slog.String("op", op),
		slog.String("chat_id", chatID),
	)

	id, err := parseID(chatID, ErrChatNotFound)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	chat, err := cs.store.FindByID(ctx, id)
	if err != nil {
		return nil, cs.storeError(log, op, err)
	}

	return chat, nil
}

// AppendMessage stores the message and refreshes the last message summary in
// one atomic store operation.
func (cs *ChatService) AppendMessage(ctx context.Context, chatID string, req models.NewMessage) (*models.Chat, error) {
	const op = "services.chat.AppendMessage"

	log := cs.log.With(
		slog.String("op", op),
		slog.String("chat_id", chatID),
	)

	id, err := parseID(chatID, ErrChatNotFound)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	chat, err := cs.store.AppendMessage(ctx, id, models.NewMessageFrom(req))
	if err != nil {
		return nil, cs.storeError(log, op, err)
	}

	log.Debug("message appended", slog.Bool("is_me", req.IsMe), slog.Int("messages", len(chat.Messages)))

	return chat, nil
}

func (cs *ChatService) UpdateChatProfile(ctx context.Context, chatID string, req models.ChatProfile) (*models.Chat, error) {
	const op = "services.chat.UpdateChatProfile"

	log := cs.log.With(
		slog.String("op", op),
		slog.String("chat_id", chatID),
	)

	if err := cs.validateStruct(req); err != nil {
		log.Warn("invalid profile", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := parseID(chatID, ErrChatNotFound)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	chat, err := cs.store.UpdateProfile(ctx, id, req)
	if err != nil {
		return nil, cs.storeError(log, op, err)
	}

	log.Info("chat renamed")

	return chat, nil
}

func (cs *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	const op = "services.chat.DeleteChat"

	log := cs.log.With(
		slog.String("op", op),
		slog.String("chat_id", chatID),
	)

	id, err := parseID(chatID, ErrChatNotFound)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := cs.store.Delete(ctx, id); err != nil {
		return cs.storeError(log, op, err)
	}

	log.Info("chat deleted")

	return nil
}

// UpdateMessageText edits a message in place. LastMessage is left untouched,
// even when the edited message is the most recent one.
func (cs *ChatService) UpdateMessageText(ctx context.Context, chatID, messageID, text string) (*models.Chat, error) {
	const op = "services.chat.UpdateMessageText"

	log := cs.log.With(
		slog.String("op", op),
		slog.String("chat_id", chatID),
		slog.String("message_id", messageID),
	)

	id, err := parseID(chatID, ErrChatNotFound)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// A malformed message id matches no message, the store still reports a
	// missing chat first.
	msgID, err := uuid.Parse(messageID)
	if err != nil {
		msgID = uuid.Nil
	}

	chat, err := cs.store.UpdateMessageText(ctx, id, msgID, text)
	if err != nil {
		return nil, cs.storeError(log, op, err)
	}

	log.Debug("message edited")

	return chat, nil
}

func (cs *ChatService) validateStruct(req interface{}) error {
	err := cs.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
			return fmt.Sprintf("%s is %s", fe.Field(), fe.Tag())
		})
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// storeError maps storage sentinels onto service errors. Anything unexpected
// is logged with detail and surfaces as ErrStore.
func (cs *ChatService) storeError(log *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, db.ErrChatNotFound):
		log.Warn("chat not found")
		return fmt.Errorf("%s: %w", op, ErrChatNotFound)
	case errors.Is(err, db.ErrMessageNotFound):
		log.Warn("message not found")
		return fmt.Errorf("%s: %w", op, ErrMessageNotFound)
	default:
		log.Error("store failure", logger.Err(err))
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
}

// parseID treats a malformed identifier as a reference to nothing.
func parseID(raw string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}
