package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chat_back_end_go/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatsCollection = "chats"

// MongoStore keeps one document per chat with its messages embedded. Every
// mutation is a single-document update, which MongoDB applies atomically.
type MongoStore struct {
	client *mongo.Client
	chats  *mongo.Collection
	log    *slog.Logger
}

type chatDocument struct {
	ID          string            `bson:"_id"`
	FirstName   string            `bson:"firstName"`
	LastName    string            `bson:"lastName"`
	LastMessage string            `bson:"lastMessage"`
	Messages    []messageDocument `bson:"messages"`
}

type messageDocument struct {
	ID        string    `bson:"_id"`
	Text      string    `bson:"text"`
	IsMe      bool      `bson:"isMe"`
	CreatedAt time.Time `bson:"createdAt"`
}

func NewMongoStore(ctx context.Context, uri, database string, log *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		chats:  client.Database(database).Collection(chatsCollection),
		log:    log,
	}, nil
}

func (s *MongoStore) Find(ctx context.Context) ([]models.Chat, error) {
	const op = "storage.mongo.Find"

	cursor, err := s.chats.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var docs []chatDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	chats := make([]models.Chat, 0, len(docs))
	for _, d := range docs {
		chat, err := d.toChat()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		chats = append(chats, *chat)
	}
	return chats, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	const op = "storage.mongo.FindByID"

	var doc chatDocument
	err := s.chats.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	return s.decoded(op, doc, err)
}

func (s *MongoStore) Create(ctx context.Context, chat models.Chat) (*models.Chat, error) {
	const op = "storage.mongo.Create"

	chat = prepare(chat)
	if _, err := s.chats.InsertOne(ctx, fromChat(chat)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &chat, nil
}

func (s *MongoStore) UpdateProfile(ctx context.Context, id uuid.UUID, profile models.ChatProfile) (*models.Chat, error) {
	const op = "storage.mongo.UpdateProfile"

	var doc chatDocument
	err := s.chats.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"firstName": profile.FirstName, "lastName": profile.LastName}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	return s.decoded(op, doc, err)
}

func (s *MongoStore) Delete(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	const op = "storage.mongo.Delete"

	var doc chatDocument
	err := s.chats.FindOneAndDelete(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	return s.decoded(op, doc, err)
}

// AppendMessage pushes the message and refreshes lastMessage in one update,
// so two concurrent appends both land in the array.
func (s *MongoStore) AppendMessage(ctx context.Context, id uuid.UUID, message models.Message) (*models.Chat, error) {
	const op = "storage.mongo.AppendMessage"

	message = stamp(message)
	var doc chatDocument
	err := s.chats.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{
			"$push": bson.M{"messages": fromMessage(message)},
			"$set":  bson.M{"lastMessage": message.Text},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	return s.decoded(op, doc, err)
}

func (s *MongoStore) UpdateMessageText(ctx context.Context, id, messageID uuid.UUID, text string) (*models.Chat, error) {
	const op = "storage.mongo.UpdateMessageText"

	var doc chatDocument
	err := s.chats.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "messages._id": messageID.String()},
		bson.M{"$set": bson.M{"messages.$.text": text}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Tell a missing chat apart from a missing message.
		count, countErr := s.chats.CountDocuments(ctx, bson.M{"_id": id.String()})
		if countErr != nil {
			return nil, fmt.Errorf("%s: %w", op, countErr)
		}
		if count > 0 {
			return nil, fmt.Errorf("%s: %w", op, ErrMessageNotFound)
		}
	}
	return s.decoded(op, doc, err)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) decoded(op string, doc chatDocument, err error) (*models.Chat, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	chat, err := doc.toChat()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

func fromChat(chat models.Chat) chatDocument {
	return chatDocument{
		ID:          chat.ID.String(),
		FirstName:   chat.FirstName,
		LastName:    chat.LastName,
		LastMessage: chat.LastMessage,
		Messages:    lo.Map(chat.Messages, func(m models.Message, _ int) messageDocument { return fromMessage(m) }),
	}
}

func fromMessage(m models.Message) messageDocument {
	return messageDocument{ID: m.ID.String(), Text: m.Text, IsMe: m.IsMe, CreatedAt: m.CreatedAt}
}

func (d chatDocument) toChat() (*models.Chat, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	chat := &models.Chat{
		ID:          id,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		LastMessage: d.LastMessage,
		Messages:    make([]models.Message, 0, len(d.Messages)),
	}
	for _, m := range d.Messages {
		messageID, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, err
		}
		chat.Messages = append(chat.Messages, models.Message{
			ID:        messageID,
			Text:      m.Text,
			IsMe:      m.IsMe,
			CreatedAt: m.CreatedAt.UTC(),
		})
	}
	return chat, nil
}
