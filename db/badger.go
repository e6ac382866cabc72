package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"chat_back_end_go/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	chatKeyPrefix = "chat:"

	// Conflicting writers on the same chat retry this many times before giving up.
	maxConflictRetries = 64
)

var ErrTooManyConflicts = errors.New("too many concurrent writes on chat")

// BadgerStore keeps one JSON document per chat under "chat:{uuid}".
// Writers on the same chat queue on a per-chat lock before opening their
// transaction; writers on different chats never share a lock. ErrConflict is
// still retried for any transaction the lock does not cover.
type BadgerStore struct {
	db    *badger.DB
	locks *chatLocks
	log   *slog.Logger
}

func OpenBadgerStore(path string, log *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{log: log})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return NewBadgerStore(db, log), nil
}

func NewBadgerStore(db *badger.DB, log *slog.Logger) *BadgerStore {
	return &BadgerStore{db: db, locks: newChatLocks(), log: log}
}

func chatKey(id uuid.UUID) []byte {
	return []byte(chatKeyPrefix + id.String())
}

// Find scans every chat inside a single read transaction, so the result is one
// consistent snapshot ordered by key.
func (s *BadgerStore) Find(ctx context.Context) ([]models.Chat, error) {
	const op = "storage.badger.Find"

	chats := []models.Chat{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(chatKeyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var chat models.Chat
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &chat)
			}); err != nil {
				return err
			}
			chats = append(chats, normalize(chat))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chats, nil
}

func (s *BadgerStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	const op = "storage.badger.FindByID"

	var chat *models.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		chat, err = getChat(txn, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

func (s *BadgerStore) Create(ctx context.Context, chat models.Chat) (*models.Chat, error) {
	const op = "storage.badger.Create"

	chat = prepare(chat)
	err := s.db.Update(func(txn *badger.Txn) error {
		return putChat(txn, chat)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &chat, nil
}

func (s *BadgerStore) UpdateProfile(ctx context.Context, id uuid.UUID, profile models.ChatProfile) (*models.Chat, error) {
	return s.mutate(ctx, "storage.badger.UpdateProfile", id, func(chat *models.Chat) error {
		chat.FirstName = profile.FirstName
		chat.LastName = profile.LastName
		return nil
	})
}

func (s *BadgerStore) Delete(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	const op = "storage.badger.Delete"

	unlock := s.locks.lock(id)
	defer unlock()

	var deleted *models.Chat
	err := s.retry(ctx, func(txn *badger.Txn) error {
		chat, err := getChat(txn, id)
		if err != nil {
			return err
		}
		deleted = chat
		return txn.Delete(chatKey(id))
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return deleted, nil
}

func (s *BadgerStore) AppendMessage(ctx context.Context, id uuid.UUID, message models.Message) (*models.Chat, error) {
	message = stamp(message)
	return s.mutate(ctx, "storage.badger.AppendMessage", id, func(chat *models.Chat) error {
		chat.Messages = append(chat.Messages, message)
		chat.LastMessage = message.Text
		return nil
	})
}

// UpdateMessageText leaves LastMessage alone even when the last message is edited.
func (s *BadgerStore) UpdateMessageText(ctx context.Context, id, messageID uuid.UUID, text string) (*models.Chat, error) {
	return s.mutate(ctx, "storage.badger.UpdateMessageText", id, func(chat *models.Chat) error {
		_, i, ok := lo.FindIndexOf(chat.Messages, func(m models.Message) bool { return m.ID == messageID })
		if !ok {
			return ErrMessageNotFound
		}
		chat.Messages[i].Text = text
		return nil
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// mutate is the load-modify-save cycle for one chat, replayed on conflict.
func (s *BadgerStore) mutate(ctx context.Context, op string, id uuid.UUID, fn func(chat *models.Chat) error) (*models.Chat, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	var result *models.Chat
	err := s.retry(ctx, func(txn *badger.Txn) error {
		chat, err := getChat(txn, id)
		if err != nil {
			return err
		}
		if err := fn(chat); err != nil {
			return err
		}
		result = chat
		return putChat(txn, *chat)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *BadgerStore) retry(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debug("chat write conflict, retrying", slog.Int("attempt", attempt))
	}
	return ErrTooManyConflicts
}

func getChat(txn *badger.Txn, id uuid.UUID) (*models.Chat, error) {
	item, err := txn.Get(chatKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	var chat models.Chat
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &chat)
	}); err != nil {
		return nil, err
	}
	chat = normalize(chat)
	return &chat, nil
}

func putChat(txn *badger.Txn, chat models.Chat) error {
	bytes, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	return txn.Set(chatKey(chat.ID), bytes)
}

func normalize(chat models.Chat) models.Chat {
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	return chat
}

// chatLocks hands out one mutex per chat id. Entries are dropped once no
// writer holds or waits on them.
type chatLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*chatLock
}

type chatLock struct {
	sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[uuid.UUID]*chatLock)}
}

func (l *chatLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &chatLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *chatLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// badgerLogger routes badger's internal logging onto slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}
