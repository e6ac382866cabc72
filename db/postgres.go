package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chat_back_end_go/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log *slog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, log: log}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Find reads chats and messages inside one repeatable-read transaction so
// both queries see the same snapshot.
func (s *PostgresStore) Find(ctx context.Context) ([]models.Chat, error) {
	const op = "storage.postgres.Find"

	var chats []models.Chat
	err := s.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, first_name, last_name, last_message
			FROM chats
			ORDER BY created_at, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		index := make(map[uuid.UUID]int)
		for rows.Next() {
			chat := models.Chat{Messages: []models.Message{}}
			if err := rows.Scan(&chat.ID, &chat.FirstName, &chat.LastName, &chat.LastMessage); err != nil {
				return fmt.Errorf("error scanning chat row: %w", err)
			}
			index[chat.ID] = len(chats)
			chats = append(chats, chat)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating chat rows: %w", err)
		}

		msgRows, err := tx.Query(ctx, `
			SELECT chat_id, id, text, is_me, created_at
			FROM chat_messages
			ORDER BY chat_id, seq`)
		if err != nil {
			return err
		}
		defer msgRows.Close()

		for msgRows.Next() {
			var chatID uuid.UUID
			var msg models.Message
			if err := msgRows.Scan(&chatID, &msg.ID, &msg.Text, &msg.IsMe, &msg.CreatedAt); err != nil {
				return fmt.Errorf("error scanning message row: %w", err)
			}
			if i, ok := index[chatID]; ok {
				msg.CreatedAt = msg.CreatedAt.UTC()
				chats[i].Messages = append(chats[i].Messages, msg)
			}
		}
		return msgRows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	const op = "storage.postgres.FindByID"

	chat, err := loadChat(ctx, s.pool, id, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

func (s *PostgresStore) Create(ctx context.Context, chat models.Chat) (*models.Chat, error) {
	const op = "storage.postgres.Create"

	chat = prepare(chat)
	err := s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO chats (id, first_name, last_name, last_message, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW(), NOW())`,
			chat.ID, chat.FirstName, chat.LastName, chat.LastMessage)
		if err != nil {
			return err
		}

		// CopyFrom does not guarantee seq order, so insert row by row.
		for _, m := range chat.Messages {
			if err := insertMessage(ctx, tx, chat.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("chat inserted", slog.String("op", op), slog.String("chat_id", chat.ID.String()))
	return &chat, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id uuid.UUID, profile models.ChatProfile) (*models.Chat, error) {
	const op = "storage.postgres.UpdateProfile"

	var chat *models.Chat
	err := s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE chats SET first_name = $2, last_name = $3, updated_at = NOW() WHERE id = $1`,
			id, profile.FirstName, profile.LastName)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrChatNotFound
		}
		chat, err = loadChat(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	const op = "storage.postgres.Delete"

	var chat *models.Chat
	err := s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		chat, err = loadChat(ctx, tx, id, true)
		if err != nil {
			return err
		}
		// chat_messages rows go with the chat through ON DELETE CASCADE.
		_, err = tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

// AppendMessage locks the chat row so concurrent appends to the same chat
// leave last_message pointing at the message inserted last.
func (s *PostgresStore) AppendMessage(ctx context.Context, id uuid.UUID, message models.Message) (*models.Chat, error) {
	const op = "storage.postgres.AppendMessage"

	message = stamp(message)
	var chat *models.Chat
	err := s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockChat(ctx, tx, id); err != nil {
			return err
		}
		if err := insertMessage(ctx, tx, id, message); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE chats SET last_message = $2, updated_at = NOW() WHERE id = $1`,
			id, message.Text); err != nil {
			return err
		}
		var err error
		chat, err = loadChat(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

func (s *PostgresStore) UpdateMessageText(ctx context.Context, id, messageID uuid.UUID, text string) (*models.Chat, error) {
	const op = "storage.postgres.UpdateMessageText"

	var chat *models.Chat
	err := s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockChat(ctx, tx, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE chat_messages SET text = $3 WHERE chat_id = $1 AND id = $2`,
			id, messageID, text)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrMessageNotFound
		}
		chat, err = loadChat(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = commitErr
		}
	}()

	return fn(tx)
}

func lockChat(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM chats WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrChatNotFound
	}
	return err
}

func insertMessage(ctx context.Context, tx pgx.Tx, chatID uuid.UUID, m models.Message) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO chat_messages (id, chat_id, text, is_me, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, chatID, m.Text, m.IsMe, m.CreatedAt)
	return err
}

func loadChat(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*models.Chat, error) {
	query := `SELECT id, first_name, last_name, last_message FROM chats WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	chat := models.Chat{Messages: []models.Message{}}
	err := q.QueryRow(ctx, query, id).Scan(&chat.ID, &chat.FirstName, &chat.LastName, &chat.LastMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, text, is_me, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Text, &msg.IsMe, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		chat.Messages = append(chat.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &chat, nil
}
