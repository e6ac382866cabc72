package db

import (
	"context"
	"fmt"

	"chat_back_end_go/config"

	"github.com/jackc/pgx/v4/pgxpool"
)

func InitDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	conn, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := CreateTables(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// CreateTables is idempotent.
func CreateTables(ctx context.Context, conn *pgxpool.Pool) error {
	sqlQueries := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id uuid PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			last_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// seq preserves insertion order inside a chat.
		`CREATE TABLE IF NOT EXISTS chat_messages (
			seq BIGSERIAL PRIMARY KEY,
			id uuid NOT NULL UNIQUE,
			chat_id uuid NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			is_me BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS chat_messages_chat_id_seq ON chat_messages (chat_id, seq)`,
	}

	for _, query := range sqlQueries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}
