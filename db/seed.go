package db

import (
	"context"
	"fmt"
	"log/slog"

	"chat_back_end_go/models"
)

// SeedChats inserts the demo conversations when the store holds no chats.
// It reports whether anything was inserted.
func SeedChats(ctx context.Context, store Store, log *slog.Logger) (bool, error) {
	const op = "storage.SeedChats"

	existing, err := store.Find(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if len(existing) > 0 {
		log.Info("initial chats already exist", slog.Int("count", len(existing)))
		return false, nil
	}

	for _, chat := range seedChats() {
		if _, err := store.Create(ctx, chat); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
	log.Info("initial chats created")
	return true, nil
}

func seedChats() []models.Chat {
	return []models.Chat{
		{
			FirstName: "Alice",
			LastName:  "Freeman",
			Messages: []models.Message{
				{Text: "Hi, how are you?", IsMe: false},
				{Text: "Not bad. What about you?", IsMe: true},
				{Text: "How was your meeting?", IsMe: true},
			},
		},
		{
			FirstName: "Bob",
			LastName:  "Johnson",
			Messages: []models.Message{
				{Text: "Hallo, wie geht es dir?", IsMe: false},
				{Text: "Sehr gud. Danke. Und dir?", IsMe: true},
				{Text: "Was machen Sie?", IsMe: true},
			},
		},
		{
			FirstName: "Cathy",
			LastName:  "Smith",
			Messages: []models.Message{
				{Text: "Привіт, як справи?", IsMe: false},
				{Text: "В мене все добре. А твої як?", IsMe: true},
				{Text: "Чим ти на вихідних займаєшься?", IsMe: true},
			},
		},
	}
}
