package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat_back_end_go/logger"
	"chat_back_end_go/models"

	"github.com/samber/lo"
)

const (
	DefaultRandomMessagePeriod = 5 * time.Second
	DefaultRandomMessageText   = "Random message!"
)

type ChatSource interface {
	MessageAppender
	ListChats(ctx context.Context) ([]models.Chat, error)
}

// RandomMessenger periodically drops a synthetic message into a random chat.
// At most one ticker runs per instance; Start and Stop are idempotent.
type RandomMessenger struct {
	chats    ChatSource
	notifier Broadcaster
	period   time.Duration
	text     string
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRandomMessenger(chats ChatSource, notifier Broadcaster, period time.Duration, text string, log *slog.Logger) *RandomMessenger {
	if period <= 0 {
		period = DefaultRandomMessagePeriod
	}
	if text == "" {
		text = DefaultRandomMessageText
	}
	return &RandomMessenger{
		chats:    chats,
		notifier: notifier,
		period:   period,
		text:     text,
		log:      log,
	}
}

// Start launches the ticker. It returns false when it was already running.
func (r *RandomMessenger) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)

	r.log.Info("random message sending enabled", slog.Duration("period", r.period))
	return true
}

// Stop cancels the ticker and waits for a tick in progress to complete. It
// returns false when nothing was running. No tick starts after Stop returns.
func (r *RandomMessenger) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return false
	}

	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil

	r.log.Info("random message sending disabled")
	return true
}

func (r *RandomMessenger) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *RandomMessenger) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick that has begun is allowed to finish after Stop.
			r.Tick(context.WithoutCancel(ctx))
		}
	}
}

// Tick sends one random message. It reports whether a message was delivered
// to a chat; an empty store is a no-op.
func (r *RandomMessenger) Tick(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, deferredTaskTimeout)
	defer cancel()

	chats, err := r.chats.ListChats(ctx)
	if err != nil {
		r.log.Error("failed to list chats for random message", logger.Err(err))
		return false
	}
	if len(chats) == 0 {
		return false
	}

	target := lo.Sample(chats)
	log := r.log.With(slog.String("chat_id", target.ID.String()))

	chat, err := r.chats.AppendMessage(ctx, target.ID.String(), models.NewMessage{Text: r.text, IsMe: false})
	if err != nil {
		log.Warn("failed to send random message", logger.Err(err))
		return false
	}

	r.notifier.Broadcast(models.MessageEvent{
		ChatID:  chat.ID,
		Message: chat.Messages[len(chat.Messages)-1],
	})
	log.Debug("random message sent")
	return true
}
