package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chat_back_end_go/logger"
	"chat_back_end_go/models"
)

const (
	DefaultAutoReplyDelay = 3 * time.Second

	deferredTaskTimeout = 10 * time.Second
)

// MessageAppender is the slice of ChatService the deferred tasks need.
type MessageAppender interface {
	AppendMessage(ctx context.Context, chatID string, req models.NewMessage) (*models.Chat, error)
}

type Broadcaster interface {
	Broadcast(evt models.MessageEvent) int
}

// AutoReplier answers every human message once, after a fixed delay, by
// echoing its text back as a counterparty message.
type AutoReplier struct {
	chats    MessageAppender
	notifier Broadcaster
	delay    time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[*ScheduledReply]struct{}
	wg      sync.WaitGroup
}

// ScheduledReply is the handle of one pending reply.
type ScheduledReply struct {
	ChatID string
	Text   string

	owner *AutoReplier
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

func NewAutoReplier(chats MessageAppender, notifier Broadcaster, delay time.Duration, log *slog.Logger) *AutoReplier {
	if delay <= 0 {
		delay = DefaultAutoReplyDelay
	}
	return &AutoReplier{
		chats:    chats,
		notifier: notifier,
		delay:    delay,
		log:      log,
		pending:  make(map[*ScheduledReply]struct{}),
	}
}

// Schedule registers the reply to a human message. The reply itself goes
// through AppendMessage directly and never schedules another reply.
func (a *AutoReplier) Schedule(chatID, text string) *ScheduledReply {
	reply := &ScheduledReply{
		ChatID: chatID,
		Text:   text,
		owner:  a,
		done:   make(chan struct{}),
	}

	a.mu.Lock()
	a.pending[reply] = struct{}{}
	a.wg.Add(1)
	reply.timer = time.AfterFunc(a.delay, func() { a.fire(reply) })
	a.mu.Unlock()

	a.log.Debug("auto-reply scheduled", slog.String("chat_id", chatID), slog.Duration("delay", a.delay))
	return reply
}

func (a *AutoReplier) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Wait blocks until every scheduled reply has fired or been cancelled.
func (a *AutoReplier) Wait() {
	a.wg.Wait()
}

// Stop cancels the replies that have not fired yet and waits for those
// already running.
func (a *AutoReplier) Stop() {
	a.mu.Lock()
	replies := make([]*ScheduledReply, 0, len(a.pending))
	for r := range a.pending {
		replies = append(replies, r)
	}
	a.mu.Unlock()

	cancelled := 0
	for _, r := range replies {
		if r.Cancel() {
			cancelled++
		}
	}
	a.wg.Wait()

	a.log.Info("auto-replier stopped", slog.Int("cancelled", cancelled))
}

func (a *AutoReplier) fire(reply *ScheduledReply) {
	defer a.finish(reply)

	ctx, cancel := context.WithTimeout(context.Background(), deferredTaskTimeout)
	defer cancel()

	log := a.log.With(slog.String("chat_id", reply.ChatID))

	answer := models.NewMessage{Text: reply.Text, IsMe: false}
	chat, err := a.chats.AppendMessage(ctx, reply.ChatID, answer)
	if err != nil {
		// Nobody waits on this reply, so a vanished chat is not a failure.
		if errors.Is(err, ErrChatNotFound) {
			log.Info("auto-reply skipped, chat no longer exists")
			return
		}
		log.Error("auto-reply failed", logger.Err(err))
		return
	}

	a.notifier.Broadcast(models.MessageEvent{
		ChatID:  chat.ID,
		Message: chat.Messages[len(chat.Messages)-1],
	})
	log.Debug("auto-reply sent")
}

func (a *AutoReplier) finish(reply *ScheduledReply) {
	reply.once.Do(func() {
		a.mu.Lock()
		delete(a.pending, reply)
		a.mu.Unlock()
		close(reply.done)
		a.wg.Done()
	})
}

// Cancel stops the reply if it has not started. It reports whether the
// reply was prevented from running.
func (r *ScheduledReply) Cancel() bool {
	if !r.timer.Stop() {
		return false
	}
	r.owner.finish(r)
	return true
}

// Done is closed once the reply has run or been cancelled.
func (r *ScheduledReply) Done() <-chan struct{} {
	return r.done
}
