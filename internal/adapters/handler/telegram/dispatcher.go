package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

const sessionInboxSize = 16

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Dispatcher routes updates to one session goroutine per user. Updates of
// a user are handled in arrival order; different users are served
// concurrently. A session ends after idleTimeout without updates.
type Dispatcher struct {
	handler     UpdateHandler
	idleTimeout time.Duration
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	sessions map[int64]*session
}

type session struct {
	id     string
	userID int64
	inbox  chan tgbotapi.Update
	// pending counts updates promised to the inbox but not yet received.
	// Guarded by Dispatcher.mu.
	pending int
}

func NewDispatcher(handler UpdateHandler, idleTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handler:     handler,
		idleTimeout: idleTimeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[int64]*session),
	}
}

// Dispatch queues update on its user's session, starting the session if
// needed. It blocks while the session inbox is full.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	userID := senderID(update)
	if userID == 0 {
		d.logger.Debug("dropping update without sender", "update_id", update.UpdateID)
		return nil
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	s, ok := d.sessions[userID]
	if !ok {
		s = &session{
			id:     uuid.NewString(),
			userID: userID,
			inbox:  make(chan tgbotapi.Update, sessionInboxSize),
		}
		d.sessions[userID] = s
		d.wg.Add(1)
		go d.run(s)
		d.logger.Debug("session started", "session_id", s.id, "user_id", userID)
	}
	s.pending++
	d.mu.Unlock()

	select {
	case s.inbox <- update:
		return nil
	case <-ctx.Done():
		d.release(s)
		return ctx.Err()
	case <-d.ctx.Done():
		d.release(s)
		return ErrDispatcherClosed
	}
}

func (d *Dispatcher) release(s *session) {
	d.mu.Lock()
	s.pending--
	d.mu.Unlock()
}

func (d *Dispatcher) run(s *session) {
	defer d.wg.Done()

	logger := d.logger.With("session_id", s.id, "user_id", s.userID)
	timer := time.NewTimer(d.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case update := <-s.inbox:
			d.release(s)
			d.process(logger, update)
			timer.Reset(d.idleTimeout)

		case <-timer.C:
			d.mu.Lock()
			if s.pending == 0 && len(s.inbox) == 0 {
				delete(d.sessions, s.userID)
				d.mu.Unlock()
				logger.Debug("session ended", "reason", "idle")
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idleTimeout)

		case <-d.ctx.Done():
			if n := len(s.inbox); n > 0 {
				logger.Warn("session stopped with queued updates", "dropped", n)
			}
			return
		}
	}
}

func (d *Dispatcher) process(logger *slog.Logger, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling update",
				"update_id", update.UpdateID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	d.handler.HandleUpdate(d.ctx, update)
}

// Sessions reports the number of live sessions.
func (d *Dispatcher) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Close stops every session and waits for them to return. Updates still
// queued are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// Run blocks until ctx is done, then closes the dispatcher.
func (d *Dispatcher) Run(ctx context.Context) error {
	<-ctx.Done()
	d.Close()
	return nil
}

func senderID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.InlineQuery != nil && update.InlineQuery.From != nil:
		return update.InlineQuery.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}
