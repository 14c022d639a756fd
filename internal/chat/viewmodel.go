package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/realtime"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/google/uuid"
)

// Backend is the repository surface the view model drives.
type Backend interface {
	History(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	Send(ctx context.Context, conversationID, senderID uuid.UUID, content string, kind domain.MessageKind, metadata json.RawMessage) (domain.Message, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
}

// LiveFeed is the subscription surface. *realtime.Manager satisfies it.
type LiveFeed interface {
	Open(ctx context.Context, conversationID uuid.UUID, sink realtime.Sink) error
	Close() error
}

// ViewModel drives one conversation screen: history fetch, live append,
// send round-trip, read tracking, and mandatory teardown.
//
// Broker events arrive on their own goroutine, so the feed is
// serialized behind a mutex. Send performs no optimistic local append;
// the
// realtime echo of the insert is the only path into the feed, so a
// duplicate arrival is the common case the feed dedupes.
type ViewModel struct {
	backend Backend
	live    LiveFeed
	userID  uuid.UUID
	cache   *FeedCache
	log     *logger.Logger

	retryAttempts int
	retryBase     time.Duration

	mu             sync.Mutex
	conversationID uuid.UUID
	feed           *Feed
	loading        bool
	sending        bool
	closed         bool
	lastErr        error

	updates chan domain.Message
	resync  chan struct{}
}

type Option func(*ViewModel)

// WithCache seeds reopened conversations from recently closed feeds.
func WithCache(cache *FeedCache) Option {
	return func(vm *ViewModel) { vm.cache = cache }
}

// WithRetry re-opens a failed subscription with exponential backoff
// instead of waiting for the next explicit Open.
func WithRetry(attempts int, base time.Duration) Option {
	return func(vm *ViewModel) {
		vm.retryAttempts = attempts
		vm.retryBase = base
	}
}

func NewViewModel(backend Backend, live LiveFeed, userID uuid.UUID, log *logger.Logger, opts ...Option) *ViewModel {
	vm := &ViewModel{
		backend: backend,
		live:    live,
		userID:  userID,
		log:     log,
		feed:    NewFeed(),
		updates: make(chan domain.Message, 64),
		resync:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Open loads the conversation: fetch history, replace the feed, register
// the live subscription, then advance the read marker. A concurrent Open
// while one is loading is a no-op. Subscription failure degrades to
// history-only and is recorded in LastErr, not returned.
func (vm *ViewModel) Open(ctx context.Context, conversationID uuid.UUID) error {
	vm.mu.Lock()
	if vm.loading || vm.closed {
		vm.mu.Unlock()
		return nil
	}
	vm.loading = true
	vm.conversationID = conversationID
	if vm.cache != nil {
		if cached, ok := vm.cache.Get(conversationID); ok {
			vm.feed.Replace(cached)
		}
	}
	vm.mu.Unlock()

	history, err := vm.backend.History(ctx, conversationID)

	vm.mu.Lock()
	vm.loading = false
	if err != nil {
		vm.lastErr = err
		vm.mu.Unlock()
		return err
	}
	vm.feed.Replace(history)
	vm.mu.Unlock()

	if err := vm.live.Open(ctx, conversationID, vm.onMessage); err != nil {
		// History stays on screen without live updates.
		vm.setErr(err)
		vm.log.Warnf("conversation %s: live feed unavailable: %v", conversationID, err)
		if vm.retryAttempts > 0 {
			go vm.retryOpen(ctx, conversationID)
		}
	}

	if err := vm.backend.MarkRead(ctx, conversationID, vm.userID, time.Now()); err != nil {
		vm.log.Warnf("conversation %s: mark read: %v", conversationID, err)
	}
	return nil
}

// Send round-trips through the repository. The message shows up in the
// feed only when its realtime echo arrives.
func (vm *ViewModel) Send(ctx context.Context, content string) error {
	vm.mu.Lock()
	conversationID := vm.conversationID
	if conversationID == uuid.Nil || vm.closed {
		vm.mu.Unlock()
		return buddysurf_errors.ErrInvalidInput
	}
	vm.sending = true
	vm.mu.Unlock()

	_, err := vm.backend.Send(ctx, conversationID, vm.userID, content, domain.MessageText, nil)

	vm.mu.Lock()
	vm.sending = false
	if err != nil {
		vm.lastErr = err
	}
	vm.mu.Unlock()
	return err
}

// MarkRead advances the read marker to now, e.g. when the view regains
// focus.
func (vm *ViewModel) MarkRead(ctx context.Context) error {
	vm.mu.Lock()
	conversationID := vm.conversationID
	vm.mu.Unlock()
	if conversationID == uuid.Nil {
		return nil
	}
	return vm.backend.MarkRead(ctx, conversationID, vm.userID, time.Now())
}

// Close releases the live subscription and parks the feed in the cache.
// Must run on every exit path of the view; safe to call more than once.
func (vm *ViewModel) Close() error {
	err := vm.live.Close()

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return err
	}
	vm.closed = true
	if vm.cache != nil && vm.conversationID != uuid.Nil {
		vm.cache.Put(vm.conversationID, vm.feed.Messages())
	}
	vm.conversationID = uuid.Nil
	close(vm.updates)
	return err
}

func (vm *ViewModel) onMessage(m domain.Message) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed || m.ConversationID != vm.conversationID {
		return
	}
	if !vm.feed.Append(m) {
		return
	}
	select {
	case vm.updates <- m:
	default:
		// The message is already in the feed; coalesce the missed
		// notify into a resync signal so consumers re-read Messages.
		select {
		case vm.resync <- struct{}{}:
		default:
		}
		vm.log.Warnf("conversation %s: updates channel full, signalling resync", m.ConversationID)
	}
}

func (vm *ViewModel) retryOpen(ctx context.Context, conversationID uuid.UUID) {
	delay := vm.retryBase
	for attempt := 0; attempt < vm.retryAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		vm.mu.Lock()
		stale := vm.closed || vm.conversationID != conversationID
		vm.mu.Unlock()
		if stale {
			return
		}
		if err := vm.live.Open(ctx, conversationID, vm.onMessage); err == nil {
			vm.setErr(nil)
			return
		}
		delay *= 2
	}
}

func (vm *ViewModel) setErr(err error) {
	vm.mu.Lock()
	vm.lastErr = err
	vm.mu.Unlock()
}

// Updates streams messages appended by the live feed. The channel closes
// with the view model.
func (vm *ViewModel) Updates() <-chan domain.Message {
	return vm.updates
}

// Resync fires when live appends outpaced the Updates buffer. The feed
// itself holds every message; consumers should re-read Messages and
// reconcile against what they have already delivered.
func (vm *ViewModel) Resync() <-chan struct{} {
	return vm.resync
}

func (vm *ViewModel) Messages() []domain.Message {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.feed.Messages()
}

func (vm *ViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loading
}

func (vm *ViewModel) Sending() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.sending
}

func (vm *ViewModel) LastErr() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lastErr
}
