package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/realtime"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu        sync.Mutex
	history   []domain.Message
	sent      []domain.Message
	readMarks []time.Time
	sendErr   error
}

func (b *fakeBackend) History(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Message(nil), b.history...), nil
}

func (b *fakeBackend) Send(ctx context.Context, conversationID, senderID uuid.UUID, content string, kind domain.MessageKind, metadata json.RawMessage) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, buddysurf_errors.ErrInvalidContent
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return domain.Message{}, b.sendErr
	}
	m := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        strings.TrimSpace(content),
		Kind:           kind,
		CreatedAt:      time.Now(),
	}
	b.sent = append(b.sent, m)
	return m, nil
}

func (b *fakeBackend) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readMarks = append(b.readMarks, at)
	return nil
}

func (b *fakeBackend) sentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

func (b *fakeBackend) readCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.readMarks)
}

// fakeLive hands the sink back to the test so it can play the realtime
// echo by hand.
type fakeLive struct {
	mu      sync.Mutex
	sink    realtime.Sink
	openErr error
	opens   int
	closes  int
}

func (l *fakeLive) Open(ctx context.Context, conversationID uuid.UUID, sink realtime.Sink) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opens++
	if l.openErr != nil {
		return l.openErr
	}
	l.sink = sink
	return nil
}

func (l *fakeLive) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	l.sink = nil
	return nil
}

func (l *fakeLive) openCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opens
}

func (l *fakeLive) deliver(m domain.Message) {
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	if sink != nil {
		sink(m)
	}
}

func TestViewModelOpenLoadsHistoryAndMarksRead(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{history: []domain.Message{
		msgAt(conv, time.Now().Add(-time.Minute), "old"),
		msgAt(conv, time.Now(), "new"),
	}}
	live := &fakeLive{}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop())

	require.NoError(t, vm.Open(context.Background(), conv))

	msgs := vm.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "old", msgs[0].Content)
	assert.False(t, vm.Loading())
	assert.Equal(t, 1, live.openCount())
	assert.Equal(t, 1, backend.readCount())
}

func TestViewModelSendDoesNotAppendLocally(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{}
	live := &fakeLive{}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop())
	require.NoError(t, vm.Open(context.Background(), conv))

	require.NoError(t, vm.Send(context.Background(), "hi"))

	// The repository write happened but the feed waits for the echo.
	assert.Equal(t, 1, backend.sentCount())
	assert.Empty(t, vm.Messages())
	assert.False(t, vm.Sending())

	// Echo arrives; now the message is visible, exactly once.
	live.deliver(backend.sent[0])
	require.Len(t, vm.Messages(), 1)
	assert.Equal(t, "hi", vm.Messages()[0].Content)

	// The echo replayed (e.g. duplicate delivery) stays a no-op.
	live.deliver(backend.sent[0])
	assert.Len(t, vm.Messages(), 1)
}

func TestViewModelSendEmptyContent(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{}
	live := &fakeLive{}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop())
	require.NoError(t, vm.Open(context.Background(), conv))

	err := vm.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, buddysurf_errors.ErrInvalidContent)
	assert.Equal(t, 0, backend.sentCount())
}

func TestViewModelCloseStopsFeed(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{}
	live := &fakeLive{}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop())
	require.NoError(t, vm.Open(context.Background(), conv))

	require.NoError(t, vm.Close())
	assert.Equal(t, 1, live.closes)

	// A stale delivery after close must not reach the feed.
	live.deliver(msgAt(conv, time.Now(), "late"))
	assert.Empty(t, vm.Messages())

	// Redundant close stays safe.
	require.NoError(t, vm.Close())
}

func TestViewModelSubscriptionFailureKeepsHistory(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{history: []domain.Message{msgAt(conv, time.Now(), "kept")}}
	live := &fakeLive{openErr: errors.New("transport down")}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop())

	// History-only fallback: Open itself succeeds.
	require.NoError(t, vm.Open(context.Background(), conv))
	assert.Len(t, vm.Messages(), 1)
	assert.Error(t, vm.LastErr())
}

func TestViewModelRetriesSubscription(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{}
	live := &fakeLive{openErr: errors.New("transport down")}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop(),
		WithRetry(3, time.Millisecond))

	require.NoError(t, vm.Open(context.Background(), conv))

	// Let the first backoff attempt find a healthy transport.
	live.mu.Lock()
	live.openErr = nil
	live.mu.Unlock()

	require.Eventually(t, func() bool {
		return vm.LastErr() == nil
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, live.openCount(), 2)
}

func TestViewModelOverflowSignalsResync(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{}
	live := &fakeLive{}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop())
	require.NoError(t, vm.Open(context.Background(), conv))

	// Nobody drains Updates; flood past its capacity.
	base := time.Now()
	const flood = 70
	for i := 0; i < flood; i++ {
		live.deliver(msgAt(conv, base.Add(time.Duration(i)*time.Millisecond), "m"))
	}

	// Every message made it into the feed even though some notifies
	// could not be buffered.
	assert.Len(t, vm.Messages(), flood)

	select {
	case <-vm.Resync():
	default:
		t.Fatalf("expected a resync signal after the updates buffer overflowed")
	}
}

func TestViewModelIgnoresForeignConversation(t *testing.T) {
	conv := uuid.New()
	backend := &fakeBackend{}
	live := &fakeLive{}
	vm := NewViewModel(backend, live, uuid.New(), logger.NewNop())
	require.NoError(t, vm.Open(context.Background(), conv))

	live.deliver(msgAt(uuid.New(), time.Now(), "stranger"))
	assert.Empty(t, vm.Messages())
}

func TestViewModelReopenSeedsFromCache(t *testing.T) {
	conv := uuid.New()
	cached := msgAt(conv, time.Now(), "cached")
	backend := &fakeBackend{history: []domain.Message{cached}}
	cache := NewFeedCache(4)

	first := NewViewModel(backend, &fakeLive{}, uuid.New(), logger.NewNop(), WithCache(cache))
	require.NoError(t, first.Open(context.Background(), conv))
	require.NoError(t, first.Close())

	if _, ok := cache.Get(conv); !ok {
		t.Fatalf("expected closed feed to be cached")
	}

	second := NewViewModel(backend, &fakeLive{}, uuid.New(), logger.NewNop(), WithCache(cache))
	require.NoError(t, second.Open(context.Background(), conv))
	require.Len(t, second.Messages(), 1)
	assert.Equal(t, "cached", second.Messages()[0].Content)
}
