package realtime

import (
	"context"
	"fmt"
	"sync"

	"buddysurf-chat/internal/domain"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/google/uuid"
)

type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateActive
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// MessageSource hydrates the full message record, sender profile
// included, for an inbound insert event.
type MessageSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
}

// Sink receives hydrated messages in arrival order.
type Sink func(msg domain.Message)

// Manager owns the live subscription for one open conversation view.
//
// Idle -> Subscribing -> Active -> Closed, with Failed reachable from
// Subscribing on transport error. Open replaces any live subscription
// rather than stacking a second one; Close is valid from any
// non-terminal state and must run on every view-teardown path.
type Manager struct {
	subscriber Subscriber
	source     MessageSource
	log        *logger.Logger

	mu             sync.Mutex
	state          State
	conversationID uuid.UUID
	sub            Subscription
	// gen invalidates handlers from superseded subscriptions.
	gen uint64
}

func NewManager(subscriber Subscriber, source MessageSource, log *logger.Logger) *Manager {
	return &Manager{
		subscriber: subscriber,
		source:     source,
		log:        log,
		state:      StateIdle,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) ConversationID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversationID
}

// Open registers a live channel for the conversation's insert events.
// A subscription that is already live is closed first. On transport
// failure the manager lands in Failed and stays there until Open is
// called again; it never retries on its own.
func (m *Manager) Open(ctx context.Context, conversationID uuid.UUID, sink Sink) error {
	m.mu.Lock()
	if m.state == StateSubscribing || m.state == StateActive {
		m.releaseLocked()
	}
	m.gen++
	gen := m.gen
	m.state = StateSubscribing
	m.conversationID = conversationID
	m.mu.Unlock()

	sub, err := m.subscriber.Subscribe(ctx, ConversationChannel(conversationID), func(ev Event) {
		m.handleEvent(ctx, gen, conversationID, ev, sink)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		// Superseded by a newer Open or a Close while subscribing.
		if sub != nil {
			_ = sub.Close()
		}
		return nil
	}
	if err != nil {
		m.state = StateFailed
		return fmt.Errorf("%w: %v", buddysurf_errors.ErrSubscriptionFailed, err)
	}
	m.state = StateActive
	m.sub = sub
	return nil
}

// Close unregisters the channel and moves to the terminal state. Safe to
// call redundantly.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return nil
	}
	m.releaseLocked()
	m.state = StateClosed
	m.conversationID = uuid.Nil
	return nil
}

func (m *Manager) releaseLocked() {
	m.gen++
	if m.sub != nil {
		_ = m.sub.Close()
		m.sub = nil
	}
}

func (m *Manager) handleEvent(ctx context.Context, gen uint64, conversationID uuid.UUID, ev Event, sink Sink) {
	if ev.Type != EventMessageInserted || ev.ConversationID != conversationID {
		return
	}
	if !m.liveFor(gen) {
		return
	}

	msg, err := m.source.GetByID(ctx, ev.MessageID)
	if err != nil {
		m.log.Errorf("failed to hydrate message %s: %v", ev.MessageID, err)
		return
	}

	// The hydration round trip may have raced a Close.
	if !m.liveFor(gen) {
		return
	}
	sink(msg)
}

func (m *Manager) liveFor(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false
	}
	return m.state == StateActive || m.state == StateSubscribing
}

// Registry enforces the process-wide invariant of at most one live
// subscription per conversation id. Opening a conversation that already
// has a live manager closes the existing one first.
type Registry struct {
	subscriber Subscriber
	source     MessageSource
	log        *logger.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*Manager
}

func NewRegistry(subscriber Subscriber, source MessageSource, log *logger.Logger) *Registry {
	return &Registry{
		subscriber: subscriber,
		source:     source,
		log:        log,
		live:       make(map[uuid.UUID]*Manager),
	}
}

// Open returns a live manager for the conversation, replacing any
// previous one for the same id.
func (r *Registry) Open(ctx context.Context, conversationID uuid.UUID, sink Sink) (*Manager, error) {
	r.mu.Lock()
	if existing, ok := r.live[conversationID]; ok {
		_ = existing.Close()
	}
	m := NewManager(r.subscriber, r.source, r.log)
	r.live[conversationID] = m
	r.mu.Unlock()

	if err := m.Open(ctx, conversationID, sink); err != nil {
		r.Release(conversationID, m)
		return nil, err
	}
	return m, nil
}

// Release closes the manager and drops it from the registry if it is
// still the live one for its conversation.
func (r *Registry) Release(conversationID uuid.UUID, m *Manager) {
	_ = m.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.live[conversationID]; ok && current == m {
		delete(r.live, conversationID)
	}
}
