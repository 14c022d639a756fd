package chat

import (
	"container/list"
	"sync"

	"buddysurf-chat/internal/domain"

	"github.com/google/uuid"
)

// FeedCache keeps the last feeds of recently closed conversations so a
// reopened view can paint immediately while the fresh history fetch is
// in flight. Bounded, least-recently-used eviction.
type FeedCache struct {
	mu    sync.Mutex
	cap   int
	order *list.List
	byID  map[uuid.UUID]*list.Element
}

type cacheEntry struct {
	conversationID uuid.UUID
	messages       []domain.Message
}

func NewFeedCache(capacity int) *FeedCache {
	if capacity <= 0 {
		capacity = 8
	}
	return &FeedCache{
		cap:   capacity,
		order: list.New(),
		byID:  make(map[uuid.UUID]*list.Element),
	}
}

func (c *FeedCache) Put(conversationID uuid.UUID, messages []domain.Message) {
	snapshot := make([]domain.Message, len(messages))
	copy(snapshot, messages)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byID[conversationID]; ok {
		el.Value.(*cacheEntry).messages = snapshot
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{conversationID: conversationID, messages: snapshot})
	c.byID[conversationID] = el
	for c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byID, oldest.Value.(*cacheEntry).conversationID)
	}
}

func (c *FeedCache) Get(conversationID uuid.UUID) ([]domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byID[conversationID]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	out := make([]domain.Message, len(entry.messages))
	copy(out, entry.messages)
	return out, true
}

func (c *FeedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
