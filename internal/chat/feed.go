package chat

import (
	"sort"

	"buddysurf-chat/internal/domain"

	"github.com/google/uuid"
)

// Feed is the ordered in-memory message list for one open conversation.
// It is owned by a single view model and mutated only from its handlers,
// so it carries no locking of its own.
type Feed struct {
	items []domain.Message
	seen  map[uuid.UUID]struct{}
}

func NewFeed() *Feed {
	return &Feed{seen: make(map[uuid.UUID]struct{})}
}

// Replace swaps in a freshly fetched history, dropping duplicate ids and
// restoring ascending (created_at, id) order.
func (f *Feed) Replace(msgs []domain.Message) {
	f.items = f.items[:0]
	f.seen = make(map[uuid.UUID]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := f.seen[m.ID]; dup {
			continue
		}
		f.seen[m.ID] = struct{}{}
		f.items = append(f.items, m)
	}
	sort.SliceStable(f.items, func(i, j int) bool {
		a, b := f.items[i], f.items[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// Append adds a live message at the end. Returns false (and leaves the
// feed unchanged) when the id is already present; the sender's optimistic
// copy racing the realtime echo of the same insert lands here.
func (f *Feed) Append(m domain.Message) bool {
	if _, dup := f.seen[m.ID]; dup {
		return false
	}
	f.seen[m.ID] = struct{}{}
	f.items = append(f.items, m)
	return true
}

func (f *Feed) Len() int { return len(f.items) }

// Messages returns a copy; the feed keeps exclusive ownership of its
// backing slice.
func (f *Feed) Messages() []domain.Message {
	out := make([]domain.Message, len(f.items))
	copy(out, f.items)
	return out
}
