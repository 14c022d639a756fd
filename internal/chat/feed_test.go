package chat

import (
	"testing"
	"time"

	"buddysurf-chat/internal/domain"

	"github.com/google/uuid"
)

func msgAt(conv uuid.UUID, t time.Time, content string) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: conv,
		Content:        content,
		CreatedAt:      t,
	}
}

func TestFeedAppendDedupesByID(t *testing.T) {
	feed := NewFeed()
	conv := uuid.New()
	m := msgAt(conv, time.Now(), "hi")

	if !feed.Append(m) {
		t.Fatalf("first append should succeed")
	}
	if feed.Append(m) {
		t.Fatalf("duplicate append should be a no-op")
	}
	if feed.Len() != 1 {
		t.Fatalf("expected feed length 1, got %d", feed.Len())
	}
}

func TestFeedReplaceSortsAscending(t *testing.T) {
	feed := NewFeed()
	conv := uuid.New()
	base := time.Now()

	newest := msgAt(conv, base.Add(2*time.Second), "3")
	oldest := msgAt(conv, base, "1")
	middle := msgAt(conv, base.Add(time.Second), "2")

	feed.Replace([]domain.Message{newest, oldest, middle})

	got := feed.Messages()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, got[i].Content)
		}
	}
}

func TestFeedReplaceDropsDuplicates(t *testing.T) {
	feed := NewFeed()
	conv := uuid.New()
	m := msgAt(conv, time.Now(), "once")

	feed.Replace([]domain.Message{m, m})
	if feed.Len() != 1 {
		t.Fatalf("expected 1 message after duplicate replace, got %d", feed.Len())
	}
}

func TestFeedMessagesReturnsCopy(t *testing.T) {
	feed := NewFeed()
	conv := uuid.New()
	feed.Append(msgAt(conv, time.Now(), "original"))

	snapshot := feed.Messages()
	snapshot[0].Content = "mutated"

	if feed.Messages()[0].Content != "original" {
		t.Fatalf("feed backing slice leaked to caller")
	}
}

func TestFeedCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewFeedCache(2)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	cache.Put(a, []domain.Message{msgAt(a, time.Now(), "a")})
	cache.Put(b, []domain.Message{msgAt(b, time.Now(), "b")})

	// Touch a so b becomes the eviction candidate.
	if _, ok := cache.Get(a); !ok {
		t.Fatalf("expected a to be cached")
	}

	cache.Put(c, []domain.Message{msgAt(c, time.Now(), "c")})

	if _, ok := cache.Get(b); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := cache.Get(a); !ok {
		t.Fatalf("expected a to survive")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected capacity 2, got %d", cache.Len())
	}
}

func TestFeedCacheReturnsCopies(t *testing.T) {
	cache := NewFeedCache(2)
	conv := uuid.New()
	cache.Put(conv, []domain.Message{msgAt(conv, time.Now(), "original")})

	got, ok := cache.Get(conv)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	got[0].Content = "mutated"

	again, _ := cache.Get(conv)
	if again[0].Content != "original" {
		t.Fatalf("cache entry leaked to caller")
	}
}
