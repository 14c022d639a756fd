package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventMessageInserted is the only event kind the chat core consumes:
// a new message row was committed for a conversation.
const EventMessageInserted = "message.inserted"

// Event is the wire envelope published on a conversation channel. It
// carries row identifiers only; consumers hydrate the full record so the
// sender profile join is always fresh.
type Event struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	Timestamp      int64     `json:"timestamp"`
}

func NewMessageInserted(conversationID, messageID uuid.UUID) Event {
	return Event{
		Type:           EventMessageInserted,
		ConversationID: conversationID,
		MessageID:      messageID,
		Timestamp:      time.Now().UnixMilli(),
	}
}

// ConversationChannel names the channel carrying insert events for one
// conversation.
func ConversationChannel(conversationID uuid.UUID) string {
	return "realtime:conversation:" + conversationID.String()
}

type Handler func(ev Event)

// Subscription is a live channel registration. Close unregisters it; no
// events are delivered after Close returns.
type Subscription interface {
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, channel string, ev Event) error
}

type Subscriber interface {
	// Subscribe registers the handler and returns once the transport has
	// confirmed the registration.
	Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error)
}

type Broker interface {
	Publisher
	Subscriber
}
