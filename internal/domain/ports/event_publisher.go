package ports

import "context"

// Event is a marker interface for bus payloads; EventType is the bus
// channel-independent discriminator carried as the JSON "type" field.
type Event interface {
	EventType() string
}

// EventPublisher publishes an event to every current subscriber of channel.
// Implementations never block the publisher: a subscriber whose queue is
// full has its oldest item dropped to make room.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// EventSubscriber hands back a finite-capacity, ordered stream of events
// published to channel. The returned channel is closed when Unsubscribe is
// called or the subscription is otherwise torn down.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan Event, func())
}
