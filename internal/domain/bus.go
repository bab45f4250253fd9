package domain

import "context"

// SignalBus decouples event handlers from real-time delivery. Publish fans a
// payload out to every subscriber registered on the channel at call time;
// there is no buffering or replay, and a publish with zero subscribers is a
// no-op. Delivery is at-most-once per subscriber.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a read-only channel of raw payloads. The subscription
	// closes when the context is cancelled; the returned channel is closed at
	// that point as well.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
