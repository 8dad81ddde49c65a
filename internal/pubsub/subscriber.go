package pubsub

import (
	"context"
	"fmt"

	"github.com/learnsphere/chat-service/internal/hub"
	"github.com/learnsphere/chat-service/pkg/log"
	pkgpubsub "github.com/learnsphere/chat-service/pkg/pubsub"
)

// Subscriber bridges the room fan-out bus into the local hub. Every
// instance subscribes to all room channels, so a broadcast published on
// one instance reaches subscribers connected anywhere.
type Subscriber struct {
	bus    pkgpubsub.Subscriber
	wsHub  *hub.Hub
	cancel context.CancelFunc
}

// NewSubscriber creates a new bus-to-hub bridge.
func NewSubscriber(bus pkgpubsub.Subscriber, wsHub *hub.Hub) *Subscriber {
	return &Subscriber{
		bus:   bus,
		wsHub: wsHub,
	}
}

// Start begins forwarding room events to the hub.
func (s *Subscriber) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	events, err := s.bus.SubscribePattern(ctx, pkgpubsub.RoomEventsPattern())
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to room events: %w", err)
	}

	go s.forward(ctx, events)

	l := log.L()
	l.Info().Str("pattern", pkgpubsub.RoomEventsPattern()).Msg("room event subscriber started")
	return nil
}

// Stop halts forwarding.
func (s *Subscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Subscriber) forward(ctx context.Context, events <-chan *pkgpubsub.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			// The payload is the fully-formed client envelope.
			s.wsHub.BroadcastRawToRoom(event.RoomID, event.Payload)
		}
	}
}
