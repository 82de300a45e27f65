// Package messaging carries outbox envelopes from the relays to the
// notification dispatchers inside the worker process.
package messaging

import (
	"context"
	"log/slog"
	"sync"

	contractsv1 "summit/contracts/gen/events/v1"
)

const DefaultBuffer = 128

// Bus is an in-process topic bus with consumer-group delivery: every group
// subscribed to a topic receives each event once, and the members of one
// group take turns. A member whose queue is full loses the event.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*group
	buffer int
	logger *slog.Logger
}

type group struct {
	members []chan contractsv1.Envelope
	next    int
}

func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		topics: make(map[string]map[string]*group),
		buffer: buffer,
		logger: logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	targets := make(map[string]chan contractsv1.Envelope, len(b.topics[topic]))
	for name, g := range b.topics[topic] {
		if len(g.members) == 0 {
			continue
		}
		targets[name] = g.members[g.next%len(g.members)]
		g.next++
	}
	b.mu.Unlock()

	for name, target := range targets {
		select {
		case target <- event:
		default:
			b.logger.Warn("dropping event for slow consumer",
				"event", "bus_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", name,
				"event_id", event.EventID,
			)
		}
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"groups", len(targets),
	)
	return nil
}

// Subscribe registers handler as a member of consumerGroup on topic until ctx
// is cancelled.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	ch := make(chan contractsv1.Envelope, b.buffer)

	b.mu.Lock()
	groups, ok := b.topics[topic]
	if !ok {
		groups = make(map[string]*group)
		b.topics[topic] = groups
	}
	g, ok := groups[consumerGroup]
	if !ok {
		g = &group{}
		groups[consumerGroup] = g
	}
	g.members = append(g.members, ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.unsubscribe(topic, consumerGroup, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) unsubscribe(topic string, consumerGroup string, target chan contractsv1.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.topics[topic][consumerGroup]
	if !ok {
		return
	}
	remaining := g.members[:0]
	for _, member := range g.members {
		if member != target {
			remaining = append(remaining, member)
		}
	}
	g.members = remaining
	if len(g.members) == 0 {
		delete(b.topics[topic], consumerGroup)
	}
}

// members reports how many subscribers a group has on topic.
func (b *Bus) members(topic string, consumerGroup string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if g, ok := b.topics[topic][consumerGroup]; ok {
		return len(g.members)
	}
	return 0
}
