package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	contractsv1 "summit/contracts/gen/events/v1"
)

func TestPublishDeliversOncePerGroup(t *testing.T) {
	bus := NewBus(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifications, audit, otherTopic atomic.Int32
	subscribe := func(topic, consumerGroup string, counter *atomic.Int32) {
		t.Helper()
		if err := bus.Subscribe(ctx, topic, consumerGroup, func(context.Context, contractsv1.Envelope) error {
			counter.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}
	subscribe("assembly.resolutions", "notifications-cg", &notifications)
	subscribe("assembly.resolutions", "notifications-cg", &notifications)
	subscribe("assembly.resolutions", "audit-cg", &audit)
	subscribe("newsroom.articles", "notifications-cg", &otherTopic)

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		if err := bus.Publish(ctx, "assembly.resolutions", contractsv1.Envelope{EventID: id}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && (notifications.Load() < 3 || audit.Load() < 3) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if notifications.Load() != 3 || audit.Load() != 3 {
		t.Fatalf("expected each group to see 3 events, got notifications=%d audit=%d", notifications.Load(), audit.Load())
	}
	if otherTopic.Load() != 0 {
		t.Fatalf("expected no cross-topic delivery, got %d", otherTopic.Load())
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	bus := NewBus(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bus.Publish(ctx, "newsroom.articles", contractsv1.Envelope{EventID: "evt-1"}); err == nil {
		t.Fatal("expected cancelled context to be reported")
	}
}

func TestSubscriberRemovedOnCancel(t *testing.T) {
	bus := NewBus(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := bus.Subscribe(ctx, "newsroom.articles", "test-cg", func(context.Context, contractsv1.Envelope) error {
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if bus.members("newsroom.articles", "test-cg") != 1 {
		t.Fatal("expected one member after subscribe")
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if bus.members("newsroom.articles", "test-cg") == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("subscriber was not removed after cancel")
}
