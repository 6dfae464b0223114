package events

import (
	"testing"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(nil)

	var received []Event
	bus.Subscribe(TopicMemoryPressureWarning, func(e Event) {
		received = append(received, e)
	})

	bus.Publish(TopicMemoryPressureWarning, map[string]interface{}{
		"usage_ratio": 0.8,
	})

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}

	e := received[0]
	if e.Topic != TopicMemoryPressureWarning {
		t.Errorf("topic = %s", e.Topic)
	}
	if e.ID == "" {
		t.Error("event ID not set")
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	if ratio, ok := e.Data["usage_ratio"].(float64); !ok || ratio != 0.8 {
		t.Errorf("data not carried: %v", e.Data)
	}
}

func TestBus_TopicIsolation(t *testing.T) {
	bus := NewBus(nil)

	var warnings, criticals int
	bus.Subscribe(TopicMemoryPressureWarning, func(Event) { warnings++ })
	bus.Subscribe(TopicMemoryPressureCritical, func(Event) { criticals++ })

	bus.Publish(TopicMemoryPressureWarning, nil)
	bus.Publish(TopicMemoryPressureWarning, nil)
	bus.Publish(TopicMemoryPressureCritical, nil)

	if warnings != 2 || criticals != 1 {
		t.Errorf("warnings = %d, criticals = %d", warnings, criticals)
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus(nil)

	var a, b int
	bus.Subscribe(TopicStatsUpdated, func(Event) { a++ })
	bus.Subscribe(TopicStatsUpdated, func(Event) { b++ })

	if got := bus.SubscriberCount(TopicStatsUpdated); got != 2 {
		t.Errorf("SubscriberCount = %d, want 2", got)
	}

	bus.Publish(TopicStatsUpdated, nil)

	if a != 1 || b != 1 {
		t.Errorf("both subscribers should fire: a=%d b=%d", a, b)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var count int
	sub := bus.Subscribe(TopicEvictionRequested, func(Event) { count++ })

	bus.Publish(TopicEvictionRequested, nil)
	sub.Unsubscribe()
	sub.Unsubscribe() // safe to repeat
	bus.Publish(TopicEvictionRequested, nil)

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
	if got := bus.SubscriberCount(TopicEvictionRequested); got != 0 {
		t.Errorf("SubscriberCount after unsubscribe = %d", got)
	}
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(nil)
	// Must not panic or block.
	bus.Publish(TopicConfigChanged, nil)
}
