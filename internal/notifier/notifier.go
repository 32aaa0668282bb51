package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"medledger/internal/platform/kafka"
)

// Notifier receives one change-description per committed mutation. Publish
// failures must never propagate to the originating write; callers go through
// Async, which swallows and logs them.
type Notifier interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Nop discards events; used when no transport is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ChangeEvent) error { return nil }

// Memory buffers events for test inspection.
type Memory struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, event ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChangeEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsOfType filters published events by change type.
func (m *Memory) EventsOfType(t ChangeType) []ChangeEvent {
	var out []ChangeEvent
	for _, e := range m.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Kafka publishes change events as JSON records keyed by program ID so one
// program's events stay ordered within a partition.
type Kafka struct {
	producer *kafka.Producer
}

func NewKafka(producer *kafka.Producer) *Kafka {
	return &Kafka{producer: producer}
}

func (k *Kafka) Publish(ctx context.Context, event ChangeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	key := []byte(event.ProgramID.String())
	if err := k.producer.Produce(ctx, key, value); err != nil {
		return fmt.Errorf("produce change event: %w", err)
	}
	return nil
}
