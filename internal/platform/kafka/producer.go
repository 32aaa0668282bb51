// Package kafka wraps the franz-go producer used by the change notifier.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"medledger/internal/platform/config"
)

// Producer publishes change events to a single topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the configured brokers and makes sure the topic
// exists. Returns nil when no brokers are configured (dev without Kafka).
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(client, cfg.Topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client, topic: cfg.Topic}, nil
}

func ensureTopic(client *kgo.Client, topic string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	adm := kadm.NewClient(client)
	details, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if details.Has(topic) {
		return nil
	}

	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", topic, resp.Err)
	}
	return nil
}

// Produce fires one record and waits for the broker acknowledgment within the
// caller's context.
func (p *Producer) Produce(ctx context.Context, key, value []byte) error {
	record := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
