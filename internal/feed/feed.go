// Package feed publishes completed refresh snapshots to a Kafka topic
// so downstream consumers can react to availability changes without
// polling the HTTP API.
package feed

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/log"
	"github.com/zeecm/parking/internal/metrics"
)

// Publisher emits one message per completed refresh.
type Publisher interface {
	Publish(ctx context.Context, snap *carpark.Snapshot) error
	Close() error
}

// messageWriter is the subset of kafka.Writer the publisher needs;
// tests plug in a fake.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the snapshot feed.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes snapshots to a Kafka topic, keyed by refresh ID
// so replays of the same refresh land in the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher validates the config and builds a publisher. The
// writer dials lazily; a broker that is down surfaces on the first
// Publish, not here.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("feed: kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("feed: kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: log.WithComponent("feed"),
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, snap *carpark.Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		metrics.RecordFeedPublish(err)
		return fmt.Errorf("encode snapshot: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(snap.RefreshID),
		Value: value,
	})
	metrics.RecordFeedPublish(err)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	p.logger.Debug().
		Str(log.FieldEvent, "feed.snapshot.published").
		Str(log.FieldRefreshID, snap.RefreshID).
		Int(log.FieldRecords, len(snap.Lots)).
		Msg("snapshot published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards all snapshots, used when no feed is configured.
type Noop struct{}

// NewNoop creates a publisher that publishes nothing.
func NewNoop() Noop { return Noop{} }

func (Noop) Publish(context.Context, *carpark.Snapshot) error { return nil }
func (Noop) Close() error                                     { return nil }

// Compile-time interface checks.
var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = Noop{}
)
