package feed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeecm/parking/internal/carpark"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleSnapshot() *carpark.Snapshot {
	return &carpark.Snapshot{
		RefreshID: "r-42",
		FetchedAt: time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
		Sources:   []string{"ura"},
		Lots: []carpark.Lot{
			{CarparkID: "A0004", Agency: carpark.AgencyURA, LotType: carpark.LotTypeCar, Available: 103},
		},
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{writer: fw, logger: zerolog.Nop()}

	require.NoError(t, p.Publish(context.Background(), sampleSnapshot()))

	require.Len(t, fw.messages, 1)
	assert.Equal(t, []byte("r-42"), fw.messages[0].Key)

	var got carpark.Snapshot
	require.NoError(t, json.Unmarshal(fw.messages[0].Value, &got))
	assert.Equal(t, "r-42", got.RefreshID)
	require.Len(t, got.Lots, 1)
	assert.Equal(t, "A0004", got.Lots[0].CarparkID)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unreachable")}
	p := &KafkaPublisher{writer: fw, logger: zerolog.Nop()}

	err := p.Publish(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish snapshot")
}

func TestKafkaPublisher_Close(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{writer: fw, logger: zerolog.Nop()}

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "parking.snapshots"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokers")

	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")

	p, err := NewKafkaPublisher(KafkaConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "parking.snapshots",
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestNoop(t *testing.T) {
	n := NewNoop()
	assert.NoError(t, n.Publish(context.Background(), sampleSnapshot()))
	assert.NoError(t, n.Close())
}
