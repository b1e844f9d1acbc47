//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"foodbridge/internal/events"
	"foodbridge/pkg/testutil/containers"
)

func TestKafkaSinkProducesKeyedRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	kafka := containers.NewKafkaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "foodbridge.events.test"
	sink, err := events.NewKafkaSink(ctx, []string{kafka.Broker}, topic, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer sink.Close()

	// A second sink on the same topic must tolerate the existing topic.
	again, err := events.NewKafkaSink(ctx, []string{kafka.Broker}, topic, nil)
	require.NoError(t, err)
	again.Close()

	sent := events.Event{
		ID:         "evt-1",
		Type:       events.TypeDonationClaimed,
		OccurredAt: time.Now().UTC().Truncate(time.Millisecond),
		SubjectID:  "donation-42",
		Attributes: map[string]string{"ngo_name": "Food Bank"},
	}
	require.NoError(t, sink.Write(ctx, sent))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kafka.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())

	var records []*kgo.Record
	fetches.EachRecord(func(r *kgo.Record) { records = append(records, r) })
	require.Len(t, records, 1)

	assert.Equal(t, "donation-42", string(records[0].Key))
	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, sent.Type, got.Type)
	assert.Equal(t, "Food Bank", got.Attributes["ngo_name"])
}
