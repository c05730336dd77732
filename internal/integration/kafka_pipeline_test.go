//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whenwx/forecast-timing-service/internal/adapter/kafka"
	"github.com/whenwx/forecast-timing-service/internal/config"
	"github.com/whenwx/forecast-timing-service/internal/domain"
	"github.com/whenwx/forecast-timing-service/internal/observability"
	"github.com/whenwx/forecast-timing-service/internal/pipeline"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"
)

var integrationInitTime = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

// sinkMessage holds a deserialized message read from the sink topic.
type sinkMessage struct {
	Doc     domain.TimingDocument
	Key     string
	Headers map[string]string
}

// readSink reads a single message from the sink consumer and deserializes it.
func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var doc domain.TimingDocument
	require.NoError(t, json.Unmarshal(msg.Value, &doc), "unmarshal sink message")

	return sinkMessage{
		Doc:     doc,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) correctly round-trip a message through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// A temperature series that dips below freezing for two hours.
	payload := seriesPayload(t, "2t", "K", integrationInitTime, []float64{265, 262, 261, 264})

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("48.85:2.35:2t"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("48.85:2.35:2t"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	// Commit the offset.
	require.NoError(t, raw.Commit(ctx))

	// Transform the series into timing documents, one per 2t event.
	transformer := pipeline.NewTransformer(discardLogger())
	outs, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)
	require.Len(t, outs, 2)

	// Load via kafka.Writer.
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, outs))

	// Read from the sink topic and verify headers + value.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	docs := map[string]sinkMessage{}
	for len(docs) < 2 {
		sm := readSink(ctx, t, consumer)
		docs[sm.Doc.EventID] = sm
	}

	freezing, ok := docs["freezing"]
	require.True(t, ok, "expected a freezing document")
	assert.Equal(t, freezing.Doc.ID, freezing.Key)
	assert.Equal(t, "freezing", freezing.Headers["event_id"])
	_, err = time.Parse(time.RFC3339, freezing.Headers["computed_at"])
	assert.NoError(t, err, "computed_at should be valid RFC3339")

	require.NotNil(t, freezing.Doc.Timing.FirstBreachTime)
	assert.True(t, freezing.Doc.Timing.FirstBreachTime.Equal(integrationInitTime.Add(time.Hour)))
	require.NotNil(t, freezing.Doc.Timing.DurationHours)
	assert.Equal(t, 2.0, *freezing.Doc.Timing.DurationHours)
	assert.Equal(t, 48.85, freezing.Doc.Geo.Lat)

	heat, ok := docs["heat"]
	require.True(t, ok, "expected a heat document")
	assert.Nil(t, heat.Doc.Timing.FirstBreachTime, "series never reaches the heat threshold")
}

// TestPipelineEndToEnd wires the full pipeline (Reader -> Transformer -> Writer)
// with real Kafka and verifies the fan-out from series to timing documents.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Three series: 2t fans out to freezing+heat, wind_speed to gale, and 10u
	// has no registered events and must be skipped.
	msgs := []kafkago.Message{
		{Key: []byte("2t"), Value: seriesPayload(t, "2t", "K", integrationInitTime, []float64{265, 262, 261, 264})},
		{Key: []byte("wind"), Value: seriesPayload(t, "wind_speed", "m/s", integrationInitTime, []float64{10, 18, 19, 15})},
		{Key: []byte("10u"), Value: seriesPayload(t, "10u", "m/s", integrationInitTime, []float64{3, 4})},
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	transformer := pipeline.NewTransformer(discardLogger())

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	// freezing + heat from 2t, gale from wind_speed.
	received := make(map[string]sinkMessage, 3)
	for len(received) < 3 {
		sm := readSink(ctx, t, consumer)
		received[sm.Doc.EventID] = sm
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	for eventID, sm := range received {
		assert.Equal(t, eventID, sm.Headers["event_id"])
		assert.Contains(t, sm.Headers, "computed_at")
		assert.False(t, sm.Doc.ComputedAt.IsZero())
		assert.True(t, sm.Doc.ForecastInitTime.Equal(integrationInitTime))
	}

	gale := received["gale"]
	require.NotNil(t, gale.Doc.Timing.FirstBreachTime)
	assert.True(t, gale.Doc.Timing.FirstBreachTime.Equal(integrationInitTime.Add(time.Hour)))
	require.NotNil(t, gale.Doc.Timing.DurationHours)
	assert.Equal(t, 2.0, *gale.Doc.Timing.DurationHours)

	// Verify no fourth message arrives (10u produced nothing).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no document for an unregistered variable")
}

// TestPipelineTransformError verifies that an invalid message (poison pill) is
// skipped and the pipeline continues processing valid messages.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-poison-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	validPayload := seriesPayload(t, "wind_speed", "m/s", integrationInitTime, []float64{10, 18, 15})

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("good"), Value: validPayload},
	))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	transformer := pipeline.NewTransformer(discardLogger())

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the valid message should appear on the sink topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	sm := readSink(ctx, t, consumer)
	assert.Equal(t, "gale", sm.Doc.EventID)
	assert.Equal(t, 48.85, sm.Doc.Geo.Lat)

	// Verify no second message arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
