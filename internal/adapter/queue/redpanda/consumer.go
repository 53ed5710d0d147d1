package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// AnalyzeHandler processes one dequeued analysis task.
type AnalyzeHandler interface {
	Process(ctx context.Context, payload domain.AnalyzeTaskPayload) error
}

// Consumer wraps a Kafka consumer with read-committed, exactly-once
// processing semantics.
type Consumer struct {
	session     *kgo.GroupTransactSession
	handler     AnalyzeHandler
	groupID     string
	topic       string
	concurrency int
}

// NewConsumer constructs a Consumer for the analyze topic.
func NewConsumer(brokers []string, groupID string, handler AnalyzeHandler, concurrency int) (*Consumer, error) {
	return NewConsumerWithTopic(brokers, groupID, "fitscore-consumer", handler, concurrency, TopicAnalyze)
}

// NewConsumerWithTopic constructs a Consumer for a specific topic so tests
// can isolate.
func NewConsumerWithTopic(brokers []string, groupID, transactionalID string, handler AnalyzeHandler, concurrency int, topic string) (*Consumer, error) {
	slog.Info("creating redpanda consumer",
		slog.Any("brokers", brokers),
		slog.String("group_id", groupID),
		slog.String("topic", topic))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("temp client: %w", err)
	}
	defer tempClient.Close()
	if err := createTopicIfNotExists(context.Background(), tempClient, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	kotelTracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	kotelService := kotel.NewKotel(kotel.WithTracer(kotelTracer))

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(kotelService.Hooks()...),

		kgo.DialTimeout(10 * time.Second),
		kgo.SessionTimeout(30 * time.Second),
		kgo.HeartbeatInterval(3 * time.Second),
		kgo.RebalanceTimeout(10 * time.Second),
		kgo.FetchMaxWait(5 * time.Second),

		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(1 * time.Second),
	}
	session, err := kgo.NewGroupTransactSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda transactional session: %w", err)
	}

	return &Consumer{
		session:     session,
		handler:     handler,
		groupID:     groupID,
		topic:       topic,
		concurrency: concurrency,
	}, nil
}

// Start consumes until the context is cancelled. Records fan out to a
// bounded worker pool; offsets are marked only after the handler returns.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting redpanda consumer",
		slog.String("group_id", c.groupID),
		slog.String("topic", c.topic),
		slog.Int("concurrency", c.concurrency))

	sem := make(chan struct{}, c.concurrency)
	for {
		if ctx.Err() != nil {
			slog.Info("redpanda consumer shutting down")
			return ctx.Err()
		}

		fetches := c.session.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if fe.Err == context.Canceled {
					return ctx.Err()
				}
				slog.Error("fetch error",
					slog.String("topic", fe.Topic),
					slog.Int("partition", int(fe.Partition)),
					slog.Any("error", fe.Err))
			}
			time.Sleep(time.Second)
			continue
		}

		fetches.EachRecord(func(record *kgo.Record) {
			sem <- struct{}{}
			go func(rec *kgo.Record) {
				defer func() { <-sem }()
				if err := c.processRecord(ctx, rec); err != nil {
					slog.Error("failed to process record",
						slog.Int64("offset", rec.Offset),
						slog.Int("partition", int(rec.Partition)),
						slog.Any("error", err))
				}
				c.session.Client().MarkCommitRecords(rec)
			}(record)
		})
	}
}

// processRecord unmarshals and runs one analysis task. Malformed payloads
// are dropped; the task row will age into failed via the stale-status sweep.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) error {
	tracer := otel.Tracer("queue.consumer")
	ctx, span := tracer.Start(ctx, "ProcessAnalyzeTask")
	defer span.End()

	var payload domain.AnalyzeTaskPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	slog.Info("processing analyze task",
		slog.String("analysis_id", payload.AnalysisID),
		slog.String("user_id", payload.UserID))
	if err := c.handler.Process(ctx, payload); err != nil {
		return fmt.Errorf("analyze task %s: %w", payload.AnalysisID, err)
	}
	return nil
}

// Close closes the consumer session.
func (c *Consumer) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	return nil
}
