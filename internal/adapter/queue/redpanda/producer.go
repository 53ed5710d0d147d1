// Package redpanda provides Redpanda/Kafka queue integration for analysis
// tasks. Production uses a transactional producer and a read-committed
// group-transact consumer so each analysis is processed once.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/domain"
	obsctx "github.com/kerjaflow/fitscore/internal/observability"
)

// TopicAnalyze is the Kafka topic for analysis tasks.
const TopicAnalyze = "analyze-jobs"

// Producer wraps a transactional Kafka producer and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	// Serializes transactions; a kgo client allows one open transaction.
	transactionChan chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "fitscore-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID, mainly so tests can avoid conflicts.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers), slog.String("transactional_id", transactionalID))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicAnalyze, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", TopicAnalyze),
			slog.Any("error", err))
	}

	return &Producer{
		client:          client,
		transactionChan: make(chan struct{}, 1),
	}, nil
}

// EnqueueAnalyze enqueues an analysis task with exactly-once semantics and
// returns the analysis id as the task id.
func (p *Producer) EnqueueAnalyze(ctx domain.Context, payload domain.AnalyzeTaskPayload) (string, error) {
	return p.EnqueueAnalyzeToTopic(ctx, payload, TopicAnalyze)
}

// EnqueueAnalyzeToTopic enqueues to a specific topic so tests can isolate.
func (p *Producer) EnqueueAnalyzeToTopic(ctx domain.Context, payload domain.AnalyzeTaskPayload, topic string) (string, error) {
	select {
	case p.transactionChan <- struct{}{}:
		defer func() { <-p.transactionChan }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		// Key by analysis id so per-analysis ordering holds.
		Key:   []byte(payload.AnalysisID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "analysis_id", Value: []byte(payload.AnalysisID)},
			{Key: "user_id", Value: []byte(payload.UserID)},
		},
	}
	// Carry the originating HTTP request id so worker logs correlate.
	if rid := obsctx.RequestIDFromContext(ctx); rid != "" {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: "request_id", Value: []byte(rid)})
	}

	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	observability.EnqueueJob("analyze")
	slog.Info("analysis task enqueued",
		slog.String("topic", topic),
		slog.String("analysis_id", payload.AnalysisID))
	return payload.AnalysisID, nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
