// Package kafka mirrors order lifecycle transitions to Kafka for
// downstream analytics/compliance consumers. It never sits on the write
// path the orchestrator depends on: AuditRepository wraps the postgres
// LifecycleLogRepository and never turns a publish failure into an Append
// failure. It publishes as soon as the wrapped Append returns, which for
// an Append inside the caller's transaction is before that transaction
// commits; a later rollback does not retract the published message.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

// TopicOrderLifecycle is the Kafka topic every lifecycle transition is
// mirrored to. Format: {domain}.{entity}.{event}.v1.
const TopicOrderLifecycle = "oms.order.lifecycle.v1"

const metadataKeyPartitionKey = "partition_key"

type lifecycleEvent struct {
	OrderID        int64   `json:"order_id"`
	FSMRuntimeID   int64   `json:"fsm_runtime_id"`
	FromState      string  `json:"from_state"`
	ToState        string  `json:"to_state"`
	TriggerEvent   *string `json:"trigger_event,omitempty"`
	ActorType      string  `json:"actor_type"`
	ActorID        string  `json:"actor_id"`
	Comment        string  `json:"comment,omitempty"`
	EventCreatedAt string  `json:"event_created_at"`
}

// LifecyclePublisher publishes lifecycle transitions to TopicOrderLifecycle,
// partitioned by order ID so a single order's history stays ordered.
type LifecyclePublisher struct {
	publisher message.Publisher
}

func NewLifecyclePublisher(publisher message.Publisher) *LifecyclePublisher {
	return &LifecyclePublisher{publisher: publisher}
}

func (p *LifecyclePublisher) Publish(_ context.Context, entry runtime.LifecycleLog) error {
	event := lifecycleEvent{
		OrderID:        entry.OrderID,
		FSMRuntimeID:   entry.FSMRuntimeID,
		FromState:      string(entry.FromState),
		ToState:        string(entry.ToState),
		ActorType:      string(entry.ActorType),
		ActorID:        entry.ActorID,
		Comment:        entry.Comment,
		EventCreatedAt: entry.EventCreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	if entry.TriggerEvent != nil {
		v := string(*entry.TriggerEvent)
		event.TriggerEvent = &v
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataKeyPartitionKey, fmt.Sprintf("%d", entry.OrderID))

	if err := p.publisher.Publish(TopicOrderLifecycle, msg); err != nil {
		return fmt.Errorf("publish lifecycle event: %w", err)
	}

	return nil
}

func (p *LifecyclePublisher) Close() error {
	if err := p.publisher.Close(); err != nil {
		return fmt.Errorf("lifecycle publisher close: %w", err)
	}

	return nil
}

// AuditRepository decorates a ports.LifecycleLogRepository, mirroring every
// successful Append to Kafka. publisher may be nil (Kafka unreachable at
// startup); in that case Append behaves exactly like the wrapped repository.
type AuditRepository struct {
	inner     ports.LifecycleLogRepository
	publisher *LifecyclePublisher
	log       logger.Logger
}

func NewAuditRepository(inner ports.LifecycleLogRepository, publisher *LifecyclePublisher, log logger.Logger) *AuditRepository {
	return &AuditRepository{inner: inner, publisher: publisher, log: log}
}

func (a *AuditRepository) Append(ctx context.Context, entry runtime.LifecycleLog) error {
	if err := a.inner.Append(ctx, entry); err != nil {
		return err
	}

	if a.publisher == nil {
		return nil
	}

	if err := a.publisher.Publish(ctx, entry); err != nil {
		a.log.Warn("kafka: failed to publish lifecycle event",
			slog.Int64("order_id", entry.OrderID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

func (a *AuditRepository) ListByOrder(ctx context.Context, orderID int64) ([]runtime.LifecycleLog, error) {
	return a.inner.ListByOrder(ctx, orderID)
}

var _ ports.LifecycleLogRepository = (*AuditRepository)(nil)
