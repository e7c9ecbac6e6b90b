package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/kafka"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/sse"
)

// Sink delivers a relayed outbox event somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, event audit.OutboxEvent) error
}

// KafkaSink publishes events keyed by request id, so the transitions of one
// request stay ordered within a partition.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string {
	return "kafka:" + s.producer.Topic()
}

func (s *KafkaSink) Send(ctx context.Context, event audit.OutboxEvent) error {
	return s.producer.Produce(ctx, event.AggregateID, event.Payload, map[string]string{
		"event_id":       event.ID,
		"event_type":     event.EventType,
		"aggregate_kind": event.AggregateKind,
	})
}

// HubSink pushes transition events to connected SSE subscribers. Delivery is
// best effort.
type HubSink struct {
	hub *sse.Hub
}

func NewHubSink(hub *sse.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string {
	return "sse"
}

func (s *HubSink) Send(_ context.Context, event audit.OutboxEvent) error {
	var e workflow.Event
	if err := json.Unmarshal(event.Payload, &e); err != nil {
		return fmt.Errorf("failed to decode outbox payload: %w", err)
	}
	s.hub.PublishToMany(Topics(e), sse.Event{
		ID:    event.ID,
		Event: event.EventType,
		Data:  e,
	})
	return nil
}

const TopicAll = "audit"

func departmentTopic(id string) string { return "department:" + id }
func employeeTopic(id string) string   { return "employee:" + id }

// Topics lists the hub topics an event is published on.
func Topics(e workflow.Event) []string {
	topics := []string{TopicAll}
	if e.DepartmentID != "" {
		topics = append(topics, departmentTopic(e.DepartmentID))
	}
	if e.EmployeeID != "" {
		topics = append(topics, employeeTopic(e.EmployeeID))
	}
	return topics
}

// SubscriberTopics lists the topics actor may listen on: every event for HRD
// and super admins, their departments for managers, and their own requests.
func SubscriberTopics(actor workflow.Actor) []string {
	if actor.IsSuperAdmin || actor.IsHRDManager {
		return []string{TopicAll}
	}
	var topics []string
	if actor.IsDepartmentManager {
		for _, id := range actor.ManagedDepartments {
			topics = append(topics, departmentTopic(id))
		}
	}
	if actor.EmployeeID != "" {
		topics = append(topics, employeeTopic(actor.EmployeeID))
	}
	return topics
}
