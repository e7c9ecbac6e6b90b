package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOutbox struct {
	events map[string]*audit.OutboxEvent
	order  []string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{events: map[string]*audit.OutboxEvent{}}
}

func (f *fakeOutbox) Insert(_ context.Context, e audit.OutboxEvent) error {
	if len(e.Payload) == 0 {
		return audit.ErrEmptyPayload
	}
	f.events[e.ID] = &e
	f.order = append(f.order, e.ID)
	return nil
}

func (f *fakeOutbox) ClaimPending(_ context.Context, limit int, now time.Time) ([]audit.OutboxEvent, error) {
	var out []audit.OutboxEvent
	for _, id := range f.order {
		e := f.events[id]
		if e.Status == audit.StatusSent {
			continue
		}
		if e.NextRetryAt != nil && e.NextRetryAt.After(now) {
			continue
		}
		out = append(out, *e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id string, at time.Time) error {
	e, ok := f.events[id]
	if !ok {
		return audit.ErrOutboxEventNotFound
	}
	e.Status = audit.StatusSent
	e.SentAt = &at
	e.LastError = nil
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id, reason string, next time.Time, delivered []string) error {
	e, ok := f.events[id]
	if !ok {
		return audit.ErrOutboxEventNotFound
	}
	e.Status = audit.StatusFailed
	e.RetryCount++
	e.LastError = &reason
	e.NextRetryAt = &next
	e.DeliveredSinks = delivered
	return nil
}

type fakeSink struct {
	name string
	err  error
	sent []string
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Send(_ context.Context, e audit.OutboxEvent) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, e.ID)
	return nil
}

func transitionEvent(id string) workflow.Event {
	return workflow.Event{
		ID:           id,
		Kind:         workflow.KindOvertime,
		RequestID:    "req-" + id,
		EmployeeID:   "emp-1",
		DepartmentID: "dept-1",
		OldStatus:    workflow.StatusPending,
		NewStatus:    workflow.StatusManagerApproved,
		ActorID:      "user-mgr",
		OccurredAt:   time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecorderWritesPendingEvent(t *testing.T) {
	outbox := newFakeOutbox()
	rec := NewRecorder(outbox)

	require.NoError(t, rec.Record(context.Background(), transitionEvent("ev-1")))

	stored := outbox.events["ev-1"]
	require.NotNil(t, stored)
	assert.Equal(t, audit.StatusPending, stored.Status)
	assert.Equal(t, "overtime", stored.AggregateKind)
	assert.Equal(t, "req-ev-1", stored.AggregateID)
	assert.Equal(t, audit.EventTypeTransition, stored.EventType)

	var decoded workflow.Event
	require.NoError(t, json.Unmarshal(stored.Payload, &decoded))
	assert.Equal(t, workflow.StatusPending, decoded.OldStatus)
	assert.Equal(t, workflow.StatusManagerApproved, decoded.NewStatus)
	assert.Equal(t, "user-mgr", decoded.ActorID)
}

func newTestRelay(outbox *fakeOutbox, now time.Time, sinks ...Sink) *Relay {
	r := NewRelay(inlineTx{}, outbox, RelayConfig{BatchSize: 10, RetryBackoff: 10 * time.Second, MaxBackoff: time.Minute}, sinks...)
	r.now = func() time.Time { return now }
	return r
}

func TestRelaySendsPendingEvents(t *testing.T) {
	outbox := newFakeOutbox()
	rec := NewRecorder(outbox)
	for _, id := range []string{"ev-1", "ev-2"} {
		require.NoError(t, rec.Record(context.Background(), transitionEvent(id)))
	}

	first, second := &fakeSink{name: "kafka"}, &fakeSink{name: "sse"}
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	stats, err := newTestRelay(outbox, now, first, second).RelayPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, audit.RelayStats{Claimed: 2, Sent: 2}, stats)
	assert.Equal(t, []string{"ev-1", "ev-2"}, first.sent)
	assert.Equal(t, []string{"ev-1", "ev-2"}, second.sent)
	assert.Equal(t, audit.StatusSent, outbox.events["ev-1"].Status)

	stats, err = newTestRelay(outbox, now, first, second).RelayPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed)
}

func TestRelayRetriesWithBackoff(t *testing.T) {
	outbox := newFakeOutbox()
	require.NoError(t, NewRecorder(outbox).Record(context.Background(), transitionEvent("ev-1")))

	broken := &fakeSink{name: "kafka", err: errors.New("broker down")}
	hub := &fakeSink{name: "sse"}
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	stats, err := newTestRelay(outbox, now, broken, hub).RelayPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, audit.RelayStats{Claimed: 1, Failed: 1}, stats)
	assert.Empty(t, hub.sent, "later sinks are skipped after a failure")

	stored := outbox.events["ev-1"]
	assert.Equal(t, audit.StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "kafka: broker down")
	assert.Equal(t, now.Add(10*time.Second), *stored.NextRetryAt)

	// Not due yet.
	stats, err = newTestRelay(outbox, now.Add(5*time.Second), broken, hub).RelayPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed)

	broken.err = nil
	stats, err = newTestRelay(outbox, now.Add(11*time.Second), broken, hub).RelayPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, []string{"ev-1"}, hub.sent)
	assert.Nil(t, stored.LastError)
}

func TestRelayRetryResendsOnlyToFailedSinks(t *testing.T) {
	outbox := newFakeOutbox()
	require.NoError(t, NewRecorder(outbox).Record(context.Background(), transitionEvent("ev-1")))

	kafka := &fakeSink{name: "kafka"}
	hub := &fakeSink{name: "sse", err: errors.New("hub closed")}
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	stats, err := newTestRelay(outbox, now, kafka, hub).RelayPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, audit.RelayStats{Claimed: 1, Failed: 1}, stats)
	assert.Equal(t, []string{"ev-1"}, kafka.sent)
	assert.Equal(t, []string{"kafka"}, outbox.events["ev-1"].DeliveredSinks)

	hub.err = nil
	stats, err = newTestRelay(outbox, now.Add(11*time.Second), kafka, hub).RelayPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, []string{"ev-1"}, kafka.sent, "kafka must not see the event twice")
	assert.Equal(t, []string{"ev-1"}, hub.sent)
	assert.Equal(t, audit.StatusSent, outbox.events["ev-1"].Status)
}

func TestRelayBackoff(t *testing.T) {
	r := NewRelay(inlineTx{}, newFakeOutbox(), RelayConfig{RetryBackoff: 15 * time.Second, MaxBackoff: time.Minute})
	assert.Equal(t, 15*time.Second, r.Backoff(0))
	assert.Equal(t, 15*time.Second, r.Backoff(1))
	assert.Equal(t, 30*time.Second, r.Backoff(2))
	assert.Equal(t, time.Minute, r.Backoff(3))
	assert.Equal(t, time.Minute, r.Backoff(50))
}

func TestHubSinkRoutesByTopic(t *testing.T) {
	hub := sse.NewHub()
	hrd, stopHRD := hub.Subscribe(SubscriberTopics(workflow.Actor{IsHRDManager: true})...)
	defer stopHRD()
	mgr, stopMgr := hub.Subscribe(SubscriberTopics(workflow.Actor{
		EmployeeID:          "emp-mgr",
		IsDepartmentManager: true,
		ManagedDepartments:  []string{"dept-1"},
	})...)
	defer stopMgr()
	other, stopOther := hub.Subscribe(SubscriberTopics(workflow.Actor{EmployeeID: "emp-2"})...)
	defer stopOther()

	payload, err := json.Marshal(transitionEvent("ev-1"))
	require.NoError(t, err)
	err = NewHubSink(hub).Send(context.Background(), audit.OutboxEvent{ID: "ev-1", EventType: audit.EventTypeTransition, Payload: payload})
	require.NoError(t, err)

	require.Len(t, hrd, 1)
	require.Len(t, mgr, 1)
	assert.Empty(t, other)

	e := <-mgr
	assert.Equal(t, "department:dept-1", e.Topic)
	data, ok := e.Data.(workflow.Event)
	require.True(t, ok)
	assert.Equal(t, "req-ev-1", data.RequestID)
}

func TestHubSinkRejectsBadPayload(t *testing.T) {
	err := NewHubSink(sse.NewHub()).Send(context.Background(), audit.OutboxEvent{ID: "x", Payload: []byte("{")})
	assert.Error(t, err)
}

func TestSubscriberTopics(t *testing.T) {
	assert.Equal(t, []string{TopicAll}, SubscriberTopics(workflow.Actor{IsSuperAdmin: true, EmployeeID: "e"}))

	topics := SubscriberTopics(workflow.Actor{
		EmployeeID:          "emp-1",
		IsDepartmentManager: true,
		ManagedDepartments:  []string{"d2", "d1"},
	})
	sort.Strings(topics)
	assert.Equal(t, []string{"department:d1", "department:d2", "employee:emp-1"}, topics)

	assert.Equal(t, []string{"employee:emp-1"}, SubscriberTopics(workflow.Actor{EmployeeID: "emp-1"}))
}
