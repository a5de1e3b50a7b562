package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techstore/pos/internal/ledger"
)

type mockSource struct {
	mu        sync.Mutex
	events    []*ledger.OutboxEvent
	fetchErr  error
	processed []string
	markErr   error
}

func (m *mockSource) UnprocessedEvents(_ context.Context, limit int) ([]*ledger.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *mockSource) MarkEventProcessed(_ context.Context, id string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.mu.Lock()
	m.processed = append(m.processed, id)
	m.mu.Unlock()
	return nil
}

func (m *mockSource) processedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.processed)
}

type mockWriter struct {
	written  []kafka.Message
	writeErr error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, msgs...)
	return nil
}

func event(id, aggregateID string) *ledger.OutboxEvent {
	return &ledger.OutboxEvent{
		ID:          id,
		AggregateID: aggregateID,
		EventType:   ledger.EventSaleCompleted,
		Payload:     []byte(`{"total":"280.00"}`),
		CreatedAt:   time.Now().UTC(),
	}
}

func newTestPoller(source EventSource, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{tick: time.Millisecond, batch: 100, source: source, writer: writer}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	source := &mockSource{events: []*ledger.OutboxEvent{
		event("ev-1", "0000000001"),
		event("ev-2", "0000000002"),
	}}
	writer := &mockWriter{}

	newTestPoller(source, writer).processUnpublishedEvents(context.Background())

	require.Len(t, writer.written, 2)
	assert.Equal(t, []byte("0000000001"), writer.written[0].Key)
	assert.Equal(t, []byte(`{"total":"280.00"}`), writer.written[0].Value)
	require.Len(t, writer.written[0].Headers, 1)
	assert.Equal(t, "event_type", writer.written[0].Headers[0].Key)
	assert.Equal(t, []byte(ledger.EventSaleCompleted), writer.written[0].Headers[0].Value)

	assert.Equal(t, []string{"ev-1", "ev-2"}, source.processed)
}

func TestProcessUnpublishedEvents_WriteFailureLeavesUnprocessed(t *testing.T) {
	source := &mockSource{events: []*ledger.OutboxEvent{event("ev-1", "0000000001")}}
	writer := &mockWriter{writeErr: errors.New("broker down")}

	newTestPoller(source, writer).processUnpublishedEvents(context.Background())

	assert.Empty(t, source.processed)
}

func TestProcessUnpublishedEvents_FetchFailureWritesNothing(t *testing.T) {
	source := &mockSource{fetchErr: errors.New("db down")}
	writer := &mockWriter{}

	newTestPoller(source, writer).processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.written)
}

func TestProcessUnpublishedEvents_MarkFailureStillPublishesRest(t *testing.T) {
	source := &mockSource{
		events:  []*ledger.OutboxEvent{event("ev-1", "0000000001"), event("ev-2", "0000000002")},
		markErr: errors.New("db down"),
	}
	writer := &mockWriter{}

	newTestPoller(source, writer).processUnpublishedEvents(context.Background())

	// at-least-once: both went out, neither is marked, both go out again
	assert.Len(t, writer.written, 2)
	assert.Empty(t, source.processed)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	source := &mockSource{events: []*ledger.OutboxEvent{event("ev-1", "0000000001")}}
	writer := &mockWriter{}
	p := newTestPoller(source, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// let at least one tick fire
	assert.Eventually(t, func() bool {
		return source.processedCount() > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestNewOutboxPoller_Defaults(t *testing.T) {
	p := NewOutboxPoller(&mockSource{}, "localhost:9092")

	assert.Equal(t, time.Second, p.tick)
	assert.Equal(t, 100, p.batch)
	require.IsType(t, &kafka.Writer{}, p.writer)
	w := p.writer.(*kafka.Writer)
	assert.Equal(t, "pos-sales", w.Topic)
}
