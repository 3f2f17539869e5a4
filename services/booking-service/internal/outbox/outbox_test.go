package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"github.com/servly/servly/libs/kafkax"
	"github.com/servly/servly/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestBookingEvent(t *testing.T) {
	b := model.Booking{
		ID:         "b1",
		ProviderID: "p1",
		CustomerID: "c1",
		DateTime:   time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		Status:     model.StatusAccepted,
		UpdatedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	evt, err := BookingEvent(TopicBookingStatusChanged, b, model.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, AggregateBooking, evt.AggregateType)
	assert.Equal(t, "b1", evt.AggregateID)
	assert.Equal(t, "p1", evt.PartitionKey)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "2024-06-03T09:00:00Z", payload["date_time"])
	assert.Equal(t, "accepted", payload["status"])
	assert.Equal(t, "pending", payload["previous_status"])
	assert.NotContains(t, payload, "service_id")
}

func TestRecordMessage(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	msg := RecordMessage(context.Background(), Record{
		EventID:      "e1",
		AggregateID:  "b1",
		EventType:    TopicBookingCreated,
		PartitionKey: "p1",
		Payload:      []byte(`{}`),
		Traceparent:  traceparent,
	})
	assert.Equal(t, TopicBookingCreated, msg.Topic)
	assert.Equal(t, "p1", string(msg.Key))
	assert.Equal(t, kafkax.EventMeta{EventID: "e1", EventType: TopicBookingCreated}, kafkax.ExtractEventMeta(msg))
	assert.Equal(t, traceparent, kafkax.HeaderValue(msg.Headers, "traceparent"))

	msg = RecordMessage(context.Background(), Record{AggregateID: "b2", EventType: TopicBookingCreated})
	assert.Equal(t, "b2", string(msg.Key))
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeBeginner struct{ tx *fakeTx }

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	b.tx = &fakeTx{}
	return b.tx, nil
}

type fakeRecords struct {
	pending   []Record
	published []int64
}

func (f *fakeRecords) FetchUnpublished(_ context.Context, _ pgx.Tx, limit int) ([]Record, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeRecords) MarkPublished(_ context.Context, _ pgx.Tx, ids []int64) error {
	f.published = append(f.published, ids...)
	return nil
}

type fakeWriter struct {
	err  error
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func newTestPublisher(records *fakeRecords) (*Publisher, *fakeBeginner) {
	begin := &fakeBeginner{}
	return &Publisher{
		begin:     begin,
		repo:      records,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		batchSize: 10,
	}, begin
}

func TestPublishBatch(t *testing.T) {
	records := &fakeRecords{pending: []Record{
		{ID: 1, EventID: "e1", AggregateID: "b1", EventType: TopicBookingCreated, PartitionKey: "p1", Payload: []byte(`{}`)},
		{ID: 2, EventID: "e2", AggregateID: "b2", EventType: TopicBookingStatusChanged, PartitionKey: "p1", Payload: []byte(`{}`)},
	}}
	p, begin := newTestPublisher(records)
	writer := &fakeWriter{}

	n, err := p.publishBatch(context.Background(), writer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, records.published)
	assert.True(t, begin.tx.committed)
	require.Len(t, writer.msgs, 2)
	assert.Equal(t, TopicBookingStatusChanged, writer.msgs[1].Topic)
	assert.Equal(t, "p1", string(writer.msgs[1].Key))
}

func TestPublishBatchWriteFailureLeavesRowsUnpublished(t *testing.T) {
	records := &fakeRecords{pending: []Record{
		{ID: 7, EventID: "e7", AggregateID: "b7", EventType: TopicBookingCreated, PartitionKey: "p1", Payload: []byte(`{}`)},
	}}
	p, begin := newTestPublisher(records)

	n, err := p.publishBatch(context.Background(), &fakeWriter{err: errors.New("broker unavailable")})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, records.published)
	assert.False(t, begin.tx.committed)
	assert.True(t, begin.tx.rolledBack)
}

func TestPublishBatchEmpty(t *testing.T) {
	p, begin := newTestPublisher(&fakeRecords{})
	writer := &fakeWriter{}

	n, err := p.publishBatch(context.Background(), writer)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.msgs)
	assert.True(t, begin.tx.committed)
}

func TestRunWithoutDatabaseReturns(t *testing.T) {
	p := NewPublisher(nil, NewRepository(), slog.New(slog.NewJSONHandler(io.Discard, nil)), PublisherConfig{Brokers: "localhost:9092"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Run(ctx)
	assert.NoError(t, ctx.Err())
}
