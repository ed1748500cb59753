package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("mail down")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(AllEvents, func(context.Context, Event) error {
		calls = append(calls, "all")
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.Error(t, err)
	assert.Equal(t, []string{"first", "second", "all"}, calls)
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestDispatcherRecoversPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	reached := false
	d.Subscribe(EventTicketSLABreached, func(context.Context, Event) error {
		panic("nil team")
	})
	d.Subscribe(AllEvents, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketSLABreached, TicketID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.True(t, reached)
}

func TestKafkaPublisherEnvelope(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisherWithWriter(w, "crm.ticket-events")

	event := Event{
		ID:        "evt-1",
		Type:      EventTicketSLABreached,
		TicketID:  "t-1",
		Actor:     SystemActor(),
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "crm.ticket-events", msg.Topic)
	assert.Equal(t, []byte("t-1"), msg.Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ticket_sla_breached", decoded["type"])
	assert.Equal(t, true, decoded["actor"].(map[string]any)["system"])
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	p := NewKafkaPublisherWithWriter(&recordingWriter{err: errors.New("broker down")}, "topic")
	assert.Error(t, p.Publish(context.Background(), Event{ID: "e"}))

	var nilPublisher *KafkaPublisher
	assert.Error(t, nilPublisher.Publish(context.Background(), Event{}))
}
