package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

var at = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func offerEvent() model.Event {
	ev := model.NewEvent(model.EventWaitlistOffered, model.PoolKey{FlightID: "FL1", Cabin: model.CabinBusiness}, at)
	ev.WaitlistEntryID, ev.HoldID, ev.OwnerUserID, ev.Seats = "w-1", "h-1", "u-1", 2
	return ev
}

func TestEncodeDecode(t *testing.T) {
	ev := offerEvent()
	body, err := Encode(ev)
	require.NoError(t, err)

	got, err := Decode(body)

	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = Decode([]byte(`{"flight_id":"x"}`))
	assert.Error(t, err)
}

func TestAuditLine(t *testing.T) {
	line := AuditLine(offerEvent())

	assert.Equal(t,
		"[2025-03-01T10:00:00Z] waitlist.offered | flight=FL1 | cabin=business | hold_id=h-1 | waitlist_entry_id=w-1 | user_id=u-1 | seats=2\n",
		line)
}

func TestAuditHandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "seat-events.log")
	c := &AuditConsumer{Path: path, Log: zap.NewNop()}
	body, err := Encode(offerEvent())
	require.NoError(t, err)

	require.NoError(t, c.handle(body))
	require.NoError(t, c.handle(body))
	assert.Error(t, c.handle([]byte("not json")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, AuditLine(offerEvent())+AuditLine(offerEvent()), string(data))
}

func TestKafkaMessageKeyedByPool(t *testing.T) {
	msg, err := kafkaMessage(offerEvent())

	require.NoError(t, err)
	assert.Equal(t, "FL1/business", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "waitlist.offered", string(msg.Headers[0].Value))
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Publish(context.Background(), offerEvent()))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "waitlist.offered", fields["type"])
	assert.Equal(t, "FL1", fields["flight_id"])
}

type collectSink struct {
	mu   sync.Mutex
	got  []model.EventType
	fail bool
}

func (s *collectSink) Publish(_ context.Context, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev.Type)
	if s.fail {
		return errors.New("broker down")
	}
	return nil
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &collectSink{fail: true}
	d := NewDispatcher(sink, 8, time.Second, zap.NewNop())
	ctx := context.Background()

	for _, typ := range []model.EventType{model.EventHoldCreated, model.EventHoldReleased, model.EventWaitlistOffered} {
		require.NoError(t, d.Publish(ctx, model.Event{Type: typ}))
	}
	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Publish(ctx, model.Event{Type: model.EventHoldExpired}))

	assert.Equal(t, []model.EventType{model.EventHoldCreated, model.EventHoldReleased, model.EventWaitlistOffered}, sink.got)
}
