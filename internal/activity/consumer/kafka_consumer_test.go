package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// fakeReader entrega as mensagens (ou erros) em ordem e depois bloqueia
type fakeReader struct {
	mu    sync.Mutex
	queue []any
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		if err, ok := next.(error); ok {
			return kafka.Message{}, err
		}
		return next.(kafka.Message), nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (b *fakeBroadcaster) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.channels = append(b.channels, channel)
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.payloads)
}

type fakeInvalidator struct{ calls int }

func (i *fakeInvalidator) Invalidate(context.Context) error {
	i.calls++
	return nil
}

type fakeDLQ struct{ msgs []kafka.Message }

func (d *fakeDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	d.msgs = append(d.msgs, msgs...)
	return nil
}

type stageCounter struct {
	mu     sync.Mutex
	stages map[string]int
}

func (c *stageCounter) inc(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stages == nil {
		c.stages = map[string]int{}
	}
	c.stages[stage]++
}

func (c *stageCounter) get(stage string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stages[stage]
}

func changeMsg(t *testing.T, typ, betID, userID string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(events.BetChange{
		Type:     typ,
		Bet:      events.BetRow{ID: betID, UserID: userID, Stake: 50, Status: "pending"},
		TsUnixMs: 1741975200000,
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(userID), Value: b}
}

func newProcessor(b *fakeBroadcaster, inv *fakeInvalidator, dlq *fakeDLQ, errs *stageCounter) *Processor {
	return &Processor{
		Log:         zap.NewNop(),
		Broadcaster: b,
		Channel:     "bet_changes_broadcast",
		Leaderboard: inv,
		DLQ:         dlq,
		OnError:     errs.inc,
		RetryDelay:  time.Millisecond,
	}
}

func TestHandle_BroadcastsChange(t *testing.T) {
	b, inv, dlq, errs := &fakeBroadcaster{}, &fakeInvalidator{}, &fakeDLQ{}, &stageCounter{}
	p := newProcessor(b, inv, dlq, errs)

	// Execute
	err := p.Handle(context.Background(), changeMsg(t, events.ChangeInsert, "b1", "u1"))

	// Assert
	require.NoError(t, err)
	require.Len(t, b.payloads, 1)
	assert.Equal(t, "bet_changes_broadcast", b.channels[0])
	var got events.BetChange
	require.NoError(t, json.Unmarshal(b.payloads[0], &got))
	assert.Equal(t, "b1", got.Bet.ID)
	assert.Equal(t, 1, inv.calls, "inserts change the bet count")
	assert.Empty(t, dlq.msgs)
}

func TestHandle_EveryChangeInvalidatesLeaderboard(t *testing.T) {
	b, inv, dlq, errs := &fakeBroadcaster{}, &fakeInvalidator{}, &fakeDLQ{}, &stageCounter{}
	p := newProcessor(b, inv, dlq, errs)

	require.NoError(t, p.Handle(context.Background(), changeMsg(t, events.ChangeInsert, "b1", "u1")))
	require.NoError(t, p.Handle(context.Background(), changeMsg(t, events.ChangeUpdate, "b1", "u1")))
	require.NoError(t, p.Handle(context.Background(), changeMsg(t, events.ChangeDelete, "b2", "u1")))

	assert.Equal(t, 3, inv.calls)
	assert.Equal(t, 3, b.count())
}

func TestHandle_InvalidMessagesGoToDLQ(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", `{oops`},
		{"unknown type", `{"type":"UPSERT","bet":{"id":"b1","user_id":"u1"}}`},
		{"missing bet id", `{"type":"INSERT","bet":{"user_id":"u1"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, inv, dlq, errs := &fakeBroadcaster{}, &fakeInvalidator{}, &fakeDLQ{}, &stageCounter{}
			p := newProcessor(b, inv, dlq, errs)

			err := p.Handle(context.Background(), kafka.Message{Key: []byte("u1"), Value: []byte(tt.value)})

			require.ErrorIs(t, err, errInvalidChange)
			assert.Equal(t, 0, b.count())
			assert.Equal(t, 1, errs.get("decode"))
			require.Len(t, dlq.msgs, 1)
			assert.Equal(t, tt.value, string(dlq.msgs[0].Value))
			assert.Equal(t, "error", dlq.msgs[0].Headers[0].Key)
		})
	}
}

func TestHandle_PublishError(t *testing.T) {
	b := &fakeBroadcaster{err: assert.AnError}
	errs := &stageCounter{}
	p := newProcessor(b, &fakeInvalidator{}, &fakeDLQ{}, errs)

	err := p.Handle(context.Background(), changeMsg(t, events.ChangeInsert, "b1", "u1"))

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, errs.get("publish"))
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	b, errs := &fakeBroadcaster{}, &stageCounter{}
	p := newProcessor(b, &fakeInvalidator{}, &fakeDLQ{}, errs)
	p.Reader = &fakeReader{queue: []any{
		changeMsg(t, events.ChangeInsert, "b1", "u1"),
		assert.AnError,
		changeMsg(t, events.ChangeUpdate, "b1", "u1"),
	}}
	var consumed int
	var mu sync.Mutex
	p.OnConsumed = func() { mu.Lock(); consumed++; mu.Unlock() }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return b.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	mu.Lock()
	assert.Equal(t, 2, consumed)
	mu.Unlock()
	assert.Equal(t, 1, errs.get("read"))
}
