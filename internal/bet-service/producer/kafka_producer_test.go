package producer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

type mockKafkaWriter struct {
	messages    []kafka.Message
	shouldError bool
	closed      bool
}

func (m *mockKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.shouldError {
		return assert.AnError
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed = true
	return nil
}

func TestNewKafkaPublisher(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "bet_events", "market_settled")

	assert.NotNil(t, p.bets)
	assert.NotNil(t, p.settled)
}

func TestPublishBetChange_KeyedByUser(t *testing.T) {
	bets := &mockKafkaWriter{}
	p := &KafkaPublisher{bets: bets, settled: &mockKafkaWriter{}}
	payout := int64(180)
	change := events.BetChange{
		Type: events.ChangeUpdate,
		Bet: events.BetRow{
			ID:           "b1",
			UserID:       "u1",
			BetOptionID:  "o1",
			Stake:        100,
			Status:       "won",
			ActualPayout: &payout,
			PlacedAt:     time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC),
		},
		TsUnixMs: 1741975200000,
	}

	// Execute
	err := p.PublishBetChange(context.Background(), change)

	// Assert
	require.NoError(t, err)
	require.Len(t, bets.messages, 1)
	msg := bets.messages[0]
	assert.Equal(t, "u1", string(msg.Key))

	var got events.BetChange
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, change, got)
	assert.Contains(t, string(msg.Value), `"actual_payout":180`)
}

func TestPublishMarketSettled_KeyedByMarket(t *testing.T) {
	settled := &mockKafkaWriter{}
	p := &KafkaPublisher{bets: &mockKafkaWriter{}, settled: settled}

	err := p.PublishMarketSettled(context.Background(), events.MarketSettled{MarketKind: "fun", MarketID: "f1", Won: 2})

	require.NoError(t, err)
	require.Len(t, settled.messages, 1)
	assert.Equal(t, "fun:f1", string(settled.messages[0].Key))
}

func TestPublish_WriterError(t *testing.T) {
	p := &KafkaPublisher{bets: &mockKafkaWriter{shouldError: true}, settled: &mockKafkaWriter{shouldError: true}}

	err := p.PublishBetChange(context.Background(), events.BetChange{Type: events.ChangeInsert})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "write kafka message")

	err = p.PublishMarketSettled(context.Background(), events.MarketSettled{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClose_ClosesBothWriters(t *testing.T) {
	bets, settled := &mockKafkaWriter{}, &mockKafkaWriter{}
	p := &KafkaPublisher{bets: bets, settled: settled}

	require.NoError(t, p.Close())
	assert.True(t, bets.closed)
	assert.True(t, settled.closed)
}
