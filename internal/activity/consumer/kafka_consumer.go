package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// messageReader é o subconjunto de *kafka.Reader usado pelo loop
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type dlqWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Broadcaster publica no canal Redis lido pelo /ws do bet-service
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Invalidator descarta o ranking em cache
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

var errInvalidChange = errors.New("invalid bet change")

// Processor consome o tópico bet_events e repassa cada mudança para o
// Redis Pub/Sub. Mensagens ilegíveis vão para a DLQ.
type Processor struct {
	Log         *zap.Logger
	Reader      messageReader
	Broadcaster Broadcaster
	Channel     string
	Leaderboard Invalidator // opcional
	DLQ         dlqWriter   // opcional

	OnConsumed  func()       // métricas
	OnBroadcast func()       // métricas
	OnError     func(string) // métricas por estágio

	RetryDelay time.Duration
}

// Run inicia o loop principal; retorna quando o contexto é cancelado
func (p *Processor) Run(ctx context.Context) error {
	delay := p.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		_ = p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; o erro retornado já foi logado e contado
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	change, err := decode(m.Value)
	if err != nil {
		p.Log.Warn("invalid bet change", zap.ByteString("key", m.Key), zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, err)
		return err
	}

	// toda mudança de aposta mexe no ranking (saldo ou total de apostas)
	if p.Leaderboard != nil {
		if err := p.Leaderboard.Invalidate(ctx); err != nil {
			p.Log.Warn("leaderboard invalidate failed", zap.Error(err))
			p.fail("cache")
		}
	}

	b, err := json.Marshal(change)
	if err != nil {
		p.fail("encode")
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Publish(pubCtx, p.Channel, b); err != nil {
		p.Log.Warn("bet change broadcast failed", zap.String("betId", change.Bet.ID), zap.Error(err))
		p.fail("publish")
		return err
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
	p.Log.Debug("bet change broadcast",
		zap.String("type", change.Type),
		zap.String("betId", change.Bet.ID),
		zap.String("userId", change.Bet.UserID),
	)
	return nil
}

func decode(raw []byte) (events.BetChange, error) {
	var c events.BetChange
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: %v", errInvalidChange, err)
	}
	switch c.Type {
	case events.ChangeInsert, events.ChangeUpdate, events.ChangeDelete:
	default:
		return c, fmt.Errorf("%w: unknown type %q", errInvalidChange, c.Type)
	}
	if c.Bet.ID == "" || c.Bet.UserID == "" {
		return c, fmt.Errorf("%w: bet id and user id are required", errInvalidChange)
	}
	return c, nil
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: []kafka.Header{{Key: "error", Value: []byte(cause.Error())}},
		Time:    time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Warn("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
