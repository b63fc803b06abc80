package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	sharedkafka "github.com/radieske/club-bet-platform/internal/shared/kafka"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// kafkaWriter é o subconjunto de *kafka.Writer usado aqui (mockável nos testes)
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica mudanças de apostas e liquidações de mercado
type KafkaPublisher struct {
	bets    kafkaWriter
	settled kafkaWriter
}

func NewKafkaPublisher(brokers []string, betTopic, settledTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		bets:    sharedkafka.NewWriter(brokers, betTopic),
		settled: sharedkafka.NewWriter(brokers, settledTopic),
	}
}

// PublishBetChange usa o userId como chave: mudanças do mesmo usuário ficam ordenadas
func (p *KafkaPublisher) PublishBetChange(ctx context.Context, e events.BetChange) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal bet change: %w", err)
	}
	return sharedkafka.WriteJSON(ctx, p.bets, e.Bet.UserID, b)
}

func (p *KafkaPublisher) PublishMarketSettled(ctx context.Context, e events.MarketSettled) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal market settled: %w", err)
	}
	return sharedkafka.WriteJSON(ctx, p.settled, e.MarketKind+":"+e.MarketID, b)
}

func (p *KafkaPublisher) Close() error {
	err1 := p.bets.Close()
	err2 := p.settled.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
