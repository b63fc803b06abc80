package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// Publisher emite eventos após o commit (stream de atividade em tempo real)
type Publisher interface {
	PublishBetChange(ctx context.Context, e events.BetChange) error
	PublishMarketSettled(ctx context.Context, e events.MarketSettled) error
}

// LeaderboardCache guarda o ranking completo serializado
type LeaderboardCache interface {
	Load(ctx context.Context, dst any) (bool, error)
	Save(ctx context.Context, v any) error
	Invalidate(ctx context.Context) error
}

// Hooks são callbacks de métricas; todos opcionais
type Hooks struct {
	OnBetPlaced    func(stake int64)
	OnBetRejected  func(reason string)
	OnSettled      func(kind string, won, lost int, payout int64)
	OnCancelled    func(kind string, bets int)
	OnAdjusted     func(delta int64)
	OnPublishError func(stage string)
}

type Options struct {
	Publisher      Publisher
	Cache          LeaderboardCache
	Hooks          Hooks
	Now            func() time.Time
	StartingPoints int64
	// PurgeKeep: emails ou nomes preservados no purge, além dos admins
	PurgeKeep []string
}

// Service implementa as regras de apostas, liquidação e contabilidade de pontos
type Service struct {
	log   *zap.Logger
	store Store
	publ  Publisher
	cache LeaderboardCache
	hooks Hooks
	now   func() time.Time

	startingPoints int64
	purgeKeep      []string
}

func New(log *zap.Logger, store Store, opts Options) *Service {
	s := &Service{
		log:            log,
		store:          store,
		publ:           opts.Publisher,
		cache:          opts.Cache,
		hooks:          opts.Hooks,
		now:            opts.Now,
		startingPoints: opts.StartingPoints,
		purgeKeep:      opts.PurgeKeep,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.startingPoints <= 0 {
		s.startingPoints = model.StartingPoints
	}
	return s
}

// Ping valida o backend (usado pelo /healthz)
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// publishBets envia as mudanças de apostas; falhas só são logadas
func (s *Service) publishBets(ctx context.Context, changeType string, bets []model.Bet) {
	if s.publ == nil {
		return
	}
	ts := s.now().UnixMilli()
	for _, b := range bets {
		err := s.publ.PublishBetChange(ctx, events.BetChange{Type: changeType, Bet: b.Row(), TsUnixMs: ts})
		if err != nil {
			s.log.Warn("publish bet change failed", zap.String("betId", b.ID), zap.Error(err))
			if s.hooks.OnPublishError != nil {
				s.hooks.OnPublishError("bet_change")
			}
		}
	}
}

func (s *Service) publishSettled(ctx context.Context, e events.MarketSettled) {
	if s.publ == nil {
		return
	}
	if err := s.publ.PublishMarketSettled(ctx, e); err != nil {
		s.log.Warn("publish market settled failed", zap.String("marketId", e.MarketID), zap.Error(err))
		if s.hooks.OnPublishError != nil {
			s.hooks.OnPublishError("market_settled")
		}
	}
}

// invalidateLeaderboard descarta o ranking em cache após mudanças de saldo
func (s *Service) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("leaderboard cache invalidate failed", zap.Error(err))
	}
}

func (s *Service) rejected(reason string) {
	if s.hooks.OnBetRejected != nil {
		s.hooks.OnBetRejected(reason)
	}
}
