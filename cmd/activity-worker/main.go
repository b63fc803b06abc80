package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/activity/consumer"
	"github.com/radieske/club-bet-platform/internal/activity/pubsub"
	"github.com/radieske/club-bet-platform/internal/bet-service/cache"
	sharedcache "github.com/radieske/club-bet-platform/internal/shared/cache"
	"github.com/radieske/club-bet-platform/internal/shared/config"
	sharedkafka "github.com/radieske/club-bet-platform/internal/shared/kafka"
	"github.com/radieske/club-bet-platform/internal/shared/logger"
	"github.com/radieske/club-bet-platform/internal/shared/metrics"
	ctopics "github.com/radieske/club-bet-platform/pkg/contracts/topics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "activity-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// consumer group próprio: cada mudança é repassada uma única vez
	reader := sharedkafka.NewReader(cfg.Brokers(), cfg.TopicBetEvents, "activity-worker")
	defer reader.Close()
	dlq := sharedkafka.NewWriter(cfg.Brokers(), ctopics.BetEventsDLQ)
	defer dlq.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_messages_consumed_total", Help: "mensagens consumidas"})
	broadcast := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_broadcasts_total", Help: "mudanças publicadas no Redis"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "activity_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, broadcast, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisBetChannel,
		Leaderboard: cache.NewLeaderboard(redisClient, time.Duration(cfg.LeaderboardCacheTTL)*time.Second),
		DLQ:         dlq,
		OnConsumed:  func() { consumed.Inc() },
		OnBroadcast: func() { broadcast.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("activity-worker started",
		zap.String("topic", cfg.TopicBetEvents),
		zap.String("channel", cfg.RedisBetChannel),
	)
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = msrv.Shutdown(shutdownCtx)
	log.Info("activity-worker stopped")
}
