package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/cache"
	bhttp "github.com/radieske/club-bet-platform/internal/bet-service/http"
	kpub "github.com/radieske/club-bet-platform/internal/bet-service/producer"
	"github.com/radieske/club-bet-platform/internal/bet-service/repo"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/bet-service/ws"
	sharedcache "github.com/radieske/club-bet-platform/internal/shared/cache"
	"github.com/radieske/club-bet-platform/internal/shared/config"
	"github.com/radieske/club-bet-platform/internal/shared/logger"
	"github.com/radieske/club-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bet-service"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set; admin routes will answer 503")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Store (Postgres ou memória)
	store, closeStore, err := repo.Open(ctx, log, cfg)
	if err != nil {
		log.Fatal("store", zap.Error(err))
	}
	defer closeStore()

	// Redis: cache do ranking + fan-out do /ws; REDIS_ADDR vazio desliga os dois
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = sharedcache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
	}

	// Kafka: eventos de apostas e liquidações
	var publisher *kpub.KafkaPublisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = kpub.NewKafkaPublisher(brokers, cfg.TopicBetEvents, cfg.TopicMarketSettled)
		defer publisher.Close()
	}

	// Métricas Prometheus
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_placed_total", Help: "apostas aceitas"})
	staked := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_points_staked_total", Help: "pontos reservados em apostas"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_rejected_total", Help: "apostas recusadas por motivo"}, []string{"reason"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "market_settled_total", Help: "liquidações por tipo de mercado"}, []string{"kind"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_resolved_total", Help: "apostas resolvidas por resultado"}, []string{"status"})
	paidOut := prometheus.NewCounter(prometheus.CounterOpts{Name: "points_paid_out_total", Help: "pontos pagos a vencedores"})
	adjusted := prometheus.NewCounter(prometheus.CounterOpts{Name: "points_adjusted_total", Help: "ajustes administrativos"})
	publishErr := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_publish_errors_total", Help: "falhas de publicação por estágio"}, []string{"stage"})
	prometheus.MustRegister(placed, staked, rejected, settled, resolved, paidOut, adjusted, publishErr)

	opts := service.Options{
		StartingPoints: cfg.StartingPoints,
		PurgeKeep:      cfg.PurgeKeep,
		Hooks: service.Hooks{
			OnBetPlaced: func(stake int64) {
				placed.Inc()
				staked.Add(float64(stake))
			},
			OnBetRejected: func(reason string) { rejected.WithLabelValues(reason).Inc() },
			OnSettled: func(kind string, won, lost int, payout int64) {
				settled.WithLabelValues(kind).Inc()
				resolved.WithLabelValues("won").Add(float64(won))
				resolved.WithLabelValues("lost").Add(float64(lost))
				paidOut.Add(float64(payout))
			},
			OnCancelled:    func(_ string, bets int) { resolved.WithLabelValues("cancelled").Add(float64(bets)) },
			OnAdjusted:     func(int64) { adjusted.Inc() },
			OnPublishError: func(stage string) { publishErr.WithLabelValues(stage).Inc() },
		},
	}
	if publisher != nil {
		opts.Publisher = publisher
	}
	if rdb != nil {
		opts.Cache = cache.NewLeaderboard(rdb, time.Duration(cfg.LeaderboardCacheTTL)*time.Second)
	}
	svc := service.New(log, store, opts)

	// WebSocket hub alimentado pelo activity-worker via Redis Pub/Sub
	hub := ws.NewHub(log, func(r *http.Request) bool { return true })
	if rdb != nil {
		ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisBetChannel, hub)
	}

	api := bhttp.NewServer(log, svc, hub, cfg.AdminToken)
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := svc.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})

	go func() {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr), zap.String("store", cfg.Store))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = msrv.Shutdown(shutdownCtx)
	log.Info("bet-service stopped")
}
