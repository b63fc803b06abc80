package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/repo"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/odds-import/parser"
	"github.com/radieske/club-bet-platform/internal/shared/config"
	"github.com/radieske/club-bet-platform/internal/shared/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: odds-import <file.json>")
		os.Exit(2)
	}

	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "odds-import"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal("read odds file", zap.String("file", os.Args[1]), zap.Error(err))
	}
	res, err := parser.Parse(raw)
	if err != nil {
		log.Fatal("parse odds file", zap.Error(err))
	}
	for _, s := range res.Skipped {
		log.Warn("skipped incomplete item", zap.Int("index", s.Index), zap.String("reason", s.Reason))
	}
	for _, d := range res.Dropped {
		log.Warn("dropped option", zap.String("option", d))
	}
	for _, m := range res.Matches {
		if len(m.Options) == 0 {
			log.Warn("no odds found for match", zap.String("home", m.HomeTeam), zap.String("away", m.AwayTeam))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repo.Open(ctx, log, cfg)
	if err != nil {
		log.Fatal("store", zap.Error(err))
	}
	defer closeStore()

	svc := service.New(log, store, service.Options{StartingPoints: cfg.StartingPoints})
	rep, err := svc.ImportMatches(ctx, res.Matches)
	if err != nil {
		log.Fatal("import interrupted", zap.Error(err))
	}
	fmt.Printf("import done: inserted=%d updated=%d optionsCreated=%d skipped=%d\n",
		rep.Inserted, rep.Updated, rep.OptionsCreated, rep.Skipped+len(res.Skipped))
}
