package repo

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/shared/config"
	"github.com/radieske/club-bet-platform/internal/shared/db"
)

// Open cria o store conforme STORE. Para postgres conecta, aplica o schema
// e devolve o Close do pool; o store em memória não precisa de fechamento.
func Open(ctx context.Context, log *zap.Logger, cfg config.Config) (service.Store, func() error, error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return NewMemory(), func() error { return nil }, nil
	}

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, pg); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	log.Info("postgres ready")
	return NewPostgres(pg), pg.Close, nil
}
