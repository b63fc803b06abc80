package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
)

// AdjustPoints aplica um delta administrativo (positivo ou negativo) com
// incremento atômico e registra a transação na mesma transação de banco.
func (s *Service) AdjustPoints(ctx context.Context, userID string, delta int64) (int64, error) {
	if userID == "" {
		return 0, apperr.Invalid("userId", "required")
	}
	if delta == 0 {
		return 0, apperr.Invalid("delta", "must not be zero")
	}

	var balance int64
	err := s.store.InTx(ctx, func(q Queries) error {
		var err error
		balance, err = q.AddBalance(ctx, userID, delta)
		if err != nil {
			return err
		}
		return q.InsertTransaction(ctx, model.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      delta,
			Type:        model.TxAdminAdjustment,
			Description: adjustmentDescription(delta),
			CreatedAt:   s.now(),
		})
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("points adjusted", zap.String("userId", userID), zap.Int64("delta", delta), zap.Int64("balance", balance))
	if s.hooks.OnAdjusted != nil {
		s.hooks.OnAdjusted(delta)
	}
	s.invalidateLeaderboard(ctx)
	return balance, nil
}

func adjustmentDescription(delta int64) string {
	if delta > 0 {
		return fmt.Sprintf("Admin: +%d points", delta)
	}
	return fmt.Sprintf("Admin: -%d points", -delta)
}
