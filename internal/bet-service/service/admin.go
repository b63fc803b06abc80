package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// Frases de confirmação exigidas por cada operação em massa
const (
	ConfirmClearMarkets  = "CLEAR_MARKETS"
	ConfirmClearBets     = "CLEAR_BETS"
	ConfirmResetBalances = "RESET_BALANCES"
	ConfirmPurgeUsers    = "PURGE_USERS"
)

type BulkResult struct {
	Operation string `json:"operation"`
	Affected  int64  `json:"affected"`
	// Transactions: linhas do ledger removidas, quando aplicável
	Transactions int64 `json:"transactions,omitempty"`
}

func checkConfirm(want, got string) error {
	if got != want {
		return apperr.Invalid("confirm", "type %s to confirm this operation", want)
	}
	return nil
}

// ClearMarkets apaga partidas, fun bets e opções (apostas caem em cascata)
func (s *Service) ClearMarkets(ctx context.Context, confirm string) (BulkResult, error) {
	if err := checkConfirm(ConfirmClearMarkets, confirm); err != nil {
		return BulkResult{}, err
	}
	res := BulkResult{Operation: ConfirmClearMarkets}
	var removed []model.Bet
	err := s.store.InTx(ctx, func(q Queries) error {
		var err error
		if removed, err = q.AllBets(ctx); err != nil {
			return err
		}
		res.Affected, err = q.DeleteAllMarkets(ctx)
		return err
	})
	return s.bulkDone(ctx, res, removed, err)
}

// ClearBets apaga todas as apostas e todo o ledger; saldos ficam como estão
func (s *Service) ClearBets(ctx context.Context, confirm string) (BulkResult, error) {
	if err := checkConfirm(ConfirmClearBets, confirm); err != nil {
		return BulkResult{}, err
	}
	res := BulkResult{Operation: ConfirmClearBets}
	var removed []model.Bet
	err := s.store.InTx(ctx, func(q Queries) error {
		var err error
		if removed, err = q.AllBets(ctx); err != nil {
			return err
		}
		res.Affected, res.Transactions, err = q.DeleteAllBetsAndTransactions(ctx)
		return err
	})
	return s.bulkDone(ctx, res, removed, err)
}

func (s *Service) ResetBalances(ctx context.Context, confirm string) (BulkResult, error) {
	if err := checkConfirm(ConfirmResetBalances, confirm); err != nil {
		return BulkResult{}, err
	}
	res := BulkResult{Operation: ConfirmResetBalances}
	err := s.store.InTx(ctx, func(q Queries) error {
		var err error
		res.Affected, err = q.SetAllBalances(ctx, s.startingPoints)
		return err
	})
	return s.bulkDone(ctx, res, nil, err)
}

// PurgeUsers remove membros que não são admin nem estão na allow-list
// (email ou nome, sem diferenciar maiúsculas).
func (s *Service) PurgeUsers(ctx context.Context, confirm string) (BulkResult, error) {
	if err := checkConfirm(ConfirmPurgeUsers, confirm); err != nil {
		return BulkResult{}, err
	}
	keep := make(map[string]bool, len(s.purgeKeep))
	for _, k := range s.purgeKeep {
		keep[strings.ToLower(strings.TrimSpace(k))] = true
	}

	res := BulkResult{Operation: ConfirmPurgeUsers}
	var removed []model.Bet
	err := s.store.InTx(ctx, func(q Queries) error {
		users, err := q.ListUsers(ctx)
		if err != nil {
			return err
		}
		var ids []string
		for _, u := range users {
			if u.Role == model.RoleAdmin || keep[strings.ToLower(u.Email)] || keep[strings.ToLower(u.FullName)] {
				continue
			}
			ids = append(ids, u.ID)
		}
		if len(ids) == 0 {
			return nil
		}
		// apostas dos removidos caem em cascata
		if removed, err = q.BetsForUsers(ctx, ids); err != nil {
			return err
		}
		res.Affected, err = q.DeleteUsers(ctx, ids)
		return err
	})
	return s.bulkDone(ctx, res, removed, err)
}

// bulkDone loga, invalida o ranking e avisa o feed das apostas apagadas
func (s *Service) bulkDone(ctx context.Context, res BulkResult, removed []model.Bet, err error) (BulkResult, error) {
	if err != nil {
		s.log.Error("admin bulk operation failed", zap.String("op", res.Operation), zap.Error(err))
		return BulkResult{}, err
	}
	s.log.Warn("admin bulk operation executed",
		zap.String("op", res.Operation),
		zap.Int64("affected", res.Affected),
		zap.Int64("transactions", res.Transactions),
	)
	s.invalidateLeaderboard(ctx)
	s.publishBets(ctx, events.ChangeDelete, removed)
	return res, nil
}
