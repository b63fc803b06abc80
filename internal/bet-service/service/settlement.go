package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

type SettlementResult struct {
	Market          model.MarketRef `json:"market"`
	WinningOptionID string          `json:"winningOptionId"`
	WinningOdds     decimal.Decimal `json:"winningOdds"`
	Won             int             `json:"won"`
	Lost            int             `json:"lost"`
	TotalPayout     int64           `json:"totalPayout"`
	// Rerun indica que o mercado já estava liquidado com o mesmo vencedor
	Rerun bool `json:"rerun"`
}

// OptionPreview resume o que está pendente em cada opção antes de liquidar
type OptionPreview struct {
	OptionID     string          `json:"optionId"`
	OptionText   string          `json:"optionText"`
	Odds         decimal.Decimal `json:"odds"`
	PendingBets  int             `json:"pendingBets"`
	PendingStake int64           `json:"pendingStake"`
	// PayoutIfWins é o total pago se esta opção vencer
	PayoutIfWins int64 `json:"payoutIfWins"`
}

type CancelResult struct {
	Market    model.MarketRef `json:"market"`
	Cancelled int             `json:"cancelled"`
}

// SettleMarket resolve todas as apostas pendentes do mercado numa única
// transação. O mercado fica travado até o commit; cada aposta só sai de
// pending uma vez (UPDATE ... WHERE status='pending').
func (s *Service) SettleMarket(ctx context.Context, ref model.MarketRef, winningOptionID string) (SettlementResult, error) {
	if winningOptionID == "" {
		return SettlementResult{}, apperr.Invalid("winningOptionId", "required")
	}
	res := SettlementResult{Market: ref, WinningOptionID: winningOptionID}
	var resolved []model.Bet

	err := s.store.InTx(ctx, func(q Queries) error {
		market, err := q.LockMarket(ctx, ref)
		if err != nil {
			return err
		}
		if market.Cancelled() {
			return apperr.Conflictf("market %s is cancelled", ref)
		}

		options, err := q.ListOptions(ctx, ref)
		if err != nil {
			return err
		}
		if len(options) == 0 {
			return apperr.Invalid("marketId", "market %s has no options", ref)
		}
		winner, ok := findOption(options, winningOptionID)
		if !ok {
			return apperr.Invalid("winningOptionId", "option %s does not belong to market %s", winningOptionID, ref)
		}

		if market.Settled() {
			prev, hasPrev := currentWinner(options)
			if hasPrev && prev.ID != winner.ID {
				return apperr.Conflictf("market %s already settled with option %s", ref, prev.ID)
			}
			res.Rerun = true
		}
		res.WinningOdds = winner.Odds

		if err := q.SetWinner(ctx, ref, winner.ID); err != nil {
			return err
		}

		pending, err := q.LockPendingBets(ctx, optionIDs(options))
		if err != nil {
			return err
		}
		// créditos sempre na ordem de user_id: duas liquidações simultâneas
		// travam os mesmos usuários na mesma sequência
		sortByUser(pending)

		now := s.now()
		for _, b := range pending {
			status, payout := model.BetLost, int64(0)
			if b.BetOptionID == winner.ID {
				status, payout = model.BetWon, model.Payout(b.Stake, winner.Odds)
			}

			ok, err := q.ResolveBet(ctx, b.ID, status, payout, now)
			if err != nil {
				return err
			}
			if !ok {
				// já resolvida por outra execução
				continue
			}

			betID := b.ID
			tx := model.Transaction{
				ID:        uuid.NewString(),
				UserID:    b.UserID,
				BetID:     &betID,
				CreatedAt: now,
			}
			if status == model.BetWon {
				if _, err := q.AddBalance(ctx, b.UserID, payout); err != nil {
					return err
				}
				tx.Type = model.TxWinPayout
				tx.Amount = payout
				tx.Description = fmt.Sprintf("Won bet on %s: +%d points", winner.OptionText, payout)
				res.Won++
				res.TotalPayout += payout
			} else {
				tx.Type = model.TxLossSettle
				tx.Description = "Lost bet on " + market.Title()
				res.Lost++
			}
			if err := q.InsertTransaction(ctx, tx); err != nil {
				return err
			}

			b.Status = status
			b.ActualPayout = &payout
			settledAt := now
			b.SettledAt = &settledAt
			resolved = append(resolved, b)
		}

		return q.MarkSettled(ctx, ref, winner.OptionText)
	})
	if err != nil {
		s.log.Warn("settlement failed", zap.String("market", ref.String()), zap.Error(err))
		return SettlementResult{}, err
	}

	s.log.Info("market settled",
		zap.String("market", ref.String()),
		zap.String("winningOptionId", winningOptionID),
		zap.Int("won", res.Won),
		zap.Int("lost", res.Lost),
		zap.Int64("totalPayout", res.TotalPayout),
		zap.Bool("rerun", res.Rerun),
	)
	if s.hooks.OnSettled != nil {
		s.hooks.OnSettled(string(ref.Kind), res.Won, res.Lost, res.TotalPayout)
	}
	s.invalidateLeaderboard(ctx)
	s.publishSettled(ctx, events.MarketSettled{
		MarketKind:      string(ref.Kind),
		MarketID:        ref.ID,
		WinningOptionID: winningOptionID,
		WinningOdds:     res.WinningOdds.StringFixed(2),
		Won:             res.Won,
		Lost:            res.Lost,
		TotalPayout:     res.TotalPayout,
		Ts:              s.now().UTC(),
	})
	s.publishBets(ctx, events.ChangeUpdate, resolved)
	return res, nil
}

// SettlementPreview mostra, por opção, apostas pendentes e o custo da vitória
func (s *Service) SettlementPreview(ctx context.Context, ref model.MarketRef) ([]OptionPreview, error) {
	var out []OptionPreview
	err := s.store.View(ctx, func(q Queries) error {
		if _, err := q.GetMarket(ctx, ref); err != nil {
			return err
		}
		options, err := q.ListOptions(ctx, ref)
		if err != nil {
			return err
		}
		pending, err := q.BetsForOptions(ctx, optionIDs(options), model.BetPending)
		if err != nil {
			return err
		}

		byOption := make(map[string]*OptionPreview, len(options))
		out = make([]OptionPreview, len(options))
		for i, o := range options {
			out[i] = OptionPreview{OptionID: o.ID, OptionText: o.OptionText, Odds: o.Odds}
			byOption[o.ID] = &out[i]
		}
		for _, b := range pending {
			p, ok := byOption[b.BetOptionID]
			if !ok {
				continue
			}
			p.PendingBets++
			p.PendingStake += b.Stake
			p.PayoutIfWins += model.Payout(b.Stake, p.Odds)
		}
		return nil
	})
	return out, err
}

// CancelMarket anula o mercado: pendentes viram cancelled sem movimentar saldo
// (a stake só estava reservada).
func (s *Service) CancelMarket(ctx context.Context, ref model.MarketRef) (CancelResult, error) {
	res := CancelResult{Market: ref}
	var cancelled []model.Bet

	err := s.store.InTx(ctx, func(q Queries) error {
		market, err := q.LockMarket(ctx, ref)
		if err != nil {
			return err
		}
		if market.Settled() {
			return apperr.Conflictf("market %s is already settled", ref)
		}
		if market.Cancelled() {
			return apperr.Conflictf("market %s is already cancelled", ref)
		}

		options, err := q.ListOptions(ctx, ref)
		if err != nil {
			return err
		}
		pending, err := q.LockPendingBets(ctx, optionIDs(options))
		if err != nil {
			return err
		}

		now := s.now()
		for _, b := range pending {
			ok, err := q.ResolveBet(ctx, b.ID, model.BetCancelled, 0, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			betID := b.ID
			if err := q.InsertTransaction(ctx, model.Transaction{
				ID:          uuid.NewString(),
				UserID:      b.UserID,
				Amount:      0,
				Type:        model.TxBetCancelled,
				Description: "Bet cancelled: " + market.Title(),
				BetID:       &betID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			zero := int64(0)
			settledAt := now
			b.Status, b.ActualPayout, b.SettledAt = model.BetCancelled, &zero, &settledAt
			cancelled = append(cancelled, b)
		}
		res.Cancelled = len(cancelled)
		return q.MarkCancelled(ctx, ref)
	})
	if err != nil {
		return CancelResult{}, err
	}

	s.log.Info("market cancelled", zap.String("market", ref.String()), zap.Int("bets", res.Cancelled))
	if s.hooks.OnCancelled != nil {
		s.hooks.OnCancelled(string(ref.Kind), res.Cancelled)
	}
	s.publishSettled(ctx, events.MarketSettled{
		MarketKind: string(ref.Kind),
		MarketID:   ref.ID,
		Cancelled:  res.Cancelled,
		Ts:         s.now().UTC(),
	})
	s.publishBets(ctx, events.ChangeUpdate, cancelled)
	return res, nil
}

func findOption(options []model.BetOption, id string) (model.BetOption, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return model.BetOption{}, false
}

func currentWinner(options []model.BetOption) (model.BetOption, bool) {
	for _, o := range options {
		if o.IsWinner {
			return o, true
		}
	}
	return model.BetOption{}, false
}

func sortByUser(bets []model.Bet) {
	sort.SliceStable(bets, func(i, j int) bool { return bets[i].UserID < bets[j].UserID })
}

func optionIDs(options []model.BetOption) []string {
	ids := make([]string, len(options))
	for i, o := range options {
		ids[i] = o.ID
	}
	return ids
}
