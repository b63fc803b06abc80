package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

type PlaceBetInput struct {
	UserID   string
	OptionID string
	Stake    int64
}

// Wallet é a visão de saldo no modelo de reserva
type Wallet struct {
	UserID    string `json:"userId"`
	Balance   int64  `json:"balance"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
}

// Placement é a aposta criada mais a carteira já com a nova reserva
type Placement struct {
	model.Bet
	Wallet Wallet
}

// PlaceBet cria uma aposta pendente sem debitar o saldo; a stake fica apenas
// reservada. Tudo roda numa transação com o mercado e o usuário travados, então
// a checagem de saldo disponível e a de duplicidade não sofrem corrida com outra
// aposta ou com a liquidação do mesmo mercado.
func (s *Service) PlaceBet(ctx context.Context, in PlaceBetInput) (Placement, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.OptionID = strings.TrimSpace(in.OptionID)
	if in.UserID == "" {
		return Placement{}, apperr.Invalid("userId", "required")
	}
	if in.OptionID == "" {
		return Placement{}, apperr.Invalid("optionId", "required")
	}
	if in.Stake < model.MinStake {
		s.rejected("min_stake")
		return Placement{}, apperr.Invalid("stake", "minimum stake is %d points", model.MinStake)
	}

	var (
		bet    model.Bet
		wallet Wallet
	)
	err := s.store.InTx(ctx, func(q Queries) error {
		opt, err := q.GetOption(ctx, in.OptionID)
		if err != nil {
			return err
		}

		// trava o mercado: liquidação concorrente espera ou vê o mercado fechado
		market, err := q.LockMarket(ctx, opt.Market)
		if err != nil {
			return err
		}
		now := s.now()
		if !market.AcceptsBets(now) {
			s.rejected("market_closed")
			return apperr.Conflictf("market %s is %s", market.Ref, market.State(now))
		}

		user, err := q.LockUser(ctx, in.UserID)
		if err != nil {
			return err
		}

		// (a) uma aposta pendente por usuário/opção
		dup, err := q.HasPendingBet(ctx, user.ID, opt.ID)
		if err != nil {
			return err
		}
		if dup {
			s.rejected("duplicate")
			return apperr.Invalid("optionId", "you already have a pending bet on this option")
		}

		// (b) stake <= saldo - reservado
		reserved, err := q.ReservedStake(ctx, user.ID)
		if err != nil {
			return err
		}
		if available := user.PointsBalance - reserved; in.Stake > available {
			s.rejected("insufficient_points")
			return apperr.Invalid("stake", "insufficient available points: available %d, requested %d", available, in.Stake)
		}

		bet = model.Bet{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			BetOptionID:     opt.ID,
			Stake:           in.Stake,
			PotentialPayout: model.Payout(in.Stake, opt.Odds),
			Status:          model.BetPending,
			PlacedAt:        now,
		}
		if err := q.InsertBet(ctx, bet); err != nil {
			return err
		}
		wallet = Wallet{
			UserID:    user.ID,
			Balance:   user.PointsBalance,
			Reserved:  reserved + bet.Stake,
			Available: user.PointsBalance - reserved - bet.Stake,
		}

		betID := bet.ID
		return q.InsertTransaction(ctx, model.Transaction{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			Amount:      0,
			Type:        model.TxBetPlaced,
			Description: "Bet placed (points reserved)",
			BetID:       &betID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return Placement{}, err
	}

	s.log.Info("bet placed",
		zap.String("betId", bet.ID),
		zap.String("userId", bet.UserID),
		zap.String("optionId", bet.BetOptionID),
		zap.Int64("stake", bet.Stake),
	)
	if s.hooks.OnBetPlaced != nil {
		s.hooks.OnBetPlaced(bet.Stake)
	}
	// o ranking mostra total de apostas por membro
	s.invalidateLeaderboard(ctx)
	s.publishBets(ctx, events.ChangeInsert, []model.Bet{bet})
	return Placement{Bet: bet, Wallet: wallet}, nil
}

// Wallet recalcula reservado e disponível a cada chamada
func (s *Service) Wallet(ctx context.Context, userID string) (Wallet, error) {
	var w Wallet
	err := s.store.View(ctx, func(q Queries) error {
		u, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		reserved, err := q.ReservedStake(ctx, u.ID)
		if err != nil {
			return err
		}
		w = Wallet{UserID: u.ID, Balance: u.PointsBalance, Reserved: reserved, Available: u.PointsBalance - reserved}
		return nil
	})
	return w, err
}
