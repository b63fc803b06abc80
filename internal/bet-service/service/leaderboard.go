package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
)

type Standing struct {
	Rank      int     `json:"rank"`
	UserID    string  `json:"userId"`
	FullName  string  `json:"fullName"`
	Points    int64   `json:"points"`
	Won       int     `json:"won"`
	Lost      int     `json:"lost"`
	TotalBets int     `json:"totalBets"`
	WinRate   float64 `json:"winRate"`
}

type UserStats struct {
	UserID        string  `json:"userId"`
	Points        int64   `json:"points"`
	TotalBets     int     `json:"totalBets"`
	Won           int     `json:"won"`
	Lost          int     `json:"lost"`
	Pending       int     `json:"pending"`
	Cancelled     int     `json:"cancelled"`
	WinRate       float64 `json:"winRate"`
	TotalWinnings int64   `json:"totalWinnings"`
}

// Leaderboard ordena membros (admins fora) por saldo; limit <= 0 devolve todos.
// O ranking completo fica em cache e é cortado no retorno.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	var all []Standing
	hit := false
	if s.cache != nil {
		var err error
		hit, err = s.cache.Load(ctx, &all)
		if err != nil {
			s.log.Warn("leaderboard cache load failed", zap.Error(err))
			hit = false
		}
	}

	if !hit {
		var err error
		all, err = s.buildLeaderboard(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Save(ctx, all); err != nil {
				s.log.Warn("leaderboard cache save failed", zap.Error(err))
			}
		}
	}

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Service) buildLeaderboard(ctx context.Context) ([]Standing, error) {
	var (
		users  []model.UserProfile
		totals map[string]model.BetTotals
	)
	err := s.store.View(ctx, func(q Queries) error {
		var err error
		if users, err = q.ListUsers(ctx); err != nil {
			return err
		}
		totals, err = q.BetTotalsByUser(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	members := users[:0:0]
	for _, u := range users {
		if u.Role != model.RoleAdmin {
			members = append(members, u)
		}
	}
	// desempate estável por (created_at, id)
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.PointsBalance != b.PointsBalance {
			return a.PointsBalance > b.PointsBalance
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	out := make([]Standing, len(members))
	for i, u := range members {
		t := totals[u.ID]
		out[i] = Standing{
			Rank:      i + 1,
			UserID:    u.ID,
			FullName:  u.FullName,
			Points:    u.PointsBalance,
			Won:       t.Won,
			Lost:      t.Lost,
			TotalBets: t.Total,
			WinRate:   t.WinRate(),
		}
	}
	return out, nil
}

func (s *Service) UserStats(ctx context.Context, userID string) (UserStats, error) {
	var st UserStats
	err := s.store.View(ctx, func(q Queries) error {
		u, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		t, err := q.UserBetTotals(ctx, u.ID)
		if err != nil {
			return err
		}
		st = UserStats{
			UserID:        u.ID,
			Points:        u.PointsBalance,
			TotalBets:     t.Total,
			Won:           t.Won,
			Lost:          t.Lost,
			Pending:       t.Pending,
			Cancelled:     t.Cancelled,
			WinRate:       t.WinRate(),
			TotalWinnings: t.Winnings,
		}
		return nil
	})
	return st, err
}
