package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

const (
	RecentBetsLimit         = 30
	defaultTransactionLimit = 50
	defaultFunCategory      = "general"
)

type OptionInput struct {
	Text string
	Odds decimal.Decimal
}

type CreateMarketInput struct {
	Kind        model.MarketKind
	Title       string
	Description string
	Category    string
	HomeTeam    string
	AwayTeam    string
	MatchDate   *time.Time
	ClosingTime *time.Time
	Options     []OptionInput
}

type MarketDetail struct {
	model.Market
	State   model.MarketState `json:"state"`
	Title   string            `json:"title"`
	Options []model.BetOption `json:"options"`
}

// MarketSummary é a linha da listagem com os totais de apostas
type MarketSummary struct {
	MarketDetail
	TotalBets    int   `json:"totalBets"`
	TotalStake   int64 `json:"totalStake"`
	Participants int   `json:"participants"`
}

type MarketFilter struct {
	Kind  model.MarketKind
	State model.MarketState
}

type RecentBet struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	UserName     string          `json:"userName"`
	Option       string          `json:"option"`
	Stake        int64           `json:"stake"`
	PotentialWin int64           `json:"potentialWin"`
	Status       model.BetStatus `json:"status"`
	Title        string          `json:"title"`
	PlacedAt     time.Time       `json:"placedAt"`
}

type RecentActivity struct {
	Items      []RecentBet `json:"items"`
	TotalToday int64       `json:"totalToday"`
}

type CreateProfileInput struct {
	ID       string
	Email    string
	FullName string
}

var vsPattern = regexp.MustCompile(`(?i)^\s*(.+?)\s+vs\.?\s+(.+?)\s*$`)

// ParseTeams extrai "Casa vs Fora" de um título
func ParseTeams(title string) (home, away string, ok bool) {
	m := vsPattern.FindStringSubmatch(title)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func validateOptions(opts []OptionInput) error {
	if len(opts) < 2 {
		return apperr.Invalid("options", "at least 2 options are required")
	}
	seen := make(map[string]bool, len(opts))
	for i, o := range opts {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			return apperr.Invalid("options", "option %d has no text", i+1)
		}
		if o.Odds.LessThan(model.MinOdds) {
			return apperr.Invalid("options", "option %q has odds %s, minimum is %s", text, o.Odds, model.MinOdds)
		}
		key := strings.ToLower(text)
		if seen[key] {
			return apperr.Invalid("options", "duplicate option %q", text)
		}
		seen[key] = true
	}
	return nil
}

// CreateMarket cria uma partida ou fun bet com suas opções.
// Partidas com os mesmos times ainda em aberto são reaproveitadas.
func (s *Service) CreateMarket(ctx context.Context, in CreateMarketInput) (MarketDetail, error) {
	if err := validateOptions(in.Options); err != nil {
		return MarketDetail{}, err
	}
	if in.ClosingTime == nil && in.Kind == model.KindFun {
		return MarketDetail{}, apperr.Invalid("closingTime", "required")
	}

	now := s.now()
	var ref model.MarketRef
	err := s.store.InTx(ctx, func(q Queries) error {
		switch in.Kind {
		case model.KindMatch:
			m, err := s.matchForCreate(ctx, q, in, now)
			if err != nil {
				return err
			}
			ref = model.MarketRef{Kind: model.KindMatch, ID: m.ID}
		case model.KindFun:
			title := strings.TrimSpace(in.Title)
			if title == "" {
				return apperr.Invalid("title", "required")
			}
			category := strings.TrimSpace(in.Category)
			if category == "" {
				category = defaultFunCategory
			}
			f := model.FunBet{
				ID:          uuid.NewString(),
				Title:       title,
				Description: strings.TrimSpace(in.Description),
				Category:    category,
				ClosingTime: in.ClosingTime.UTC(),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := q.InsertFunBet(ctx, f); err != nil {
				return err
			}
			ref = model.MarketRef{Kind: model.KindFun, ID: f.ID}
		default:
			return apperr.Invalid("kind", "must be match or fun")
		}

		existing, err := q.ListOptions(ctx, ref)
		if err != nil {
			return err
		}
		_, err = insertMissingOptions(ctx, q, ref, existing, in.Options, now)
		return err
	})
	if err != nil {
		return MarketDetail{}, err
	}

	s.log.Info("market created", zap.String("market", ref.String()), zap.Int("options", len(in.Options)))
	return s.GetMarket(ctx, ref)
}

func (s *Service) matchForCreate(ctx context.Context, q Queries, in CreateMarketInput, now time.Time) (model.Match, error) {
	home, away := strings.TrimSpace(in.HomeTeam), strings.TrimSpace(in.AwayTeam)
	if home == "" || away == "" {
		var ok bool
		if home, away, ok = ParseTeams(in.Title); !ok {
			return model.Match{}, apperr.Invalid("homeTeam", "home and away teams are required (or a title like \"Home vs Away\")")
		}
	}
	if in.MatchDate == nil {
		return model.Match{}, apperr.Invalid("matchDate", "required")
	}

	found, ok, err := q.FindMatch(ctx, home, away, nil)
	if err != nil {
		return model.Match{}, err
	}
	if ok {
		mk := model.MatchMarket(found)
		if !mk.Settled() && !mk.Cancelled() {
			return found, nil
		}
	}

	closing := in.MatchDate.UTC()
	if in.ClosingTime != nil {
		closing = in.ClosingTime.UTC()
	}
	m := model.Match{
		ID:          uuid.NewString(),
		HomeTeam:    home,
		AwayTeam:    away,
		MatchDate:   in.MatchDate.UTC(),
		Status:      model.MatchUpcoming,
		ClosingTime: closing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return m, q.InsertMatch(ctx, m)
}

// insertMissingOptions adiciona só as opções cujo texto ainda não existe
func insertMissingOptions(ctx context.Context, q Queries, ref model.MarketRef, existing []model.BetOption, opts []OptionInput, now time.Time) (int, error) {
	have := make(map[string]bool, len(existing))
	for _, o := range existing {
		have[strings.ToLower(o.OptionText)] = true
	}
	added := 0
	for _, o := range opts {
		text := strings.TrimSpace(o.Text)
		if have[strings.ToLower(text)] {
			continue
		}
		err := q.InsertOption(ctx, model.BetOption{
			ID:         uuid.NewString(),
			Market:     ref,
			OptionText: text,
			Odds:       o.Odds.Round(2),
			// +1µs por opção mantém a ordem de entrada no ORDER BY created_at
			CreatedAt: now.Add(time.Duration(len(existing)+added) * time.Microsecond),
		})
		if err != nil {
			return added, err
		}
		have[strings.ToLower(text)] = true
		added++
	}
	return added, nil
}

func (s *Service) GetMarket(ctx context.Context, ref model.MarketRef) (MarketDetail, error) {
	var d MarketDetail
	err := s.store.View(ctx, func(q Queries) error {
		m, err := q.GetMarket(ctx, ref)
		if err != nil {
			return err
		}
		opts, err := q.ListOptions(ctx, ref)
		if err != nil {
			return err
		}
		d = s.detail(m, opts)
		return nil
	})
	return d, err
}

func (s *Service) detail(m model.Market, opts []model.BetOption) MarketDetail {
	if opts == nil {
		opts = []model.BetOption{}
	}
	return MarketDetail{Market: m, State: m.State(s.now()), Title: m.Title(), Options: opts}
}

// ListMarkets devolve mercados com totais (apostas, stake, participantes)
func (s *Service) ListMarkets(ctx context.Context, f MarketFilter) ([]MarketSummary, error) {
	out := []MarketSummary{}
	err := s.store.View(ctx, func(q Queries) error {
		markets, err := q.ListMarkets(ctx, f.Kind)
		if err != nil {
			return err
		}
		for _, m := range markets {
			d := s.detail(m, nil)
			if f.State != "" && d.State != f.State {
				continue
			}
			opts, err := q.ListOptions(ctx, m.Ref)
			if err != nil {
				return err
			}
			d.Options = opts
			bets, err := q.BetsForOptions(ctx, optionIDs(opts), "")
			if err != nil {
				return err
			}
			sum := MarketSummary{MarketDetail: d}
			users := make(map[string]struct{})
			for _, b := range bets {
				if b.Status == model.BetCancelled {
					continue
				}
				sum.TotalBets++
				sum.TotalStake += b.Stake
				users[b.UserID] = struct{}{}
			}
			sum.Participants = len(users)
			out = append(out, sum)
		}
		return nil
	})
	return out, err
}

// DeleteMarket remove o mercado e suas opções; recusa enquanto houver pendentes.
// As apostas já resolvidas caem junto e saem do feed como DELETE.
func (s *Service) DeleteMarket(ctx context.Context, ref model.MarketRef) error {
	var removed []model.Bet
	err := s.store.InTx(ctx, func(q Queries) error {
		if _, err := q.LockMarket(ctx, ref); err != nil {
			return err
		}
		opts, err := q.ListOptions(ctx, ref)
		if err != nil {
			return err
		}
		bets, err := q.BetsForOptions(ctx, optionIDs(opts), "")
		if err != nil {
			return err
		}
		pending := 0
		for _, b := range bets {
			if b.Status == model.BetPending {
				pending++
			}
		}
		if pending > 0 {
			return apperr.Conflictf("market %s has %d pending bets; settle or cancel it first", ref, pending)
		}
		removed = bets
		return q.DeleteMarket(ctx, ref)
	})
	if err != nil {
		return err
	}
	s.log.Info("market deleted", zap.String("market", ref.String()), zap.Int("bets", len(removed)))
	s.invalidateLeaderboard(ctx)
	s.publishBets(ctx, events.ChangeDelete, removed)
	return nil
}

func (s *Service) UserBets(ctx context.Context, userID string, status string) ([]model.BetDetail, error) {
	var st model.BetStatus
	if status != "" {
		var ok bool
		if st, ok = model.ParseBetStatus(status); !ok {
			return nil, apperr.Invalid("status", "unknown bet status %q", status)
		}
	}
	var out []model.BetDetail
	err := s.store.View(ctx, func(q Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = q.UserBets(ctx, userID, st)
		return err
	})
	if out == nil {
		out = []model.BetDetail{}
	}
	return out, err
}

func (s *Service) UserTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	var out []model.Transaction
	err := s.store.View(ctx, func(q Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = q.UserTransactions(ctx, userID, limit)
		return err
	})
	if out == nil {
		out = []model.Transaction{}
	}
	return out, err
}

// CreateProfile registra um membro com o saldo inicial
func (s *Service) CreateProfile(ctx context.Context, in CreateProfileInput) (model.UserProfile, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return model.UserProfile{}, apperr.Invalid("email", "required")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	u := model.UserProfile{
		ID:            id,
		Email:         email,
		FullName:      strings.TrimSpace(in.FullName),
		Role:          model.RoleUser,
		PointsBalance: s.startingPoints,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.InTx(ctx, func(q Queries) error { return q.InsertUser(ctx, u) }); err != nil {
		return model.UserProfile{}, err
	}
	s.log.Info("profile created", zap.String("userId", u.ID))
	s.invalidateLeaderboard(ctx)
	return u, nil
}

// RecentBets alimenta o feed público: últimas apostas e volume do dia (UTC)
func (s *Service) RecentBets(ctx context.Context) (RecentActivity, error) {
	act := RecentActivity{Items: []RecentBet{}}
	err := s.store.View(ctx, func(q Queries) error {
		rows, err := q.RecentBets(ctx, RecentBetsLimit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			name := r.UserName
			if strings.TrimSpace(name) == "" {
				name = "Unknown"
			}
			act.Items = append(act.Items, RecentBet{
				ID:           r.ID,
				UserID:       r.UserID,
				UserName:     name,
				Option:       r.OptionText,
				Stake:        r.Stake,
				PotentialWin: r.PotentialPayout,
				Status:       r.Status,
				Title:        r.MarketTitle,
				PlacedAt:     r.PlacedAt,
			})
		}
		from, to := utcDay(s.now())
		act.TotalToday, err = q.StakePlacedBetween(ctx, from, to)
		return err
	})
	return act, err
}

// utcDay devolve [00:00, 00:00 do dia seguinte) em UTC
func utcDay(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
