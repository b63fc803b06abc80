package service_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/repo"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

var baseTime = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []events.BetChange
	settled []events.MarketSettled
}

func (p *recordingPublisher) PublishBetChange(_ context.Context, e events.BetChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, e)
	return nil
}

func (p *recordingPublisher) PublishMarketSettled(_ context.Context, e events.MarketSettled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = append(p.settled, e)
	return nil
}

func (p *recordingPublisher) changesOfType(typ string) []events.BetChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.BetChange
	for _, c := range p.changes {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// memCache imita o cache Redis serializando em JSON
type memCache struct {
	mu          sync.Mutex
	raw         []byte
	hits        int
	invalidated int
}

func (c *memCache) Load(_ context.Context, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(c.raw, dst)
}

func (c *memCache) Save(_ context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	c.raw = b
	return err
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = nil
	c.invalidated++
	return nil
}

type fixture struct {
	ctx   context.Context
	svc   *service.Service
	store *repo.Memory
	pub   *recordingPublisher
	cache *memCache

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, keep ...string) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: repo.NewMemory(),
		pub:   &recordingPublisher{},
		cache: &memCache{},
		now:   baseTime,
	}
	f.svc = service.New(nil, f.store, service.Options{
		Publisher: f.pub,
		Cache:     f.cache,
		Now:       f.clock,
		PurgeKeep: keep,
	})
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// user cria um membro e ajusta o saldo direto no store, sem ledger
func (f *fixture) user(t *testing.T, name string, balance int64) model.UserProfile {
	t.Helper()
	u, err := f.svc.CreateProfile(f.ctx, service.CreateProfileInput{
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@club.test",
		FullName: name,
	})
	require.NoError(t, err)
	if balance != u.PointsBalance {
		require.NoError(t, f.store.InTx(f.ctx, func(q service.Queries) error {
			_, err := q.AddBalance(f.ctx, u.ID, balance-u.PointsBalance)
			return err
		}))
		u.PointsBalance = balance
	}
	// created_at distinto por usuário
	f.advance(time.Second)
	return u
}

func (f *fixture) admin(t *testing.T, name string) model.UserProfile {
	t.Helper()
	now := f.clock()
	u := model.UserProfile{
		ID:            "admin-" + strings.ToLower(name),
		Email:         strings.ToLower(name) + "@admin.test",
		FullName:      name,
		Role:          model.RoleAdmin,
		PointsBalance: 99999,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.store.InTx(f.ctx, func(q service.Queries) error { return q.InsertUser(f.ctx, u) }))
	return u
}

func opts(pairs ...string) []service.OptionInput {
	out := make([]service.OptionInput, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, service.OptionInput{Text: pairs[i], Odds: decimal.RequireFromString(pairs[i+1])})
	}
	return out
}

// match cria "home vs away" fechando em 24h, com as opções dadas
func (f *fixture) match(t *testing.T, home, away string, options ...string) service.MarketDetail {
	t.Helper()
	date := f.clock().Add(48 * time.Hour)
	closing := f.clock().Add(24 * time.Hour)
	d, err := f.svc.CreateMarket(f.ctx, service.CreateMarketInput{
		Kind:        model.KindMatch,
		HomeTeam:    home,
		AwayTeam:    away,
		MatchDate:   &date,
		ClosingTime: &closing,
		Options:     opts(options...),
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) funBet(t *testing.T, title string, options ...string) service.MarketDetail {
	t.Helper()
	closing := f.clock().Add(24 * time.Hour)
	d, err := f.svc.CreateMarket(f.ctx, service.CreateMarketInput{
		Kind:        model.KindFun,
		Title:       title,
		ClosingTime: &closing,
		Options:     opts(options...),
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) place(t *testing.T, userID, optionID string, stake int64) model.Bet {
	t.Helper()
	b, err := f.svc.PlaceBet(f.ctx, service.PlaceBetInput{UserID: userID, OptionID: optionID, Stake: stake})
	require.NoError(t, err)
	return b.Bet
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	w, err := f.svc.Wallet(f.ctx, userID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) transactions(t *testing.T, userID string) []model.Transaction {
	t.Helper()
	txs, err := f.svc.UserTransactions(f.ctx, userID, 100)
	require.NoError(t, err)
	return txs
}

func (f *fixture) bet(t *testing.T, userID, betID string) model.BetDetail {
	t.Helper()
	bets, err := f.svc.UserBets(f.ctx, userID, "")
	require.NoError(t, err)
	for _, b := range bets {
		if b.ID == betID {
			return b
		}
	}
	t.Fatalf("bet %s not found for user %s", betID, userID)
	return model.BetDetail{}
}
