package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
)

// Memory é o store em memória (STORE=memory e testes). Um mutex global
// serializa as transações; InTx trabalha sobre uma cópia e só a publica
// no commit, então erro no meio desfaz tudo.
type Memory struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	users   map[string]model.UserProfile
	matches map[string]model.Match
	funBets map[string]model.FunBet
	options map[string]model.BetOption
	bets    map[string]model.Bet
	txs     []model.Transaction
}

func NewMemory() *Memory {
	return &Memory{data: &memData{
		users:   map[string]model.UserProfile{},
		matches: map[string]model.Match{},
		funBets: map[string]model.FunBet{},
		options: map[string]model.BetOption{},
		bets:    map[string]model.Bet{},
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:   make(map[string]model.UserProfile, len(d.users)),
		matches: make(map[string]model.Match, len(d.matches)),
		funBets: make(map[string]model.FunBet, len(d.funBets)),
		options: make(map[string]model.BetOption, len(d.options)),
		bets:    make(map[string]model.Bet, len(d.bets)),
		txs:     append([]model.Transaction(nil), d.txs...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.matches {
		c.matches[k] = v
	}
	for k, v := range d.funBets {
		c.funBets[k] = v
	}
	for k, v := range d.options {
		c.options[k] = v
	}
	for k, v := range d.bets {
		c.bets[k] = v
	}
	return c
}

func (m *Memory) InTx(ctx context.Context, fn func(q service.Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.data.clone()
	if err := fn(&memQueries{d: work}); err != nil {
		return err
	}
	m.data = work
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(q service.Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memQueries{d: m.data})
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

type memQueries struct{ d *memData }

// ---------- usuários ----------

func (q *memQueries) GetUser(_ context.Context, id string) (model.UserProfile, error) {
	u, ok := q.d.users[id]
	if !ok {
		return model.UserProfile{}, apperr.Missing("user", id)
	}
	return u, nil
}

func (q *memQueries) LockUser(ctx context.Context, id string) (model.UserProfile, error) {
	return q.GetUser(ctx, id)
}

func (q *memQueries) ListUsers(_ context.Context) ([]model.UserProfile, error) {
	out := make([]model.UserProfile, 0, len(q.d.users))
	for _, u := range q.d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *memQueries) InsertUser(_ context.Context, u model.UserProfile) error {
	if _, ok := q.d.users[u.ID]; ok {
		return apperr.Conflictf("user %s already exists", u.ID)
	}
	for _, other := range q.d.users {
		if strings.EqualFold(other.Email, u.Email) {
			return apperr.Conflictf("email %s already registered", u.Email)
		}
	}
	q.d.users[u.ID] = u
	return nil
}

func (q *memQueries) AddBalance(_ context.Context, userID string, delta int64) (int64, error) {
	u, ok := q.d.users[userID]
	if !ok {
		return 0, apperr.Missing("user", userID)
	}
	u.PointsBalance += delta
	u.UpdatedAt = time.Now().UTC()
	q.d.users[userID] = u
	return u.PointsBalance, nil
}

func (q *memQueries) SetAllBalances(_ context.Context, value int64) (int64, error) {
	now := time.Now().UTC()
	for id, u := range q.d.users {
		u.PointsBalance = value
		u.UpdatedAt = now
		q.d.users[id] = u
	}
	return int64(len(q.d.users)), nil
}

// DeleteUsers remove os usuários junto com apostas e transações (cascade)
func (q *memQueries) DeleteUsers(_ context.Context, ids []string) (int64, error) {
	drop := make(map[string]bool, len(ids))
	var n int64
	for _, id := range ids {
		if _, ok := q.d.users[id]; ok {
			delete(q.d.users, id)
			drop[id] = true
			n++
		}
	}
	removed := map[string]bool{}
	for id, b := range q.d.bets {
		if drop[b.UserID] {
			delete(q.d.bets, id)
			removed[id] = true
		}
	}
	kept := q.d.txs[:0:0]
	for _, t := range q.d.txs {
		if drop[t.UserID] {
			continue
		}
		kept = append(kept, t)
	}
	q.d.txs = kept
	q.detachTransactions(removed)
	return n, nil
}

// ---------- mercados ----------

func (q *memQueries) GetMarket(_ context.Context, ref model.MarketRef) (model.Market, error) {
	switch ref.Kind {
	case model.KindMatch:
		if m, ok := q.d.matches[ref.ID]; ok {
			return model.MatchMarket(m), nil
		}
		return model.Market{}, apperr.Missing("match", ref.ID)
	case model.KindFun:
		if f, ok := q.d.funBets[ref.ID]; ok {
			return model.FunMarket(f), nil
		}
		return model.Market{}, apperr.Missing("fun bet", ref.ID)
	}
	return model.Market{}, apperr.Invalid("kind", "unknown market kind %q", ref.Kind)
}

func (q *memQueries) LockMarket(ctx context.Context, ref model.MarketRef) (model.Market, error) {
	return q.GetMarket(ctx, ref)
}

// ListMarkets: partidas por data, depois fun bets por prazo
func (q *memQueries) ListMarkets(_ context.Context, kind model.MarketKind) ([]model.Market, error) {
	var out []model.Market
	if kind == "" || kind == model.KindMatch {
		ms := make([]model.Match, 0, len(q.d.matches))
		for _, m := range q.d.matches {
			ms = append(ms, m)
		}
		sort.Slice(ms, func(i, j int) bool {
			if !ms[i].MatchDate.Equal(ms[j].MatchDate) {
				return ms[i].MatchDate.Before(ms[j].MatchDate)
			}
			return ms[i].ID < ms[j].ID
		})
		for _, m := range ms {
			out = append(out, model.MatchMarket(m))
		}
	}
	if kind == "" || kind == model.KindFun {
		fs := make([]model.FunBet, 0, len(q.d.funBets))
		for _, f := range q.d.funBets {
			fs = append(fs, f)
		}
		sort.Slice(fs, func(i, j int) bool {
			if !fs[i].ClosingTime.Equal(fs[j].ClosingTime) {
				return fs[i].ClosingTime.Before(fs[j].ClosingTime)
			}
			return fs[i].ID < fs[j].ID
		})
		for _, f := range fs {
			out = append(out, model.FunMarket(f))
		}
	}
	return out, nil
}

func (q *memQueries) FindMatch(_ context.Context, home, away string, date *time.Time) (model.Match, bool, error) {
	var (
		best  model.Match
		found bool
	)
	for _, m := range q.d.matches {
		if !strings.EqualFold(m.HomeTeam, home) || !strings.EqualFold(m.AwayTeam, away) {
			continue
		}
		if date != nil && !m.MatchDate.Equal(*date) {
			continue
		}
		if !found || m.CreatedAt.After(best.CreatedAt) {
			best, found = m, true
		}
	}
	return best, found, nil
}

func (q *memQueries) InsertMatch(_ context.Context, m model.Match) error {
	if _, ok := q.d.matches[m.ID]; ok {
		return apperr.Conflictf("match %s already exists", m.ID)
	}
	q.d.matches[m.ID] = m
	return nil
}

func (q *memQueries) UpdateMatchSchedule(_ context.Context, id string, status model.MatchStatus, closing time.Time) error {
	m, ok := q.d.matches[id]
	if !ok {
		return apperr.Missing("match", id)
	}
	m.Status = status
	m.ClosingTime = closing
	m.UpdatedAt = time.Now().UTC()
	q.d.matches[id] = m
	return nil
}

func (q *memQueries) InsertFunBet(_ context.Context, f model.FunBet) error {
	if _, ok := q.d.funBets[f.ID]; ok {
		return apperr.Conflictf("fun bet %s already exists", f.ID)
	}
	q.d.funBets[f.ID] = f
	return nil
}

func (q *memQueries) MarkSettled(_ context.Context, ref model.MarketRef, resultText string) error {
	now := time.Now().UTC()
	switch ref.Kind {
	case model.KindMatch:
		m, ok := q.d.matches[ref.ID]
		if !ok {
			return apperr.Missing("match", ref.ID)
		}
		m.Status, m.UpdatedAt = model.MatchFinished, now
		q.d.matches[ref.ID] = m
	case model.KindFun:
		f, ok := q.d.funBets[ref.ID]
		if !ok {
			return apperr.Missing("fun bet", ref.ID)
		}
		text := resultText
		f.IsSettled, f.ResultText, f.UpdatedAt = true, &text, now
		q.d.funBets[ref.ID] = f
	}
	return nil
}

func (q *memQueries) MarkCancelled(_ context.Context, ref model.MarketRef) error {
	now := time.Now().UTC()
	switch ref.Kind {
	case model.KindMatch:
		m, ok := q.d.matches[ref.ID]
		if !ok {
			return apperr.Missing("match", ref.ID)
		}
		m.Status, m.UpdatedAt = model.MatchCancelled, now
		q.d.matches[ref.ID] = m
	case model.KindFun:
		f, ok := q.d.funBets[ref.ID]
		if !ok {
			return apperr.Missing("fun bet", ref.ID)
		}
		f.IsSettled, f.ResultText, f.UpdatedAt = true, nil, now
		q.d.funBets[ref.ID] = f
	}
	return nil
}

func (q *memQueries) DeleteMarket(_ context.Context, ref model.MarketRef) error {
	switch ref.Kind {
	case model.KindMatch:
		if _, ok := q.d.matches[ref.ID]; !ok {
			return apperr.Missing("match", ref.ID)
		}
		delete(q.d.matches, ref.ID)
	case model.KindFun:
		if _, ok := q.d.funBets[ref.ID]; !ok {
			return apperr.Missing("fun bet", ref.ID)
		}
		delete(q.d.funBets, ref.ID)
	}
	q.dropOptions(func(o model.BetOption) bool { return o.Market == ref })
	return nil
}

func (q *memQueries) DeleteAllMarkets(_ context.Context) (int64, error) {
	n := int64(len(q.d.matches) + len(q.d.funBets))
	q.d.matches = map[string]model.Match{}
	q.d.funBets = map[string]model.FunBet{}
	q.dropOptions(func(model.BetOption) bool { return true })
	return n, nil
}

// dropOptions apaga opções e, em cascata, as apostas delas
func (q *memQueries) dropOptions(match func(model.BetOption) bool) {
	gone := map[string]bool{}
	for id, o := range q.d.options {
		if match(o) {
			delete(q.d.options, id)
			gone[id] = true
		}
	}
	removed := map[string]bool{}
	for id, b := range q.d.bets {
		if gone[b.BetOptionID] {
			delete(q.d.bets, id)
			removed[id] = true
		}
	}
	q.detachTransactions(removed)
}

// detachTransactions emula ON DELETE SET NULL em transactions.bet_id
func (q *memQueries) detachTransactions(betIDs map[string]bool) {
	if len(betIDs) == 0 {
		return
	}
	for i, t := range q.d.txs {
		if t.BetID != nil && betIDs[*t.BetID] {
			q.d.txs[i].BetID = nil
		}
	}
}

// ---------- opções ----------

func (q *memQueries) GetOption(_ context.Context, id string) (model.BetOption, error) {
	o, ok := q.d.options[id]
	if !ok {
		return model.BetOption{}, apperr.Missing("bet option", id)
	}
	return o, nil
}

func (q *memQueries) ListOptions(_ context.Context, ref model.MarketRef) ([]model.BetOption, error) {
	var out []model.BetOption
	for _, o := range q.d.options {
		if o.Market == ref {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *memQueries) InsertOption(_ context.Context, o model.BetOption) error {
	if _, ok := q.d.options[o.ID]; ok {
		return apperr.Conflictf("bet option %s already exists", o.ID)
	}
	if o.Odds.LessThan(model.MinOdds) {
		return apperr.Invalid("odds", "minimum is %s", model.MinOdds)
	}
	q.d.options[o.ID] = o
	return nil
}

func (q *memQueries) SetWinner(_ context.Context, ref model.MarketRef, optionID string) error {
	for id, o := range q.d.options {
		if o.Market != ref {
			continue
		}
		o.IsWinner = id == optionID
		q.d.options[id] = o
	}
	return nil
}

// ---------- apostas ----------

func (q *memQueries) InsertBet(_ context.Context, b model.Bet) error {
	if _, ok := q.d.users[b.UserID]; !ok {
		return apperr.Missing("user", b.UserID)
	}
	if _, ok := q.d.options[b.BetOptionID]; !ok {
		return apperr.Missing("bet option", b.BetOptionID)
	}
	if b.Status == model.BetPending {
		for _, other := range q.d.bets {
			if other.Status == model.BetPending && other.UserID == b.UserID && other.BetOptionID == b.BetOptionID {
				return apperr.Conflictf("pending bet already exists for user %s on option %s", b.UserID, b.BetOptionID)
			}
		}
	}
	q.d.bets[b.ID] = b
	return nil
}

func (q *memQueries) HasPendingBet(_ context.Context, userID, optionID string) (bool, error) {
	for _, b := range q.d.bets {
		if b.Status == model.BetPending && b.UserID == userID && b.BetOptionID == optionID {
			return true, nil
		}
	}
	return false, nil
}

func (q *memQueries) ReservedStake(_ context.Context, userID string) (int64, error) {
	var sum int64
	for _, b := range q.d.bets {
		if b.Status == model.BetPending && b.UserID == userID {
			sum += b.Stake
		}
	}
	return sum, nil
}

func (q *memQueries) BetsForOptions(_ context.Context, optionIDs []string, status model.BetStatus) ([]model.Bet, error) {
	want := make(map[string]bool, len(optionIDs))
	for _, id := range optionIDs {
		want[id] = true
	}
	var out []model.Bet
	for _, b := range q.d.bets {
		if want[b.BetOptionID] && (status == "" || b.Status == status) {
			out = append(out, b)
		}
	}
	sortBetsAsc(out)
	return out, nil
}

func (q *memQueries) BetsForUsers(_ context.Context, userIDs []string) ([]model.Bet, error) {
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []model.Bet
	for _, b := range q.d.bets {
		if want[b.UserID] {
			out = append(out, b)
		}
	}
	sortBetsAsc(out)
	return out, nil
}

func (q *memQueries) AllBets(_ context.Context) ([]model.Bet, error) {
	out := make([]model.Bet, 0, len(q.d.bets))
	for _, b := range q.d.bets {
		out = append(out, b)
	}
	sortBetsAsc(out)
	return out, nil
}

func (q *memQueries) LockPendingBets(ctx context.Context, optionIDs []string) ([]model.Bet, error) {
	return q.BetsForOptions(ctx, optionIDs, model.BetPending)
}

func (q *memQueries) ResolveBet(_ context.Context, betID string, status model.BetStatus, payout int64, at time.Time) (bool, error) {
	b, ok := q.d.bets[betID]
	if !ok || b.Status != model.BetPending {
		return false, nil
	}
	p, t := payout, at
	b.Status, b.ActualPayout, b.SettledAt = status, &p, &t
	q.d.bets[betID] = b
	return true, nil
}

func (q *memQueries) detail(b model.Bet) model.BetDetail {
	d := model.BetDetail{Bet: b}
	if o, ok := q.d.options[b.BetOptionID]; ok {
		d.OptionText, d.Odds, d.Market = o.OptionText, o.Odds, o.Market
		if m, err := q.GetMarket(context.Background(), o.Market); err == nil {
			d.MarketTitle = m.Title()
		}
	}
	if u, ok := q.d.users[b.UserID]; ok {
		d.UserName = u.FullName
	}
	return d
}

func (q *memQueries) UserBets(_ context.Context, userID string, status model.BetStatus) ([]model.BetDetail, error) {
	var bets []model.Bet
	for _, b := range q.d.bets {
		if b.UserID == userID && (status == "" || b.Status == status) {
			bets = append(bets, b)
		}
	}
	sortBetsDesc(bets)
	out := make([]model.BetDetail, len(bets))
	for i, b := range bets {
		out[i] = q.detail(b)
	}
	return out, nil
}

func (q *memQueries) RecentBets(_ context.Context, limit int) ([]model.BetDetail, error) {
	bets := make([]model.Bet, 0, len(q.d.bets))
	for _, b := range q.d.bets {
		bets = append(bets, b)
	}
	sortBetsDesc(bets)
	if limit > 0 && len(bets) > limit {
		bets = bets[:limit]
	}
	out := make([]model.BetDetail, len(bets))
	for i, b := range bets {
		out[i] = q.detail(b)
	}
	return out, nil
}

func (q *memQueries) StakePlacedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var sum int64
	for _, b := range q.d.bets {
		if !b.PlacedAt.Before(from) && b.PlacedAt.Before(to) {
			sum += b.Stake
		}
	}
	return sum, nil
}

func (q *memQueries) UserBetTotals(_ context.Context, userID string) (model.BetTotals, error) {
	var t model.BetTotals
	for _, b := range q.d.bets {
		if b.UserID == userID {
			t.Add(b)
		}
	}
	return t, nil
}

func (q *memQueries) BetTotalsByUser(_ context.Context) (map[string]model.BetTotals, error) {
	out := map[string]model.BetTotals{}
	for _, b := range q.d.bets {
		t := out[b.UserID]
		t.Add(b)
		out[b.UserID] = t
	}
	return out, nil
}

func (q *memQueries) DeleteAllBetsAndTransactions(_ context.Context) (int64, int64, error) {
	bets, txs := int64(len(q.d.bets)), int64(len(q.d.txs))
	q.d.bets = map[string]model.Bet{}
	q.d.txs = nil
	return bets, txs, nil
}

// ---------- transações ----------

func (q *memQueries) InsertTransaction(_ context.Context, t model.Transaction) error {
	if _, ok := q.d.users[t.UserID]; !ok {
		return apperr.Missing("user", t.UserID)
	}
	q.d.txs = append(q.d.txs, t)
	return nil
}

// UserTransactions: mais recentes primeiro
func (q *memQueries) UserTransactions(_ context.Context, userID string, limit int) ([]model.Transaction, error) {
	var out []model.Transaction
	for i := len(q.d.txs) - 1; i >= 0; i-- {
		if q.d.txs[i].UserID == userID {
			out = append(out, q.d.txs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortBetsAsc(bets []model.Bet) {
	sort.Slice(bets, func(i, j int) bool {
		if !bets[i].PlacedAt.Equal(bets[j].PlacedAt) {
			return bets[i].PlacedAt.Before(bets[j].PlacedAt)
		}
		return bets[i].ID < bets[j].ID
	})
}

func sortBetsDesc(bets []model.Bet) {
	sort.Slice(bets, func(i, j int) bool {
		if !bets[i].PlacedAt.Equal(bets[j].PlacedAt) {
			return bets[i].PlacedAt.After(bets[j].PlacedAt)
		}
		return bets[i].ID > bets[j].ID
	})
}

var _ service.Store = (*Memory)(nil)
