package service

import (
	"context"
	"time"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
)

// Queries reúne as operações de persistência usadas pelo serviço.
// Dentro de InTx tudo roda na mesma transação; os métodos Lock* seguram a
// linha até o commit. Erros de "não encontrado" são *apperr.NotFound.
type Queries interface {
	// usuários
	GetUser(ctx context.Context, id string) (model.UserProfile, error)
	LockUser(ctx context.Context, id string) (model.UserProfile, error)
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
	InsertUser(ctx context.Context, u model.UserProfile) error
	AddBalance(ctx context.Context, userID string, delta int64) (int64, error)
	SetAllBalances(ctx context.Context, value int64) (int64, error)
	DeleteUsers(ctx context.Context, ids []string) (int64, error)

	// mercados
	GetMarket(ctx context.Context, ref model.MarketRef) (model.Market, error)
	LockMarket(ctx context.Context, ref model.MarketRef) (model.Market, error)
	ListMarkets(ctx context.Context, kind model.MarketKind) ([]model.Market, error)
	FindMatch(ctx context.Context, home, away string, date *time.Time) (model.Match, bool, error)
	InsertMatch(ctx context.Context, m model.Match) error
	UpdateMatchSchedule(ctx context.Context, id string, status model.MatchStatus, closing time.Time) error
	InsertFunBet(ctx context.Context, f model.FunBet) error
	MarkSettled(ctx context.Context, ref model.MarketRef, resultText string) error
	MarkCancelled(ctx context.Context, ref model.MarketRef) error
	DeleteMarket(ctx context.Context, ref model.MarketRef) error
	DeleteAllMarkets(ctx context.Context) (int64, error)

	// opções
	GetOption(ctx context.Context, id string) (model.BetOption, error)
	ListOptions(ctx context.Context, ref model.MarketRef) ([]model.BetOption, error)
	InsertOption(ctx context.Context, o model.BetOption) error
	SetWinner(ctx context.Context, ref model.MarketRef, optionID string) error

	// apostas
	InsertBet(ctx context.Context, b model.Bet) error
	HasPendingBet(ctx context.Context, userID, optionID string) (bool, error)
	ReservedStake(ctx context.Context, userID string) (int64, error)
	BetsForOptions(ctx context.Context, optionIDs []string, status model.BetStatus) ([]model.Bet, error)
	BetsForUsers(ctx context.Context, userIDs []string) ([]model.Bet, error)
	AllBets(ctx context.Context) ([]model.Bet, error)
	LockPendingBets(ctx context.Context, optionIDs []string) ([]model.Bet, error)
	ResolveBet(ctx context.Context, betID string, status model.BetStatus, payout int64, at time.Time) (bool, error)
	UserBets(ctx context.Context, userID string, status model.BetStatus) ([]model.BetDetail, error)
	RecentBets(ctx context.Context, limit int) ([]model.BetDetail, error)
	StakePlacedBetween(ctx context.Context, from, to time.Time) (int64, error)
	UserBetTotals(ctx context.Context, userID string) (model.BetTotals, error)
	BetTotalsByUser(ctx context.Context) (map[string]model.BetTotals, error)
	DeleteAllBetsAndTransactions(ctx context.Context) (bets int64, txs int64, err error)

	// transações (ledger)
	InsertTransaction(ctx context.Context, t model.Transaction) error
	UserTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error)
}

// Store é o handle único de acesso a dados, injetado no serviço
type Store interface {
	// InTx executa fn numa transação; qualquer erro faz rollback de tudo
	InTx(ctx context.Context, fn func(q Queries) error) error
	// View executa leituras sem transação explícita
	View(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
