package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketKind é o discriminante do mercado polimórfico (partida ou fun bet)
type MarketKind string

const (
	KindMatch MarketKind = "match"
	KindFun   MarketKind = "fun"
)

func ParseKind(s string) (MarketKind, bool) {
	switch k := MarketKind(s); k {
	case KindMatch, KindFun:
		return k, true
	}
	return "", false
}

// MarketRef identifica o pai de uma BetOption
type MarketRef struct {
	Kind MarketKind `json:"kind"`
	ID   string     `json:"id"`
}

func (r MarketRef) String() string { return string(r.Kind) + ":" + r.ID }

type MatchStatus string

const (
	MatchUpcoming  MatchStatus = "upcoming"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
)

type Match struct {
	ID          string      `json:"id"`
	HomeTeam    string      `json:"homeTeam"`
	AwayTeam    string      `json:"awayTeam"`
	MatchDate   time.Time   `json:"matchDate"`
	Status      MatchStatus `json:"status"`
	HomeScore   *int        `json:"homeScore,omitempty"`
	AwayScore   *int        `json:"awayScore,omitempty"`
	ClosingTime time.Time   `json:"closingTime"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type FunBet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ClosingTime time.Time `json:"closingTime"`
	ResultText  *string   `json:"resultText,omitempty"`
	IsSettled   bool      `json:"isSettled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Market = Match | FunBet; exatamente um dos ponteiros é preenchido
type Market struct {
	Ref    MarketRef `json:"ref"`
	Match  *Match    `json:"match,omitempty"`
	FunBet *FunBet   `json:"funBet,omitempty"`
}

func MatchMarket(m Match) Market {
	return Market{Ref: MarketRef{Kind: KindMatch, ID: m.ID}, Match: &m}
}

func FunMarket(f FunBet) Market {
	return Market{Ref: MarketRef{Kind: KindFun, ID: f.ID}, FunBet: &f}
}

func (m Market) Title() string {
	if m.Match != nil {
		return m.Match.HomeTeam + " vs " + m.Match.AwayTeam
	}
	if m.FunBet != nil {
		return m.FunBet.Title
	}
	return ""
}

func (m Market) ClosingTime() time.Time {
	if m.Match != nil {
		return m.Match.ClosingTime
	}
	if m.FunBet != nil {
		return m.FunBet.ClosingTime
	}
	return time.Time{}
}

// Settled: partida finalizada ou fun bet marcada como liquidada
func (m Market) Settled() bool {
	if m.Match != nil {
		return m.Match.Status == MatchFinished
	}
	return m.FunBet != nil && m.FunBet.IsSettled && m.FunBet.ResultText != nil
}

func (m Market) Cancelled() bool {
	if m.Match != nil {
		return m.Match.Status == MatchCancelled
	}
	// fun bet cancelada fica liquidada sem resultado
	return m.FunBet != nil && m.FunBet.IsSettled && m.FunBet.ResultText == nil
}

type MarketState string

const (
	StateOpen      MarketState = "open"
	StateClosed    MarketState = "closed" // prazo vencido, aguardando liquidação
	StateSettled   MarketState = "settled"
	StateCancelled MarketState = "cancelled"
)

func ParseState(s string) (MarketState, bool) {
	switch st := MarketState(s); st {
	case StateOpen, StateClosed, StateSettled, StateCancelled:
		return st, true
	}
	return "", false
}

func (m Market) State(now time.Time) MarketState {
	switch {
	case m.Cancelled():
		return StateCancelled
	case m.Settled():
		return StateSettled
	case !now.Before(m.ClosingTime()):
		return StateClosed
	default:
		return StateOpen
	}
}

// AcceptsBets exige mercado aberto e prazo não vencido
func (m Market) AcceptsBets(now time.Time) bool {
	return m.State(now) == StateOpen
}

// BetOption é um resultado exclusivo de um mercado
type BetOption struct {
	ID         string          `json:"id"`
	Market     MarketRef       `json:"market"`
	OptionText string          `json:"optionText"`
	Odds       decimal.Decimal `json:"odds"`
	IsWinner   bool            `json:"isWinner"`
	CreatedAt  time.Time       `json:"createdAt"`
}
