package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// Regras de negócio fixas
const (
	MinStake       int64 = 10
	StartingPoints int64 = 1000
)

// MinOdds é o menor multiplicador aceito para uma opção
var MinOdds = decimal.RequireFromString("1.01")

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// UserProfile guarda o saldo total ("wallet total"), não o disponível.
// Disponível = PointsBalance - soma das apostas pendentes.
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	Role          Role      `json:"role"`
	PointsBalance int64     `json:"pointsBalance"`
	AvatarURL     *string   `json:"avatarUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type BetStatus string

const (
	BetPending   BetStatus = "pending"
	BetWon       BetStatus = "won"
	BetLost      BetStatus = "lost"
	BetCancelled BetStatus = "cancelled"
)

func ParseBetStatus(s string) (BetStatus, bool) {
	switch st := BetStatus(s); st {
	case BetPending, BetWon, BetLost, BetCancelled:
		return st, true
	}
	return "", false
}

// Bet só muda status/payout/settled_at uma única vez, na liquidação
type Bet struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	BetOptionID     string     `json:"betOptionId"`
	Stake           int64      `json:"stake"`
	PotentialPayout int64      `json:"potentialPayout"`
	Status          BetStatus  `json:"status"`
	ActualPayout    *int64     `json:"actualPayout,omitempty"`
	PlacedAt        time.Time  `json:"placedAt"`
	SettledAt       *time.Time `json:"settledAt,omitempty"`
}

// Row converte para o snapshot transmitido nos eventos
func (b Bet) Row() events.BetRow {
	return events.BetRow{
		ID:              b.ID,
		UserID:          b.UserID,
		BetOptionID:     b.BetOptionID,
		Stake:           b.Stake,
		PotentialPayout: b.PotentialPayout,
		Status:          string(b.Status),
		ActualPayout:    b.ActualPayout,
		PlacedAt:        b.PlacedAt,
		SettledAt:       b.SettledAt,
	}
}

// BetDetail é a aposta com a opção e o mercado já resolvidos (joins)
type BetDetail struct {
	Bet
	OptionText  string          `json:"optionText"`
	Odds        decimal.Decimal `json:"odds"`
	Market      MarketRef       `json:"market"`
	MarketTitle string          `json:"marketTitle"`
	UserName    string          `json:"userName,omitempty"`
}

// BetTotals agrega apostas de um usuário por status
type BetTotals struct {
	Total     int   `json:"total"`
	Pending   int   `json:"pending"`
	Won       int   `json:"won"`
	Lost      int   `json:"lost"`
	Cancelled int   `json:"cancelled"`
	Winnings  int64 `json:"winnings"` // soma de (payout - stake) das vencedoras
}

// Add acumula uma aposta nos totais
func (t *BetTotals) Add(b Bet) {
	t.Total++
	switch b.Status {
	case BetPending:
		t.Pending++
	case BetWon:
		t.Won++
		if b.ActualPayout != nil {
			t.Winnings += *b.ActualPayout - b.Stake
		}
	case BetLost:
		t.Lost++
	case BetCancelled:
		t.Cancelled++
	}
}

// WinRate = won / (won + lost); pendentes e canceladas ficam fora do denominador
func (t BetTotals) WinRate() float64 {
	if t.Won+t.Lost == 0 {
		return 0
	}
	return float64(t.Won) / float64(t.Won+t.Lost)
}

type TxType string

const (
	TxBetPlaced       TxType = "bet_placed"
	TxWinPayout       TxType = "win_payout"
	TxLossSettle      TxType = "loss_settle"
	TxBetCancelled    TxType = "bet_cancelled"
	TxAdminAdjustment TxType = "admin_adjustment"
)

// Transaction é o log de auditoria (append-only) do saldo
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Amount      int64     `json:"amount"`
	Type        TxType    `json:"type"`
	Description string    `json:"description"`
	BetID       *string   `json:"betId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Payout = round(stake × odds), arredondando metade para longe do zero
func Payout(stake int64, odds decimal.Decimal) int64 {
	return decimal.NewFromInt(stake).Mul(odds).Round(0).IntPart()
}
